package model

// PrivacyLevel is the visibility a TikTok post is published with.
type PrivacyLevel string

const (
	PrivacyPublicToEveryone    PrivacyLevel = "PUBLIC_TO_EVERYONE"
	PrivacyMutualFollowFriends PrivacyLevel = "MUTUAL_FOLLOW_FRIENDS"
	PrivacySelfOnly            PrivacyLevel = "SELF_ONLY"
)

func (p PrivacyLevel) Valid() bool {
	switch p {
	case PrivacyPublicToEveryone, PrivacyMutualFollowFriends, PrivacySelfOnly:
		return true
	}
	return false
}

// SourceMode is how the platform obtains the video bytes.
type SourceMode string

const (
	SourcePullFromURL SourceMode = "PULL_FROM_URL"
	SourceFileUpload  SourceMode = "FILE_UPLOAD"
)

// PublishStatus is the normalized post status. The wire value PUBLISH_COMPLETE maps to StatusPublished.
type PublishStatus string

const (
	StatusProcessingDownload PublishStatus = "PROCESSING_DOWNLOAD"
	StatusProcessingUpload   PublishStatus = "PROCESSING_UPLOAD"
	StatusProcessingPost     PublishStatus = "PROCESSING_POST"
	StatusPublished          PublishStatus = "PUBLISHED"
	StatusFailed             PublishStatus = "FAILED"
)

// Terminal reports whether polling can stop on this status.
func (s PublishStatus) Terminal() bool {
	return s == StatusPublished || s == StatusFailed
}

// CreatorCapabilities is the result of the creator info probe. Never persisted.
type CreatorCapabilities struct {
	DisplayName             string
	Username                string
	AllowedPrivacyLevels    []PrivacyLevel
	MaxVideoPostDurationSec int
	DuetDisabled            bool
	StitchDisabled          bool
	CommentDisabled         bool
	CanPost                 bool
	MaxPostsReached         bool
}

func (c *CreatorCapabilities) Allows(level PrivacyLevel) bool {
	for _, l := range c.AllowedPrivacyLevels {
		if l == level {
			return true
		}
	}
	return false
}

// CommercialContent marks branded or promotional content.
type CommercialContent struct {
	Enabled           bool `json:"enabled" bson:"enabled"`
	IsOwnBrand        bool `json:"is_own_brand" bson:"is_own_brand"`
	IsThirdPartyBrand bool `json:"is_third_party_brand" bson:"is_third_party_brand"`
}

// PublishSettings are the caller's requested post options for one attempt.
type PublishSettings struct {
	PrivacyLevel      PrivacyLevel      `json:"privacy_level" bson:"privacy_level"`
	AllowComment      bool              `json:"allow_comment" bson:"allow_comment"`
	AllowDuet         bool              `json:"allow_duet" bson:"allow_duet"`
	AllowStitch       bool              `json:"allow_stitch" bson:"allow_stitch"`
	CommercialContent CommercialContent `json:"commercial_content" bson:"commercial_content"`
}

// VideoPayload is the video to publish plus its caption parts.
type VideoPayload struct {
	URL         string   `json:"url"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Hashtags    []string `json:"hashtags,omitempty"`
}

// PublishAttempt tracks one run of the pipeline. It is discarded when the run ends.
type PublishAttempt struct {
	AccountID         string
	PublishID         string
	UploadURL         string
	SourceMode        SourceMode
	PrivacyLevel      PrivacyLevel
	Status            PublishStatus
	FailReason        string
	PublicPostIDs     []string
	AttemptsRemaining int
	// Polled is set once at least one status poll returned; the result reporter
	// labels accepted attempts without it as UNOBSERVED.
	Polled bool
}

// PublishResult is the envelope returned to callers of the pipeline.
type PublishResult struct {
	Success   bool   `json:"success"`
	PublishID string `json:"publish_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
	PostURL   string `json:"post_url,omitempty"`
}

// Confirmed reports a success that observed the final published status.
func (r PublishResult) Confirmed() bool {
	return r.Success && r.Status == string(StatusPublished)
}
