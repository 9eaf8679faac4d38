package dto

// TikTokError is the error envelope on every Content Posting API response.
type TikTokError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

// TikTokTokenForm is the form body for /v2/oauth/token/.
type TikTokTokenForm struct {
	ClientKey    string `url:"client_key"`
	ClientSecret string `url:"client_secret"`
	GrantType    string `url:"grant_type"`
	RefreshToken string `url:"refresh_token,omitempty"`
	Code         string `url:"code,omitempty"`
	RedirectURI  string `url:"redirect_uri,omitempty"`
}

type TikTokTokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	OpenID           string `json:"open_id"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	RefreshToken     string `json:"refresh_token"`
	Scope            string `json:"scope"`
	TokenType        string `json:"token_type"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	LogID            string `json:"log_id"`
}

type TikTokCreatorInfo struct {
	CreatorAvatarURL        string   `json:"creator_avatar_url"`
	CreatorUsername         string   `json:"creator_username"`
	CreatorNickname         string   `json:"creator_nickname"`
	PrivacyLevelOptions     []string `json:"privacy_level_options"`
	CommentDisabled         bool     `json:"comment_disabled"`
	DuetDisabled            bool     `json:"duet_disabled"`
	StitchDisabled          bool     `json:"stitch_disabled"`
	MaxVideoPostDurationSec int      `json:"max_video_post_duration_sec"`
	CanPost                 *bool    `json:"can_post,omitempty"`
	MaxPostsReached         bool     `json:"max_posts_reached"`
}

type TikTokCreatorInfoResponse struct {
	Data  TikTokCreatorInfo `json:"data"`
	Error TikTokError       `json:"error"`
}

type TikTokVideoPostInfo struct {
	Title              string `json:"title,omitempty"`
	PrivacyLevel       string `json:"privacy_level"`
	DisableDuet        bool   `json:"disable_duet"`
	DisableComment     bool   `json:"disable_comment"`
	DisableStitch      bool   `json:"disable_stitch"`
	BrandContentToggle bool   `json:"brand_content_toggle"`
	BrandOrganicToggle bool   `json:"brand_organic_toggle"`
}

// TikTokVideoSourceInfo carries either a pull URL or single-chunk upload sizing.
type TikTokVideoSourceInfo struct {
	Source          string `json:"source"`
	VideoURL        string `json:"video_url,omitempty"`
	VideoSize       int64  `json:"video_size,omitempty"`
	ChunkSize       int64  `json:"chunk_size,omitempty"`
	TotalChunkCount int    `json:"total_chunk_count,omitempty"`
}

type TikTokVideoInitRequest struct {
	PostInfo   TikTokVideoPostInfo   `json:"post_info"`
	SourceInfo TikTokVideoSourceInfo `json:"source_info"`
}

type TikTokVideoInitData struct {
	PublishID string `json:"publish_id"`
	UploadURL string `json:"upload_url,omitempty"`
}

type TikTokVideoInitResponse struct {
	Data  TikTokVideoInitData `json:"data"`
	Error TikTokError         `json:"error"`
}

type TikTokPublishStatusRequest struct {
	PublishID string `json:"publish_id"`
}

type TikTokPublishStatusData struct {
	Status                   string   `json:"status"`
	FailReason               string   `json:"fail_reason,omitempty"`
	PublicalyAvailablePostID []int64  `json:"publicaly_available_post_id,omitempty"`
	UploadedBytes            int64    `json:"uploaded_bytes,omitempty"`
	DownloadedBytes          int64    `json:"downloaded_bytes,omitempty"`
	PublicPostIDs            []string `json:"-"`
}

type TikTokPublishStatusResponse struct {
	Data  TikTokPublishStatusData `json:"data"`
	Error TikTokError             `json:"error"`
}
