package model

import "time"

// ScheduleStatus is the lifecycle of a scheduled post record.
type ScheduleStatus string

const (
	ScheduleQueued     ScheduleStatus = "queued"
	ScheduleProcessing ScheduleStatus = "processing"
	SchedulePublished  ScheduleStatus = "published"
	ScheduleFailed     ScheduleStatus = "failed"
)

// Schedule is a queued video post. The video is referenced either by an
// absolute URL or by an object key in the video bucket.
type Schedule struct {
	ID          string          `json:"id" bson:"_id"`
	UserID      string          `json:"user_id" bson:"user_id"`
	AccountID   string          `json:"account_id" bson:"account_id"`
	VideoURL    string          `json:"video_url,omitempty" bson:"video_url,omitempty"`
	VideoKey    string          `json:"video_key,omitempty" bson:"video_key,omitempty"`
	Title       string          `json:"title" bson:"title"`
	Description string          `json:"description" bson:"description"`
	Hashtags    []string        `json:"hashtags" bson:"hashtags"`
	Settings    PublishSettings `json:"settings" bson:"settings"`
	ScheduledAt time.Time       `json:"scheduled_at" bson:"scheduled_at"`
	Status      ScheduleStatus  `json:"status" bson:"status"`
	PublishID   *string         `json:"publish_id,omitempty" bson:"publish_id,omitempty"`
	TikTokURL   *string         `json:"tiktok_url,omitempty" bson:"tiktok_url,omitempty"`
	LastError   *string         `json:"last_error,omitempty" bson:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" bson:"updated_at"`
}

// ScheduleOutcome is the write-back produced by the result reporter.
type ScheduleOutcome struct {
	Status    ScheduleStatus
	PublishID *string
	TikTokURL *string
	LastError *string
	UpdatedAt time.Time
}

// PublishEvent is broadcast to outcome sinks after every attempt.
type PublishEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	AccountID  string    `json:"account_id"`
	ScheduleID string    `json:"schedule_id,omitempty"`
	Success    bool      `json:"success"`
	PublishID  string    `json:"publish_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Error      string    `json:"error,omitempty"`
	PostURL    string    `json:"post_url,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
