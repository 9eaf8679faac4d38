package repository

import (
	"context"
	"time"

	"crosspost/domain/model"
)

// IPublishEvents receives publish outcome events.
type IPublishEvents interface {
	PublishOutcome(ctx context.Context, evt model.PublishEvent) error
}

// IPublishCache stores the latest result per key for status lookups.
type IPublishCache interface {
	SetResult(ctx context.Context, key string, result model.PublishResult, ttl time.Duration) error
	GetResult(ctx context.Context, key string) (*model.PublishResult, error)
}

// IPublishMetrics records pipeline outcomes.
type IPublishMetrics interface {
	PublishSucceeded(status string)
	PublishFailed(kind string)
	TokenRefreshed()
	AttemptDuration(d time.Duration)
}
