package repository

import (
	"context"
	"errors"
	"time"

	"crosspost/domain/model"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	// ErrScheduleNotClaimable means the schedule exists but another run owns it or it already published.
	ErrScheduleNotClaimable = errors.New("schedule not claimable")
)

// ISchedule is the schedule record store.
type ISchedule interface {
	GetByID(ctx context.Context, id string) (*model.Schedule, error)
	// ClaimDue moves up to limit queued schedules due at or before now into processing.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.Schedule, error)
	// ClaimByID moves one queued or failed schedule into processing.
	ClaimByID(ctx context.Context, id string, now time.Time) (*model.Schedule, error)
	RecordOutcome(ctx context.Context, id string, outcome model.ScheduleOutcome) error
}
