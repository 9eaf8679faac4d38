package usecase

import (
	"context"
	"fmt"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
)

// StatusUnobserved labels accepted attempts whose status was never read back.
const StatusUnobserved = "UNOBSERVED"

const (
	EventPublishSucceeded = "tiktok.publish.succeeded"
	EventPublishFailed    = "tiktok.publish.failed"
)

// PublishCacheKey is the cache key of a result looked up by publish id.
func PublishCacheKey(publishID string) string { return "tiktok:publish:" + publishID }

// ScheduleCacheKey is the cache key of the latest result of a schedule.
func ScheduleCacheKey(scheduleID string) string { return "tiktok:schedule:" + scheduleID }

// ResultReporter is the single exit of the pipeline. Every collaborator is
// optional; sink failures are logged and never change the result.
type ResultReporter struct {
	schedules repository.ISchedule
	cache     repository.IPublishCache
	metrics   repository.IPublishMetrics
	events    []repository.IPublishEvents
	ttl       time.Duration
	now       func() time.Time
}

func NewResultReporter(schedules repository.ISchedule, cache repository.IPublishCache, metrics repository.IPublishMetrics, ttl time.Duration, events ...repository.IPublishEvents) *ResultReporter {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	sinks := make([]repository.IPublishEvents, 0, len(events))
	for _, e := range events {
		if e != nil {
			sinks = append(sinks, e)
		}
	}
	return &ResultReporter{schedules: schedules, cache: cache, metrics: metrics, events: sinks, ttl: ttl, now: time.Now}
}

type reportInput struct {
	account  *model.Account
	schedule *model.Schedule
	attempt  *model.PublishAttempt
	err      error
	elapsed  time.Duration
}

func (r *ResultReporter) report(ctx context.Context, in reportInput) model.PublishResult {
	result := buildResult(in.account, in.attempt, in.err)
	lg := logger.GetLogger().WithField("account_id", in.attempt.AccountID).WithField("publish_id", in.attempt.PublishID)

	unobserved := result.Success && !in.attempt.Polled
	if r.metrics != nil {
		if unobserved {
			r.metrics.PublishSucceeded(StatusUnobserved)
		} else if result.Success {
			r.metrics.PublishSucceeded(result.Status)
		} else {
			r.metrics.PublishFailed(failureKind(in.err))
		}
		if in.elapsed > 0 {
			r.metrics.AttemptDuration(in.elapsed)
		}
	}
	if unobserved {
		lg.WithField("status", result.Status).Warn("Publish accepted but no status was read back")
	} else if result.Success {
		lg.WithField("status", result.Status).Info("Publish finished")
	} else {
		lg.WithField("error", result.Error).Warn("Publish failed")
	}

	now := r.now().UTC()
	if in.schedule != nil && r.schedules != nil {
		if err := r.schedules.RecordOutcome(ctx, in.schedule.ID, scheduleOutcome(result, now)); err != nil {
			lg.WithField("schedule_id", in.schedule.ID).WithField("error", err).Error("Failed to record schedule outcome")
		}
	}

	if r.cache != nil {
		if result.PublishID != "" {
			if err := r.cache.SetResult(ctx, PublishCacheKey(result.PublishID), result, r.ttl); err != nil {
				lg.WithField("error", err).Warn("Failed to cache publish result")
			}
		}
		if in.schedule != nil {
			if err := r.cache.SetResult(ctx, ScheduleCacheKey(in.schedule.ID), result, r.ttl); err != nil {
				lg.WithField("error", err).Warn("Failed to cache schedule result")
			}
		}
	}

	if len(r.events) > 0 {
		evt := model.PublishEvent{
			Type:       EventPublishSucceeded,
			AccountID:  in.attempt.AccountID,
			Success:    result.Success,
			PublishID:  in.attempt.PublishID,
			Status:     result.Status,
			Error:      result.Error,
			PostURL:    result.PostURL,
			OccurredAt: now,
		}
		if !result.Success {
			evt.Type = EventPublishFailed
		}
		if in.account != nil {
			evt.UserID = in.account.UserID
		}
		if in.schedule != nil {
			evt.ScheduleID = in.schedule.ID
		}
		for _, sink := range r.events {
			if err := sink.PublishOutcome(ctx, evt); err != nil {
				lg.WithField("error", err).Warn("Failed to emit publish event")
			}
		}
	}
	return result
}

func buildResult(account *model.Account, attempt *model.PublishAttempt, err error) model.PublishResult {
	if err != nil {
		return model.PublishResult{Success: false, Error: err.Error()}
	}
	result := model.PublishResult{Success: true, PublishID: attempt.PublishID, Status: string(attempt.Status)}
	if attempt.Status == model.StatusPublished && account != nil && account.Username != "" && len(attempt.PublicPostIDs) > 0 {
		result.PostURL = fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", account.Username, attempt.PublicPostIDs[0])
	}
	return result
}

func scheduleOutcome(result model.PublishResult, now time.Time) model.ScheduleOutcome {
	out := model.ScheduleOutcome{UpdatedAt: now}
	if !result.Success {
		out.Status = model.ScheduleFailed
		msg := result.Error
		out.LastError = &msg
		return out
	}
	out.Status = model.SchedulePublished
	id := result.PublishID
	out.PublishID = &id
	if result.PostURL != "" {
		u := result.PostURL
		out.TikTokURL = &u
	}
	return out
}
