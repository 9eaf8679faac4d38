package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"

	"golang.org/x/sync/errgroup"
)

// IScheduleUsecase runs stored schedules through the publish pipeline.
type IScheduleUsecase interface {
	RunSchedule(ctx context.Context, userID, scheduleID string) (model.PublishResult, error)
	ProcessDue(ctx context.Context, batchSize, concurrency int) (int, error)
	GetResult(ctx context.Context, userID, scheduleID string) (*model.PublishResult, error)
}

type scheduleUsecase struct {
	schedules repository.ISchedule
	accounts  repository.IAccount
	storage   repository.IVideoStorage
	publisher IPublishUsecase
	reporter  *ResultReporter
	cache     repository.IPublishCache
	now       func() time.Time
}

func NewScheduleUsecase(
	schedules repository.ISchedule,
	accounts repository.IAccount,
	storage repository.IVideoStorage,
	publisher IPublishUsecase,
	reporter *ResultReporter,
	cache repository.IPublishCache,
) IScheduleUsecase {
	if reporter == nil {
		reporter = NewResultReporter(schedules, cache, nil, 0)
	}
	return &scheduleUsecase{
		schedules: schedules,
		accounts:  accounts,
		storage:   storage,
		publisher: publisher,
		reporter:  reporter,
		cache:     cache,
		now:       time.Now,
	}
}

func (u *scheduleUsecase) RunSchedule(ctx context.Context, userID, scheduleID string) (model.PublishResult, error) {
	s, err := u.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return model.PublishResult{}, err
	}
	if userID != "" && s.UserID != userID {
		return model.PublishResult{}, repository.ErrScheduleNotFound
	}
	claimed, err := u.schedules.ClaimByID(ctx, scheduleID, u.now().UTC())
	if errors.Is(err, repository.ErrScheduleNotClaimable) {
		return model.PublishResult{}, fmt.Errorf("%w: %s", ErrScheduleNotRunnable, s.Status)
	}
	if err != nil {
		return model.PublishResult{}, err
	}
	return u.runClaimed(ctx, claimed), nil
}

// ProcessDue claims due schedules and runs them with at most concurrency in flight.
func (u *scheduleUsecase) ProcessDue(ctx context.Context, batchSize, concurrency int) (int, error) {
	if batchSize <= 0 {
		batchSize = 10
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	due, err := u.schedules.ClaimDue(ctx, u.now().UTC(), batchSize)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}
	logger.GetLogger().WithField("count", len(due)).Info("Processing due schedules")

	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, s := range due {
		s := s
		g.Go(func() error {
			u.runClaimed(ctx, s)
			return nil
		})
	}
	_ = g.Wait()
	return len(due), nil
}

func (u *scheduleUsecase) runClaimed(ctx context.Context, s *model.Schedule) model.PublishResult {
	lg := logger.GetLogger().WithField("schedule_id", s.ID).WithField("account_id", s.AccountID)

	account, err := u.accounts.GetByID(ctx, s.AccountID)
	if err == nil && s.UserID != "" && account.UserID != "" && account.UserID != s.UserID {
		err = repository.ErrAccountNotFound
	}
	if err != nil {
		lg.WithField("error", err).Warn("Schedule account unavailable")
		return u.fail(ctx, s, fmt.Errorf("load account: %w", err))
	}

	videoURL, err := u.resolveVideoURL(ctx, s)
	if err != nil {
		return u.fail(ctx, s, err)
	}

	video := model.VideoPayload{
		URL:         videoURL,
		Title:       s.Title,
		Description: s.Description,
		Hashtags:    s.Hashtags,
	}
	return u.publisher.PublishSchedule(ctx, account, s, video)
}

func (u *scheduleUsecase) fail(ctx context.Context, s *model.Schedule, err error) model.PublishResult {
	return u.reporter.report(ctx, reportInput{
		schedule: s,
		attempt:  &model.PublishAttempt{AccountID: s.AccountID},
		err:      err,
	})
}

func (u *scheduleUsecase) resolveVideoURL(ctx context.Context, s *model.Schedule) (string, error) {
	if strings.TrimSpace(s.VideoURL) != "" {
		return s.VideoURL, nil
	}
	if s.VideoKey == "" {
		return "", ErrNoVideoSource
	}
	if u.storage == nil {
		return "", fmt.Errorf("%w: no storage configured for key %s", ErrNoVideoSource, s.VideoKey)
	}
	signed, err := u.storage.SignedReadURL(ctx, s.VideoKey)
	if err != nil {
		return "", fmt.Errorf("sign video url: %w", err)
	}
	return signed, nil
}

// GetResult returns the cached result, falling back to the schedule record.
func (u *scheduleUsecase) GetResult(ctx context.Context, userID, scheduleID string) (*model.PublishResult, error) {
	s, err := u.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if userID != "" && s.UserID != userID {
		return nil, repository.ErrScheduleNotFound
	}
	if u.cache != nil {
		if cached, cErr := u.cache.GetResult(ctx, ScheduleCacheKey(scheduleID)); cErr == nil && cached != nil {
			return cached, nil
		}
	}
	return resultFromSchedule(s), nil
}

func resultFromSchedule(s *model.Schedule) *model.PublishResult {
	r := &model.PublishResult{Status: string(s.Status)}
	switch s.Status {
	case model.SchedulePublished:
		r.Success = true
		if s.PublishID != nil {
			r.PublishID = *s.PublishID
		}
		if s.TikTokURL != nil {
			r.PostURL = *s.TikTokURL
		}
	case model.ScheduleFailed:
		if s.LastError != nil {
			r.Error = *s.LastError
		}
	}
	return r
}

// IsNotFound reports whether err means the schedule or account does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrScheduleNotFound) || errors.Is(err, repository.ErrAccountNotFound)
}
