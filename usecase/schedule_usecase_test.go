package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crosspost/domain/dto"
	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishVideo(ctx context.Context, account *model.Account, video model.VideoPayload, settings model.PublishSettings) model.PublishResult {
	args := m.Called(ctx, account, video, settings)
	return args.Get(0).(model.PublishResult)
}

func (m *MockPublisher) PublishSchedule(ctx context.Context, account *model.Account, schedule *model.Schedule, video model.VideoPayload) model.PublishResult {
	args := m.Called(ctx, account, schedule, video)
	return args.Get(0).(model.PublishResult)
}

func testSchedule(id string) *model.Schedule {
	return &model.Schedule{
		ID:          id,
		UserID:      "user-1",
		AccountID:   "acc-1",
		VideoURL:    "https://cdn.example.com/" + id + ".mp4",
		Title:       "Title " + id,
		Description: "Desc",
		Hashtags:    []string{"go"},
		Status:      model.ScheduleQueued,
		Settings:    model.PublishSettings{PrivacyLevel: model.PrivacySelfOnly},
	}
}

func TestScheduleUsecase_ProcessDue(t *testing.T) {
	schedules := new(MockScheduleRepo)
	accounts := new(MockAccountRepo)
	publisher := new(MockPublisher)
	uc := usecase.NewScheduleUsecase(schedules, accounts, nil, publisher, nil, nil)

	due := []*model.Schedule{testSchedule("s1"), testSchedule("s2"), testSchedule("s3")}
	schedules.On("ClaimDue", mock.Anything, mock.AnythingOfType("time.Time"), 5).Return(due, nil)
	accounts.On("GetByID", mock.Anything, "acc-1").Return(testAccount(), nil)
	publisher.On("PublishSchedule", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(v model.VideoPayload) bool {
		return v.Description == "Desc" && len(v.Hashtags) == 1
	})).Return(model.PublishResult{Success: true, Status: "PUBLISHED"})

	n, err := uc.ProcessDue(context.Background(), 5, 2)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	publisher.AssertNumberOfCalls(t, "PublishSchedule", 3)
	for _, s := range due {
		publisher.AssertCalled(t, "PublishSchedule", mock.Anything, mock.Anything, s, model.VideoPayload{
			URL:         s.VideoURL,
			Title:       s.Title,
			Description: s.Description,
			Hashtags:    s.Hashtags,
		})
	}
}

func TestScheduleUsecase_ProcessDueNothingClaimed(t *testing.T) {
	schedules := new(MockScheduleRepo)
	publisher := new(MockPublisher)
	uc := usecase.NewScheduleUsecase(schedules, new(MockAccountRepo), nil, publisher, nil, nil)

	schedules.On("ClaimDue", mock.Anything, mock.Anything, 10).Return([]*model.Schedule{}, nil)

	n, err := uc.ProcessDue(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
	publisher.AssertNotCalled(t, "PublishSchedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduleUsecase_ProcessDueClaimError(t *testing.T) {
	schedules := new(MockScheduleRepo)
	uc := usecase.NewScheduleUsecase(schedules, new(MockAccountRepo), nil, new(MockPublisher), nil, nil)
	schedules.On("ClaimDue", mock.Anything, mock.Anything, 10).Return(nil, errors.New("db down"))

	_, err := uc.ProcessDue(context.Background(), 10, 1)
	assert.EqualError(t, err, "db down")
}

func TestScheduleUsecase_RunSchedule(t *testing.T) {
	t.Run("signs_object_key", func(t *testing.T) {
		schedules := new(MockScheduleRepo)
		accounts := new(MockAccountRepo)
		storage := new(MockVideoStorage)
		publisher := new(MockPublisher)
		uc := usecase.NewScheduleUsecase(schedules, accounts, storage, publisher, nil, nil)

		s := testSchedule("s1")
		s.VideoURL = ""
		s.VideoKey = "videos/s1.mp4"
		s.Status = model.ScheduleFailed
		schedules.On("GetByID", mock.Anything, "s1").Return(s, nil)
		schedules.On("ClaimByID", mock.Anything, "s1", mock.Anything).Return(s, nil)
		accounts.On("GetByID", mock.Anything, "acc-1").Return(testAccount(), nil)
		storage.On("SignedReadURL", mock.Anything, "videos/s1.mp4").Return("https://bucket.s3.amazonaws.com/videos/s1.mp4?sig", nil)
		publisher.On("PublishSchedule", mock.Anything, mock.Anything, s, mock.MatchedBy(func(v model.VideoPayload) bool {
			return v.URL == "https://bucket.s3.amazonaws.com/videos/s1.mp4?sig"
		})).Return(model.PublishResult{Success: true, PublishID: "pub-1", Status: "PUBLISHED"})

		res, err := uc.RunSchedule(context.Background(), "user-1", "s1")

		require.NoError(t, err)
		assert.True(t, res.Success)
		storage.AssertExpectations(t)
	})

	t.Run("other_users_schedule_is_not_found", func(t *testing.T) {
		schedules := new(MockScheduleRepo)
		uc := usecase.NewScheduleUsecase(schedules, new(MockAccountRepo), nil, new(MockPublisher), nil, nil)
		schedules.On("GetByID", mock.Anything, "s1").Return(testSchedule("s1"), nil)

		_, err := uc.RunSchedule(context.Background(), "user-2", "s1")
		assert.ErrorIs(t, err, repository.ErrScheduleNotFound)
		assert.True(t, usecase.IsNotFound(err))
	})

	t.Run("processing_schedule_is_not_runnable", func(t *testing.T) {
		schedules := new(MockScheduleRepo)
		uc := usecase.NewScheduleUsecase(schedules, new(MockAccountRepo), nil, new(MockPublisher), nil, nil)
		s := testSchedule("s1")
		s.Status = model.ScheduleProcessing
		schedules.On("GetByID", mock.Anything, "s1").Return(s, nil)
		schedules.On("ClaimByID", mock.Anything, "s1", mock.Anything).Return(nil, repository.ErrScheduleNotClaimable)

		_, err := uc.RunSchedule(context.Background(), "user-1", "s1")
		assert.ErrorIs(t, err, usecase.ErrScheduleNotRunnable)
	})

	t.Run("claim_error_is_returned", func(t *testing.T) {
		schedules := new(MockScheduleRepo)
		publisher := new(MockPublisher)
		uc := usecase.NewScheduleUsecase(schedules, new(MockAccountRepo), nil, publisher, nil, nil)
		schedules.On("GetByID", mock.Anything, "s1").Return(testSchedule("s1"), nil)
		schedules.On("ClaimByID", mock.Anything, "s1", mock.Anything).Return(nil, errors.New("db down"))

		_, err := uc.RunSchedule(context.Background(), "user-1", "s1")
		assert.EqualError(t, err, "db down")
		publisher.AssertNotCalled(t, "PublishSchedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing_account_records_failure", func(t *testing.T) {
		schedules := new(MockScheduleRepo)
		accounts := new(MockAccountRepo)
		publisher := new(MockPublisher)
		uc := usecase.NewScheduleUsecase(schedules, accounts, nil, publisher, nil, nil)

		s := testSchedule("s1")
		schedules.On("GetByID", mock.Anything, "s1").Return(s, nil)
		schedules.On("ClaimByID", mock.Anything, "s1", mock.Anything).Return(s, nil)
		accounts.On("GetByID", mock.Anything, "acc-1").Return(nil, repository.ErrAccountNotFound)
		schedules.On("RecordOutcome", mock.Anything, "s1", mock.MatchedBy(func(o model.ScheduleOutcome) bool {
			return o.Status == model.ScheduleFailed && o.LastError != nil && *o.LastError == "load account: account not found"
		})).Return(nil)

		res, err := uc.RunSchedule(context.Background(), "user-1", "s1")

		require.NoError(t, err)
		assert.False(t, res.Success)
		schedules.AssertExpectations(t)
		publisher.AssertNotCalled(t, "PublishSchedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no_video_records_failure", func(t *testing.T) {
		schedules := new(MockScheduleRepo)
		accounts := new(MockAccountRepo)
		uc := usecase.NewScheduleUsecase(schedules, accounts, nil, new(MockPublisher), nil, nil)

		s := testSchedule("s1")
		s.VideoURL = ""
		schedules.On("GetByID", mock.Anything, "s1").Return(s, nil)
		schedules.On("ClaimByID", mock.Anything, "s1", mock.Anything).Return(s, nil)
		accounts.On("GetByID", mock.Anything, "acc-1").Return(testAccount(), nil)
		schedules.On("RecordOutcome", mock.Anything, "s1", mock.MatchedBy(func(o model.ScheduleOutcome) bool {
			return o.Status == model.ScheduleFailed
		})).Return(nil)

		res, err := uc.RunSchedule(context.Background(), "", "s1")

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, usecase.ErrNoVideoSource.Error())
	})
}

// memorySchedules mimics the conditional claims of the real stores.
type memorySchedules struct {
	mu   sync.Mutex
	rows map[string]*model.Schedule
}

func (m *memorySchedules) GetByID(_ context.Context, id string) (*model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrScheduleNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memorySchedules) ClaimDue(_ context.Context, now time.Time, limit int) ([]*model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Schedule
	for _, s := range m.rows {
		if len(out) < limit && s.Status == model.ScheduleQueued && !s.ScheduledAt.After(now) {
			s.Status = model.ScheduleProcessing
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memorySchedules) ClaimByID(_ context.Context, id string, _ time.Time) (*model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok || (s.Status != model.ScheduleQueued && s.Status != model.ScheduleFailed) {
		return nil, repository.ErrScheduleNotClaimable
	}
	s.Status = model.ScheduleProcessing
	cp := *s
	return &cp, nil
}

func (m *memorySchedules) RecordOutcome(_ context.Context, id string, o model.ScheduleOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].Status = o.Status
	return nil
}

type hookPublisher struct {
	calls  int
	during func()
}

func (p *hookPublisher) PublishVideo(context.Context, *model.Account, model.VideoPayload, model.PublishSettings) model.PublishResult {
	return model.PublishResult{}
}

func (p *hookPublisher) PublishSchedule(context.Context, *model.Account, *model.Schedule, model.VideoPayload) model.PublishResult {
	p.calls++
	if p.during != nil && p.calls == 1 {
		p.during()
	}
	return model.PublishResult{Success: true, PublishID: "pub-1", Status: "PUBLISHED"}
}

func TestScheduleUsecase_ManualRunOwnsSchedule(t *testing.T) {
	s := testSchedule("s1")
	s.ScheduledAt = time.Now().Add(-time.Minute)
	store := &memorySchedules{rows: map[string]*model.Schedule{"s1": s}}
	accounts := new(MockAccountRepo)
	accounts.On("GetByID", mock.Anything, "acc-1").Return(testAccount(), nil)
	publisher := &hookPublisher{}
	reporter := usecase.NewResultReporter(store, nil, nil, 0)
	uc := usecase.NewScheduleUsecase(store, accounts, nil, publisher, reporter, nil)

	var secondErr error
	var dueCount int
	publisher.during = func() {
		_, secondErr = uc.RunSchedule(context.Background(), "user-1", "s1")
		dueCount, _ = uc.ProcessDue(context.Background(), 10, 1)
	}

	res, err := uc.RunSchedule(context.Background(), "user-1", "s1")

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.ErrorIs(t, secondErr, usecase.ErrScheduleNotRunnable)
	assert.Zero(t, dueCount)
	assert.Equal(t, 1, publisher.calls)

	// Published schedules stay closed to manual runs.
	_, err = uc.RunSchedule(context.Background(), "user-1", "s1")
	assert.ErrorIs(t, err, usecase.ErrScheduleNotRunnable)
	assert.Equal(t, 1, publisher.calls)
}

func TestScheduleUsecase_GetResult(t *testing.T) {
	t.Run("cache_hit", func(t *testing.T) {
		schedules := new(MockScheduleRepo)
		cache := new(MockPublishCache)
		uc := usecase.NewScheduleUsecase(schedules, new(MockAccountRepo), nil, new(MockPublisher), nil, cache)

		schedules.On("GetByID", mock.Anything, "s1").Return(testSchedule("s1"), nil)
		cache.On("GetResult", mock.Anything, "tiktok:schedule:s1").
			Return(&model.PublishResult{Success: true, PublishID: "pub-1", Status: "PROCESSING_POST"}, nil)

		res, err := uc.GetResult(context.Background(), "user-1", "s1")
		require.NoError(t, err)
		assert.Equal(t, "PROCESSING_POST", res.Status)
	})

	t.Run("falls_back_to_record", func(t *testing.T) {
		schedules := new(MockScheduleRepo)
		cache := new(MockPublishCache)
		uc := usecase.NewScheduleUsecase(schedules, new(MockAccountRepo), nil, new(MockPublisher), nil, cache)

		s := testSchedule("s1")
		s.Status = model.ScheduleFailed
		msg := "creator cannot post right now"
		s.LastError = &msg
		schedules.On("GetByID", mock.Anything, "s1").Return(s, nil)
		cache.On("GetResult", mock.Anything, "tiktok:schedule:s1").Return(nil, errors.New("redis: nil"))

		res, err := uc.GetResult(context.Background(), "user-1", "s1")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, msg, res.Error)
		assert.Equal(t, "failed", res.Status)
	})
}

func TestResultReporter_ScheduledPublish(t *testing.T) {
	tiktok := new(MockTikTok)
	schedules := new(MockScheduleRepo)
	cache := new(MockPublishCache)
	events := new(MockPublishEvents)
	metrics := new(MockPublishMetrics)
	reporter := usecase.NewResultReporter(schedules, cache, metrics, time.Hour, events)
	uc := usecase.NewPublishUsecase(tiktok, new(MockAccountRepo), prefixCipher{}, nil, reporter, usecase.PublisherConfig{
		PullAllowedDomains: []string{"cdn.example.com"},
		PollAttempts:       3,
		Sleep:              (&sleepRecorder{}).Sleep,
	})

	s := testSchedule("s1")
	tiktok.On("QueryCreatorInfo", mock.Anything, "access-1").Return(allLevelsCaps(), nil)
	tiktok.On("InitDirectPost", mock.Anything, "access-1", mock.Anything).Return(&dto.TikTokVideoInitData{PublishID: "pub-1"}, nil)
	tiktok.On("FetchPublishStatus", mock.Anything, "access-1", "pub-1").Return(status("PUBLISHED", "7300"), nil)

	wantURL := "https://www.tiktok.com/@creator/video/7300"
	schedules.On("RecordOutcome", mock.Anything, "s1", mock.MatchedBy(func(o model.ScheduleOutcome) bool {
		return o.Status == model.SchedulePublished && o.LastError == nil &&
			o.PublishID != nil && *o.PublishID == "pub-1" &&
			o.TikTokURL != nil && *o.TikTokURL == wantURL && !o.UpdatedAt.IsZero()
	})).Return(nil)
	cache.On("SetResult", mock.Anything, "tiktok:publish:pub-1", mock.Anything, time.Hour).Return(nil)
	cache.On("SetResult", mock.Anything, "tiktok:schedule:s1", mock.Anything, time.Hour).Return(errors.New("redis down"))
	events.On("PublishOutcome", mock.Anything, mock.MatchedBy(func(e model.PublishEvent) bool {
		return e.Type == usecase.EventPublishSucceeded && e.UserID == "user-1" && e.ScheduleID == "s1" && e.PostURL == wantURL
	})).Return(errors.New("topic not found"))
	metrics.On("PublishSucceeded", "PUBLISHED").Return()
	metrics.On("AttemptDuration", mock.Anything).Return().Maybe()

	video := model.VideoPayload{URL: s.VideoURL, Title: s.Title}
	res := uc.PublishSchedule(context.Background(), testAccount(), s, video)

	assert.True(t, res.Success)
	assert.Equal(t, wantURL, res.PostURL)
	schedules.AssertExpectations(t)
	cache.AssertExpectations(t)
	events.AssertExpectations(t)
	metrics.AssertExpectations(t)
}

func TestResultReporter_FailureRecordsLastError(t *testing.T) {
	tiktok := new(MockTikTok)
	schedules := new(MockScheduleRepo)
	metrics := new(MockPublishMetrics)
	events := new(MockPublishEvents)
	reporter := usecase.NewResultReporter(schedules, nil, metrics, 0, events)
	uc := usecase.NewPublishUsecase(tiktok, new(MockAccountRepo), prefixCipher{}, nil, reporter, usecase.PublisherConfig{})

	caps := allLevelsCaps()
	caps.MaxPostsReached = true
	tiktok.On("QueryCreatorInfo", mock.Anything, "access-1").Return(caps, nil)
	schedules.On("RecordOutcome", mock.Anything, "s1", mock.MatchedBy(func(o model.ScheduleOutcome) bool {
		return o.Status == model.ScheduleFailed && o.LastError != nil && *o.LastError == usecase.ErrQuotaExceeded.Error() && o.PublishID == nil
	})).Return(nil)
	events.On("PublishOutcome", mock.Anything, mock.MatchedBy(func(e model.PublishEvent) bool {
		return e.Type == usecase.EventPublishFailed && !e.Success
	})).Return(nil)
	metrics.On("PublishFailed", "quota_exceeded").Return()
	metrics.On("AttemptDuration", mock.Anything).Return().Maybe()

	s := testSchedule("s1")
	res := uc.PublishSchedule(context.Background(), testAccount(), s, model.VideoPayload{URL: s.VideoURL})

	assert.False(t, res.Success)
	assert.Equal(t, usecase.ErrQuotaExceeded.Error(), res.Error)
	schedules.AssertExpectations(t)
	events.AssertExpectations(t)
	metrics.AssertExpectations(t)
}
