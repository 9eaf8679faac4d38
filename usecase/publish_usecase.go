package usecase

import (
	"context"
	"errors"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
)

// PublisherConfig is the pipeline configuration. Nothing in the pipeline reads
// process-wide settings.
type PublisherConfig struct {
	PullAllowedDomains []string
	PollInterval       time.Duration
	PollAttempts       int
	RateLimitBackoff   time.Duration
	// Sleep replaces the context-aware timer, e.g. with a recorder in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// IPublishUsecase publishes a video to a connected TikTok account.
type IPublishUsecase interface {
	PublishVideo(ctx context.Context, account *model.Account, video model.VideoPayload, settings model.PublishSettings) model.PublishResult
	// PublishSchedule runs the pipeline on behalf of a stored schedule and records the outcome on it.
	PublishSchedule(ctx context.Context, account *model.Account, schedule *model.Schedule, video model.VideoPayload) model.PublishResult
}

type publishUsecase struct {
	tiktok    repository.ITikTok
	store     *credentialStore
	refresher *tokenRefresher
	resolver  SourceResolver
	transport *byteTransport
	reporter  *ResultReporter
	cfg       PublisherConfig
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewPublishUsecase(
	tiktok repository.ITikTok,
	accounts repository.IAccount,
	cipher repository.ICipher,
	source repository.IVideoSource,
	reporter *ResultReporter,
	cfg PublisherConfig,
) IPublishUsecase {
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 30
	}
	if reporter == nil {
		reporter = NewResultReporter(nil, nil, nil, 0)
	}
	store := &credentialStore{cipher: cipher, accounts: accounts}
	u := &publishUsecase{
		tiktok:    tiktok,
		store:     store,
		refresher: &tokenRefresher{tiktok: tiktok, store: store, metrics: reporter.metrics},
		resolver:  NewSourceResolver(cfg.PullAllowedDomains),
		transport: &byteTransport{source: source, tiktok: tiktok},
		reporter:  reporter,
		cfg:       cfg,
		sleep:     cfg.Sleep,
	}
	if u.sleep == nil {
		u.sleep = sleepContext
	}
	return u
}

func (u *publishUsecase) PublishVideo(ctx context.Context, account *model.Account, video model.VideoPayload, settings model.PublishSettings) model.PublishResult {
	return u.run(ctx, account, nil, video, settings)
}

func (u *publishUsecase) PublishSchedule(ctx context.Context, account *model.Account, schedule *model.Schedule, video model.VideoPayload) model.PublishResult {
	return u.run(ctx, account, schedule, video, schedule.Settings)
}

func (u *publishUsecase) run(ctx context.Context, account *model.Account, schedule *model.Schedule, video model.VideoPayload, settings model.PublishSettings) model.PublishResult {
	start := time.Now()
	attempt := &model.PublishAttempt{}
	if account != nil {
		attempt.AccountID = account.ID
	}
	err := u.execute(ctx, account, video, settings, attempt)
	return u.reporter.report(ctx, reportInput{
		account:  account,
		schedule: schedule,
		attempt:  attempt,
		err:      err,
		elapsed:  time.Since(start),
	})
}

// execute is the linear pipeline: decrypt, probe, resolve, initiate,
// optionally upload, then poll.
func (u *publishUsecase) execute(ctx context.Context, account *model.Account, video model.VideoPayload, settings model.PublishSettings, attempt *model.PublishAttempt) error {
	if account == nil {
		return errors.New("account is required")
	}
	if video.URL == "" {
		return errors.New("video url is required")
	}

	tokens, err := u.store.decrypt(account)
	if err != nil {
		return err
	}
	sess := &publishSession{account: account, tokens: tokens}

	caps, err := u.probeCreator(ctx, sess)
	if err != nil {
		return err
	}

	attempt.SourceMode = u.resolver.Resolve(video.URL)
	logger.GetLogger().WithField("account_id", account.ID).WithField("source_mode", attempt.SourceMode).Info("Video source resolved")

	var data []byte
	if attempt.SourceMode == model.SourceFileUpload {
		if data, err = u.transport.load(ctx, video.URL); err != nil {
			return err
		}
	}

	initData, level, err := u.initiate(ctx, sess, initInput{
		caps:      caps,
		video:     video,
		settings:  settings,
		mode:      attempt.SourceMode,
		videoSize: int64(len(data)),
	})
	attempt.PrivacyLevel = level
	if err != nil {
		return err
	}
	attempt.PublishID = initData.PublishID
	attempt.UploadURL = initData.UploadURL
	attempt.Status = model.StatusProcessingDownload

	if attempt.SourceMode == model.SourceFileUpload {
		attempt.Status = model.StatusProcessingUpload
		if err := u.transport.push(ctx, attempt.UploadURL, data); err != nil {
			return err
		}
	}

	return u.pollStatus(ctx, sess, attempt)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
