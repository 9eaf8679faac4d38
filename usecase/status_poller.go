package usecase

import (
	"context"
	"fmt"

	"crosspost/domain/dto"
	"crosspost/domain/model"
	"crosspost/infrastructure/logger"
)

// pollStatus polls until a terminal status or until the attempt budget runs
// out. Running out is not an error: the attempt keeps the last observed
// status and is reported as accepted but unconfirmed.
func (u *publishUsecase) pollStatus(ctx context.Context, sess *publishSession, attempt *model.PublishAttempt) error {
	lg := logger.GetLogger().WithField("account_id", attempt.AccountID).WithField("publish_id", attempt.PublishID)
	attempt.AttemptsRemaining = u.cfg.PollAttempts

	for attempt.AttemptsRemaining > 0 {
		if err := u.sleep(ctx, u.cfg.PollInterval); err != nil {
			lg.WithField("error", err).Warn("Status polling abandoned")
			return nil
		}
		attempt.AttemptsRemaining--

		var data *dto.TikTokPublishStatusData
		err := u.withToken(ctx, sess, func(accessToken string) error {
			d, err := u.tiktok.FetchPublishStatus(ctx, accessToken, attempt.PublishID)
			data = d
			return err
		})
		if err != nil || data == nil {
			lg.WithField("error", err).WithField("remaining", attempt.AttemptsRemaining).Warn("Status fetch failed")
			continue
		}

		attempt.Polled = true
		attempt.Status = model.PublishStatus(data.Status)
		if len(data.PublicPostIDs) > 0 {
			attempt.PublicPostIDs = data.PublicPostIDs
		}
		lg.WithField("status", attempt.Status).WithField("remaining", attempt.AttemptsRemaining).Debug("Publish status")

		switch attempt.Status {
		case model.StatusPublished:
			return nil
		case model.StatusFailed:
			attempt.FailReason = data.FailReason
			return fmt.Errorf("%w: %s", ErrPublishFailed, failReasonOrUnknown(data.FailReason))
		}
	}
	lg.WithField("status", attempt.Status).Info("Poll budget exhausted; publish accepted but unconfirmed")
	return nil
}

func failReasonOrUnknown(reason string) string {
	if reason == "" {
		return "unknown reason"
	}
	return reason
}
