package usecase

import (
	"context"
	"fmt"

	"crosspost/domain/model"
	"crosspost/infrastructure/logger"
)

// probeCreator fetches fresh creator capabilities and stops the attempt early
// when the platform would only fail the post asynchronously.
func (u *publishUsecase) probeCreator(ctx context.Context, sess *publishSession) (*model.CreatorCapabilities, error) {
	var caps *model.CreatorCapabilities
	err := u.withToken(ctx, sess, func(accessToken string) error {
		c, err := u.tiktok.QueryCreatorInfo(ctx, accessToken)
		caps = c
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creator info: %w", err)
	}
	if caps == nil {
		return nil, fmt.Errorf("creator info: empty response")
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"account_id":        sess.account.ID,
		"creator":           caps.Username,
		"privacy_levels":    caps.AllowedPrivacyLevels,
		"can_post":          caps.CanPost,
		"max_posts_reached": caps.MaxPostsReached,
	}).Debug("Creator capabilities")

	if caps.MaxPostsReached {
		return nil, ErrQuotaExceeded
	}
	if !caps.CanPost {
		return nil, ErrPostingDisabled
	}
	return caps, nil
}
