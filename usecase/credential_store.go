package usecase

import (
	"context"
	"fmt"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
)

// credentialStore decrypts account tokens and writes refreshed ones back.
type credentialStore struct {
	cipher   repository.ICipher
	accounts repository.IAccount
}

func (s *credentialStore) decrypt(account *model.Account) (model.TokenPair, error) {
	access, err := s.cipher.Decrypt(account.AccessTokenEnc)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("%w: access token: %w", ErrDecryption, err)
	}
	pair := model.TokenPair{
		AccessToken:      access,
		ExpiresAt:        account.ExpiresAt,
		RefreshExpiresAt: account.RefreshExpiresAt,
	}
	if account.RefreshTokenEnc != nil && *account.RefreshTokenEnc != "" {
		refresh, err := s.cipher.Decrypt(*account.RefreshTokenEnc)
		if err != nil {
			return model.TokenPair{}, fmt.Errorf("%w: refresh token: %w", ErrDecryption, err)
		}
		pair.RefreshToken = refresh
	}
	return pair, nil
}

// persist stores a refreshed pair. Failures are logged only: the platform has
// already accepted the refresh and the in-memory pair stays usable.
func (s *credentialStore) persist(ctx context.Context, accountID string, pair model.TokenPair) {
	lg := logger.GetLogger().WithField("account_id", accountID)
	if s.accounts == nil {
		lg.Warn("No account repository; refreshed token kept in memory only")
		return
	}
	accessEnc, err := s.cipher.Encrypt(pair.AccessToken)
	if err != nil {
		lg.WithField("error", err).Error("Failed to encrypt refreshed access token")
		return
	}
	refreshEnc := ""
	if pair.RefreshToken != "" {
		if refreshEnc, err = s.cipher.Encrypt(pair.RefreshToken); err != nil {
			lg.WithField("error", err).Error("Failed to encrypt refreshed refresh token")
			return
		}
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	err = s.accounts.UpdateTokens(pctx, accountID, model.AccountTokenUpdate{
		AccessTokenEnc:   accessEnc,
		RefreshTokenEnc:  refreshEnc,
		ExpiresAt:        pair.ExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
	if err != nil {
		lg.WithField("error", err).Error("Failed to persist refreshed tokens")
		return
	}
	lg.Info("Persisted refreshed tokens")
}
