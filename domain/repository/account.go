package repository

import (
	"context"
	"errors"

	"crosspost/domain/model"
)

var ErrAccountNotFound = errors.New("account not found")

// IAccount persists connected TikTok accounts.
type IAccount interface {
	GetByID(ctx context.Context, id string) (*model.Account, error)
	// UpsertByOpenID inserts or replaces the account for (user_id, open_id) and returns its id.
	UpsertByOpenID(ctx context.Context, account *model.Account) (string, error)
	UpdateTokens(ctx context.Context, id string, update model.AccountTokenUpdate) error
}
