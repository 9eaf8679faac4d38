package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
)

const accountColumns = `id, user_id, open_id, username, access_token_enc, refresh_token_enc, expires_at, refresh_expires_at, scopes, created_at, updated_at`

type AccountRepository struct{ db *sql.DB }

func NewAccountRepository(db *sql.DB) repository.IAccount { return &AccountRepository{db: db} }

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM tiktok_accounts WHERE id=$1`, id)
	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrAccountNotFound
	}
	return acc, err
}

func (r *AccountRepository) UpsertByOpenID(ctx context.Context, a *model.Account) (string, error) {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	q := `INSERT INTO tiktok_accounts (user_id, open_id, username, access_token_enc, refresh_token_enc, expires_at, refresh_expires_at, scopes, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		  ON CONFLICT (user_id, open_id) DO UPDATE SET
			username=EXCLUDED.username,
			access_token_enc=EXCLUDED.access_token_enc,
			refresh_token_enc=EXCLUDED.refresh_token_enc,
			expires_at=EXCLUDED.expires_at,
			refresh_expires_at=EXCLUDED.refresh_expires_at,
			scopes=EXCLUDED.scopes,
			updated_at=EXCLUDED.updated_at
		  RETURNING id`
	var id string
	err := r.db.QueryRowContext(ctx, q,
		a.UserID, a.OpenID, a.Username, a.AccessTokenEnc, nullString(a.RefreshTokenEnc),
		nullTime(a.ExpiresAt), nullTime(a.RefreshExpiresAt), a.Scopes, a.CreatedAt, a.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	a.ID = id
	return id, nil
}

// UpdateTokens writes a refreshed pair. An empty refresh token or nil refresh
// expiry keeps the stored value.
func (r *AccountRepository) UpdateTokens(ctx context.Context, id string, u model.AccountTokenUpdate) error {
	q := `UPDATE tiktok_accounts SET
			access_token_enc=$2,
			refresh_token_enc=COALESCE(NULLIF($3, ''), refresh_token_enc),
			expires_at=$4,
			refresh_expires_at=COALESCE($5, refresh_expires_at),
			updated_at=$6
		  WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q, id, u.AccessTokenEnc, u.RefreshTokenEnc, nullTime(u.ExpiresAt), nullTime(u.RefreshExpiresAt), time.Now().UTC())
	if err != nil {
		return err
	}
	return requireAffected(res, repository.ErrAccountNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	acc := &model.Account{}
	var refresh sql.NullString
	var exp, rexp sql.NullTime
	if err := row.Scan(&acc.ID, &acc.UserID, &acc.OpenID, &acc.Username, &acc.AccessTokenEnc, &refresh, &exp, &rexp, &acc.Scopes, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		return nil, err
	}
	if refresh.Valid {
		v := refresh.String
		acc.RefreshTokenEnc = &v
	}
	if exp.Valid {
		acc.ExpiresAt = &exp.Time
	}
	if rexp.Valid {
		acc.RefreshExpiresAt = &rexp.Time
	}
	return acc, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
