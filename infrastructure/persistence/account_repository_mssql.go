package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
)

type AccountRepositoryMSSQL struct{ db *sql.DB }

func NewAccountRepositoryMSSQL(db *sql.DB) repository.IAccount {
	return &AccountRepositoryMSSQL{db: db}
}

// EnsureAccountSchemaMSSQL creates the tiktok_accounts table for SQL Server if it does not exist.
func EnsureAccountSchemaMSSQL(db *sql.DB) error {
	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.tiktok_accounts') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[tiktok_accounts] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        user_id NVARCHAR(128) NOT NULL,
        open_id NVARCHAR(128) NOT NULL,
        username NVARCHAR(255) NOT NULL,
        access_token_enc NVARCHAR(MAX) NOT NULL,
        refresh_token_enc NVARCHAR(MAX) NULL,
        expires_at DATETIME2 NULL,
        refresh_expires_at DATETIME2 NULL,
        scopes NVARCHAR(MAX) NOT NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE UNIQUE INDEX UX_tiktok_accounts_user_open ON dbo.[tiktok_accounts](user_id, open_id);
END`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create tiktok_accounts (mssql): %w", err)
	}
	return nil
}

func (r *AccountRepositoryMSSQL) GetByID(ctx context.Context, id string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM dbo.[tiktok_accounts] WHERE id=@p1`, id)
	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrAccountNotFound
	}
	return acc, err
}

func (r *AccountRepositoryMSSQL) UpsertByOpenID(ctx context.Context, a *model.Account) (string, error) {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	// MERGE upsert by (user_id, open_id)
	q := `MERGE dbo.[tiktok_accounts] AS target
USING (VALUES (@p1, @p2)) AS src(user_id, open_id)
ON target.user_id = src.user_id AND target.open_id = src.open_id
WHEN MATCHED THEN UPDATE SET
    username=@p3,
    access_token_enc=@p4,
    refresh_token_enc=@p5,
    expires_at=@p6,
    refresh_expires_at=@p7,
    scopes=@p8,
    updated_at=@p10
WHEN NOT MATCHED THEN
    INSERT (user_id, open_id, username, access_token_enc, refresh_token_enc, expires_at, refresh_expires_at, scopes, created_at, updated_at)
    VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10)
OUTPUT CAST(inserted.id AS NVARCHAR(32));`
	var id string
	err := r.db.QueryRowContext(ctx, q,
		a.UserID, a.OpenID,
		a.Username,
		a.AccessTokenEnc,
		nullString(a.RefreshTokenEnc),
		nullTime(a.ExpiresAt),
		nullTime(a.RefreshExpiresAt),
		a.Scopes,
		a.CreatedAt,
		a.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	a.ID = id
	return id, nil
}

func (r *AccountRepositoryMSSQL) UpdateTokens(ctx context.Context, id string, u model.AccountTokenUpdate) error {
	q := `UPDATE dbo.[tiktok_accounts] SET
    access_token_enc=@p2,
    refresh_token_enc=COALESCE(NULLIF(@p3, ''), refresh_token_enc),
    expires_at=@p4,
    refresh_expires_at=COALESCE(@p5, refresh_expires_at),
    updated_at=@p6
WHERE id=@p1`
	res, err := r.db.ExecContext(ctx, q, id, u.AccessTokenEnc, u.RefreshTokenEnc, nullTime(u.ExpiresAt), nullTime(u.RefreshExpiresAt), time.Now().UTC())
	if err != nil {
		return err
	}
	return requireAffected(res, repository.ErrAccountNotFound)
}
