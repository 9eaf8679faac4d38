package persistence

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountRowColumns = []string{"id", "user_id", "open_id", "username", "access_token_enc", "refresh_token_enc", "expires_at", "refresh_expires_at", "scopes", "created_at", "updated_at"}

func TestAccountRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAccountRepository(db)
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	expires := created.Add(24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + accountColumns + ` FROM tiktok_accounts WHERE id=$1`)).
		WithArgs("7").
		WillReturnRows(sqlmock.NewRows(accountRowColumns).
			AddRow("7", "user-1", "open-1", "creator", "enc-a", "enc-r", expires, nil, "video.publish", created, created))

	acc, err := repo.GetByID(context.Background(), "7")

	require.NoError(t, err)
	refresh := "enc-r"
	expected := &model.Account{
		ID:              "7",
		UserID:          "user-1",
		OpenID:          "open-1",
		Username:        "creator",
		AccessTokenEnc:  "enc-a",
		RefreshTokenEnc: &refresh,
		ExpiresAt:       &expires,
		Scopes:          "video.publish",
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	assert.Equal(t, expected, acc)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_GetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM tiktok_accounts`).WithArgs("404").WillReturnError(sql.ErrNoRows)

	_, err = NewAccountRepository(db).GetByID(context.Background(), "404")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestAccountRepository_UpsertByOpenID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	refresh := "enc-r"
	acc := &model.Account{UserID: "user-1", OpenID: "open-1", Username: "creator", AccessTokenEnc: "enc-a", RefreshTokenEnc: &refresh, Scopes: "video.publish"}

	mock.ExpectQuery(`INSERT INTO tiktok_accounts .* ON CONFLICT \(user_id, open_id\) DO UPDATE SET .* RETURNING id`).
		WithArgs("user-1", "open-1", "creator", "enc-a", "enc-r", nil, nil, "video.publish", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("42"))

	id, err := NewAccountRepository(db).UpsertByOpenID(context.Background(), acc)

	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, "42", acc.ID)
	assert.False(t, acc.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_UpdateTokens(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewAccountRepository(db)
	exp := time.Now().Add(time.Hour).UTC()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tiktok_accounts SET`)).
		WithArgs("7", "enc-a2", "enc-r2", exp, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tiktok_accounts SET`)).
		WithArgs("8", "enc-a2", "", nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateTokens(context.Background(), "7", model.AccountTokenUpdate{AccessTokenEnc: "enc-a2", RefreshTokenEnc: "enc-r2", ExpiresAt: &exp})
	require.NoError(t, err)

	err = repo.UpdateTokens(context.Background(), "8", model.AccountTokenUpdate{AccessTokenEnc: "enc-a2"})
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryMSSQL_UpsertAndUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewAccountRepositoryMSSQL(db)

	mock.ExpectQuery(`MERGE dbo.\[tiktok_accounts\] AS target`).
		WithArgs("user-1", "open-1", "creator", "enc-a", nil, nil, nil, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("3"))
	mock.ExpectExec(`UPDATE dbo.\[tiktok_accounts\] SET`).
		WithArgs("3", "enc-a2", "", nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.UpsertByOpenID(context.Background(), &model.Account{UserID: "user-1", OpenID: "open-1", Username: "creator", AccessTokenEnc: "enc-a"})
	require.NoError(t, err)
	assert.Equal(t, "3", id)

	require.NoError(t, repo.UpdateTokens(context.Background(), "3", model.AccountTokenUpdate{AccessTokenEnc: "enc-a2"}))
	require.NoError(t, mock.ExpectationsWereMet())
}
