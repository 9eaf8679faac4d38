package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
)

const scheduleColumns = `id, user_id, account_id, video_url, video_key, title, description, hashtags, settings, scheduled_at, status, publish_id, tiktok_url, last_error, created_at, updated_at`

// ScheduleRepository is the Postgres schedule store.
type ScheduleRepository struct{ db *sql.DB }

func NewScheduleRepository(db *sql.DB) repository.ISchedule { return &ScheduleRepository{db: db} }

func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM tiktok_schedules WHERE id=$1`, id)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrScheduleNotFound
	}
	return s, err
}

// ClaimDue flips due queued rows to processing in one statement. SKIP LOCKED
// keeps concurrent claimers from picking the same rows.
func (r *ScheduleRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.Schedule, error) {
	q := `UPDATE tiktok_schedules SET status='processing', updated_at=$1
		  WHERE id IN (
			SELECT id FROM tiktok_schedules
			WHERE status='queued' AND scheduled_at <= $1
			ORDER BY scheduled_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		  )
		  RETURNING ` + scheduleColumns
	rows, err := r.db.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ClaimByID is the manual-run counterpart of ClaimDue. The status guard makes
// the update the only owner of the row until RecordOutcome.
func (r *ScheduleRepository) ClaimByID(ctx context.Context, id string, now time.Time) (*model.Schedule, error) {
	q := `UPDATE tiktok_schedules SET status='processing', updated_at=$2
		  WHERE id=$1 AND status IN ('queued','failed')
		  RETURNING ` + scheduleColumns
	s, err := scanSchedule(r.db.QueryRowContext(ctx, q, id, now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrScheduleNotClaimable
	}
	return s, err
}

func (r *ScheduleRepository) RecordOutcome(ctx context.Context, id string, o model.ScheduleOutcome) error {
	q := `UPDATE tiktok_schedules SET status=$2, publish_id=COALESCE($3, publish_id), tiktok_url=$4, last_error=$5, updated_at=$6 WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q, id, string(o.Status), nullString(o.PublishID), nullString(o.TikTokURL), nullString(o.LastError), o.UpdatedAt)
	if err != nil {
		return err
	}
	return requireAffected(res, repository.ErrScheduleNotFound)
}

func scanSchedule(row rowScanner) (*model.Schedule, error) {
	s := &model.Schedule{}
	var hashtags, settings, status string
	var publishID, tiktokURL, lastError sql.NullString
	if err := row.Scan(&s.ID, &s.UserID, &s.AccountID, &s.VideoURL, &s.VideoKey, &s.Title, &s.Description,
		&hashtags, &settings, &s.ScheduledAt, &status, &publishID, &tiktokURL, &lastError, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Status = model.ScheduleStatus(status)
	if hashtags != "" {
		if err := json.Unmarshal([]byte(hashtags), &s.Hashtags); err != nil {
			return nil, fmt.Errorf("decode hashtags of schedule %s: %w", s.ID, err)
		}
	}
	if settings != "" {
		if err := json.Unmarshal([]byte(settings), &s.Settings); err != nil {
			return nil, fmt.Errorf("decode settings of schedule %s: %w", s.ID, err)
		}
	}
	if publishID.Valid {
		v := publishID.String
		s.PublishID = &v
	}
	if tiktokURL.Valid {
		v := tiktokURL.String
		s.TikTokURL = &v
	}
	if lastError.Valid {
		v := lastError.String
		s.LastError = &v
	}
	return s, nil
}
