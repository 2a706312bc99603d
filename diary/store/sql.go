package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/diarypete/diarypete/diary/model"
)

// SQL implements Store on top of sqlx. It works against both the postgres
// and the sqlite driver; queries stick to $N placeholders and RETURNING,
// which both dialects accept.
type SQL struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
}

// NewSQL wraps an open sqlx handle.
func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{db: db, ext: db}
}

// WithTx opens a transaction and hands out a tx-scoped Store. Nested calls
// reuse the surrounding transaction.
func (s *SQL) WithTx(ctx context.Context, fn func(Store) error) error {
	if _, nested := s.ext.(*sqlx.Tx); nested {
		return fn(s)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&SQL{db: s.db, ext: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const userColumns = `id, telegram_id, chat_id, name, active, intro_seen,
	ask_mood, ask_good_things, ask_diary, active_coach, state,
	wake_time, diary_time, created_at`

func (s *SQL) GetOrCreateUser(ctx context.Context, telegramID, chatID int64) (*model.User, bool, error) {
	var u model.User
	err := sqlx.GetContext(ctx, s.ext, &u,
		`SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	if err == nil {
		return &u, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("get user by telegram id: %w", err)
	}

	nu := model.NewUser(telegramID, chatID)
	nu.CreatedAt = time.Now()
	row := s.ext.QueryRowxContext(ctx,
		`INSERT INTO users (telegram_id, chat_id, name, active, intro_seen,
			ask_mood, ask_good_things, ask_diary, active_coach, state,
			wake_time, diary_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		nu.TelegramID, nu.ChatID, nu.Name, nu.Active, nu.IntroSeen,
		nu.AskMood, nu.AskGoodThings, nu.AskDiary, nu.ActiveCoach, nu.State,
		nu.WakeTime, nu.DiaryTime, nu.CreatedAt)
	if err := row.Scan(&nu.ID); err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return nu, true, nil
}

func (s *SQL) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := sqlx.GetContext(ctx, s.ext, &u,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *SQL) SaveUser(ctx context.Context, u *model.User) error {
	res, err := s.ext.ExecContext(ctx,
		`UPDATE users SET chat_id = $1, name = $2, active = $3, intro_seen = $4,
			ask_mood = $5, ask_good_things = $6, ask_diary = $7,
			active_coach = $8, state = $9, wake_time = $10, diary_time = $11
		WHERE id = $12`,
		u.ChatID, u.Name, u.Active, u.IntroSeen,
		u.AskMood, u.AskGoodThings, u.AskDiary,
		u.ActiveCoach, u.State, u.WakeTime, u.DiaryTime, u.ID)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQL) CreateRecord(ctx context.Context, r *model.Record) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	row := s.ext.QueryRowxContext(ctx,
		`INSERT INTO records (user_id, kind, content, reaction, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		r.UserID, r.Kind, r.Content, r.Reaction, r.CreatedAt)
	if err := row.Scan(&r.ID); err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

func (s *SQL) SaveRecord(ctx context.Context, r *model.Record) error {
	res, err := s.ext.ExecContext(ctx,
		`UPDATE records SET kind = $1, content = $2, reaction = $3 WHERE id = $4`,
		r.Kind, r.Content, r.Reaction, r.ID)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQL) RecentRecords(ctx context.Context, userID int64, since time.Time) ([]*model.Record, error) {
	var out []*model.Record
	err := sqlx.SelectContext(ctx, s.ext, &out,
		`SELECT id, user_id, kind, content, reaction, created_at
		FROM records WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at, id`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("recent records: %w", err)
	}
	return out, nil
}

func (s *SQL) GetOrCreateJob(ctx context.Context, j *model.Job) (bool, error) {
	var existing model.Job
	err := sqlx.GetContext(ctx, s.ext, &existing,
		`SELECT id, user_id, coach, state, scheduled_at, text, disabled, created_at
		FROM jobs WHERE user_id = $1 AND coach = $2 AND state = $3`,
		j.UserID, j.Coach, j.State)
	if err == nil {
		*j = existing
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("get job: %w", err)
	}

	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}
	row := s.ext.QueryRowxContext(ctx,
		`INSERT INTO jobs (user_id, coach, state, scheduled_at, text, disabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		j.UserID, j.Coach, j.State, j.ScheduledAt, j.Text, j.Disabled, j.CreatedAt)
	if err := row.Scan(&j.ID); err != nil {
		return false, fmt.Errorf("create job: %w", err)
	}
	return true, nil
}

func (s *SQL) HasJob(ctx context.Context, userID int64, coach string) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, s.ext, &n,
		`SELECT COUNT(*) FROM jobs WHERE user_id = $1 AND coach = $2`, userID, coach)
	if err != nil {
		return false, fmt.Errorf("has job: %w", err)
	}
	return n > 0, nil
}

func (s *SQL) GetJob(ctx context.Context, id int64) (*model.Job, error) {
	var j model.Job
	err := sqlx.GetContext(ctx, s.ext, &j,
		`SELECT id, user_id, coach, state, scheduled_at, text, disabled, created_at
		FROM jobs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &j, nil
}

func (s *SQL) ListJobs(ctx context.Context) ([]*model.Job, error) {
	var out []*model.Job
	err := sqlx.SelectContext(ctx, s.ext, &out,
		`SELECT id, user_id, coach, state, scheduled_at, text, disabled, created_at
		FROM jobs WHERE NOT disabled ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return out, nil
}
