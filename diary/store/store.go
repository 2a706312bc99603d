// Package store owns persistence and transaction boundaries for the diary
// entities. Coaches and the scheduler only ever touch the database through
// the Store interface.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/diarypete/diarypete/diary/model"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence contract consumed by the conversation core.
//
// WithTx runs fn against a transaction-scoped Store; every mutation that can
// race with a scheduled job firing (user state, records, jobs) must happen
// inside such a scope.
type Store interface {
	WithTx(ctx context.Context, fn func(Store) error) error

	// GetOrCreateUser loads the user keyed by telegram id, creating it with
	// defaults on first contact. The boolean reports whether a row was created.
	GetOrCreateUser(ctx context.Context, telegramID, chatID int64) (*model.User, bool, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	SaveUser(ctx context.Context, u *model.User) error

	CreateRecord(ctx context.Context, r *model.Record) error
	SaveRecord(ctx context.Context, r *model.Record) error
	// RecentRecords returns the user's records created at or after since,
	// oldest first.
	RecentRecords(ctx context.Context, userID int64, since time.Time) ([]*model.Record, error)

	// GetOrCreateJob fetches the job matching (user, coach, state) or inserts
	// j. The boolean reports whether a row was created.
	GetOrCreateJob(ctx context.Context, j *model.Job) (bool, error)
	HasJob(ctx context.Context, userID int64, coach string) (bool, error)
	GetJob(ctx context.Context, id int64) (*model.Job, error)
	// ListJobs returns all jobs that are not soft-disabled.
	ListJobs(ctx context.Context) ([]*model.Job, error)
}
