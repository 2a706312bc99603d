package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/diarypete/diarypete/core/logger"
	"github.com/diarypete/diarypete/diary/coach"
	"github.com/diarypete/diarypete/diary/store"
)

const (
	jobInterval = 24 * time.Hour

	// restoreLead is subtracted from the next computed fire time when timers
	// are rebuilt after a restart. A job whose slot is closer than the lead
	// fires tomorrow instead of immediately; this matches the recorded
	// behavior of the deployed bot.
	restoreLead = 6 * time.Hour
)

// TimerScheduler registers raw recurring timers. *Scheduler satisfies it.
type TimerScheduler interface {
	Put(task func(), interval, initialDelay time.Duration) error
}

// Jobs turns persisted job rows into timers and runs them when they fire.
// It satisfies coach.Scheduler so coaches can register new jobs without
// knowing about gocron or the firing side.
type Jobs struct {
	store store.Store
	msg   coach.Messenger
	sched TimerScheduler
	now   func() time.Time
}

func NewJobs(st store.Store, msg coach.Messenger, sched TimerScheduler, now func() time.Time) *Jobs {
	if now == nil {
		now = time.Now
	}
	return &Jobs{store: st, msg: msg, sched: sched, now: now}
}

// Put registers the recurring timer for the job row with the given id. Only
// the id is captured; the row and its user are reloaded fresh on every fire.
func (j *Jobs) Put(jobID int64, interval, initialDelay time.Duration) error {
	return j.sched.Put(func() { j.run(jobID) }, interval, initialDelay)
}

// Restore rebuilds a timer for every enabled job row. It must complete
// before the bot starts taking traffic, so a restart never loses a
// scheduled conversation.
func (j *Jobs) Restore(ctx context.Context) error {
	jobs, err := j.store.ListJobs(ctx)
	if err != nil {
		return err
	}
	now := j.now()
	for _, job := range jobs {
		// The slot offset ranges over (-24h, 24h) and the lead pushes it down
		// to almost -30h, so one day is not always enough to come back up.
		remaining := job.ScheduledAt.At(now).Sub(now) - restoreLead
		for remaining < 0 {
			remaining += jobInterval
		}
		if err := j.Put(job.ID, jobInterval, remaining); err != nil {
			return err
		}
	}
	logger.SCHED.Info("jobs restored",
		slog.String("event", "sched.restore"),
		slog.Int("count", len(jobs)),
	)
	return nil
}

// run is the generic job body: move the user onto the job's coach and state,
// then deliver the job's prompt. Errors are logged and absorbed; a broken
// fire must not take the scheduler down.
func (j *Jobs) run(jobID int64) {
	ctx := context.Background()

	var (
		chatID int64
		text   string
	)
	err := j.store.WithTx(ctx, func(tx store.Store) error {
		job, err := tx.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		user, err := tx.GetUser(ctx, job.UserID)
		if err != nil {
			return err
		}
		user.ActiveCoach = job.Coach
		user.State = job.State
		if err := tx.SaveUser(ctx, user); err != nil {
			return err
		}
		chatID = user.ChatID
		text = job.Text
		return nil
	})
	if err != nil {
		logger.SCHED.Error("job fire failed",
			slog.String("event", "sched.fire"),
			slog.Int64("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := j.msg.Send(ctx, chatID, text, nil); err != nil {
		logger.SCHED.Error("job prompt send failed",
			slog.String("event", "sched.fire"),
			slog.Int64("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.SCHED.Debug("job fired",
		slog.String("event", "sched.fire"),
		slog.Int64("job_id", jobID),
	)
}
