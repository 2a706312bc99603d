package schedule

import (
	"context"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/diarypete/diarypete/diary/coach"
	"github.com/diarypete/diarypete/diary/model"
	"github.com/diarypete/diarypete/diary/store"
)

type timerCall struct {
	task         func()
	interval     time.Duration
	initialDelay time.Duration
}

type fakeTimers struct {
	calls []timerCall
}

func (f *fakeTimers) Put(task func(), interval, initialDelay time.Duration) error {
	f.calls = append(f.calls, timerCall{task: task, interval: interval, initialDelay: initialDelay})
	return nil
}

type fakeMessenger struct {
	sent []string
}

func (f *fakeMessenger) Send(_ context.Context, _ int64, text string, _ *tele.ReplyMarkup) error {
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, _, _ string) error { return nil }

var jobsNow = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func seedJob(t *testing.T, st *store.Memory, scheduledAt model.TimeOfDay, disabled bool) (*model.User, *model.Job) {
	t.Helper()
	ctx := context.Background()
	user, _, err := st.GetOrCreateUser(ctx, 100, 200)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	job := &model.Job{
		UserID:      user.ID,
		Coach:       coach.NameGratitude.String(),
		State:       coach.GratitudeAwaitingGratitude,
		ScheduledAt: scheduledAt,
		Text:        "What are three good things?",
		Disabled:    disabled,
	}
	if _, err := st.GetOrCreateJob(ctx, job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return user, job
}

func TestRestoreDelaySubtractsLead(t *testing.T) {
	st := store.NewMemory()
	// now 08:00, slot 20:00: 12h out, minus the 6h lead leaves 6h.
	seedJob(t, st, model.TimeOfDayFromHour(20), false)

	timers := &fakeTimers{}
	jobs := NewJobs(st, &fakeMessenger{}, timers, func() time.Time { return jobsNow })
	if err := jobs.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if len(timers.calls) != 1 {
		t.Fatalf("expected 1 timer, got %d", len(timers.calls))
	}
	call := timers.calls[0]
	if call.interval != 24*time.Hour {
		t.Fatalf("interval = %v", call.interval)
	}
	if call.initialDelay != 6*time.Hour {
		t.Fatalf("initial delay = %v", call.initialDelay)
	}
}

func TestRestoreDelayWrapsToNextDay(t *testing.T) {
	st := store.NewMemory()
	// now 08:00, slot 09:00: 1h out, under the lead, so it wraps a day.
	seedJob(t, st, model.TimeOfDayFromHour(9), false)

	timers := &fakeTimers{}
	jobs := NewJobs(st, &fakeMessenger{}, timers, func() time.Time { return jobsNow })
	if err := jobs.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if got := timers.calls[0].initialDelay; got != 19*time.Hour {
		t.Fatalf("initial delay = %v", got)
	}
}

func TestRestoreDelayWrapsMoreThanOneDay(t *testing.T) {
	st := store.NewMemory()
	// now 20:00, slot 01:00: 19h in the past, and the lead pushes the
	// remainder to -25h, so a single day added back still lands in the past.
	seedJob(t, st, model.TimeOfDayFromHour(1), false)

	evening := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	timers := &fakeTimers{}
	jobs := NewJobs(st, &fakeMessenger{}, timers, func() time.Time { return evening })
	if err := jobs.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	got := timers.calls[0].initialDelay
	if got < 0 {
		t.Fatalf("initial delay = %v, must never be negative", got)
	}
	if got != 23*time.Hour {
		t.Fatalf("initial delay = %v", got)
	}
}

func TestRestoreSkipsDisabledJobs(t *testing.T) {
	st := store.NewMemory()
	seedJob(t, st, model.TimeOfDayFromHour(20), true)

	timers := &fakeTimers{}
	jobs := NewJobs(st, &fakeMessenger{}, timers, func() time.Time { return jobsNow })
	if err := jobs.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if len(timers.calls) != 0 {
		t.Fatalf("expected no timers, got %d", len(timers.calls))
	}
}

func TestFireMovesUserAndPrompts(t *testing.T) {
	st := store.NewMemory()
	user, job := seedJob(t, st, model.TimeOfDayFromHour(20), false)

	timers := &fakeTimers{}
	msg := &fakeMessenger{}
	jobs := NewJobs(st, msg, timers, func() time.Time { return jobsNow })
	if err := jobs.Put(job.ID, 24*time.Hour, time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}

	timers.calls[0].task()

	u, err := st.GetUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if u.ActiveCoach != job.Coach || u.State != job.State {
		t.Fatalf("user at %s/%d, expected %s/%d", u.ActiveCoach, u.State, job.Coach, job.State)
	}
	if len(msg.sent) != 1 || msg.sent[0] != job.Text {
		t.Fatalf("sent = %v", msg.sent)
	}
}

func TestFireMissingJobIsAbsorbed(t *testing.T) {
	st := store.NewMemory()
	msg := &fakeMessenger{}
	timers := &fakeTimers{}
	jobs := NewJobs(st, msg, timers, func() time.Time { return jobsNow })
	if err := jobs.Put(999, 24*time.Hour, time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}

	timers.calls[0].task()

	if len(msg.sent) != 0 {
		t.Fatalf("unexpected sends: %v", msg.sent)
	}
}
