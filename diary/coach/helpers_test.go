package coach

import (
	"context"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/diarypete/diarypete/diary/model"
	"github.com/diarypete/diarypete/diary/store"
)

type sentMessage struct {
	ChatID int64
	Text   string
	Markup *tele.ReplyMarkup
}

type fakeMessenger struct {
	sent     []sentMessage
	answered []string
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, text string, markup *tele.ReplyMarkup) error {
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text, Markup: markup})
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, callbackID, _ string) error {
	f.answered = append(f.answered, callbackID)
	return nil
}

func (f *fakeMessenger) last(t *testing.T) sentMessage {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("no messages sent")
	}
	return f.sent[len(f.sent)-1]
}

type putCall struct {
	JobID        int64
	Interval     time.Duration
	InitialDelay time.Duration
}

type fakeScheduler struct {
	puts []putCall
}

func (f *fakeScheduler) Put(jobID int64, interval, initialDelay time.Duration) error {
	f.puts = append(f.puts, putCall{JobID: jobID, Interval: interval, InitialDelay: initialDelay})
	return nil
}

type testEnv struct {
	deps  Deps
	msg   *fakeMessenger
	store *store.Memory
	sched *fakeScheduler
}

func newTestEnv(now time.Time) *testEnv {
	msg := &fakeMessenger{}
	st := store.NewMemory()
	sched := &fakeScheduler{}
	return &testEnv{
		deps: Deps{
			MSG:   msg,
			Store: st,
			Sched: sched,
			Now:   func() time.Time { return now },
		},
		msg:   msg,
		store: st,
		sched: sched,
	}
}

func (e *testEnv) createUser(t *testing.T) *model.User {
	t.Helper()
	u, created, err := e.store.GetOrCreateUser(context.Background(), 100, 200)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if !created {
		t.Fatal("expected a fresh user")
	}
	return u
}

func (e *testEnv) reload(t *testing.T, id int64) *model.User {
	t.Helper()
	u, err := e.store.GetUser(context.Background(), id)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return u
}
