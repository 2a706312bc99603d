package dispatch

import (
	"context"
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/diarypete/diarypete/diary/coach"
	"github.com/diarypete/diarypete/diary/model"
	"github.com/diarypete/diarypete/diary/store"
)

type fakeMessenger struct {
	sent []string
}

func (f *fakeMessenger) Send(_ context.Context, _ int64, text string, _ *tele.ReplyMarkup) error {
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, _, _ string) error { return nil }

type fakeScheduler struct {
	puts int
}

func (f *fakeScheduler) Put(_ int64, _, _ time.Duration) error {
	f.puts++
	return nil
}

func newTestRouter() (*Router, *fakeMessenger, *store.Memory) {
	msg := &fakeMessenger{}
	st := store.NewMemory()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	r := NewRouter(coach.Deps{
		MSG:   msg,
		Store: st,
		Sched: &fakeScheduler{},
		Now:   func() time.Time { return now },
	})
	return r, msg, st
}

func text(s string) coach.Update {
	return coach.Update{UserID: 100, ChatID: 200, FirstName: "Ada", Text: s}
}

func TestRouterCreatesUserOnFirstContact(t *testing.T) {
	r, msg, st := newTestRouter()

	if err := r.HandleUpdate(context.Background(), text("/start")); err != nil {
		t.Fatalf("handle: %v", err)
	}

	u, created, err := st.GetOrCreateUser(context.Background(), 100, 200)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if created {
		t.Fatal("user should already exist")
	}
	if u.ActiveCoach != coach.NameSetup.String() || u.State != coach.SetupAwaitingName {
		t.Fatalf("user at %s/%d", u.ActiveCoach, u.State)
	}
	if len(msg.sent) == 0 || msg.sent[0] != "Hello Ada" {
		t.Fatalf("sent = %v", msg.sent)
	}
}

func TestRouterFollowsHandOffOnce(t *testing.T) {
	r, msg, st := newTestRouter()
	ctx := context.Background()

	// Walk the whole onboarding; declining the coach catalog hands the same
	// update to the menu coach, which greets immediately.
	steps := []string{"/start", "Ada", "9am", "\U0001F44E"}
	for _, s := range steps {
		if err := r.HandleUpdate(ctx, text(s)); err != nil {
			t.Fatalf("handle %q: %v", s, err)
		}
	}

	u, _, err := st.GetOrCreateUser(ctx, 100, 200)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if u.ActiveCoach != coach.NameMenu.String() || u.State != coach.MenuAwaitingDiaryEntry {
		t.Fatalf("user at %s/%d, expected the menu to have run", u.ActiveCoach, u.State)
	}
	last := msg.sent[len(msg.sent)-1]
	if !strings.Contains(last, "all set up") {
		t.Fatalf("last message = %q", last)
	}
}

func TestRouterDiaryEntryAfterOnboarding(t *testing.T) {
	r, _, st := newTestRouter()
	ctx := context.Background()

	for _, s := range []string{"/start", "Ada", "9am", "\U0001F44E", "Great day at the lake."} {
		if err := r.HandleUpdate(ctx, text(s)); err != nil {
			t.Fatalf("handle %q: %v", s, err)
		}
	}

	u, _, _ := st.GetOrCreateUser(ctx, 100, 200)
	recs, err := st.RecentRecords(ctx, u.ID, time.Time{})
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(recs) != 1 || recs[0].Content != "Great day at the lake." {
		t.Fatalf("records = %+v", recs)
	}
}

// firingStore hands out a user snapshot and then immediately moves the
// stored conversation, like a scheduled job committing mid-update.
type firingStore struct {
	store.Store
	fired bool
}

func (f *firingStore) GetOrCreateUser(ctx context.Context, telegramID, chatID int64) (*model.User, bool, error) {
	u, created, err := f.Store.GetOrCreateUser(ctx, telegramID, chatID)
	if err != nil || f.fired {
		return u, created, err
	}
	f.fired = true
	moved, err := f.Store.GetUser(ctx, u.ID)
	if err != nil {
		return nil, false, err
	}
	moved.ActiveCoach = coach.NameGratitude.String()
	moved.State = coach.GratitudeAwaitingGratitude
	if err := f.Store.SaveUser(ctx, moved); err != nil {
		return nil, false, err
	}
	return u, created, err
}

func TestRouterDropsUpdateWhenJobFiresMidway(t *testing.T) {
	msg := &fakeMessenger{}
	st := &firingStore{Store: store.NewMemory()}
	r := NewRouter(coach.Deps{
		MSG:   msg,
		Store: st,
		Sched: &fakeScheduler{},
		Now:   func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) },
	})

	if err := r.HandleUpdate(context.Background(), text("hello")); err != nil {
		t.Fatalf("handle: %v", err)
	}

	u, _, err := st.Store.GetOrCreateUser(context.Background(), 100, 200)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if u.ActiveCoach != coach.NameGratitude.String() || u.State != coach.GratitudeAwaitingGratitude {
		t.Fatalf("job transition reverted: %s/%d", u.ActiveCoach, u.State)
	}
}

func TestRouterRejectsUnknownCoach(t *testing.T) {
	r, _, st := newTestRouter()
	ctx := context.Background()

	u, _, err := st.GetOrCreateUser(ctx, 100, 200)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	u.ActiveCoach = "Astrology"
	if err := st.SaveUser(ctx, u); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := r.HandleUpdate(ctx, text("hello")); err == nil {
		t.Fatal("expected an error for an unknown coach")
	}
}
