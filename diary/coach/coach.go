// Package coach implements the conversation core of the bot. Each coach is a
// finite state machine over the numeric state field stored on the user; the
// coach named by user.ActiveCoach owns every incoming update until it hands
// control to another coach.
package coach

import (
	"context"
	"errors"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/diarypete/diarypete/diary/model"
	"github.com/diarypete/diarypete/diary/store"
)

// ErrStateClash reports that another writer moved the user's conversation
// position while an update was being handled. The concurrent transition wins
// and the update is dropped.
var ErrStateClash = errors.New("coach: conversation moved concurrently")

// Name identifies a coach. The set is closed; a Name is both the persisted
// value of user.ActiveCoach and the key for dispatch.
type Name string

const (
	// NameSetup is the onboarding/profile coach and the default for new users.
	NameSetup Name = "Setup"
	// NameMenu is the idle/home coach that collects free-form diary entries.
	NameMenu Name = "Menu"
	// NameGratitude is the recurring good-things coach.
	NameGratitude Name = "Gratitude"
)

func (n Name) String() string { return string(n) }

// ParseName validates a raw coach name against the closed set.
func ParseName(raw string) (Name, error) {
	switch Name(raw) {
	case NameSetup, NameMenu, NameGratitude:
		return Name(raw), nil
	}
	return "", fmt.Errorf("coach: unknown coach %q", raw)
}

// Setup coach states.
const (
	SetupStart = iota
	SetupAwaitingName
	SetupAwaitingWakeTime
	SetupAwaitingSelectionConfirmation
	SetupAwaitingCoachSelection
)

// Menu coach states.
const (
	MenuStart = iota
	MenuAwaitingDiaryEntry
)

// Gratitude coach states. GratitudeMain is a reserved placeholder that no
// transition targets.
const (
	GratitudeMain = iota
	GratitudeAwaitingGratitude
	GratitudeAwaitingReasons
)

// Callback carries an inline-keyboard button press.
type Callback struct {
	// ID acknowledges the callback query towards the platform.
	ID string
	// Data is the opaque payload attached to the pressed button.
	Data string
}

// Update is one inbound event from the messaging transport: either a plain
// text message or an inline callback.
type Update struct {
	UserID    int64
	ChatID    int64
	FirstName string
	Text      string
	Callback  *Callback
}

// Messenger is the outbound side of the conversation. Implementations log
// and absorb transport failures; a failed send never aborts a transition.
type Messenger interface {
	// Send delivers text to a chat; markup may be nil.
	Send(ctx context.Context, chatID int64, text string, markup *tele.ReplyMarkup) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Scheduler registers the recurring timer for a persisted job row. It is
// injected into every coach; coaches never reach for process-wide state.
type Scheduler interface {
	Put(jobID int64, interval, initialDelay time.Duration) error
}

// Deps bundles the collaborators a coach needs.
type Deps struct {
	MSG   Messenger
	Store store.Store
	Sched Scheduler
	// Now allows tests to pin the clock; defaults to time.Now.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Outcome is the result of one Handle call. A non-empty Redispatch asks the
// router to re-deliver the same update to the named coach exactly once.
type Outcome struct {
	Redispatch Name
}

// position is where a user's conversation stood when the aggregate was
// loaded. Coaches capture it at construction and verify it before saving, so
// a job that fires mid-update is not reverted by a stale aggregate.
type position struct {
	coach string
	state int
}

func positionOf(u *model.User) position {
	return position{coach: u.ActiveCoach, state: u.State}
}

// commitUser persists u only while the stored conversation position still
// matches loaded; otherwise ErrStateClash aborts the transaction.
func commitUser(ctx context.Context, tx store.Store, u *model.User, loaded position) error {
	current, err := tx.GetUser(ctx, u.ID)
	if err != nil {
		return err
	}
	if current.ActiveCoach != loaded.coach || current.State != loaded.state {
		return ErrStateClash
	}
	return tx.SaveUser(ctx, u)
}

// Coach handles updates for one user while it is their active coach.
type Coach interface {
	Name() Name
	Handle(ctx context.Context, upd Update) (Outcome, error)
}

// Factory constructs a coach bound to one user aggregate for one request.
type Factory func(ctx context.Context, d Deps, user *model.User) (Coach, error)

// SetupFunc enrols a user into a feature coach: it creates the coach's job
// row and registers its recurring timer.
type SetupFunc func(ctx context.Context, d Deps, user *model.User) error

var factories = map[Name]Factory{
	NameSetup:     newSetup,
	NameMenu:      newMenu,
	NameGratitude: newGratitude,
}

// setups lists the feature coaches offered during onboarding.
var setups = map[Name]SetupFunc{
	NameGratitude: setupGratitude,
}

// New constructs the coach registered under name.
func New(ctx context.Context, name Name, d Deps, user *model.User) (Coach, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("coach: no factory for %q", name)
	}
	return factory(ctx, d, user)
}

// SetupFor returns the enrolment routine for an offerable feature coach.
func SetupFor(name Name) (SetupFunc, bool) {
	fn, ok := setups[name]
	return fn, ok
}

// Offered returns the feature coaches presented on the selection keyboard,
// in stable order.
func Offered() []Name {
	return []Name{NameGratitude}
}
