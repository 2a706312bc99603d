package coach

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/diarypete/diarypete/core/logger"
	"github.com/diarypete/diarypete/diary/model"
	"github.com/diarypete/diarypete/diary/store"
)

// Setup walks a new user through onboarding: name, wake time, and the
// optional feature coach selection.
type Setup struct {
	d      Deps
	user   *model.User
	loaded position
}

func newSetup(_ context.Context, d Deps, user *model.User) (Coach, error) {
	return &Setup{d: d, user: user, loaded: positionOf(user)}, nil
}

func (s *Setup) Name() Name { return NameSetup }

func (s *Setup) Handle(ctx context.Context, upd Update) (Outcome, error) {
	// Re-affirm ownership on every call, including no-op paths.
	s.user.ActiveCoach = NameSetup.String()

	var out Outcome
	switch s.user.State {
	case SetupStart:
		if err := s.intro(ctx, upd); err != nil {
			return out, err
		}
		s.user.State = SetupAwaitingName

	case SetupAwaitingName:
		s.user.Name = sql.NullString{String: upd.Text, Valid: true}
		msg := fmt.Sprintf(
			"Nice to meet you, %s! Just a quick question to get an idea of your daily rhythm: when do you usually get up?\n\nYou can always change this later by typing /setup",
			upd.Text)
		if err := s.d.MSG.Send(ctx, s.user.ChatID, msg, morningHours()); err != nil {
			return out, err
		}
		s.user.State = SetupAwaitingWakeTime

	case SetupAwaitingWakeTime:
		wake, ok := parseWakeTime(upd.Text)
		if !ok {
			// Unparseable input: re-prompt, state unchanged.
			err := s.d.MSG.Send(ctx, s.user.ChatID,
				"Sorry, I didn't get that. Please pick one of the buttons or reply with something like 9am.",
				morningHours())
			if err != nil {
				return out, err
			}
			break
		}
		s.user.WakeTime = wake
		msg := fmt.Sprintf(
			"Ok, %s. I have a number of coaching ideas that can assist you with more specific goals like becoming conscious of your nutrition, sleep & dreams or reading habits. Are you interested in the selection?",
			upd.Text)
		if err := s.d.MSG.Send(ctx, s.user.ChatID, msg, thumbs()); err != nil {
			return out, err
		}
		s.user.State = SetupAwaitingSelectionConfirmation

	case SetupAwaitingSelectionConfirmation:
		if upd.Text == thumbsUp {
			msg := "Great! These are the coaching programs I currently offer. Pick one to add it, or continue without."
			if err := s.d.MSG.Send(ctx, s.user.ChatID, msg, coachSelection()); err != nil {
				return out, err
			}
			s.user.State = SetupAwaitingCoachSelection
		} else {
			s.user.IntroSeen = true
			s.toMenu()
			out.Redispatch = NameMenu
		}

	case SetupAwaitingCoachSelection:
		o, err := s.handleSelection(ctx, upd)
		if err != nil {
			return out, err
		}
		out = o
	}

	if err := s.d.Store.WithTx(ctx, func(tx store.Store) error {
		return commitUser(ctx, tx, s.user, s.loaded)
	}); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Setup) intro(ctx context.Context, upd Update) error {
	greeting := "Hello there"
	if upd.FirstName != "" {
		greeting = "Hello " + upd.FirstName
	}
	messages := []string{
		greeting,
		"I am Diary Pete, and I can help you become more conscious of your day-to-day.",
		"Every evening, I will ask you about your day. After some time, you can look back and remember all the nice things.",
		"What would you like me to call you?",
	}
	for _, m := range messages {
		if err := s.d.MSG.Send(ctx, s.user.ChatID, m, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *Setup) handleSelection(ctx context.Context, upd Update) (Outcome, error) {
	var out Outcome

	if upd.Callback == nil {
		err := s.d.MSG.Send(ctx, s.user.ChatID,
			"Please use the buttons to pick a coach.", nil)
		return out, err
	}

	payload := upd.Callback.Data
	if payload == continuePayload {
		if err := s.d.MSG.AnswerCallback(ctx, upd.Callback.ID, ""); err != nil {
			return out, err
		}
		s.user.IntroSeen = true
		s.toMenu()
		out.Redispatch = NameMenu
		return out, nil
	}

	name, err := ParseName(payload)
	if err != nil {
		return out, s.d.MSG.Send(ctx, s.user.ChatID, "That's not a coach I have here.", nil)
	}
	setup, ok := SetupFor(name)
	if !ok {
		return out, s.d.MSG.Send(ctx, s.user.ChatID, "That's not a coach I have here.", nil)
	}

	exists, err := s.d.Store.HasJob(ctx, s.user.ID, name.String())
	if err != nil {
		return out, err
	}
	if exists {
		logger.COACH.Debug("coach already enrolled",
			slog.String("event", "setup.duplicate"),
			slog.Int64("user_id", s.user.TelegramID),
			slog.String("coach", name.String()),
		)
		if err := s.d.MSG.AnswerCallback(ctx, upd.Callback.ID, ""); err != nil {
			return out, err
		}
		return out, s.d.MSG.Send(ctx, s.user.ChatID,
			fmt.Sprintf("The %s coach is already added.", name), nil)
	}

	if err := setup(ctx, s.d, s.user); err != nil {
		return out, err
	}
	if err := s.d.MSG.AnswerCallback(ctx, upd.Callback.ID, ""); err != nil {
		return out, err
	}
	return out, s.d.MSG.Send(ctx, s.user.ChatID,
		fmt.Sprintf("I've added the %s coach for you. Pick another one, or continue.", name), nil)
}

func (s *Setup) toMenu() {
	s.user.ActiveCoach = NameMenu.String()
	s.user.State = MenuStart
}

// parseWakeTime parses inputs like "9am" or "12pm": the trailing two
// characters select am/pm and the remainder must be an hour from 1 to 12.
// "pm" adds twelve hours, so "12pm" deliberately yields hour 24; that quirk
// is part of the recorded behavior and kept as-is.
func parseWakeTime(raw string) (model.TimeOfDay, bool) {
	text := strings.TrimSpace(strings.ToLower(raw))
	if len(text) < 3 {
		return 0, false
	}
	suffix := text[len(text)-2:]
	if suffix != "am" && suffix != "pm" {
		return 0, false
	}
	hour, err := strconv.Atoi(text[:len(text)-2])
	if err != nil || hour < 1 || hour > 12 {
		return 0, false
	}
	if suffix == "pm" {
		hour += 12
	}
	return model.TimeOfDayFromHour(hour), true
}
