package coach

import (
	tele "gopkg.in/telebot.v4"

	"github.com/diarypete/diarypete/core/telegram/keyboard"
)

const (
	thumbsUp   = "\U0001F44D"
	thumbsDown = "\U0001F44E"

	// continuePayload finishes coach selection without adding another coach.
	continuePayload = "continue"
)

// morningHours is the wake-time grid offered during setup, 5am through 1pm.
func morningHours() *tele.ReplyMarkup {
	return keyboard.ReplyGrid(
		[]string{"5am", "6am", "7am"},
		[]string{"8am", "9am", "10am"},
		[]string{"11am", "12am", "1pm"},
	)
}

// thumbs is a one-row yes/no keyboard.
func thumbs() *tele.ReplyMarkup {
	return keyboard.ReplyGrid([]string{thumbsUp, thumbsDown})
}

// coachSelection lists the offerable feature coaches plus a continue button.
// Button payloads are the coach names themselves.
func coachSelection() *tele.ReplyMarkup {
	buttons := make([]keyboard.InlineBtn, 0, len(Offered())+1)
	for _, name := range Offered() {
		buttons = append(buttons, keyboard.InlineBtn{
			Text:   name.String() + " journal",
			Unique: name.String(),
		})
	}
	buttons = append(buttons, keyboard.InlineBtn{Text: "Continue", Unique: continuePayload})
	return keyboard.Inline(buttons...)
}
