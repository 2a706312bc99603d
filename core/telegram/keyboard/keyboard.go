// Package keyboard builds the two reply markup shapes the bot uses: grids of
// plain reply buttons and inline keyboards with callback data.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes one inline button.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

// RemoveKeyboard returns a markup that hides a previously sent keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ReplyGrid builds a reply keyboard from rows of button labels.
func ReplyGrid(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	keyboard := make([]tele.Row, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tele.Btn, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, markup.Text(label))
		}
		keyboard = append(keyboard, markup.Row(buttons...))
	}
	markup.Reply(keyboard...)
	return markup
}

// Inline builds an inline keyboard where each button is placed on its own row.
func Inline(buttons ...InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, 0, len(buttons))
	for _, b := range buttons {
		inline = append(inline, []tele.InlineButton{*markup.Data(b.Text, b.Unique, b.Data).Inline()})
	}
	markup.InlineKeyboard = inline
	return markup
}
