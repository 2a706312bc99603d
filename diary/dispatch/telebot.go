package dispatch

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/diarypete/diarypete/core/logger"
	"github.com/diarypete/diarypete/core/telegram/callbacks"
	"github.com/diarypete/diarypete/core/telegram/middleware"
	"github.com/diarypete/diarypete/diary/coach"
)

// TelebotMessenger implements coach.Messenger over a telebot instance.
// Transport failures are logged and absorbed so the state machine keeps
// moving even when a single delivery fails.
type TelebotMessenger struct {
	bot *tele.Bot
}

func NewTelebotMessenger(bot *tele.Bot) *TelebotMessenger {
	return &TelebotMessenger{bot: bot}
}

func (m *TelebotMessenger) Send(_ context.Context, chatID int64, text string, markup *tele.ReplyMarkup) error {
	var err error
	if markup != nil {
		_, err = m.bot.Send(tele.ChatID(chatID), text, markup)
	} else {
		_, err = m.bot.Send(tele.ChatID(chatID), text)
	}
	if err != nil {
		logger.TG.Error("send failed",
			slog.String("event", "tg.send"),
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func (m *TelebotMessenger) AnswerCallback(_ context.Context, callbackID, text string) error {
	err := m.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
	if err != nil {
		logger.TG.Error("callback answer failed",
			slog.String("event", "tg.respond"),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// updateFrom converts an inbound telebot context into the transport-neutral
// update the coaches consume.
func updateFrom(c tele.Context) coach.Update {
	upd := coach.Update{Text: c.Text()}
	if sender := c.Sender(); sender != nil {
		upd.UserID = sender.ID
		upd.FirstName = sender.FirstName
	}
	if chat := c.Chat(); chat != nil {
		upd.ChatID = chat.ID
	}
	if cb := c.Callback(); cb != nil {
		unique, _ := callbacks.Parse(cb)
		if cb.Unique != "" {
			unique = cb.Unique
		}
		upd.Callback = &coach.Callback{ID: cb.ID, Data: unique}
	}
	return upd
}

// Register wires the router into the bot: commands, free text and inline
// callbacks all flow through the same path.
func Register(bot *tele.Bot, r *Router) {
	bot.Use(middleware.Recover, middleware.Logging)

	handle := func(c tele.Context) error {
		ctx := logger.WithUpdateMeta(context.Background(), senderID(c), chatID(c))
		return r.HandleUpdate(ctx, updateFrom(c))
	}

	bot.Handle("/start", handle)
	bot.Handle(tele.OnText, handle)
	bot.Handle(tele.OnCallback, handle)
}

func senderID(c tele.Context) int64 {
	if s := c.Sender(); s != nil {
		return s.ID
	}
	return 0
}

func chatID(c tele.Context) int64 {
	if ch := c.Chat(); ch != nil {
		return ch.ID
	}
	return 0
}
