package middleware

import (
	"context"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/diarypete/diarypete/core/logger"
	"github.com/diarypete/diarypete/core/telegram/callbacks"
)

// Logging logs one receipt line per update and one summary line after the
// handler returns. Handler errors are logged here and swallowed so a single
// failed update never tears down the poller.
func Logging(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		chatID, userID := int64(0), int64(0)
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		if user := c.Sender(); user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)

		attrs := []slog.Attr{
			slog.String("rid", rid),
			slog.Int("update_id", upd.ID),
			slog.Int64("chat_id", chatID),
			slog.Int64("user_id", userID),
		}
		switch {
		case upd.Callback != nil:
			key, payload := callbacks.Parse(upd.Callback)
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
			if payload != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
			}
		case upd.Message != nil:
			if t := c.Text(); t != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
			}
		}
		logger.TG.LogAttrs(context.Background(), slog.LevelDebug, "update.received", attrs...)

		start := time.Now()
		err := next(c)

		summary := []slog.Attr{
			slog.String("rid", rid),
			slog.Int64("user_id", userID),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		}
		if err != nil {
			summary = append(summary,
				slog.String("status", "fail"),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			logger.TG.LogAttrs(context.Background(), slog.LevelError, "update.handled", summary...)
			return nil
		}
		summary = append(summary, slog.String("status", "ok"))
		logger.TG.LogAttrs(context.Background(), slog.LevelInfo, "update.handled", summary...)
		return nil
	}
}
