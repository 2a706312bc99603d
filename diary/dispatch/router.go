// Package dispatch routes inbound updates to the user's active coach and
// binds the conversation core to the Telegram transport.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/diarypete/diarypete/core/logger"
	"github.com/diarypete/diarypete/diary/coach"
)

// Router delivers each update to the coach named by the user's persisted
// ActiveCoach field.
type Router struct {
	deps coach.Deps
}

func NewRouter(deps coach.Deps) *Router {
	return &Router{deps: deps}
}

// HandleUpdate resolves the user, runs their active coach, and follows at
// most one hand-off. A coach that ends its turn by passing control reports
// the successor in the outcome; the same update is delivered to the
// successor exactly once, against freshly reloaded user state.
func (r *Router) HandleUpdate(ctx context.Context, upd coach.Update) error {
	user, created, err := r.deps.Store.GetOrCreateUser(ctx, upd.UserID, upd.ChatID)
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}
	if created {
		logger.COACH.Info("new user",
			slog.String("event", "dispatch.new_user"),
			slog.Int64("user_id", upd.UserID),
			slog.Int64("chat_id", upd.ChatID),
		)
	}

	for hop := 0; hop < 2; hop++ {
		name, err := coach.ParseName(user.ActiveCoach)
		if err != nil {
			return fmt.Errorf("user %d: %w", user.ID, err)
		}
		c, err := coach.New(ctx, name, r.deps, user)
		if err != nil {
			return fmt.Errorf("build coach %s: %w", name, err)
		}
		out, err := c.Handle(ctx, upd)
		if errors.Is(err, coach.ErrStateClash) {
			// A job fired while this update was in flight; its transition
			// wins and the update is dropped.
			logger.COACH.Debug("update dropped",
				slog.String("event", "dispatch.state_clash"),
				slog.String("coach", name.String()),
				slog.Int64("user_id", upd.UserID),
			)
			return nil
		}
		if err != nil {
			return fmt.Errorf("coach %s: %w", name, err)
		}
		if out.Redispatch == "" {
			return nil
		}
		logger.COACH.Debug("hand-off",
			slog.String("event", "dispatch.redispatch"),
			slog.String("from", name.String()),
			slog.String("to", out.Redispatch.String()),
			slog.Int64("user_id", upd.UserID),
		)
		// Reload so the successor sees the state the predecessor committed.
		user, err = r.deps.Store.GetUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("reload user: %w", err)
		}
	}
	return nil
}
