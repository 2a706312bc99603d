package coach

import (
	"context"

	"github.com/diarypete/diarypete/diary/model"
	"github.com/diarypete/diarypete/diary/store"
)

// recordKindText tags free-form diary entries captured by the menu coach.
const recordKindText = "text"

// Menu is the home coach. Once a user is set up, every free-text message
// becomes a diary entry.
type Menu struct {
	d      Deps
	user   *model.User
	loaded position
}

func newMenu(_ context.Context, d Deps, user *model.User) (Coach, error) {
	return &Menu{d: d, user: user, loaded: positionOf(user)}, nil
}

func (m *Menu) Name() Name { return NameMenu }

func (m *Menu) Handle(ctx context.Context, upd Update) (Outcome, error) {
	var out Outcome

	switch m.user.State {
	case MenuStart:
		msg := "You are all set up. Whenever you feel like it, write me a line about your day and I will keep it in your diary."
		if err := m.d.MSG.Send(ctx, m.user.ChatID, msg, nil); err != nil {
			return out, err
		}
		m.user.State = MenuAwaitingDiaryEntry
		if err := m.d.Store.WithTx(ctx, func(tx store.Store) error {
			return commitUser(ctx, tx, m.user, m.loaded)
		}); err != nil {
			return out, err
		}

	case MenuAwaitingDiaryEntry:
		rec := &model.Record{
			UserID:  m.user.ID,
			Kind:    recordKindText,
			Content: upd.Text,
		}
		if err := m.d.Store.WithTx(ctx, func(tx store.Store) error {
			return tx.CreateRecord(ctx, rec)
		}); err != nil {
			return out, err
		}
		if err := m.d.MSG.Send(ctx, m.user.ChatID, "Got it, added to your diary.", nil); err != nil {
			return out, err
		}
		// Self-loop: the next message is another diary entry.
	}

	return out, nil
}
