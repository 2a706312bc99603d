package coach

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/diarypete/diarypete/diary/model"
	"github.com/diarypete/diarypete/diary/store"
)

const (
	// gratitudeTarget is how many good things are collected per session.
	gratitudeTarget = 3

	// gratitudeLead is subtracted from the user's wake time to find the
	// daily prompt time. The offset is fixed and not timezone aware; this
	// matches the recorded behavior of the deployed bot.
	gratitudeLead = 10 * time.Hour

	// collectorWindow bounds the records loaded into the working set.
	collectorWindow = 24 * time.Hour

	gratitudePrompt = "Good morning! What are three things you are grateful for today?"
)

// Gratitude collects three good things per day and then asks for the reason
// behind each one, in the order they were collected.
type Gratitude struct {
	d      Deps
	user   *model.User
	loaded position

	// collector is the user's records from the trailing 24 hours, oldest
	// first. It is rebuilt on every construction and never cached.
	collector []*model.Record
}

func newGratitude(ctx context.Context, d Deps, user *model.User) (Coach, error) {
	recs, err := d.Store.RecentRecords(ctx, user.ID, d.now().Add(-collectorWindow))
	if err != nil {
		return nil, fmt.Errorf("load collector: %w", err)
	}
	return &Gratitude{d: d, user: user, loaded: positionOf(user), collector: recs}, nil
}

func (g *Gratitude) Name() Name { return NameGratitude }

func (g *Gratitude) Handle(ctx context.Context, upd Update) (Outcome, error) {
	var out Outcome

	switch g.user.State {
	case GratitudeAwaitingGratitude:
		if err := g.collect(ctx, upd); err != nil {
			return out, err
		}

	case GratitudeAwaitingReasons:
		o, err := g.react(ctx, upd)
		if err != nil {
			return out, err
		}
		out = o
	}

	// Persist the user and the whole working set in one transaction, no
	// matter which branch ran.
	err := g.d.Store.WithTx(ctx, func(tx store.Store) error {
		if err := commitUser(ctx, tx, g.user, g.loaded); err != nil {
			return err
		}
		for _, rec := range g.collector {
			if rec.ID == 0 {
				if err := tx.CreateRecord(ctx, rec); err != nil {
					return err
				}
				continue
			}
			if err := tx.SaveRecord(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

func (g *Gratitude) collect(ctx context.Context, upd Update) error {
	rec := &model.Record{
		UserID:    g.user.ID,
		Kind:      NameGratitude.String(),
		Content:   upd.Text,
		CreatedAt: g.d.now(),
	}
	g.collector = append(g.collector, rec)

	pending := g.pending()
	switch {
	case len(pending) >= gratitudeTarget:
		msg := fmt.Sprintf(
			"Wonderful. Now let's look at each of them once more. Why did %q happen?",
			pending[0].Content)
		if err := g.d.MSG.Send(ctx, g.user.ChatID, msg, nil); err != nil {
			return err
		}
		g.user.State = GratitudeAwaitingReasons
	case len(pending) == gratitudeTarget-1:
		return g.d.MSG.Send(ctx, g.user.ChatID, "Lovely. One more!", nil)
	default:
		return g.d.MSG.Send(ctx, g.user.ChatID,
			"That's a good one! What else are you grateful for? Two to go.", nil)
	}
	return nil
}

func (g *Gratitude) react(ctx context.Context, upd Update) (Outcome, error) {
	var out Outcome

	pending := g.pending()
	if len(pending) > 0 {
		pending[0].Reaction = sql.NullString{String: upd.Text, Valid: true}
		pending = pending[1:]
	}
	if len(pending) > 0 {
		msg := fmt.Sprintf("And why did %q happen?", pending[0].Content)
		return out, g.d.MSG.Send(ctx, g.user.ChatID, msg, nil)
	}

	msg := "Thank you! I hope this made the good things shine a little brighter. See you tomorrow."
	if err := g.d.MSG.Send(ctx, g.user.ChatID, msg, nil); err != nil {
		return out, err
	}
	g.user.ActiveCoach = NameMenu.String()
	g.user.State = MenuStart
	out.Redispatch = NameMenu
	return out, nil
}

// pending returns the gratitude records still missing a reaction, in
// creation order. Position in this slice, not wall-clock proximity, decides
// which record a reason belongs to.
func (g *Gratitude) pending() []*model.Record {
	var out []*model.Record
	for _, rec := range g.collector {
		if rec.Kind == NameGratitude.String() && !rec.Complete() {
			out = append(out, rec)
		}
	}
	return out
}

// setupGratitude enrols the user: one job row keyed by (user, coach, state)
// and a recurring timer firing daily at wake time minus the fixed lead.
func setupGratitude(ctx context.Context, d Deps, user *model.User) error {
	job := &model.Job{
		UserID:      user.ID,
		Coach:       NameGratitude.String(),
		State:       GratitudeAwaitingGratitude,
		ScheduledAt: user.WakeTime.Add(-gratitudeLead),
		Text:        gratitudePrompt,
	}
	if err := d.Store.WithTx(ctx, func(tx store.Store) error {
		_, err := tx.GetOrCreateJob(ctx, job)
		return err
	}); err != nil {
		return err
	}

	now := d.now()
	first := job.ScheduledAt.At(now)
	remaining := first.Sub(now)
	if remaining < 0 {
		// Today's slot has passed; start tomorrow.
		remaining += 24 * time.Hour
	}
	if err := d.Sched.Put(job.ID, 24*time.Hour, remaining); err != nil {
		return err
	}

	confirm := fmt.Sprintf("Alright! I will ask you about three good things every day around %s.",
		first.Format("3:04pm"))
	return d.MSG.Send(ctx, user.ChatID, confirm, nil)
}
