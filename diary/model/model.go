// Package model defines the persisted entities of the diary bot: users,
// their journal records, and recurring prompt jobs.
package model

import (
	"database/sql"
	"time"
)

// Default conversation position for new users.
const (
	DefaultCoach = "Setup"
	DefaultState = 0
)

// User is one Telegram user of the bot.
//
// State is a small integer whose meaning depends on ActiveCoach; switching
// coaches must also reset State to a value valid for the new coach.
type User struct {
	ID         int64  `db:"id"`
	TelegramID int64  `db:"telegram_id"`
	ChatID     int64  `db:"chat_id"`

	Name   sql.NullString `db:"name"`
	Active bool           `db:"active"`

	// IntroSeen reports whether the user completed the intro script.
	IntroSeen bool `db:"intro_seen"`

	// Per-feature opt-ins.
	AskMood       bool `db:"ask_mood"`
	AskGoodThings bool `db:"ask_good_things"`
	AskDiary      bool `db:"ask_diary"`

	ActiveCoach string `db:"active_coach"`
	State       int    `db:"state"`

	WakeTime  TimeOfDay `db:"wake_time"`
	DiaryTime TimeOfDay `db:"diary_time"`

	CreatedAt time.Time `db:"created_at"`
}

// NewUser returns a user with the documented defaults applied.
func NewUser(telegramID, chatID int64) *User {
	return &User{
		TelegramID:    telegramID,
		ChatID:        chatID,
		Active:        true,
		AskMood:       true,
		AskGoodThings: true,
		AskDiary:      true,
		ActiveCoach:   DefaultCoach,
		State:         DefaultState,
		WakeTime:      TimeOfDayFromHour(9),
		DiaryTime:     TimeOfDayFromHour(22),
	}
}

// Record is a single journal entry.
//
// A record whose Reaction is not set is "incomplete": it is the target of
// the next reaction prompt of the coach that created it.
type Record struct {
	ID       int64          `db:"id"`
	UserID   int64          `db:"user_id"`
	Kind     string         `db:"kind"`
	Content  string         `db:"content"`
	Reaction sql.NullString `db:"reaction"`

	CreatedAt time.Time `db:"created_at"`
}

// Complete reports whether the record already carries a reaction.
func (r *Record) Complete() bool {
	return r.Reaction.Valid
}

// Job is a persisted recurring prompt binding a user, a coach, the state the
// user is put into when it fires, and the time of day it fires at.
//
// At most one job exists per (user, coach, state) tuple. Disabled is a
// soft-disable column reserved for a future opt-out path; nothing sets it
// yet and restore ignores rows where it is true.
type Job struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Coach       string    `db:"coach"`
	State       int       `db:"state"`
	ScheduledAt TimeOfDay `db:"scheduled_at"`
	Text        string    `db:"text"`
	Disabled    bool      `db:"disabled"`

	CreatedAt time.Time `db:"created_at"`
}
