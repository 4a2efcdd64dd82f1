// Package wellness tracks per-session wellness activity: the mood log,
// activity counters, and the daily check-in streak. All state lives for one
// session only; there is no persistence and no scoring.
package wellness

import (
	"time"

	"mindmate/internal/logging"
)

// Stats counts wellness activities for the session.
type Stats struct {
	MeditationMinutes int `json:"meditation_minutes"`
	JournalEntries    int `json:"journal_entries"`
	BreathingSessions int `json:"breathing_sessions"`
	MoodLogs          int `json:"mood_logs"`
	GratitudeEntries  int `json:"gratitude_entries"`
}

// MoodEntry is one logged mood.
type MoodEntry struct {
	Score int       `json:"score"` // 1-10
	Label string    `json:"label"`
	At    time.Time `json:"at"`
}

// Tracker owns the wellness state for one session.
type Tracker struct {
	Stats       Stats       `json:"stats"`
	MoodLog     []MoodEntry `json:"mood_log"`
	Streak      int         `json:"streak"`
	LastCheckin time.Time   `json:"last_checkin"`

	// now is swappable in tests.
	now func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// LogMood appends a mood entry and bumps the counter. Scores are clamped
// to 1-10. The recorded entry is returned.
func (t *Tracker) LogMood(score int, label string) MoodEntry {
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	entry := MoodEntry{Score: score, Label: label, At: t.now()}
	t.MoodLog = append(t.MoodLog, entry)
	t.Stats.MoodLogs++
	logging.Wellness("Mood logged: score=%d label=%s", score, label)
	return entry
}

// AddMeditation records meditation minutes.
func (t *Tracker) AddMeditation(minutes int) {
	if minutes > 0 {
		t.Stats.MeditationMinutes += minutes
	}
}

// AddJournalEntry records one journal entry.
func (t *Tracker) AddJournalEntry() {
	t.Stats.JournalEntries++
}

// AddBreathingSession records one breathing exercise.
func (t *Tracker) AddBreathingSession() {
	t.Stats.BreathingSessions++
}

// AddGratitude records one gratitude entry.
func (t *Tracker) AddGratitude() {
	t.Stats.GratitudeEntries++
}

// CheckIn updates the daily streak. Returns whether the streak changed and
// the current streak length.
//
// Same-day repeats are no-ops. A check-in on the day after the last one
// extends the streak; any longer gap resets it to one.
func (t *Tracker) CheckIn() (changed bool, streak int) {
	today := dateOf(t.now())

	if t.LastCheckin.IsZero() {
		t.Streak = 1
		t.LastCheckin = today
		return true, t.Streak
	}

	days := int(today.Sub(dateOf(t.LastCheckin)).Hours() / 24)
	switch {
	case days == 0:
		return false, t.Streak
	case days == 1:
		t.Streak++
	default:
		t.Streak = 1
	}
	t.LastCheckin = today
	return true, t.Streak
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
