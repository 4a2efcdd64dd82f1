package wellness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackerAt(t0 time.Time) (*Tracker, *time.Time) {
	now := t0
	tr := NewTracker()
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestLogMood(t *testing.T) {
	tr := NewTracker()

	t.Run("records entry", func(t *testing.T) {
		entry := tr.LogMood(7, "okay")
		assert.Equal(t, 7, entry.Score)
		assert.Equal(t, "okay", entry.Label)
		assert.Equal(t, 1, tr.Stats.MoodLogs)
		require.Len(t, tr.MoodLog, 1)
	})

	t.Run("clamps low", func(t *testing.T) {
		entry := tr.LogMood(-3, "")
		assert.Equal(t, 1, entry.Score)
	})

	t.Run("clamps high", func(t *testing.T) {
		entry := tr.LogMood(99, "")
		assert.Equal(t, 10, entry.Score)
	})
}

func TestActivityCounters(t *testing.T) {
	tr := NewTracker()

	tr.AddMeditation(10)
	tr.AddMeditation(-5) // ignored
	tr.AddJournalEntry()
	tr.AddBreathingSession()
	tr.AddBreathingSession()
	tr.AddGratitude()

	assert.Equal(t, 10, tr.Stats.MeditationMinutes)
	assert.Equal(t, 1, tr.Stats.JournalEntries)
	assert.Equal(t, 2, tr.Stats.BreathingSessions)
	assert.Equal(t, 1, tr.Stats.GratitudeEntries)
}

func TestCheckInStreak(t *testing.T) {
	day0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("first checkin starts streak", func(t *testing.T) {
		tr, _ := trackerAt(day0)
		changed, streak := tr.CheckIn()
		assert.True(t, changed)
		assert.Equal(t, 1, streak)
	})

	t.Run("same day is a no-op", func(t *testing.T) {
		tr, now := trackerAt(day0)
		tr.CheckIn()
		*now = day0.Add(8 * time.Hour)
		changed, streak := tr.CheckIn()
		assert.False(t, changed)
		assert.Equal(t, 1, streak)
	})

	t.Run("next day extends streak", func(t *testing.T) {
		tr, now := trackerAt(day0)
		tr.CheckIn()
		*now = day0.AddDate(0, 0, 1)
		changed, streak := tr.CheckIn()
		assert.True(t, changed)
		assert.Equal(t, 2, streak)

		*now = day0.AddDate(0, 0, 2)
		_, streak = tr.CheckIn()
		assert.Equal(t, 3, streak)
	})

	t.Run("gap resets streak", func(t *testing.T) {
		tr, now := trackerAt(day0)
		tr.CheckIn()
		*now = day0.AddDate(0, 0, 1)
		tr.CheckIn()
		*now = day0.AddDate(0, 0, 4)
		changed, streak := tr.CheckIn()
		assert.True(t, changed)
		assert.Equal(t, 1, streak)
	})
}
