package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mindmate/internal/wellness"
)

// Export is the JSON shape produced by ExportJSON. It carries the full
// conversation plus the session's wellness and community participation so a
// user can take their data with them when the session ends.
type Export struct {
	SessionID  string          `json:"session_id"`
	StartedAt  time.Time       `json:"started_at"`
	ExportedAt time.Time       `json:"exported_at"`
	Messages   []exportTurn    `json:"messages"`
	Journal    string          `json:"journal"`
	APICalls   int             `json:"api_calls"`
	Wellness   wellness.Stats  `json:"wellness"`
	MoodLog    []exportMood    `json:"mood_log"`
	Streak     int             `json:"streak"`
	Community  exportCommunity `json:"community"`
}

type exportTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type exportMood struct {
	Score int       `json:"score"`
	Label string    `json:"label"`
	At    time.Time `json:"at"`
}

type exportCommunity struct {
	AnonymousID     string `json:"anonymous_id"`
	PostsWritten    int    `json:"posts_written"`
	SupportGiven    int    `json:"support_given"`
	SupportReceived int    `json:"support_received"`
}

// ExportJSON renders the whole session as indented JSON.
func (s *State) ExportJSON() ([]byte, error) {
	exp := Export{
		SessionID:  s.ID,
		StartedAt:  s.StartedAt,
		ExportedAt: time.Now(),
		Journal:    s.Journal,
		APICalls:   s.APICalls,
		Wellness:   s.Wellness.Stats,
		Streak:     s.Wellness.Streak,
	}
	for _, m := range s.Messages {
		exp.Messages = append(exp.Messages, exportTurn{Role: m.Role, Content: m.Content})
	}
	for _, e := range s.Wellness.MoodLog {
		exp.MoodLog = append(exp.MoodLog, exportMood{Score: e.Score, Label: e.Label, At: e.At})
	}
	exp.Community = exportCommunity{
		AnonymousID:     s.Community.AnonymousID,
		PostsWritten:    s.Community.PostsWritten,
		SupportGiven:    s.Community.SupportGiven,
		SupportReceived: s.Community.SupportReceived,
	}
	out, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export session %s: %w", s.ID, err)
	}
	return out, nil
}

// ExportJournal renders the journal as plain text with a small header.
func (s *State) ExportJournal() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mindmate Session Journal\n")
	fmt.Fprintf(&b, "Session: %s\n", s.ID)
	fmt.Fprintf(&b, "Started: %s\n\n", s.StartedAt.Format(time.RFC1123))
	b.WriteString(s.Journal)
	b.WriteString("\n")
	return b.String()
}
