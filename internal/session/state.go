// Package session defines the per-session state aggregate. One State is
// created when a session starts, mutated in place by each pipeline stage, and
// discarded when the session ends. Nothing is shared across sessions, so no
// locking is needed.
package session

import (
	"time"

	"github.com/google/uuid"

	"mindmate/internal/community"
	"mindmate/internal/llm"
	"mindmate/internal/logging"
	"mindmate/internal/wellness"
)

// journalSeed is the initial journal text.
const journalSeed = "Journal started."

// State aggregates everything one session owns.
type State struct {
	ID        string
	StartedAt time.Time

	// Messages is the append-only conversation history.
	Messages []llm.Message

	// Journal is the growing free-text session log, distinct from Messages.
	Journal string

	// Directive holds at most one pending steering instruction for the next
	// turn's system prompt; overwritten each turn.
	Directive string

	// WarningShown suppresses the supportive severity warning after its
	// first occurrence.
	WarningShown bool

	// APICalls counts remote completion calls, for display only.
	APICalls int

	Wellness  *wellness.Tracker
	Community *community.Feed
}

// New creates a fresh session.
func New() *State {
	s := &State{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Journal:   journalSeed,
		Wellness:  wellness.NewTracker(),
		Community: community.NewFeed(time.Now().UnixNano()),
	}
	logging.Session("Session started: %s", s.ID)
	return s
}

// AppendUser appends a user turn to the conversation history.
func (s *State) AppendUser(content string) {
	s.Messages = append(s.Messages, llm.User(content))
}

// AppendAssistant appends an assistant turn to the conversation history.
func (s *State) AppendAssistant(content string) {
	s.Messages = append(s.Messages, llm.Assistant(content))
}

// AppendJournal adds one entry to the session journal.
func (s *State) AppendJournal(entry string) {
	s.Journal += "\n\n" + entry
	s.Wellness.AddJournalEntry()
}

// Turns returns the number of completed exchanges (user + assistant pairs).
func (s *State) Turns() int {
	return len(s.Messages) / 2
}

// Reset restores the session to its initial state, keeping the same ID.
func (s *State) Reset() {
	s.Messages = nil
	s.Journal = journalSeed
	s.Directive = ""
	s.WarningShown = false
	s.APICalls = 0
	s.Wellness = wellness.NewTracker()
	s.Community = community.NewFeed(time.Now().UnixNano())
	logging.Session("Session reset: %s", s.ID)
}
