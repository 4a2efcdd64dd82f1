package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmate/internal/config"
	"mindmate/internal/guard"
	"mindmate/internal/llm"
	"mindmate/internal/session"
)

// seqClient replays scripted responses in call order, recording the leading
// role of each request. A nil entry in errs means that call succeeds.
type seqClient struct {
	responses []string
	errs      []error
	calls     int
	roles     []string
}

func (c *seqClient) Complete(ctx context.Context, messages []llm.Message, model string) (string, error) {
	i := c.calls
	c.calls++
	if len(messages) > 0 {
		c.roles = append(c.roles, messages[0].Role)
	}
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	return "", fmt.Errorf("unexpected call %d", i)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.LLM.APIKey = "test-key"
	return cfg
}

// newEngine builds an Engine with no knowledge index and a guard that never
// reaches the network.
func newEngine(client llm.Client, cfg *config.Config) *Engine {
	return New(guard.New(nil, cfg.LLM.ClassifyModel), nil, client, cfg)
}

func TestProcessTurnCrisisShortCircuit(t *testing.T) {
	// The guard shares the live client here, as in production wiring, so a
	// stray triage call would show up in the counter.
	client := &seqClient{}
	cfg := testConfig()
	cfg.LLM.APIKey = "" // crisis must not depend on credentials
	e := New(guard.New(client, cfg.LLM.ClassifyModel), nil, client, cfg)
	st := session.New()

	result, err := e.ProcessTurn(context.Background(), st, "I want to die")
	require.NoError(t, err)

	assert.True(t, result.Crisis)
	assert.Contains(t, result.Reply, "9999666555")
	assert.Empty(t, result.Warning, "crisis response replaces the warning")

	t.Run("exchange is recorded", func(t *testing.T) {
		require.Len(t, st.Messages, 2)
		assert.Equal(t, llm.RoleUser, st.Messages[0].Role)
		assert.Equal(t, "I want to die", st.Messages[0].Content)
		assert.Equal(t, llm.RoleAssistant, st.Messages[1].Role)
	})

	t.Run("later stages untouched", func(t *testing.T) {
		assert.Equal(t, "Journal started.", st.Journal)
		assert.Empty(t, st.Directive)
		assert.Zero(t, st.APICalls)
		assert.Zero(t, client.calls, "no model call may happen on a crisis turn")
	})
}

func TestProcessTurnRefusesWithoutCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.APIKey = ""
	e := newEngine(&seqClient{}, cfg)
	st := session.New()

	_, err := e.ProcessTurn(context.Background(), st, "rough day")
	assert.ErrorIs(t, err, llm.ErrNoCredentials)
	assert.Empty(t, st.Messages)
}

func TestProcessTurnHappyPath(t *testing.T) {
	// The scripted summary deliberately does not echo the user's words, so
	// the journal assertion below proves the entry itself records them.
	client := &seqClient{responses: []string{
		"That sounds really heavy. What part weighs on you most?",
		"Advisor validated the experience and asked an open question.",
	}}
	e := newEngine(client, testConfig())
	st := session.New()

	result, err := e.ProcessTurn(context.Background(), st, "work is crushing me")
	require.NoError(t, err)

	assert.False(t, result.Crisis)
	assert.Equal(t, "That sounds really heavy. What part weighs on you most?", result.Reply)
	assert.Equal(t, 1, st.APICalls, "only the chat call counts")

	t.Run("journal entry records both sides of the exchange", func(t *testing.T) {
		assert.Contains(t, st.Journal, "User: work is crushing me")
		assert.Contains(t, st.Journal, "Advisor: Advisor validated the experience and asked an open question.")
		assert.NotEqual(t, "Journal started.", st.Journal)
		assert.Equal(t, 1, st.Wellness.Stats.JournalEntries)
	})

	t.Run("directive skipped on short history", func(t *testing.T) {
		assert.Empty(t, st.Directive)
		assert.Equal(t, 2, client.calls, "chat and journal only")
	})
}

func TestProcessTurnModelFailureDegradesToAdvisory(t *testing.T) {
	client := &seqClient{errs: []error{fmt.Errorf("endpoint down")}}
	e := newEngine(client, testConfig())
	st := session.New()

	result, err := e.ProcessTurn(context.Background(), st, "rough day")
	require.NoError(t, err, "a failed model call is not a turn error")

	assert.Equal(t, llm.Advisory, result.Reply)
	assert.Equal(t, 1, st.APICalls)

	t.Run("journal and directive untouched", func(t *testing.T) {
		assert.Equal(t, "Journal started.", st.Journal)
		assert.Empty(t, st.Directive)
		assert.Equal(t, 1, client.calls, "no journal or directive call after a failed turn")
	})
}

func TestProcessTurnJournalFallback(t *testing.T) {
	client := &seqClient{
		responses: []string{"I'm here with you.", ""},
		errs:      []error{nil, fmt.Errorf("classify model down")},
	}
	e := newEngine(client, testConfig())
	st := session.New()

	_, err := e.ProcessTurn(context.Background(), st, "feeling low")
	require.NoError(t, err)

	assert.Contains(t, st.Journal, "User: feeling low")
	assert.Contains(t, st.Journal, "Advisor: I'm here with you.")
}

func TestProcessTurnDirectiveUpdate(t *testing.T) {
	seedHistory := func(st *session.State) {
		st.AppendUser("one")
		st.AppendAssistant("reply one")
		st.AppendUser("two")
		st.AppendAssistant("reply two")
	}

	t.Run("directive set once history is long enough", func(t *testing.T) {
		client := &seqClient{responses: []string{
			"chat reply",
			"journal summary",
			"Focus on validation",
		}}
		e := newEngine(client, testConfig())
		st := session.New()
		seedHistory(st)

		_, err := e.ProcessTurn(context.Background(), st, "still struggling")
		require.NoError(t, err)
		assert.Equal(t, "Focus on validation", st.Directive)
		assert.Equal(t, 3, client.calls)
		assert.Equal(t, []string{llm.RoleSystem, llm.RoleSystem, llm.RoleSystem}, client.roles,
			"chat carries the persona system message; journal and directive are system-role instructions")
	})

	t.Run("failed update keeps previous directive", func(t *testing.T) {
		client := &seqClient{
			responses: []string{"chat reply", "journal summary", ""},
			errs:      []error{nil, nil, fmt.Errorf("classify model down")},
		}
		e := newEngine(client, testConfig())
		st := session.New()
		seedHistory(st)
		st.Directive = "Introduce a grounding exercise"

		_, err := e.ProcessTurn(context.Background(), st, "still struggling")
		require.NoError(t, err)
		assert.Equal(t, "Introduce a grounding exercise", st.Directive)
	})

	t.Run("blank response keeps previous directive", func(t *testing.T) {
		client := &seqClient{responses: []string{"chat reply", "journal summary", "   "}}
		e := newEngine(client, testConfig())
		st := session.New()
		seedHistory(st)
		st.Directive = "previous"

		_, err := e.ProcessTurn(context.Background(), st, "still struggling")
		require.NoError(t, err)
		assert.Equal(t, "previous", st.Directive)
	})
}

func TestProcessTurnSeverityWarning(t *testing.T) {
	// Guard whose triage always returns 8.
	highGuard := guard.New(&seqClient{responses: []string{"8", "8", "8"}}, "classify")

	client := &seqClient{responses: []string{
		"reply one", "summary one",
		"reply two", "summary two",
	}}
	cfg := testConfig()
	e := New(highGuard, nil, client, cfg)
	st := session.New()

	first, err := e.ProcessTurn(context.Background(), st, "everything is falling apart")
	require.NoError(t, err)
	assert.Equal(t, guard.WarningMessage, first.Warning)
	assert.True(t, st.WarningShown)

	second, err := e.ProcessTurn(context.Background(), st, "it keeps getting worse")
	require.NoError(t, err)
	assert.Empty(t, second.Warning, "warning shows at most once per session")
}

func TestProcessTurnEmptyMessage(t *testing.T) {
	e := newEngine(&seqClient{}, testConfig())
	st := session.New()

	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := e.ProcessTurn(context.Background(), st, msg)
		assert.Error(t, err)
	}
	assert.Empty(t, st.Messages)
}

func TestProcessTurnHistoryWindowInPrompt(t *testing.T) {
	// The guard here is keyword-only, so the single client call is the chat
	// completion; capture its messages through a recording wrapper.
	var captured []llm.Message
	client := &recordingClient{
		inner: &seqClient{responses: []string{"reply", "summary", "directive"}},
		onFirst: func(messages []llm.Message) {
			captured = messages
		},
	}

	cfg := testConfig()
	cfg.Chat.HistoryWindow = 2
	e := newEngine(client, cfg)
	st := session.New()
	for i := 0; i < 3; i++ {
		st.AppendUser(fmt.Sprintf("user %d", i))
		st.AppendAssistant(fmt.Sprintf("reply %d", i))
	}

	_, err := e.ProcessTurn(context.Background(), st, "latest")
	require.NoError(t, err)

	// system + 2 windowed history entries + final user turn
	require.Len(t, captured, 4)
	assert.Equal(t, "user 2", captured[1].Content)
	assert.Equal(t, "reply 2", captured[2].Content)
	assert.True(t, strings.Contains(captured[3].Content, "latest"))
}

type recordingClient struct {
	inner   llm.Client
	onFirst func([]llm.Message)
	called  bool
}

func (c *recordingClient) Complete(ctx context.Context, messages []llm.Message, model string) (string, error) {
	if !c.called {
		c.called = true
		c.onFirst(messages)
	}
	return c.inner.Complete(ctx, messages, model)
}
