// Package pipeline runs a single conversation turn through its fixed stage
// order: input guard, knowledge retrieval, prompt assembly, model call,
// journal update, directive update. The guard always runs first and a crisis
// match skips every later stage.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mindmate/internal/config"
	"mindmate/internal/guard"
	"mindmate/internal/kb"
	"mindmate/internal/llm"
	"mindmate/internal/logging"
	"mindmate/internal/prompt"
	"mindmate/internal/session"
)

// =============================================================================
// TURN STATES
// =============================================================================

// TurnState names the stage a turn is currently in.
type TurnState int

const (
	StateIdle TurnState = iota
	StateGuardChecking
	StateCrisisShortCircuit
	StateRetrieving
	StateAssembling
	StateCalling
	StateJournalUpdating
	StateDirectiveUpdating
)

// String returns the human-readable stage name.
func (s TurnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGuardChecking:
		return "guard"
	case StateCrisisShortCircuit:
		return "crisis"
	case StateRetrieving:
		return "retrieving"
	case StateAssembling:
		return "assembling"
	case StateCalling:
		return "calling"
	case StateJournalUpdating:
		return "journal"
	case StateDirectiveUpdating:
		return "directive"
	default:
		return "unknown"
	}
}

// =============================================================================
// TURN RESULT
// =============================================================================

// TurnResult is what one processed turn hands back to the caller.
type TurnResult struct {
	// Reply is the assistant text to display. On a crisis match this is the
	// static resources text; on a failed model call it is the advisory.
	Reply string

	// Crisis is true when the guard short-circuited the turn.
	Crisis bool

	// Warning holds the one-time supportive notice, or "" when none fired
	// this turn.
	Warning string

	// Severity is the guard's 1-10 distress estimate for this message.
	Severity int

	// Snippets are the knowledge passages retrieved for this turn.
	Snippets []kb.Snippet
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine wires the pipeline stages together. One Engine serves one session at
// a time; state lives in the session.State passed to each call.
type Engine struct {
	guard  *guard.Guard
	index  *kb.Index
	client llm.Client
	cfg    *config.Config

	// now is swappable for tests.
	now func() time.Time
}

// New creates a pipeline Engine. index may be nil, in which case retrieval is
// skipped and turns proceed without knowledge snippets.
func New(g *guard.Guard, index *kb.Index, client llm.Client, cfg *config.Config) *Engine {
	return &Engine{
		guard:  g,
		index:  index,
		client: client,
		cfg:    cfg,
		now:    time.Now,
	}
}

// ProcessTurn runs one user message through the whole pipeline, mutating the
// session state. The error return covers refusal before any network call;
// mid-turn degradations (retrieval down, model call failed, journal or
// directive update failed) are absorbed so the turn always completes.
func (e *Engine) ProcessTurn(ctx context.Context, st *session.State, userMessage string) (TurnResult, error) {
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return TurnResult{}, fmt.Errorf("empty message")
	}

	turn := st.Turns() + 1
	stage := func(s TurnState) {
		logging.Session("Turn %d: state=%s", turn, s)
	}

	// Stage 1: input guard. Always first, no exceptions.
	stage(StateGuardChecking)
	assessment := e.guard.Assess(ctx, userMessage)

	if assessment.IsCrisis {
		// Crisis short-circuit: record the exchange, skip everything else.
		// The journal, directive, and call counter stay untouched.
		stage(StateCrisisShortCircuit)
		logging.Guard("Crisis keyword matched, short-circuiting turn")
		st.AppendUser(userMessage)
		reply := guard.CrisisResponse()
		st.AppendAssistant(reply)
		return TurnResult{
			Reply:    reply,
			Crisis:   true,
			Severity: assessment.Severity,
		}, nil
	}

	result := TurnResult{Severity: assessment.Severity}
	if assessment.Severity >= e.cfg.Chat.WarningThreshold && !st.WarningShown {
		st.WarningShown = true
		result.Warning = guard.WarningMessage
	}

	// A normal turn needs the model, so refuse before touching the network
	// if no credential is configured.
	if !e.cfg.HasCredentials() {
		return TurnResult{}, llm.ErrNoCredentials
	}

	// Stage 2: knowledge retrieval. Failure is tolerated; the turn proceeds
	// with no snippets.
	stage(StateRetrieving)
	if e.index != nil {
		snippets, err := e.index.Retrieve(ctx, userMessage, e.cfg.Knowledge.TopK)
		if err != nil {
			logging.Retrieval("Retrieval failed, continuing without snippets: %v", err)
		} else {
			result.Snippets = snippets
		}
	}

	// Stage 3: prompt assembly. History is captured before this turn's user
	// message is appended, so the final composite turn is not duplicated.
	stage(StateAssembling)
	messages := prompt.BuildTurnMessages(
		st.Directive,
		st.Messages,
		e.cfg.Chat.HistoryWindow,
		result.Snippets,
		st.Journal,
		userMessage,
	)

	st.AppendUser(userMessage)

	// Stage 4: model call.
	stage(StateCalling)
	st.APICalls++
	reply, err := e.client.Complete(ctx, messages, e.cfg.LLM.ChatModel)
	if err != nil {
		logging.APIError("Chat completion failed: %v", err)
		reply = llm.Advisory
	}
	st.AppendAssistant(reply)
	result.Reply = reply

	// Stages 5 and 6 only run on a successful model call. A degraded turn
	// leaves the journal and directive exactly as they were.
	if err == nil {
		stage(StateJournalUpdating)
		e.updateJournal(ctx, st, userMessage, reply)
		stage(StateDirectiveUpdating)
		e.updateDirective(ctx, st)
	}
	stage(StateIdle)

	return result, nil
}

// updateJournal appends a timestamped entry recording both sides of the
// exchange: the literal user message plus the model's summary of the reply.
// When the classification model is unavailable, a local truncation of the
// reply stands in for the summary so the journal never silently skips a turn.
func (e *Engine) updateJournal(ctx context.Context, st *session.State, userMessage, reply string) {
	instruction := prompt.JournalSummaryInstruction(userMessage, reply)

	summary, err := e.client.Complete(ctx, []llm.Message{llm.System(instruction)}, e.cfg.LLM.ClassifyModel)
	if err != nil {
		logging.JournalWarn("Journal summary call failed, recording local fallback: %v", err)
		summary = truncate(reply, 120)
	}

	body := fmt.Sprintf("User: %s\nAdvisor: %s", userMessage, summary)
	entry := fmt.Sprintf("[%s] %s", e.now().Format("15:04:05"), truncate(body, e.cfg.Chat.JournalEntryLimit))
	st.AppendJournal(entry)
	logging.Journal("Journal entry appended (%d chars)", len(entry))
}

// updateDirective derives the next turn's steering instruction from recent
// history. It is skipped until enough history exists, and a failed call
// leaves the previous directive in place.
func (e *Engine) updateDirective(ctx context.Context, st *session.State) {
	instruction := prompt.DirectiveInstruction(st.Messages)
	if instruction == "" {
		return
	}

	directive, err := e.client.Complete(ctx, []llm.Message{llm.System(instruction)}, e.cfg.LLM.ClassifyModel)
	if err != nil {
		logging.Session("Directive update failed, keeping previous directive: %v", err)
		return
	}

	directive = strings.TrimSpace(directive)
	if directive == "" {
		return
	}
	st.Directive = directive
	logging.Session("Directive updated: %s", truncate(directive, 80))
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
