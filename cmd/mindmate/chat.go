package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"mindmate/internal/community"
	"mindmate/internal/config"
	"mindmate/internal/embedding"
	"mindmate/internal/guard"
	"mindmate/internal/insight"
	"mindmate/internal/kb"
	"mindmate/internal/llm"
	"mindmate/internal/pipeline"
	"mindmate/internal/session"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	crisisStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// =============================================================================
// CHAT REPL
// =============================================================================

type chatApp struct {
	cfg      *config.Config
	engine   *pipeline.Engine
	analyzer *insight.Analyzer
	state    *session.State
	renderer *glamour.TermRenderer
	index    *kb.Index
}

func runChat(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := newChatApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if app.index != nil {
			app.index.Close()
		}
	}()

	app.printBanner()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print(promptStyle.Render("you") + " > ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := app.handleCommand(ctx, line); quit {
				break
			}
			continue
		}

		app.processTurn(ctx, line)
	}

	fmt.Println(dimStyle.Render("Take care of yourself. Goodbye."))
	return nil
}

func newChatApp(ctx context.Context, cfg *config.Config) (*chatApp, error) {
	pool := llm.NewCredentialPool(cfg.LLM.APIKey, cfg.LLM.FallbackAPIKey)
	clientCfg := llm.DefaultOpenRouterConfig(pool)
	clientCfg.BaseURL = cfg.LLM.BaseURL
	clientCfg.Timeout = cfg.GetLLMTimeout()
	clientCfg.Retry = llm.RetryPolicy{MaxRetries: cfg.LLM.MaxRetries, Backoff: cfg.GetRetryBackoff()}
	client := llm.NewOpenRouterClientWithConfig(clientCfg)

	// Insight generation prefers the fallback credential when one exists, so
	// heavy reasoning calls do not burn the primary key's rate limit.
	insightPool := pool
	if cfg.LLM.FallbackAPIKey != "" {
		insightPool = llm.NewCredentialPool(cfg.LLM.FallbackAPIKey, cfg.LLM.APIKey)
	}
	insightCfg := clientCfg
	insightCfg.Pool = insightPool
	insightClient := llm.NewOpenRouterClientWithConfig(insightCfg)

	g := guard.New(client, cfg.LLM.ClassifyModel)

	// The knowledge base is optional: an unreachable embedding backend
	// degrades to turns without retrieved snippets.
	var index *kb.Index
	engine, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
	})
	if err != nil {
		fmt.Println(dimStyle.Render("Knowledge base unavailable: " + err.Error()))
	} else {
		index, err = kb.NewIndex(engine)
		if err == nil {
			docs := kb.LoadDocuments(cfg.Knowledge.DataDir)
			if berr := index.Build(ctx, docs); berr != nil {
				fmt.Println(dimStyle.Render("Knowledge base unavailable: " + berr.Error()))
				index.Close()
				index = nil
			}
		}
	}

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	return &chatApp{
		cfg:      cfg,
		engine:   pipeline.New(g, index, client, cfg),
		analyzer: insight.NewAnalyzer(insightClient, cfg.LLM.InsightModel),
		state:    session.New(),
		renderer: renderer,
		index:    index,
	}, nil
}

func (a *chatApp) printBanner() {
	fmt.Println(bannerStyle.Render("Mindmate " + version))
	fmt.Println(dimStyle.Render("A safe space to talk. Type /help for commands, /quit to leave."))
	fmt.Println(dimStyle.Render("Session " + a.state.ID + " (nothing is stored unless you /export)"))
	if !a.cfg.HasCredentials() {
		fmt.Println(warningStyle.Render("No API key configured. Set OPENROUTER_API_KEY to chat."))
	}
	fmt.Println(dimStyle.Render("Today's affirmation: " + a.state.Community.DailyAffirmation()))
	fmt.Println()
}

func (a *chatApp) processTurn(ctx context.Context, line string) {
	result, err := a.engine.ProcessTurn(ctx, a.state, line)
	if err != nil {
		if errors.Is(err, llm.ErrNoCredentials) {
			fmt.Println(warningStyle.Render("No API key configured. Set OPENROUTER_API_KEY and restart."))
			return
		}
		fmt.Println(warningStyle.Render("Error: " + err.Error()))
		return
	}

	if result.Warning != "" {
		fmt.Println(warningStyle.Render(result.Warning))
		fmt.Println()
	}

	if result.Crisis {
		fmt.Println(crisisStyle.Render(a.renderMarkdown(result.Reply)))
		fmt.Println()
		return
	}

	fmt.Println(a.renderMarkdown(result.Reply))
}

func (a *chatApp) renderMarkdown(text string) string {
	if a.renderer == nil {
		return text
	}
	out, err := a.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand dispatches a slash command. It returns true when the session
// should end.
func (a *chatApp) handleCommand(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		a.printHelp()

	case "/journal":
		fmt.Println(a.renderMarkdown("## Session Journal\n\n" + a.state.Journal))

	case "/insight":
		a.runInsight(ctx)

	case "/export":
		a.runExport(args)

	case "/mood":
		a.logMood(args)

	case "/checkin":
		changed, streak := a.state.Wellness.CheckIn()
		if changed {
			fmt.Printf("Checked in. Current streak: %d day(s).\n", streak)
		} else {
			fmt.Printf("Already checked in today. Streak: %d day(s).\n", streak)
		}

	case "/breathe":
		a.state.Wellness.AddBreathingSession()
		fmt.Println(a.renderMarkdown("**Box breathing:** inhale 4s, hold 4s, exhale 4s, hold 4s. Repeat four times."))

	case "/gratitude":
		if len(args) == 0 {
			fmt.Println("Usage: /gratitude <something you're grateful for>")
			break
		}
		a.state.Wellness.AddGratitude()
		fmt.Println(dimStyle.Render("Noted. Gratitude recorded for this session."))

	case "/community":
		a.showCommunity()

	case "/post":
		if len(args) == 0 {
			fmt.Println("Usage: /post <message>")
			break
		}
		msg := a.state.Community.Post(strings.Join(args, " "), "general")
		fmt.Printf("Posted to #general as %s %s.\n", msg.Avatar.Emoji, msg.Avatar.Name)

	case "/reply":
		if len(args) < 2 {
			fmt.Println("Usage: /reply <message-id> <text>")
			break
		}
		id := a.resolveMessageID(args[0])
		if err := a.state.Community.Reply(id, strings.Join(args[1:], " ")); err != nil {
			fmt.Println(warningStyle.Render(err.Error()))
		} else {
			fmt.Println(dimStyle.Render("Reply posted."))
		}

	case "/support":
		if len(args) == 0 {
			fmt.Println("Usage: /support <message-id>")
			break
		}
		id := a.resolveMessageID(args[0])
		if err := a.state.Community.Support(id); err != nil {
			fmt.Println(warningStyle.Render(err.Error()))
		} else {
			fmt.Println(dimStyle.Render("Support sent."))
		}

	case "/quote":
		q := a.state.Community.RandomQuote()
		fmt.Println(a.renderMarkdown(fmt.Sprintf("> %s\n>\n> — %s", q.Text, q.Author)))

	case "/stats":
		a.printStats()

	case "/reset":
		a.state.Reset()
		fmt.Println(dimStyle.Render("Session reset. The journal and conversation have been cleared."))

	default:
		fmt.Printf("Unknown command %s. Type /help for the list.\n", cmd)
	}
	return false
}

func (a *chatApp) printHelp() {
	help := `## Commands

| Command | Description |
|---|---|
| /journal | Show the session journal |
| /insight | Analyze the session and suggest next steps |
| /export [dir] | Write session JSON and journal text to files |
| /mood <1-10> [label] | Log your current mood |
| /checkin | Record a daily check-in (builds a streak) |
| /breathe | Guided breathing exercise |
| /gratitude <text> | Record something you're grateful for |
| /community | Show the peer support feed |
| /post <text> | Post anonymously to the feed |
| /reply <id> <text> | Reply to a feed message |
| /support <id> | Send support to a feed message |
| /quote | A piece of wisdom |
| /stats | Session wellness stats |
| /reset | Clear the session |
| /quit | End the session |`
	fmt.Println(a.renderMarkdown(help))
}

func (a *chatApp) runInsight(ctx context.Context) {
	fmt.Println(dimStyle.Render("Analyzing session journal..."))
	res, err := a.analyzer.Analyze(ctx, a.state.Journal)
	if err != nil {
		if errors.Is(err, insight.ErrJournalTooShort) {
			fmt.Println("Not enough conversation yet for a meaningful analysis. Keep talking for a bit.")
			return
		}
		fmt.Println(warningStyle.Render("Insight unavailable: " + err.Error()))
		return
	}

	if res.Status == insight.ParseFailed {
		fmt.Println("The analysis came back unstructured:")
		fmt.Println(a.renderMarkdown(res.Raw))
		return
	}

	var b strings.Builder
	b.WriteString("## Session Insight\n\n")
	fmt.Fprintf(&b, "**Overall sentiment:** %s\n\n", res.Insight.Sentiment)
	if len(res.Insight.Themes) > 0 {
		b.WriteString("**Themes:** " + strings.Join(res.Insight.Themes, ", ") + "\n\n")
	}
	if len(res.Insight.Recommendations) > 0 {
		b.WriteString("**Recommendations:**\n\n")
		for _, r := range res.Insight.Recommendations {
			fmt.Fprintf(&b, "- %s\n  - _%s_\n", r.Suggestion, r.Reason)
		}
	}
	fmt.Println(a.renderMarkdown(b.String()))
}

func (a *chatApp) runExport(args []string) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Println(warningStyle.Render("Export failed: " + err.Error()))
		return
	}

	stamp := time.Now().Format("20060102-150405")
	jsonPath := fmt.Sprintf("%s/mindmate-session-%s.json", dir, stamp)
	journalPath := fmt.Sprintf("%s/mindmate-journal-%s.txt", dir, stamp)

	data, err := a.state.ExportJSON()
	if err != nil {
		fmt.Println(warningStyle.Render("Export failed: " + err.Error()))
		return
	}
	if err := os.WriteFile(jsonPath, data, 0600); err != nil {
		fmt.Println(warningStyle.Render("Export failed: " + err.Error()))
		return
	}
	if err := os.WriteFile(journalPath, []byte(a.state.ExportJournal()), 0600); err != nil {
		fmt.Println(warningStyle.Render("Export failed: " + err.Error()))
		return
	}
	fmt.Printf("Exported:\n  %s\n  %s\n", jsonPath, journalPath)
}

func (a *chatApp) logMood(args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: /mood <1-10> [label]")
		return
	}
	score, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("Usage: /mood <1-10> [label]")
		return
	}
	label := strings.Join(args[1:], " ")
	entry := a.state.Wellness.LogMood(score, label)
	fmt.Printf("Mood logged: %d/10", entry.Score)
	if entry.Label != "" {
		fmt.Printf(" (%s)", entry.Label)
	}
	fmt.Println()
}

func (a *chatApp) showCommunity() {
	var b strings.Builder
	b.WriteString("## Peer Support Feed\n\n")
	fmt.Fprintf(&b, "You are **%s %s** (id `%s`)\n\n",
		a.state.Community.Me.Emoji, a.state.Community.Me.Name, a.state.Community.AnonymousID)
	for _, m := range a.state.Community.Messages {
		fmt.Fprintf(&b, "- `%s` %s **%s** in #%s (%s, %d supports)\n  %s\n",
			shortID(m.ID), m.Avatar.Emoji, m.Avatar.Name, m.Room,
			community.TimeAgo(m.PostedAt, time.Now()), m.Supports, m.Content)
		for _, r := range m.Replies {
			fmt.Fprintf(&b, "  - %s **%s**: %s\n", r.Avatar.Emoji, r.Avatar.Name, r.Content)
		}
	}
	fmt.Println(a.renderMarkdown(b.String()))
}

// resolveMessageID expands a short ID shown in the feed view back to the
// full message ID. Unknown prefixes pass through unchanged so the feed's
// not-found error surfaces.
func (a *chatApp) resolveMessageID(prefix string) string {
	for _, m := range a.state.Community.Messages {
		if strings.HasPrefix(m.ID, prefix) {
			return m.ID
		}
	}
	return prefix
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (a *chatApp) printStats() {
	s := a.state.Wellness.Stats
	var b strings.Builder
	b.WriteString("## Session Stats\n\n")
	fmt.Fprintf(&b, "- Conversation turns: %d\n", a.state.Turns())
	fmt.Fprintf(&b, "- API calls: %d\n", a.state.APICalls)
	fmt.Fprintf(&b, "- Journal entries: %d\n", s.JournalEntries)
	fmt.Fprintf(&b, "- Mood logs: %d\n", s.MoodLogs)
	fmt.Fprintf(&b, "- Breathing sessions: %d\n", s.BreathingSessions)
	fmt.Fprintf(&b, "- Gratitude entries: %d\n", s.GratitudeEntries)
	fmt.Fprintf(&b, "- Check-in streak: %d day(s)\n", a.state.Wellness.Streak)
	fmt.Fprintf(&b, "- Support given: %d\n", a.state.Community.SupportGiven)
	fmt.Println(a.renderMarkdown(b.String()))
}
