// Package prompt assembles the per-turn message list sent to the completion
// endpoint: the fixed persona, the pending directive, the recent history
// window, and the final user turn carrying retrieved knowledge.
package prompt

import (
	"fmt"
	"strings"

	"mindmate/internal/kb"
	"mindmate/internal/llm"
)

// personaPrompt is the fixed system instruction. The behavioral directives
// are part of the product contract: validate first, defer diagnosis, escalate
// clearly on self-harm signals, never claim to be human or licensed.
const personaPrompt = `You are a compassionate and thoughtful companion. Your purpose is to provide a supportive, non-judgmental space. Your persona is warm, empathetic, and consistently human-like.

**Core Directives:**
1. **Embody Empathy:** Always start by validating the user's feelings.
2. **Listen More, Advise Less:** Guide with gentle, open-ended questions.
3. **Introduce Concepts Naturally:** Frame ideas from your knowledge base as shared wisdom.
4. **Maintain a Safe Space:** If a user expresses thoughts of self-harm, become clear and direct, guiding them to professional help.
5. **Uphold Boundaries Gracefully:** Never claim to be a human or a licensed therapist.`

// SystemPrompt returns the persona, with the pending directive appended when
// one is set.
func SystemPrompt(directive string) string {
	if directive == "" {
		return personaPrompt
	}
	return personaPrompt + "\n\n**Dynamic Directive for This Turn:** " + directive
}

// BuildTurnMessages produces the ordered request payload. Ordering is part of
// the contract: system first, then the history window in original
// chronological order, then the final user turn. The downstream model is
// sensitive to turn order.
//
// history is the conversation so far, excluding the current message. Only the
// last `window` entries are included.
func BuildTurnMessages(directive string, history []llm.Message, window int, snippets []kb.Snippet, journal, userMessage string) []llm.Message {
	messages := []llm.Message{llm.System(SystemPrompt(directive))}

	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	messages = append(messages, history...)

	messages = append(messages, llm.User(finalTurn(snippets, journal, userMessage)))
	return messages
}

// finalTurn combines retrieved snippets and the session journal with the
// literal user message.
func finalTurn(snippets []kb.Snippet, journal, userMessage string) string {
	var b strings.Builder

	if len(snippets) > 0 {
		b.WriteString("--- RELEVANT THERAPEUTIC CONCEPTS ---\n")
		texts := make([]string, len(snippets))
		for i, s := range snippets {
			texts[i] = s.Text
		}
		b.WriteString(strings.Join(texts, "\n---\n"))
	}

	if journal != "" {
		b.WriteString("\n--- CURRENT SESSION JOURNAL ---\n")
		b.WriteString(journal)
	}

	b.WriteString("\n\n**User's latest message:** ")
	b.WriteString(userMessage)
	return b.String()
}

// JournalSummaryInstruction asks the classify model to compress one exchange
// for the journal.
func JournalSummaryInstruction(userMessage, reply string) string {
	return fmt.Sprintf("Concisely summarize the key points from this exchange for a journal. User: '%s'. Advisor: '%s'", userMessage, reply)
}

// DirectiveMinHistory is the minimum conversation length before a directive
// is requested.
const DirectiveMinHistory = 4

// DirectiveInstruction asks the classify model for one short steering
// directive based on the recent conversation. Returns "" when the history is
// still too short.
func DirectiveInstruction(history []llm.Message) string {
	if len(history) < DirectiveMinHistory {
		return ""
	}

	recent := history[len(history)-DirectiveMinHistory:]
	lines := make([]string, len(recent))
	for i, msg := range recent {
		lines[i] = fmt.Sprintf("%s: %s", msg.Role, msg.Content)
	}

	return fmt.Sprintf("Meta-analyst AI: Based on the recent conversation, suggest ONE concise, actionable directive "+
		"for the main AI to improve its next response (e.g., 'Focus on validation', 'Introduce a CBT technique'). "+
		"Conversation:\n%s\nReturn ONLY the single directive.", strings.Join(lines, "\n"))
}
