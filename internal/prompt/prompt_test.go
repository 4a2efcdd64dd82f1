package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindmate/internal/kb"
	"mindmate/internal/llm"
)

func TestSystemPrompt(t *testing.T) {
	t.Run("no directive", func(t *testing.T) {
		p := SystemPrompt("")
		assert.Contains(t, p, "Core Directives")
		assert.NotContains(t, p, "Dynamic Directive")
	})

	t.Run("directive appended", func(t *testing.T) {
		p := SystemPrompt("Focus on validation")
		assert.Contains(t, p, "**Dynamic Directive for This Turn:** Focus on validation")
		assert.True(t, strings.HasPrefix(p, SystemPrompt("")))
	})
}

func TestBuildTurnMessagesOrdering(t *testing.T) {
	history := []llm.Message{
		llm.User("first"),
		llm.Assistant("reply one"),
		llm.User("second"),
		llm.Assistant("reply two"),
	}
	snippets := []kb.Snippet{
		{Source: "a.json", Text: "concept one"},
		{Source: "b.json", Text: "concept two"},
	}

	msgs := BuildTurnMessages("be gentle", history, 5, snippets, "Journal started.", "today was hard")

	require.Len(t, msgs, 6)

	t.Run("system message first", func(t *testing.T) {
		assert.Equal(t, llm.RoleSystem, msgs[0].Role)
		assert.Contains(t, msgs[0].Content, "be gentle")
	})

	t.Run("history preserved chronologically", func(t *testing.T) {
		assert.Equal(t, "first", msgs[1].Content)
		assert.Equal(t, "reply one", msgs[2].Content)
		assert.Equal(t, "second", msgs[3].Content)
		assert.Equal(t, "reply two", msgs[4].Content)
	})

	t.Run("final turn carries snippets journal and message", func(t *testing.T) {
		final := msgs[5]
		assert.Equal(t, llm.RoleUser, final.Role)
		assert.Contains(t, final.Content, "RELEVANT THERAPEUTIC CONCEPTS")
		assert.Contains(t, final.Content, "concept one\n---\nconcept two")
		assert.Contains(t, final.Content, "CURRENT SESSION JOURNAL")
		assert.Contains(t, final.Content, "Journal started.")
		assert.Contains(t, final.Content, "**User's latest message:** today was hard")
	})
}

func TestBuildTurnMessagesWindow(t *testing.T) {
	var history []llm.Message
	for i := 0; i < 10; i++ {
		history = append(history, llm.User("msg"))
	}

	msgs := BuildTurnMessages("", history, 5, nil, "", "hello")

	// system + 5 windowed + final user turn
	require.Len(t, msgs, 7)
}

func TestBuildTurnMessagesNoSnippets(t *testing.T) {
	msgs := BuildTurnMessages("", nil, 5, nil, "", "hello")
	require.Len(t, msgs, 2)
	assert.NotContains(t, msgs[1].Content, "RELEVANT THERAPEUTIC CONCEPTS")
	assert.Contains(t, msgs[1].Content, "**User's latest message:** hello")
}

func TestDirectiveInstruction(t *testing.T) {
	t.Run("too little history returns empty", func(t *testing.T) {
		history := []llm.Message{llm.User("a"), llm.Assistant("b")}
		assert.Empty(t, DirectiveInstruction(history))
	})

	t.Run("uses only the last four messages", func(t *testing.T) {
		history := []llm.Message{
			llm.User("old message"),
			llm.Assistant("old reply"),
			llm.User("recent one"),
			llm.Assistant("recent two"),
			llm.User("recent three"),
			llm.Assistant("recent four"),
		}
		instruction := DirectiveInstruction(history)
		assert.NotContains(t, instruction, "old message")
		assert.Contains(t, instruction, "user: recent one")
		assert.Contains(t, instruction, "assistant: recent four")
	})
}

func TestJournalSummaryInstruction(t *testing.T) {
	instruction := JournalSummaryInstruction("I feel stuck", "That sounds frustrating")
	assert.Contains(t, instruction, "I feel stuck")
	assert.Contains(t, instruction, "That sounds frustrating")
}
