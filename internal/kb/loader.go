// Package kb implements the semantic-search knowledge base: loading static
// therapeutic documents, embedding them once at startup, and serving
// nearest-neighbor lookups for conversation turns.
package kb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mindmate/internal/logging"
)

// Document is one knowledge base passage.
type Document struct {
	// Source is the file the passage was loaded from, or "builtin".
	Source string `json:"source"`
	Text   string `json:"text"`
}

// docItem accepts the loose shapes found in knowledge files: objects with a
// "text" or "content" field, or bare strings.
type docItem struct {
	Text    string `json:"text"`
	Content string `json:"content"`
}

// LoadDocuments reads all *.json files under dir. Each file holds an array of
// items exposing a text or content field. A malformed file is skipped and
// logged; it never aborts loading of the rest. A missing directory or zero
// usable documents falls back to the built-in default corpus.
func LoadDocuments(dir string) []Document {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logging.Retrieval("Knowledge dir %q unavailable (%v), using builtin corpus", dir, err)
		return DefaultCorpus()
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	// Stable load order regardless of directory enumeration.
	sort.Strings(names)

	var docs []Document
	for _, name := range names {
		fileDocs, err := loadFile(filepath.Join(dir, name), name)
		if err != nil {
			logging.Get(logging.CategoryRetrieval).Warn("Skipping knowledge file %s: %v", name, err)
			continue
		}
		docs = append(docs, fileDocs...)
	}

	if len(docs) == 0 {
		logging.Retrieval("No usable documents in %q, using builtin corpus", dir)
		return DefaultCorpus()
	}

	logging.Retrieval("Loaded %d knowledge documents from %q", len(docs), dir)
	return docs
}

func loadFile(path, source string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read failed: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("not a JSON array: %w", err)
	}

	var docs []Document
	for _, item := range raw {
		text := extractText(item)
		if text != "" {
			docs = append(docs, Document{Source: source, Text: text})
		}
	}
	return docs, nil
}

func extractText(raw json.RawMessage) string {
	var it docItem
	if err := json.Unmarshal(raw, &it); err == nil {
		if it.Text != "" {
			return it.Text
		}
		if it.Content != "" {
			return it.Content
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// DefaultCorpus returns the built-in therapeutic passages used when no
// knowledge directory is available.
func DefaultCorpus() []Document {
	passages := []string{
		"Grounding with the 5-4-3-2-1 technique: name five things you can see, four you can touch, three you can hear, two you can smell, and one you can taste. It anchors attention to the present moment when anxiety spirals.",
		"Cognitive reframing invites you to notice an automatic negative thought, examine the evidence for and against it, and write a more balanced alternative. Thoughts are mental events, not facts.",
		"Box breathing calms the nervous system: inhale for four counts, hold for four, exhale for four, hold for four. A few minutes can reduce acute stress noticeably.",
		"Behavioral activation counters low mood by scheduling one small, achievable, pleasant activity each day. Action often precedes motivation rather than following it.",
		"Self-compassion means speaking to yourself the way you would speak to a struggling friend. Acknowledge the pain, remember that imperfection is shared by everyone, and offer yourself kindness.",
		"Sleep hygiene basics: a consistent wake time, dim light in the evening, no caffeine after mid-afternoon, and keeping the bed for sleep. Poor sleep amplifies anxiety and low mood.",
		"Journaling for ten minutes about a worry can shrink it. Externalizing a thought onto paper creates distance and lets you examine it rather than be consumed by it.",
		"Progressive muscle relaxation works through the body, tensing each muscle group for five seconds and releasing. Physical release of tension signals safety to the mind.",
	}

	docs := make([]Document, len(passages))
	for i, p := range passages {
		docs[i] = Document{Source: "builtin", Text: p}
	}
	return docs
}
