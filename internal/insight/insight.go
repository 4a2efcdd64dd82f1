// Package insight runs the end-of-session analysis over the journal. It asks
// a reasoning model for a structured read of the session and parses the
// response best-effort, since free models wrap JSON in prose more often than
// not.
package insight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mindmate/internal/llm"
	"mindmate/internal/logging"
)

// MinJournalLength is the minimum journal size worth analyzing. Shorter
// journals produce hallucinated themes, so they are refused up front.
const MinJournalLength = 100

// ErrJournalTooShort is returned when the journal has not accumulated enough
// material for a meaningful analysis.
var ErrJournalTooShort = errors.New("journal too short for insight analysis")

// Recommendation is one actionable suggestion with its rationale.
type Recommendation struct {
	Suggestion string `json:"suggestion"`
	Reason     string `json:"reason"`
}

// Insight is the structured session analysis.
type Insight struct {
	Sentiment       string           `json:"sentiment"`
	Themes          []string         `json:"themes"`
	Recommendations []Recommendation `json:"recommendations"`
}

// ParseStatus records how the model response was turned into an Insight.
type ParseStatus int

const (
	// ParsedStrict means the whole response was valid JSON.
	ParsedStrict ParseStatus = iota
	// ParsedExtracted means JSON was recovered from surrounding prose.
	ParsedExtracted
	// ParseFailed means no usable JSON was found; Raw holds the response.
	ParseFailed
)

// Result pairs the parsed insight with its parse status and the raw model
// output, so callers can fall back to showing the raw text.
type Result struct {
	Insight Insight
	Status  ParseStatus
	Raw     string
}

// Analyzer produces session insights through a reasoning model.
type Analyzer struct {
	client llm.Client
	model  string
}

// NewAnalyzer creates an Analyzer using the given client and insight model.
func NewAnalyzer(client llm.Client, model string) *Analyzer {
	return &Analyzer{client: client, model: model}
}

const instructionTemplate = `You are a clinical analysis assistant. Analyze the following therapy session journal and respond with ONLY a JSON object, no other text, in exactly this shape:
{"sentiment": "<one-word overall sentiment>", "themes": ["<theme>", ...], "recommendations": [{"suggestion": "<actionable suggestion>", "reason": "<why it helps>"}, ...]}

Session journal:
%s`

// Analyze runs the insight model over the journal and parses its response.
// The error return covers refusal and transport failures only; parse
// failures are reported through Result.Status.
func (a *Analyzer) Analyze(ctx context.Context, journal string) (Result, error) {
	if len(journal) < MinJournalLength {
		return Result{}, ErrJournalTooShort
	}

	instruction := fmt.Sprintf(instructionTemplate, journal)
	raw, err := a.client.Complete(ctx, []llm.Message{llm.System(instruction)}, a.model)
	if err != nil {
		return Result{}, fmt.Errorf("insight analysis: %w", err)
	}
	logging.Insight("Insight response received (%d bytes)", len(raw))
	return Parse(raw), nil
}

// Parse turns a model response into a Result. It tries the whole string as
// JSON first, then falls back to extracting the first balanced object.
func Parse(raw string) Result {
	trimmed := strings.TrimSpace(raw)

	var ins Insight
	if err := json.Unmarshal([]byte(trimmed), &ins); err == nil {
		return Result{Insight: ins, Status: ParsedStrict, Raw: raw}
	}

	if obj := extractJSONObject(trimmed); obj != "" {
		if err := json.Unmarshal([]byte(obj), &ins); err == nil {
			return Result{Insight: ins, Status: ParsedExtracted, Raw: raw}
		}
	}

	logging.Insight("Insight response was not parseable as JSON")
	return Result{Status: ParseFailed, Raw: raw}
}

// extractJSONObject returns the first brace-balanced object in s, or "".
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
