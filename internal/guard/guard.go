// Package guard implements the input guard: the crisis keyword check and the
// severity triage that run before any other pipeline stage.
package guard

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mindmate/internal/llm"
	"mindmate/internal/logging"
)

// CrisisKeywords is the authoritative keyword set. Both the crisis
// short-circuit and the severity fallback evaluate against this one list.
var CrisisKeywords = []string{
	"suicide",
	"kill myself",
	"harm myself",
	"want to die",
	"end my life",
}

// Severity bounds and fallback scores.
const (
	SeverityMin = 1
	SeverityMax = 10

	// fallbackCrisisScore is assumed when triage fails and a crisis keyword
	// is present; fallbackDefaultScore otherwise.
	fallbackCrisisScore  = 9
	fallbackDefaultScore = 3
)

// Assessment is the result of evaluating one incoming message.
type Assessment struct {
	// IsCrisis is true when any crisis keyword matches; the caller must
	// short-circuit with the static crisis response and skip every other
	// stage.
	IsCrisis bool

	// Severity is a 1-10 distress estimate used to gate the one-time
	// supportive warning.
	Severity int
}

var firstInteger = regexp.MustCompile(`\d+`)

// Guard evaluates incoming messages. The zero client is allowed: severity
// then always comes from the deterministic keyword fallback.
type Guard struct {
	client llm.Client
	model  string
}

// New creates a Guard using the given classification model.
func New(client llm.Client, model string) *Guard {
	return &Guard{client: client, model: model}
}

// ContainsCrisisKeyword reports whether the message matches any crisis
// keyword, case-insensitive, anywhere as a substring.
func ContainsCrisisKeyword(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range CrisisKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Assess runs the keyword check and the severity triage. It never returns an
// error: triage failures of any kind fall back to the deterministic
// keyword-derived score, with no further network calls.
//
// A keyword match settles the turn by itself, so the network triage is
// skipped entirely and the severity comes from the keyword fallback.
func (g *Guard) Assess(ctx context.Context, message string) Assessment {
	a := Assessment{IsCrisis: ContainsCrisisKeyword(message)}

	if a.IsCrisis {
		a.Severity = fallbackSeverity(message)
	} else {
		a.Severity = g.severity(ctx, message)
	}

	logging.Guard("Assess: crisis=%v severity=%d", a.IsCrisis, a.Severity)
	return a
}

func (g *Guard) severity(ctx context.Context, message string) int {
	if g.client == nil {
		return fallbackSeverity(message)
	}

	instruction := fmt.Sprintf(
		"Triage bot: Analyze the user's message for mental health severity. "+
			"Return ONLY a single integer from 1 to 10 (1=neutral, 10=crisis). Message: %q", message)

	response, err := g.client.Complete(ctx, []llm.Message{llm.System(instruction)}, g.model)
	if err != nil {
		logging.GuardDebug("severity triage call failed, using fallback: %v", err)
		return fallbackSeverity(message)
	}

	match := firstInteger.FindString(response)
	if match == "" {
		logging.GuardDebug("severity triage response not parseable: %q", response)
		return fallbackSeverity(message)
	}

	score, err := strconv.Atoi(match)
	if err != nil {
		return fallbackSeverity(message)
	}

	if score < SeverityMin {
		score = SeverityMin
	}
	if score > SeverityMax {
		score = SeverityMax
	}
	return score
}

// fallbackSeverity is the deterministic local score used when triage fails.
func fallbackSeverity(message string) int {
	if ContainsCrisisKeyword(message) {
		return fallbackCrisisScore
	}
	return fallbackDefaultScore
}

// WarningMessage is the one-time supportive notice surfaced when severity
// reaches the configured threshold.
const WarningMessage = "It seems like you are going through a significant challenge. " +
	"Please remember that professional resources are available for immediate, confidential support."

// CrisisResponse returns the static crisis-resources text. It is produced
// without any network call and replaces the generated reply entirely.
func CrisisResponse() string {
	return crisisResourcesText
}

const crisisResourcesText = `It sounds like you are going through a very difficult time. Your safety is the most important thing, and there are people who want to support you right now.

**Please reach out for immediate help. Here are some resources in India:**

* **Vandrevala Foundation Helpline:** ` + "`9999666555`" + ` (24/7)
* **KIRAN Mental Health Helpline:** ` + "`1800-599-0019`" + `
* **AASRA (Suicide Prevention):** ` + "`9820466726`" + ` (24/7)`
