package continuity

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Engine carries the engine's policy knobs. The zero value is ready to use:
// wall clock, built-in tables, no default requirements for unknown intents.
type Engine struct {
	// Clock overrides time.Now, mostly for tests.
	Clock func() time.Time

	// DefaultRequirements applies to intents missing from the requirement
	// table. Nil means unknown intents have no requirements.
	DefaultRequirements []string

	// Resolution tunes the short-reply heuristic and the saturation point.
	Resolution ResolutionPolicy
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

// ============================================================
// History turns
// ============================================================

// Role identifies who authored a history turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in the conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// classify maps the loose role strings hosts send onto user/assistant.
// FromUser reports whether the turn was authored by the user, accepting the
// same role aliases as the engine.
func (t Turn) FromUser() bool {
	role, ok := classify(t)
	return ok && role == RoleUser
}

func classify(t Turn) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(t.Role)) {
	case "user", "human", "customer":
		return RoleUser, true
	case "assistant", "bot", "agent", "ai":
		return RoleAssistant, true
	}
	return "", false
}

// turnsBy returns the normalised contents of the turns authored by role,
// in history order, plus a warning for every turn it could not classify.
func turnsBy(history []Turn, role Role) ([]string, []error) {
	var out []string
	var warnings []error
	for i, t := range history {
		r, ok := classify(t)
		if !ok {
			warnings = append(warnings, &ErrUnparseableTurn{Index: i, Role: t.Role})
			continue
		}
		if r == role {
			out = append(out, normalize(t.Content))
		}
	}
	return out, warnings
}

// normalize composes decomposed Hangul (common from macOS clients) so the
// patterns see the same code points regardless of input form.
func normalize(s string) string {
	return norm.NFC.String(s)
}
