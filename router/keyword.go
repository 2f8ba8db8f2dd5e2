package router

import "strings"

// DefaultTriggerWords are user-text fragments that commonly indicate a tool
// is wanted. They exist for callers that want cheap pre-routing hints (for
// example to preselect a tool in a UI); the core decision function ignores
// them entirely.
var DefaultTriggerWords = []string{
	"search", "fetch", "lookup", "query", "rag", "index", "tool", "api",
}

// KeywordPrefilter is an optional routing strategy that matches user text
// against trigger words. It is deliberately not wired into Decide: mixing
// text heuristics into the state machine's invariants is exactly what the
// model-driven policy avoids.
type KeywordPrefilter struct {
	triggers []string
}

// NewKeywordPrefilter builds a prefilter over the given trigger words,
// falling back to DefaultTriggerWords when none are supplied.
func NewKeywordPrefilter(triggers ...string) *KeywordPrefilter {
	if len(triggers) == 0 {
		triggers = DefaultTriggerWords
	}
	return &KeywordPrefilter{triggers: triggers}
}

// Match reports whether the user text contains any trigger word and, if so,
// which one fired first.
func (k *KeywordPrefilter) Match(userText string) (string, bool) {
	lowered := strings.ToLower(userText)
	for _, trigger := range k.triggers {
		if strings.Contains(lowered, trigger) {
			return trigger, true
		}
	}
	return "", false
}
