// Package permission maps unified permission modes onto agent-native modes.
//
// Translation is a pure, total function per agent type: every input string
// resolves to some native mode, and anything outside the unified and native
// sets resolves to that agent's single designated default. Unexpected input
// must land on the safe default, never on an elevated-privilege mode.
package permission

// Mode is a unified permission mode.
type Mode string

const (
	ModeDefault     Mode = "default"
	ModeAcceptEdits Mode = "acceptEdits"
	ModeBypass      Mode = "bypassPermissions"
	ModePlan        Mode = "plan"
	ModeAsk         Mode = "ask"
	ModeAuto        Mode = "auto"
	ModeOnFailure   Mode = "on-failure"
	ModeAllowAll    Mode = "allow-all"
)

// UnifiedModes returns the closed unified mode set.
func UnifiedModes() []Mode {
	return []Mode{
		ModeDefault, ModeAcceptEdits, ModeBypass, ModePlan,
		ModeAsk, ModeAuto, ModeOnFailure, ModeAllowAll,
	}
}

// Translator maps unified and native mode strings to one agent's native
// modes. The zero value is unusable; construct with NewTranslator.
type Translator struct {
	agentType string
	def       string
	table     map[string]string
}

// NewTranslator builds a translator for one agent type.
//
// The table maps unified mode strings to native mode strings. Native mode
// values appearing in the table are additionally mapped to themselves, so
// translating an already-native mode is idempotent. def is the agent's
// designated default, returned for any unmapped input.
func NewTranslator(agentType, def string, table map[Mode]string) *Translator {
	t := &Translator{
		agentType: agentType,
		def:       def,
		table:     make(map[string]string, len(table)*2+1),
	}
	// Native values map to themselves first so an explicit unified entry
	// with the same spelling can still override.
	for _, native := range table {
		t.table[native] = native
	}
	t.table[def] = def
	for unified, native := range table {
		t.table[string(unified)] = native
	}
	return t
}

// AgentType returns the agent type this translator serves.
func (t *Translator) AgentType() string { return t.agentType }

// Default returns the agent's designated default native mode.
func (t *Translator) Default() string { return t.def }

// Translate resolves a mode string to a native mode. Matching is exact and
// case-sensitive; anything unmapped resolves to the default. Never errors.
func (t *Translator) Translate(mode string) string {
	if native, ok := t.table[mode]; ok {
		return native
	}
	return t.def
}

// KnownModes returns every string the translator maps to a non-default
// value, in no particular order. Intended for diagnostics.
func (t *Translator) KnownModes() []string {
	out := make([]string, 0, len(t.table))
	for k := range t.table {
		out = append(out, k)
	}
	return out
}
