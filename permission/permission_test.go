package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claudeStyleTranslator() *Translator {
	return NewTranslator("claude", "default", map[Mode]string{
		ModeDefault:     "default",
		ModeAcceptEdits: "acceptEdits",
		ModeBypass:      "bypassPermissions",
		ModePlan:        "plan",
		ModeAllowAll:    "bypassPermissions",
	})
}

func codexStyleTranslator() *Translator {
	return NewTranslator("codex", "ask", map[Mode]string{
		ModeDefault:  "ask",
		ModeAsk:      "ask",
		ModeAuto:     "autoEdit",
		ModeAllowAll: "yolo",
	})
}

func TestTranslateUnifiedModes(t *testing.T) {
	tr := claudeStyleTranslator()
	assert.Equal(t, "acceptEdits", tr.Translate("acceptEdits"))
	assert.Equal(t, "bypassPermissions", tr.Translate("allow-all"))
	assert.Equal(t, "plan", tr.Translate("plan"))
}

func TestTranslateIsTotal(t *testing.T) {
	tr := codexStyleTranslator()

	// Every unified mode resolves to something.
	for _, m := range UnifiedModes() {
		got := tr.Translate(string(m))
		assert.NotEmpty(t, got, "mode %q", m)
	}

	// Unknown, legacy, and garbage strings resolve to the default.
	for _, s := range []string{"", "YOLO", "bypass", "legacy-v1", "Allow-All", "plan "} {
		assert.Equal(t, "ask", tr.Translate(s), "input %q", s)
	}
}

func TestTranslateCaseSensitive(t *testing.T) {
	tr := codexStyleTranslator()
	// Exact match required: wrong case is unknown input, so it lands on
	// the safe default rather than the elevated mode.
	assert.Equal(t, "yolo", tr.Translate("allow-all"))
	assert.Equal(t, "ask", tr.Translate("Allow-all"))
	assert.Equal(t, "ask", tr.Translate("ALLOW-ALL"))
}

func TestTranslateIdempotent(t *testing.T) {
	tr := codexStyleTranslator()
	for _, m := range UnifiedModes() {
		native := tr.Translate(string(m))
		assert.Equal(t, native, tr.Translate(native), "mode %q", m)
	}
	// The default itself round-trips.
	assert.Equal(t, tr.Default(), tr.Translate(tr.Default()))
}

func TestTranslateNativeExtensions(t *testing.T) {
	tr := codexStyleTranslator()
	// Native-only modes pass through unchanged.
	assert.Equal(t, "autoEdit", tr.Translate("autoEdit"))
	assert.Equal(t, "yolo", tr.Translate("yolo"))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(claudeStyleTranslator())
	r.Register(codexStyleTranslator())

	assert.Equal(t, "bypassPermissions", r.Translate("claude", "allow-all"))
	assert.Equal(t, "yolo", r.Translate("codex", "allow-all"))

	// Unregistered agent type stays total.
	assert.Equal(t, "default", r.Translate("mystery", "allow-all"))

	tr, ok := r.Lookup("claude")
	require.True(t, ok)
	assert.Equal(t, "claude", tr.AgentType())

	_, ok = r.Lookup("mystery")
	assert.False(t, ok)
}
