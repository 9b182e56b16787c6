package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveColonVariant(t *testing.T) {
	r := Resolve("gemini-3.0-pro:high", "")
	assert.Equal(t, "gemini-3.0-pro", r.CanonicalID)
	assert.Equal(t, "high", r.Variant)
	assert.Equal(t, "gemini-3-pro-high", r.ModelUID)
	assert.Zero(t, r.EnumValue)
}

func TestResolveSuffixVariant(t *testing.T) {
	r := Resolve("gemini-3-0-pro-high", "")
	assert.Equal(t, "gemini-3.0-pro", r.CanonicalID)
	assert.Equal(t, "high", r.Variant)
	assert.Equal(t, "gemini-3-pro-high", r.ModelUID)
}

func TestResolveStringUIDRouting(t *testing.T) {
	r := Resolve("claude-4.6-opus:thinking", "")
	assert.Equal(t, "claude-opus-4-6-thinking", r.ModelUID)
	assert.Zero(t, r.EnumValue)
}

func TestResolveEnumVariantRouting(t *testing.T) {
	r := Resolve("swe-1.5:slow", "")
	assert.Equal(t, uint32(324), r.EnumValue)
	assert.Empty(t, r.ModelUID)
}

func TestResolveDefaultVariant(t *testing.T) {
	r := Resolve("gpt-5", "")
	assert.Equal(t, "medium", r.Variant)
	assert.Equal(t, "gpt-5-medium", r.ModelUID)
}

func TestResolveUnknownFallsBack(t *testing.T) {
	r := Resolve("unknown-model", "")
	assert.Equal(t, "claude-3.5-sonnet", r.CanonicalID)
	assert.Equal(t, uint32(166), r.EnumValue)
	assert.Empty(t, r.ModelUID)
}

func TestResolveLegacyEnum(t *testing.T) {
	r := Resolve("claude-3.5-sonnet", "")
	assert.Equal(t, uint32(166), r.EnumValue)

	r = Resolve("deepseek-v3", "")
	assert.Equal(t, uint32(241), r.EnumValue)
}

func TestResolveOverrideBeatsInline(t *testing.T) {
	r := Resolve("gemini-3.0-pro:high", "low")
	assert.Equal(t, "low", r.Variant)
	assert.Equal(t, "gemini-3-pro-low", r.ModelUID)
}

func TestResolveUnknownVariantUsesDefault(t *testing.T) {
	r := Resolve("gpt-5:warp", "")
	assert.Equal(t, "medium", r.Variant)
}

func TestResolveIdempotent(t *testing.T) {
	inputs := []string{"gemini-3.0-pro:high", "claude-4.6-opus:thinking", "gpt-5", "swe-1.5:slow"}
	for _, input := range inputs {
		first := Resolve(input, "")
		again := Resolve(first.CanonicalID+":"+first.Variant, "")
		assert.Equal(t, first, again, "input %q", input)
	}
}

func TestResolveRoutingModeExclusive(t *testing.T) {
	for _, entry := range List() {
		if len(entry.Variants) == 0 {
			r := Resolve(entry.ID, "")
			assert.NotZero(t, r.EnumValue, entry.ID)
			assert.Empty(t, r.ModelUID, entry.ID)
			continue
		}
		for _, variant := range entry.Variants {
			r := Resolve(entry.ID+":"+variant, "")
			uidRouted := r.ModelUID != ""
			enumRouted := r.EnumValue != 0
			assert.NotEqual(t, uidRouted, enumRouted, "%s:%s", entry.ID, variant)
		}
	}
}

func TestSendUID(t *testing.T) {
	assert.Equal(t, "claude-opus-4-6-thinking", Resolve("claude-4.6-opus:thinking", "").SendUID())
	assert.Equal(t, "MODEL_CLAUDE_3_5_SONNET", Resolve("claude-3.5-sonnet", "").SendUID())
}

func TestListSortedAndComplete(t *testing.T) {
	entries := List()
	require.NotEmpty(t, entries)
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].ID, entries[i].ID)
	}

	ids := make(map[string]bool, len(entries))
	for _, e := range entries {
		ids[e.ID] = true
	}
	assert.True(t, ids["gemini-3.0-pro"])
	assert.True(t, ids["claude-3.5-sonnet"])
}
