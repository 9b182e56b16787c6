package registry

// VariantSpec describes one tier of a catalog model. When ModelUID is set
// the variant routes by string UID; otherwise by enum value.
type VariantSpec struct {
	EnumValue   uint32
	ModelUID    string
	Description string
}

// Descriptor is one canonical model with its aliases and variant tiers.
type Descriptor struct {
	CanonicalID    string
	Aliases        []string
	DefaultVariant string
	Variants       map[string]VariantSpec
}

// knownVariants are the recognized tier names, used for suffix detection.
var knownVariants = map[string]struct{}{
	"low":      {},
	"medium":   {},
	"high":     {},
	"xhigh":    {},
	"thinking": {},
	"fast":     {},
	"slow":     {},
	"1m":       {},
	"minimal":  {},
}

const (
	// defaultCanonical is the fallback for unrecognized model strings.
	defaultCanonical = "claude-3.5-sonnet"
	defaultEnum      = 166
)

// catalog holds the variant-aware models. Models absent here fall back to
// the legacy flat enum map.
var catalog = []Descriptor{
	{
		CanonicalID:    "claude-4.6-opus",
		Aliases:        []string{"claude-opus-4.6", "claude-4-6-opus", "claude-opus-4-6"},
		DefaultVariant: "medium",
		Variants: map[string]VariantSpec{
			"medium":   {ModelUID: "claude-opus-4-6", Description: "Claude Opus 4.6"},
			"thinking": {ModelUID: "claude-opus-4-6-thinking", Description: "Claude Opus 4.6 (extended thinking)"},
			"xhigh":    {ModelUID: "claude-opus-4-6-xhigh", Description: "Claude Opus 4.6 (maximum reasoning)"},
		},
	},
	{
		CanonicalID:    "claude-4.5-sonnet",
		Aliases:        []string{"claude-sonnet-4.5", "claude-4-5-sonnet", "claude-sonnet-4-5"},
		DefaultVariant: "medium",
		Variants: map[string]VariantSpec{
			"medium":   {ModelUID: "claude-sonnet-4-5", Description: "Claude Sonnet 4.5"},
			"thinking": {ModelUID: "claude-sonnet-4-5-thinking", Description: "Claude Sonnet 4.5 (extended thinking)"},
			"1m":       {ModelUID: "claude-sonnet-4-5-1m", Description: "Claude Sonnet 4.5 (1M context)"},
		},
	},
	{
		CanonicalID:    "gemini-3.0-pro",
		Aliases:        []string{"gemini-3-0-pro", "gemini-3-pro"},
		DefaultVariant: "low",
		Variants: map[string]VariantSpec{
			"low":    {ModelUID: "gemini-3-pro-low", Description: "Gemini 3.0 Pro (low reasoning)"},
			"medium": {ModelUID: "gemini-3-pro-medium", Description: "Gemini 3.0 Pro"},
			"high":   {ModelUID: "gemini-3-pro-high", Description: "Gemini 3.0 Pro (high reasoning)"},
		},
	},
	{
		CanonicalID:    "gpt-5",
		Aliases:        []string{"gpt5", "gpt-5.0"},
		DefaultVariant: "medium",
		Variants: map[string]VariantSpec{
			"minimal": {ModelUID: "gpt-5-minimal", Description: "GPT-5 (minimal reasoning)"},
			"low":     {ModelUID: "gpt-5-low", Description: "GPT-5 (low reasoning)"},
			"medium":  {ModelUID: "gpt-5-medium", Description: "GPT-5"},
			"high":    {ModelUID: "gpt-5-high", Description: "GPT-5 (high reasoning)"},
		},
	},
	{
		CanonicalID:    "swe-1.5",
		Aliases:        []string{"swe-1-5", "swe1.5"},
		DefaultVariant: "fast",
		Variants: map[string]VariantSpec{
			"fast": {EnumValue: 323, Description: "SWE-1.5 (fast serving)"},
			"slow": {EnumValue: 324, Description: "SWE-1.5 (quality serving)"},
		},
	},
}

// nameToEnum is the legacy flat map for models without a catalog entry.
var nameToEnum = map[string]uint32{
	"claude-3.5-sonnet": 166,
	"claude-3.7-sonnet": 284,
	"gpt-4o":            223,
	"gpt-4o-mini":       224,
	"o3-mini":           262,
	"deepseek-v3":       241,
	"deepseek-r1":       242,
	"gemini-2.0-flash":  252,
	"gemini-2.5-pro":    274,
}

// aliasToCanonical maps arbitrary user strings onto canonical IDs,
// built from the catalog plus legacy identity entries.
var aliasToCanonical = buildAliasMap()

var byCanonical = buildCanonicalIndex()

func buildAliasMap() map[string]string {
	m := make(map[string]string)
	for _, d := range catalog {
		m[d.CanonicalID] = d.CanonicalID
		for _, alias := range d.Aliases {
			m[alias] = d.CanonicalID
		}
	}
	for name := range nameToEnum {
		if _, exists := m[name]; !exists {
			m[name] = name
		}
	}
	return m
}

func buildCanonicalIndex() map[string]Descriptor {
	m := make(map[string]Descriptor, len(catalog))
	for _, d := range catalog {
		m[d.CanonicalID] = d
	}
	return m
}
