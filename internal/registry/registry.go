// Package registry maps user-facing model strings onto the vendor's two
// routing schemes: legacy numeric enum values and the newer string model
// UIDs. Resolution is pure and deterministic.
package registry

import (
	"sort"
	"strings"
)

// Resolved is the per-request outcome of model resolution. Exactly one
// routing mode is active: a non-zero EnumValue, or a non-empty ModelUID.
type Resolved struct {
	CanonicalID string
	Variant     string
	EnumValue   uint32
	ModelUID    string
}

// Resolve maps (input, overrideVariant) onto a routing decision.
//
// The variant comes from, in descending precedence: the override, a
// ":variant" suffix in the input, a "-variant" tail when the stripped
// prefix is a known model, or the catalog's default.
func Resolve(input, overrideVariant string) Resolved {
	input = strings.TrimSpace(input)

	idPart, variantPart := splitVariant(input)
	if overrideVariant != "" {
		variantPart = overrideVariant
	}

	canonical, known := aliasToCanonical[idPart]
	if !known {
		canonical = idPart
	}

	if desc, ok := byCanonical[canonical]; ok {
		variant := variantPart
		if _, defined := desc.Variants[variant]; !defined {
			variant = desc.DefaultVariant
		}
		spec := desc.Variants[variant]
		if spec.ModelUID != "" {
			return Resolved{CanonicalID: canonical, Variant: variant, ModelUID: spec.ModelUID}
		}
		return Resolved{CanonicalID: canonical, Variant: variant, EnumValue: spec.EnumValue}
	}

	if enum, ok := nameToEnum[input]; ok {
		return Resolved{CanonicalID: input, EnumValue: enum}
	}
	if enum, ok := nameToEnum[canonical]; ok {
		return Resolved{CanonicalID: canonical, EnumValue: enum}
	}

	return Resolved{CanonicalID: defaultCanonical, EnumValue: defaultEnum}
}

// splitVariant separates the model id from an inline variant. A colon
// split wins over suffix detection.
func splitVariant(input string) (id, variant string) {
	if idPart, variantPart, found := strings.Cut(input, ":"); found {
		return idPart, variantPart
	}

	idx := strings.LastIndexByte(input, '-')
	if idx <= 0 {
		return input, ""
	}
	tail := input[idx+1:]
	if _, known := knownVariants[tail]; !known {
		return input, ""
	}
	prefix := input[:idx]
	if _, known := aliasToCanonical[prefix]; !known {
		return input, ""
	}
	return prefix, tail
}

// SendUID renders the identifier for the PlannerConfig model field:
// the string UID when present, otherwise the vendor's proto enum name.
func (r Resolved) SendUID() string {
	if r.ModelUID != "" {
		return r.ModelUID
	}
	return "MODEL_" + protoSymbol(r.CanonicalID)
}

func protoSymbol(canonical string) string {
	symbol := strings.ToUpper(canonical)
	symbol = strings.NewReplacer("-", "_", ".", "_").Replace(symbol)
	return symbol
}

// Entry is one row of the exported model listing.
type Entry struct {
	ID       string   `json:"id"`
	Variants []string `json:"variants,omitempty"`
}

// List returns all models the bridge advertises, canonical IDs sorted,
// each with its sorted variant names.
func List() []Entry {
	entries := make([]Entry, 0, len(catalog)+len(nameToEnum))
	for _, d := range catalog {
		variants := make([]string, 0, len(d.Variants))
		for name := range d.Variants {
			variants = append(variants, name)
		}
		sort.Strings(variants)
		entries = append(entries, Entry{ID: d.CanonicalID, Variants: variants})
	}
	for name := range nameToEnum {
		entries = append(entries, Entry{ID: name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}
