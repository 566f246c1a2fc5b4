// Package intent holds the structured result of query analysis.
package intent

import (
	"sort"
)

// Value is one extracted dimension value with its confidence in [0,1].
type Value struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Intent maps recognized dimension names to extracted values.
type Intent struct {
	SchemaID   string             `json:"schema_id"`
	Dimensions map[string][]Value `json:"dimensions"`
	Ambiguous  bool               `json:"ambiguous"`
}

// Clarification is the user-facing question returned instead of an
// answer when the query is too ambiguous to compile. Terminal for the
// request: the caller submits a fresh query carrying the clarification
// answer.
type Clarification struct {
	Question string `json:"question"`
}

// Confident returns dimension values at or above the threshold, in a
// deterministic order (dimension name, then value).
func (i Intent) Confident(threshold float64) map[string][]Value {
	out := make(map[string][]Value)
	for name, vals := range i.Dimensions {
		var kept []Value
		for _, v := range vals {
			if v.Confidence >= threshold {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			sort.Slice(kept, func(a, b int) bool { return kept[a].Value < kept[b].Value })
			out[name] = kept
		}
	}
	return out
}

// HasConfident reports whether any dimension reaches the threshold.
func (i Intent) HasConfident(threshold float64) bool {
	for _, vals := range i.Dimensions {
		for _, v := range vals {
			if v.Confidence >= threshold {
				return true
			}
		}
	}
	return false
}
