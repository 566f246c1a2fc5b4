package plan

import (
	"github.com/kitaq-care/soudan/internal/domain/intent"
	"github.com/kitaq-care/soudan/internal/domain/schema"
)

// DefaultLimit is the hard result cap applied when Options leaves
// Limit unset. Bounds downstream context size.
const DefaultLimit = 20

// Options holds the compilation knobs.
type Options struct {
	// MinConfidence is the threshold below which extracted values are
	// dropped silently. Never surfaced as a filter error.
	MinConfidence float64
	// Limit caps the result count. DefaultLimit when zero.
	Limit int
}

// Compile maps an intent onto a CompiledQuery under the given schema.
// Each recognized dimension maps to exactly one predicate; dimensions
// the schema does not recognize, and values under the confidence
// threshold, are dropped. Predicate order follows the schema's
// dimension order, so identical intents always compile identically.
func Compile(in intent.Intent, s schema.Schema, opts Options) CompiledQuery {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	confident := in.Confident(opts.MinConfidence)

	q := CompiledQuery{
		SchemaID: s.ID,
		Label:    s.Label,
		OrderBy:  s.NameProperty,
		Ordering: OrderByName,
		Limit:    limit,
	}

	for _, dim := range s.Dimensions {
		vals, ok := confident[dim.Name]
		if !ok {
			continue
		}
		q.Predicates = append(q.Predicates, compilePredicate(dim, vals, s))
		if dim.Kind == schema.KindKeyword && s.RelevanceOrdering {
			q.Ordering = OrderByRelevance
		}
	}

	return q
}

func compilePredicate(dim schema.Dimension, vals []intent.Value, s schema.Schema) Predicate {
	canonical := make([]string, len(vals))
	for i, v := range vals {
		canonical[i] = dim.Canonical(v.Value)
	}

	switch dim.Kind {
	case schema.KindKeyword:
		// Free-text terms match by containment over the schema's
		// name/address-like fields, never by equality.
		return Predicate{
			Dimension: dim.Name,
			Operator:  OpContains,
			Values:    canonical,
			Fields:    s.KeywordFields,
		}
	case schema.KindBool:
		return Predicate{
			Dimension: dim.Name,
			Operator:  OpEq,
			Values:    canonical,
			Fields:    []string{dim.Property},
		}
	default:
		op := OpEq
		if len(canonical) > 1 {
			op = OpIn
		}
		return Predicate{
			Dimension: dim.Name,
			Operator:  op,
			Values:    canonical,
			Fields:    []string{dim.Property},
		}
	}
}
