// Package cypher renders a compiled query plan into parameterized
// Cypher. Rendering is deterministic: predicate order is preserved and
// parameters are named positionally, so identical plans produce
// byte-identical query text.
package cypher

import (
	"fmt"
	"strings"

	"github.com/kitaq-care/soudan/internal/domain/plan"
	"github.com/kitaq-care/soudan/internal/domain/schema"
)

// Query is an executable Cypher statement with its parameters.
type Query struct {
	Text   string
	Params map[string]any
}

// Build renders the plan. Predicates combine with AND; a contains
// predicate expands to OR across its keyword fields but remains a
// single conjunct.
func Build(q plan.CompiledQuery, s schema.Schema) (Query, error) {
	if q.Label == "" {
		return Query{}, fmt.Errorf("compiled query has no label")
	}

	params := map[string]any{"limit": q.Limit}
	var conjuncts []string

	for i, p := range q.Predicates {
		c, err := renderPredicate(i, p, s, params)
		if err != nil {
			return Query{}, err
		}
		conjuncts = append(conjuncts, c)
	}

	where := "true"
	if len(conjuncts) > 0 {
		where = strings.Join(conjuncts, " AND ")
	}

	text := fmt.Sprintf(
		"MATCH (n:%s) WHERE %s RETURN n ORDER BY n.%s LIMIT $limit",
		q.Label, where, q.OrderBy,
	)
	return Query{Text: text, Params: params}, nil
}

func renderPredicate(i int, p plan.Predicate, s schema.Schema, params map[string]any) (string, error) {
	if len(p.Fields) == 0 || len(p.Values) == 0 {
		return "", fmt.Errorf("predicate %s has no fields or values", p.Dimension)
	}
	name := fmt.Sprintf("p%d", i)

	switch p.Operator {
	case plan.OpEq:
		params[name] = paramValue(p, s)
		return fmt.Sprintf("n.%s = $%s", p.Fields[0], name), nil

	case plan.OpIn:
		params[name] = p.Values
		return fmt.Sprintf("n.%s IN $%s", p.Fields[0], name), nil

	case plan.OpContains:
		var alts []string
		for j, term := range p.Values {
			tn := fmt.Sprintf("%s_%d", name, j)
			params[tn] = term
			for _, f := range p.Fields {
				alts = append(alts, fmt.Sprintf("n.%s CONTAINS $%s", f, tn))
			}
		}
		return "(" + strings.Join(alts, " OR ") + ")", nil

	default:
		return "", fmt.Errorf("unsupported operator %q", p.Operator)
	}
}

// paramValue converts the single equality value, honoring the
// dimension's declared kind: boolean dimensions bind real booleans.
func paramValue(p plan.Predicate, s schema.Schema) any {
	if d, ok := s.Dimension(p.Dimension); ok && d.Kind == schema.KindBool {
		return p.Values[0] == "true" || p.Values[0] == "あり"
	}
	return p.Values[0]
}
