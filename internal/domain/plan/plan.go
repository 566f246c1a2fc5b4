// Package plan compiles a structured intent into an executable query
// plan. Compilation is pure and deterministic: the same intent always
// yields the same predicate list, which cache keys depend on.
package plan

import (
	"fmt"
	"strings"
)

// Operator is a predicate comparison operator.
type Operator string

const (
	OpEq       Operator = "eq"
	OpIn       Operator = "in"
	OpContains Operator = "contains"
)

// Predicate is one filter clause. Predicates always combine
// conjunctively; no OR is ever generated across dimensions.
type Predicate struct {
	Dimension string   `json:"dimension"`
	Operator  Operator `json:"operator"`
	Values    []string `json:"values"`
	// Fields are the graph properties the predicate applies to. Equality
	// predicates target one property; contains predicates may span the
	// schema's keyword fields, OR-ed within this single predicate.
	Fields []string `json:"fields"`
}

// Ordering selects the result order.
type Ordering string

const (
	// OrderByName is the stable lexical ordering over the primary name field.
	OrderByName Ordering = "name"
	// OrderByRelevance ranks keyword matches first. Falls back to name
	// ordering in the store; relevance is applied during assembly.
	OrderByRelevance Ordering = "relevance"
)

// CompiledQuery is the deterministic output of compilation.
type CompiledQuery struct {
	SchemaID   string      `json:"schema_id"`
	Label      string      `json:"label"`
	Predicates []Predicate `json:"predicates"`
	OrderBy    string      `json:"order_by"`
	Ordering   Ordering    `json:"ordering"`
	Limit      int         `json:"limit"`
}

// Fingerprint returns a stable identity string for cache keying.
func (q CompiledQuery) Fingerprint() string {
	var b strings.Builder
	b.WriteString(q.SchemaID)
	b.WriteByte('|')
	b.WriteString(q.Label)
	for _, p := range q.Predicates {
		fmt.Fprintf(&b, "|%s:%s:%s:%s",
			p.Dimension, p.Operator,
			strings.Join(p.Fields, ","), strings.Join(p.Values, ","))
	}
	fmt.Fprintf(&b, "|order=%s:%s|limit=%d", q.OrderBy, q.Ordering, q.Limit)
	return b.String()
}
