// Package schema declares the recognized query dimensions per domain.
// A schema is data, not code: facility search, needs analysis and goal
// suggestion all run through the same extractor/compiler pair,
// parameterized by their schema.
package schema

import (
	"fmt"

	"github.com/kitaq-care/soudan/internal/domain"
)

// ValueKind is the value type of a dimension.
type ValueKind string

const (
	KindString  ValueKind = "string"
	KindBool    ValueKind = "bool"
	KindKeyword ValueKind = "keyword" // free-text terms, contains-matched
)

// Dimension is one recognized filter dimension.
type Dimension struct {
	Name        string    `yaml:"name"`
	Kind        ValueKind `yaml:"kind"`
	Property    string    `yaml:"property"`    // graph property the dimension filters on
	Description string    `yaml:"description"` // embedded into the extraction prompt
	// Aliases maps colloquial values to the canonical stored value
	// (「ショートステイ」→「短期入所」). Applied before compilation.
	Aliases map[string]string `yaml:"aliases"`
}

// TemplateField is one record property exposed in evidence blocks.
type TemplateField struct {
	Label    string `yaml:"label"` // display label (名称, 所在地, ...)
	Property string `yaml:"property"`
	Optional bool   `yaml:"optional"` // skipped silently when absent
}

// Schema describes one query domain.
type Schema struct {
	ID         string      `yaml:"id"`
	Label      string      `yaml:"label"` // graph node label
	Dimensions []Dimension `yaml:"dimensions"`
	// KeywordFields are the textual properties eligible for contains
	// matching of keyword dimensions.
	KeywordFields []string `yaml:"keyword_fields"`
	// NameProperty is the primary name field, used for default ordering
	// and evidence ranking ties.
	NameProperty string `yaml:"name_property"`
	// RelevanceOrdering orders keyword searches by match relevance
	// instead of the stable name ordering.
	RelevanceOrdering bool `yaml:"relevance_ordering"`
	// Template lists the fields shown in evidence blocks, in order.
	Template []TemplateField `yaml:"template"`
	// FewShot holds extraction examples embedded into the prompt.
	FewShot []Example `yaml:"few_shot"`
}

// Example is one few-shot extraction example for the prompt.
type Example struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"` // the exact JSON the model should emit
}

// Dimension returns the named dimension.
func (s Schema) Dimension(name string) (Dimension, bool) {
	for _, d := range s.Dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return Dimension{}, false
}

// Canonical resolves a raw extracted value through the dimension's
// alias table. Unknown values pass through unchanged.
func (d Dimension) Canonical(value string) string {
	if canon, ok := d.Aliases[value]; ok {
		return canon
	}
	return value
}

// Validate checks structural soundness of a schema.
func (s Schema) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("schema id is required")
	}
	if s.Label == "" {
		return fmt.Errorf("schema %s: label is required", s.ID)
	}
	if len(s.Dimensions) == 0 {
		return fmt.Errorf("schema %s: at least one dimension is required", s.ID)
	}
	seen := make(map[string]bool, len(s.Dimensions))
	for _, d := range s.Dimensions {
		if d.Name == "" {
			return fmt.Errorf("schema %s: dimension name is required", s.ID)
		}
		if seen[d.Name] {
			return fmt.Errorf("schema %s: duplicate dimension %q", s.ID, d.Name)
		}
		seen[d.Name] = true
		switch d.Kind {
		case KindString, KindBool, KindKeyword:
		default:
			return fmt.Errorf("schema %s: dimension %q has unknown kind %q", s.ID, d.Name, d.Kind)
		}
		if d.Kind != KindKeyword && d.Property == "" {
			return fmt.Errorf("schema %s: dimension %q needs a property", s.ID, d.Name)
		}
	}
	if s.NameProperty == "" {
		return fmt.Errorf("schema %s: name_property is required", s.ID)
	}
	hasKeyword := false
	for _, d := range s.Dimensions {
		if d.Kind == KindKeyword {
			hasKeyword = true
		}
	}
	if hasKeyword && len(s.KeywordFields) == 0 {
		return fmt.Errorf("schema %s: keyword dimension requires keyword_fields", s.ID)
	}
	return nil
}

// Registry holds all known schemas.
type Registry struct {
	schemas map[string]Schema
}

// NewRegistry builds a registry from the given schemas. Later schemas
// with the same id override earlier ones, so config-provided schemas
// can replace built-in defaults.
func NewRegistry(schemas ...Schema) (*Registry, error) {
	r := &Registry{schemas: make(map[string]Schema, len(schemas))}
	for _, s := range schemas {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		r.schemas[s.ID] = s
	}
	return r, nil
}

// Get returns the schema for the given domain id.
func (r *Registry) Get(id string) (Schema, error) {
	s, ok := r.schemas[id]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %s", domain.ErrSchemaNotFound, id)
	}
	return s, nil
}

// IDs returns the registered schema ids.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.schemas))
	for id := range r.schemas {
		ids = append(ids, id)
	}
	return ids
}
