package pipeline

import (
	"context"

	"github.com/kitaq-care/soudan/internal/domain"
	"github.com/kitaq-care/soudan/internal/domain/evidence"
	"github.com/kitaq-care/soudan/internal/domain/plan"
	"github.com/kitaq-care/soudan/internal/domain/schema"
	"github.com/kitaq-care/soudan/internal/usecase/extract"
)

// SchemaRegistry resolves domain schema ids.
type SchemaRegistry interface {
	Get(id string) (schema.Schema, error)
}

// Extractor analyzes free text into an intent or clarification.
type Extractor interface {
	Extract(ctx context.Context, q domain.Query, s schema.Schema) (extract.Outcome, error)
}

// Executor runs a compiled plan against the graph store.
type Executor interface {
	Execute(ctx context.Context, q plan.CompiledQuery, s schema.Schema) (domain.ResultSet, error)
}

// Synthesizer generates the grounded answer from the evidence window.
type Synthesizer interface {
	Synthesize(ctx context.Context, q domain.Query, w evidence.Window) (domain.Answer, error)
}
