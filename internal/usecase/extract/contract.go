package extract

import (
	"context"

	"github.com/kitaq-care/soudan/internal/transport/openai"
)

// Generator is the model-serving contract the extractor depends on.
type Generator interface {
	Generate(ctx context.Context, call string, req openai.Request) (string, error)
}
