package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kitaq-care/soudan/internal/domain"
	"github.com/kitaq-care/soudan/internal/domain/intent"
)

// wire mirrors the JSON contract the model is instructed to emit.
type wire struct {
	Dimensions    map[string]json.RawMessage `json:"dimensions"`
	Ambiguous     bool                       `json:"ambiguous"`
	Clarification *string                    `json:"clarification"`
}

type wireValue struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// parseResponse turns raw model output into an Intent. Models wrap JSON
// in markdown fences or prose often enough that both are stripped
// before decoding. Failures wrap domain.ErrParse.
func parseResponse(raw, schemaID string) (intent.Intent, string, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return intent.Intent{}, "", fmt.Errorf("no JSON object in model output: %w", domain.ErrParse)
	}

	var w wire
	if err := json.Unmarshal([]byte(cleaned), &w); err != nil {
		return intent.Intent{}, "", fmt.Errorf("decode model output: %v: %w", err, domain.ErrParse)
	}

	in := intent.Intent{
		SchemaID:   schemaID,
		Dimensions: make(map[string][]intent.Value, len(w.Dimensions)),
		Ambiguous:  w.Ambiguous,
	}
	for name, rawVal := range w.Dimensions {
		vals, err := decodeValues(rawVal)
		if err != nil {
			return intent.Intent{}, "", fmt.Errorf("dimension %s: %v: %w", name, err, domain.ErrParse)
		}
		if len(vals) > 0 {
			in.Dimensions[name] = vals
		}
	}

	clarification := ""
	if w.Clarification != nil {
		clarification = strings.TrimSpace(*w.Clarification)
	}
	return in, clarification, nil
}

// decodeValues accepts a single {value, confidence} object or an array
// of them, and normalizes values to strings.
func decodeValues(raw json.RawMessage) ([]intent.Value, error) {
	var one wireValue
	if err := json.Unmarshal(raw, &one); err == nil {
		return wireToValues([]wireValue{one})
	}
	var many []wireValue
	if err := json.Unmarshal(raw, &many); err == nil {
		return wireToValues(many)
	}
	return nil, fmt.Errorf("value is neither object nor array")
}

func wireToValues(ws []wireValue) ([]intent.Value, error) {
	var out []intent.Value
	for _, w := range ws {
		s, err := valueString(w.Value)
		if err != nil {
			return nil, err
		}
		if s == "" {
			continue // null or empty value; the dimension was not extracted
		}
		conf := w.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		out = append(out, intent.Value{Value: s, Confidence: conf})
	}
	return out, nil
}

func valueString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// extractJSON strips markdown fences and surrounding prose, returning
// the outermost JSON object.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = strings.ReplaceAll(s, "```json", "")
		s = strings.ReplaceAll(s, "```", "")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
