// Package evidence turns raw result records into the bounded, ranked
// textual window handed to answer generation.
package evidence

import (
	"fmt"
	"strings"

	"github.com/kitaq-care/soudan/internal/domain"
	"github.com/kitaq-care/soudan/internal/domain/plan"
	"github.com/kitaq-care/soudan/internal/domain/schema"
)

// NoEvidenceBlock is the sentinel emitted when the result set is empty.
// Answer generation must honor it by stating no matches exist.
const NoEvidenceBlock = "（該当する情報はありませんでした）"

// Block is one formatted evidence block.
type Block struct {
	ID   string `json:"id"` // citation id: "#1", "#2", ...
	Text string `json:"text"`
}

// Window is the bounded evidence payload for answer generation.
// Its serialized size never exceeds the budget it was assembled with;
// truncation always keeps the highest-ranked records.
type Window struct {
	Blocks       []Block `json:"blocks"`
	Truncated    bool    `json:"truncated"`
	TotalMatched int     `json:"total_matched"`
}

// Empty reports whether the window holds no evidence.
func (w Window) Empty() bool { return len(w.Blocks) == 0 }

// IDs returns the evidence ids in order.
func (w Window) IDs() []string {
	ids := make([]string, len(w.Blocks))
	for i, b := range w.Blocks {
		ids[i] = b.ID
	}
	return ids
}

// Serialize renders the window for prompt embedding.
func (w Window) Serialize() string {
	if w.Empty() {
		return NoEvidenceBlock
	}
	texts := make([]string, len(w.Blocks))
	for i, b := range w.Blocks {
		texts[i] = b.Text
	}
	return strings.Join(texts, "\n")
}

// Assemble formats, ranks, and budget-bounds the result set. Only
// fields listed in the schema's template are exposed; internal-only
// properties never leak into the window. budget is in runes over the
// serialized blocks.
func Assemble(set domain.ResultSet, q plan.CompiledQuery, s schema.Schema, budget int) Window {
	w := Window{TotalMatched: set.TotalMatched}
	if set.Empty() {
		return w
	}

	ranked := rankRecords(set.Records, q, s)

	used := 0
	for i, r := range ranked {
		text := formatBlock(i+1, r.record, s)
		size := len([]rune(text))
		if len(w.Blocks) > 0 {
			size++ // the "\n" joiner Serialize inserts
		}
		if budget > 0 && used+size > budget {
			if len(w.Blocks) == 0 {
				// Even the top-ranked block overflows: cut it down so
				// the window still fits the budget.
				runes := []rune(text)
				w.Blocks = append(w.Blocks, Block{ID: "#1", Text: string(runes[:budget])})
			}
			w.Truncated = true
			break
		}
		w.Blocks = append(w.Blocks, Block{ID: fmt.Sprintf("#%d", i+1), Text: text})
		used += size
	}
	if len(w.Blocks) < set.TotalMatched {
		w.Truncated = true
	}
	return w
}

// formatBlock renders one record as a numbered block using the
// schema's template fields.
func formatBlock(n int, r domain.ResultRecord, s schema.Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "【%s %d】", blockTitle(s), n)
	for _, f := range s.Template {
		v := fieldText(r, f.Property)
		if v == "" {
			if f.Optional {
				continue
			}
			v = "不明"
		}
		fmt.Fprintf(&b, "\n%s: %s", f.Label, v)
	}
	return b.String()
}

func blockTitle(s schema.Schema) string {
	switch s.ID {
	case "needs_analysis":
		return "ニーズ"
	case "goal_suggestion":
		return "目標"
	default:
		return "事業所"
	}
}

func fieldText(r domain.ResultRecord, property string) string {
	switch v := r[property].(type) {
	case string:
		return v
	case bool:
		if v {
			return "あり"
		}
		return "なし"
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
