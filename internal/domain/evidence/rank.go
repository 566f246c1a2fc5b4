package evidence

import (
	"sort"
	"strings"

	"github.com/kitaq-care/soudan/internal/domain"
	"github.com/kitaq-care/soudan/internal/domain/plan"
	"github.com/kitaq-care/soudan/internal/domain/schema"
)

type rankedRecord struct {
	record       domain.ResultRecord
	exactMatches int
	keywordScore int
	name         string
}

// rankRecords orders records for the window: exact-match predicate
// count first, then keyword containment score, then stable name order.
// Truncation drops from the tail, so the highest-ranked survive.
func rankRecords(records []domain.ResultRecord, q plan.CompiledQuery, s schema.Schema) []rankedRecord {
	ranked := make([]rankedRecord, len(records))
	for i, r := range records {
		ranked[i] = rankedRecord{
			record:       r,
			exactMatches: exactMatchCount(r, q),
			keywordScore: keywordScore(r, q),
			name:         r.StringField(s.NameProperty),
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		ra, rb := ranked[a], ranked[b]
		if ra.exactMatches != rb.exactMatches {
			return ra.exactMatches > rb.exactMatches
		}
		if ra.keywordScore != rb.keywordScore {
			return ra.keywordScore > rb.keywordScore
		}
		return ra.name < rb.name
	})
	return ranked
}

func exactMatchCount(r domain.ResultRecord, q plan.CompiledQuery) int {
	n := 0
	for _, p := range q.Predicates {
		if p.Operator == plan.OpContains {
			continue
		}
		for _, field := range p.Fields {
			for _, want := range p.Values {
				if fieldText(r, field) == want || (want == "true" && r.BoolField(field)) {
					n++
				}
			}
		}
	}
	return n
}

func keywordScore(r domain.ResultRecord, q plan.CompiledQuery) int {
	n := 0
	for _, p := range q.Predicates {
		if p.Operator != plan.OpContains {
			continue
		}
		for _, field := range p.Fields {
			text := r.StringField(field)
			for _, term := range p.Values {
				if term != "" && strings.Contains(text, term) {
					n++
				}
			}
		}
	}
	return n
}
