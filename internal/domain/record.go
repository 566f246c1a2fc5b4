package domain

// ResultRecord is one retrieved graph entity: its property map as
// stored, opaque to the pipeline beyond field access.
type ResultRecord map[string]any

// StringField returns the named property as a string, or "" when the
// property is absent or not textual.
func (r ResultRecord) StringField(name string) string {
	if v, ok := r[name].(string); ok {
		return v
	}
	return ""
}

// BoolField returns the named property as a bool.
func (r ResultRecord) BoolField(name string) bool {
	v, _ := r[name].(bool)
	return v
}

// ResultSet is the shaped outcome of one graph query execution.
// TotalMatched counts matches before the result cap was applied.
type ResultSet struct {
	Records      []ResultRecord `json:"records"`
	TotalMatched int            `json:"total_matched"`
}

// Empty reports whether the query matched nothing. A normal outcome,
// not an error.
func (s ResultSet) Empty() bool { return len(s.Records) == 0 }
