package domain

import "testing"

func TestNormalizedText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"小倉北区の事業所", "小倉北区の事業所"},
		{"  小倉北区の 事業所  ", "小倉北区の 事業所"},
		{"小倉北区の\t\n事業所", "小倉北区の 事業所"},
		{"小倉北区の　事業所", "小倉北区の 事業所"}, // full-width space
		{"", ""},
	}
	for _, tt := range tests {
		q := Query{RawText: tt.in}
		if got := q.NormalizedText(); got != tt.want {
			t.Errorf("NormalizedText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResultRecordFields(t *testing.T) {
	r := ResultRecord{"name": "あおぞら園", "has_transportation": true, "capacity": int64(20)}

	if got := r.StringField("name"); got != "あおぞら園" {
		t.Errorf("StringField(name) = %q", got)
	}
	if got := r.StringField("capacity"); got != "" {
		t.Errorf("non-string fields read as empty, got %q", got)
	}
	if got := r.StringField("absent"); got != "" {
		t.Errorf("absent fields read as empty, got %q", got)
	}
	if !r.BoolField("has_transportation") {
		t.Error("BoolField(has_transportation) = false")
	}
	if r.BoolField("name") {
		t.Error("non-bool fields read as false")
	}
}

func TestResultSetEmpty(t *testing.T) {
	if !(ResultSet{}).Empty() {
		t.Error("zero set is empty")
	}
	s := ResultSet{Records: []ResultRecord{{"name": "x"}}, TotalMatched: 1}
	if s.Empty() {
		t.Error("populated set is not empty")
	}
}
