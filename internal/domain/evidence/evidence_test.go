package evidence

import (
	"strings"
	"testing"

	"github.com/kitaq-care/soudan/internal/domain"
	"github.com/kitaq-care/soudan/internal/domain/plan"
	"github.com/kitaq-care/soudan/internal/domain/schema"
)

func facilityRecord(name, district string) domain.ResultRecord {
	return domain.ResultRecord{
		"name":             name,
		"corporation_name": "社会福祉法人テスト会",
		"service_type":     "生活介護",
		"address":          "北九州市" + district,
		"phone":            "093-000-0000",
	}
}

func emptyPlan() plan.CompiledQuery {
	return plan.CompiledQuery{SchemaID: "facility_search", Label: "Facility", OrderBy: "name", Limit: 20}
}

func TestAssembleEmpty(t *testing.T) {
	w := Assemble(domain.ResultSet{}, emptyPlan(), schema.FacilitySearch(), 4000)
	if !w.Empty() {
		t.Fatal("expected empty window")
	}
	if w.Serialize() != NoEvidenceBlock {
		t.Errorf("empty window must serialize to the no-evidence sentinel, got %q", w.Serialize())
	}
	if w.Truncated {
		t.Error("empty window is not truncated")
	}
}

func TestAssembleFormatsTemplate(t *testing.T) {
	set := domain.ResultSet{
		Records:      []domain.ResultRecord{facilityRecord("あおぞら園", "小倉北区")},
		TotalMatched: 1,
	}
	w := Assemble(set, emptyPlan(), schema.FacilitySearch(), 4000)
	if len(w.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(w.Blocks))
	}

	b := w.Blocks[0]
	if b.ID != "#1" {
		t.Errorf("expected citation id #1, got %q", b.ID)
	}
	for _, want := range []string{"【事業所 1】", "名称: あおぞら園", "所在地: 北九州市小倉北区", "電話: 093-000-0000"} {
		if !strings.Contains(b.Text, want) {
			t.Errorf("block missing %q:\n%s", want, b.Text)
		}
	}
	// capacity is optional and absent: no line at all
	if strings.Contains(b.Text, "定員") {
		t.Errorf("absent optional field must be skipped:\n%s", b.Text)
	}
}

func TestAssembleMissingRequiredField(t *testing.T) {
	r := facilityRecord("ひまわりホーム", "門司区")
	delete(r, "phone")
	set := domain.ResultSet{Records: []domain.ResultRecord{r}, TotalMatched: 1}
	w := Assemble(set, emptyPlan(), schema.FacilitySearch(), 4000)
	if !strings.Contains(w.Blocks[0].Text, "電話: 不明") {
		t.Errorf("absent required field should render 不明:\n%s", w.Blocks[0].Text)
	}
}

func TestAssembleBoolField(t *testing.T) {
	s := schema.FacilitySearch()
	s.Template = append(s.Template, schema.TemplateField{Label: "送迎", Property: "has_transportation"})
	r := facilityRecord("つばさの家", "戸畑区")
	r["has_transportation"] = true
	set := domain.ResultSet{Records: []domain.ResultRecord{r}, TotalMatched: 1}
	w := Assemble(set, emptyPlan(), s, 4000)
	if !strings.Contains(w.Blocks[0].Text, "送迎: あり") {
		t.Errorf("bool fields render あり/なし:\n%s", w.Blocks[0].Text)
	}
}

func TestAssembleBudgetTruncates(t *testing.T) {
	set := domain.ResultSet{
		Records: []domain.ResultRecord{
			facilityRecord("あ事業所", "小倉北区"),
			facilityRecord("い事業所", "小倉北区"),
			facilityRecord("う事業所", "小倉北区"),
		},
		TotalMatched: 3,
	}
	one := Assemble(set, emptyPlan(), schema.FacilitySearch(), 4000).Blocks[0]
	budget := len([]rune(one.Text)) + 10 // room for one block only

	w := Assemble(set, emptyPlan(), schema.FacilitySearch(), budget)
	if len(w.Blocks) != 1 {
		t.Fatalf("expected 1 block within budget, got %d", len(w.Blocks))
	}
	if !w.Truncated {
		t.Error("dropping records must set Truncated")
	}
	if w.TotalMatched != 3 {
		t.Errorf("TotalMatched must survive truncation, got %d", w.TotalMatched)
	}
	// highest-ranked (name order here) survives
	if !strings.Contains(w.Blocks[0].Text, "あ事業所") {
		t.Errorf("truncation must keep the highest-ranked record:\n%s", w.Blocks[0].Text)
	}
}

func TestAssembleTruncatesOversizedTopBlock(t *testing.T) {
	set := domain.ResultSet{
		Records:      []domain.ResultRecord{facilityRecord("あおぞら園", "小倉北区")},
		TotalMatched: 1,
	}
	w := Assemble(set, emptyPlan(), schema.FacilitySearch(), 10)
	if len(w.Blocks) != 1 {
		t.Fatalf("a tiny budget still admits the top record, got %d blocks", len(w.Blocks))
	}
	if got := len([]rune(w.Serialize())); got > 10 {
		t.Errorf("serialized window is %d runes, budget is 10", got)
	}
	if !w.Truncated {
		t.Error("cutting the top block must set Truncated")
	}
}

func TestAssembleCountsJoinSeparator(t *testing.T) {
	set := domain.ResultSet{
		Records: []domain.ResultRecord{
			facilityRecord("あ事業所", "小倉北区"),
			facilityRecord("い事業所", "小倉北区"),
		},
		TotalMatched: 2,
	}
	full := Assemble(set, emptyPlan(), schema.FacilitySearch(), 4000)
	if len(full.Blocks) != 2 {
		t.Fatalf("expected 2 blocks unbounded, got %d", len(full.Blocks))
	}
	// Exactly the two block texts, no room for the newline joiner.
	budget := len([]rune(full.Blocks[0].Text)) + len([]rune(full.Blocks[1].Text))

	w := Assemble(set, emptyPlan(), schema.FacilitySearch(), budget)
	if len(w.Blocks) != 1 {
		t.Errorf("the joiner rune counts against the budget, got %d blocks", len(w.Blocks))
	}
	if got := len([]rune(w.Serialize())); got > budget {
		t.Errorf("serialized window is %d runes, budget is %d", got, budget)
	}

	w = Assemble(set, emptyPlan(), schema.FacilitySearch(), budget+1)
	if len(w.Blocks) != 2 {
		t.Errorf("one extra rune covers the joiner, got %d blocks", len(w.Blocks))
	}
	if got := len([]rune(w.Serialize())); got > budget+1 {
		t.Errorf("serialized window is %d runes, budget is %d", got, budget+1)
	}
}

func TestRankingExactMatchFirst(t *testing.T) {
	q := emptyPlan()
	q.Predicates = []plan.Predicate{
		{Dimension: "district", Operator: plan.OpEq, Values: []string{"八幡西区"}, Fields: []string{"district"}},
	}
	a := facilityRecord("あとまわし園", "小倉北区")
	b := facilityRecord("らいおんホーム", "八幡西区")
	b["district"] = "八幡西区"
	set := domain.ResultSet{Records: []domain.ResultRecord{a, b}, TotalMatched: 2}

	w := Assemble(set, q, schema.FacilitySearch(), 4000)
	if !strings.Contains(w.Blocks[0].Text, "らいおんホーム") {
		t.Errorf("exact predicate matches rank first:\n%s", w.Blocks[0].Text)
	}
}

func TestRankingKeywordScore(t *testing.T) {
	q := emptyPlan()
	q.Predicates = []plan.Predicate{
		{Dimension: "keywords", Operator: plan.OpContains, Values: []string{"黒崎"}, Fields: []string{"name", "address"}},
	}
	a := facilityRecord("あさひ園", "小倉南区")
	b := facilityRecord("黒崎サポートセンター", "八幡西区黒崎")
	set := domain.ResultSet{Records: []domain.ResultRecord{a, b}, TotalMatched: 2}

	w := Assemble(set, q, schema.FacilitySearch(), 4000)
	if !strings.Contains(w.Blocks[0].Text, "黒崎サポートセンター") {
		t.Errorf("keyword containment ranks first:\n%s", w.Blocks[0].Text)
	}
}

func TestRankingNameTiebreak(t *testing.T) {
	set := domain.ResultSet{
		Records: []domain.ResultRecord{
			facilityRecord("い事業所", "小倉北区"),
			facilityRecord("あ事業所", "小倉北区"),
		},
		TotalMatched: 2,
	}
	w := Assemble(set, emptyPlan(), schema.FacilitySearch(), 4000)
	if !strings.Contains(w.Blocks[0].Text, "あ事業所") {
		t.Errorf("ties break by name order:\n%s", w.Blocks[0].Text)
	}
}

func TestWindowIDs(t *testing.T) {
	set := domain.ResultSet{
		Records: []domain.ResultRecord{
			facilityRecord("あ事業所", "小倉北区"),
			facilityRecord("い事業所", "小倉北区"),
		},
		TotalMatched: 2,
	}
	w := Assemble(set, emptyPlan(), schema.FacilitySearch(), 4000)
	ids := w.IDs()
	if len(ids) != 2 || ids[0] != "#1" || ids[1] != "#2" {
		t.Errorf("expected sequential citation ids, got %v", ids)
	}
}
