package intent

import (
	"reflect"
	"testing"
)

func TestConfident(t *testing.T) {
	in := Intent{
		SchemaID: "facility_search",
		Dimensions: map[string][]Value{
			"district":     {{Value: "小倉北区", Confidence: 0.9}},
			"service_type": {{Value: "生活介護", Confidence: 0.3}},
			"keywords": {
				{Value: "送迎", Confidence: 0.8},
				{Value: "医療的ケア", Confidence: 0.7},
			},
		},
	}

	got := in.Confident(0.5)
	want := map[string][]Value{
		"district": {{Value: "小倉北区", Confidence: 0.9}},
		"keywords": {
			{Value: "医療的ケア", Confidence: 0.7},
			{Value: "送迎", Confidence: 0.8},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Confident mismatch:\ngot  %#v\nwant %#v", got, want)
	}
}

func TestConfidentDropsEmptyDimensions(t *testing.T) {
	in := Intent{Dimensions: map[string][]Value{
		"district": {{Value: "八幡西区", Confidence: 0.2}},
	}}
	if got := in.Confident(0.5); len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}

func TestConfidentDeterministicOrder(t *testing.T) {
	in := Intent{Dimensions: map[string][]Value{
		"keywords": {
			{Value: "b", Confidence: 0.9},
			{Value: "a", Confidence: 0.7},
		},
	}}
	got := in.Confident(0.5)["keywords"]
	if got[0].Value != "a" || got[1].Value != "b" {
		t.Errorf("expected value-sorted order, got %v", got)
	}
}

func TestHasConfident(t *testing.T) {
	in := Intent{Dimensions: map[string][]Value{
		"district": {{Value: "小倉南区", Confidence: 0.4}},
	}}
	if in.HasConfident(0.5) {
		t.Error("0.4 should not reach the 0.5 threshold")
	}
	if !in.HasConfident(0.4) {
		t.Error("threshold is inclusive")
	}
	if (Intent{}).HasConfident(0.5) {
		t.Error("empty intent has no confident values")
	}
}
