package typecheck

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type exported struct{}

func (exported) ExportAllData() map[string]any { return map[string]any{"id": "1"} }

func newPageChecker() *Checker {
	return New(
		map[string]string{
			"caption":         "string",
			"no_story":        "bool",
			"limit":           "int",
			"product_count":   "unsigned int",
			"bid":             "float",
			"backdated_time":  "datetime",
			"source":          "file",
			"feed_targeting":  "Object",
			"asid":            "list",
			"uid":             "list<string>",
			"metric":          "list<Object>",
			"ids":             "list<int>",
			"bids":            "list<float>",
			"spec":            "map",
			"labels":          "map<string, string>",
			"date_preset":     "date_preset_enum",
			"fields":          "list<subscribed_fields_enum>",
			"product_catalog": "ProductCatalog",
		},
		map[string][]string{
			"date_preset_enum":       {"today", "yesterday", "last_7d"},
			"subscribed_fields_enum": {"feed", "messages"},
		},
	)
}

func TestChecker_IsValidPair(t *testing.T) {
	c := newPageChecker()

	tests := []struct {
		name  string
		key   string
		value any
		want  bool
	}{
		{"string ok", "caption", "hello", true},
		{"string rejects int", "caption", 5, false},
		{"bool ok", "no_story", true, true},
		{"bool rejects string", "no_story", "true", false},
		{"int ok", "limit", 25, true},
		{"int accepts json number", "limit", json.Number("25"), true},
		{"int rejects float", "limit", 2.5, false},
		{"unsigned ok", "product_count", uint(3), true},
		{"unsigned rejects negative", "product_count", -1, false},
		{"float accepts int", "bid", 3, true},
		{"float ok", "bid", 1.25, true},
		{"float accepts decimal json number", "bid", json.Number("1.5"), true},
		{"float rejects bad json number", "bid", json.Number("1.5x"), false},
		{"float list of json numbers", "bids", []any{json.Number("1.5"), json.Number("2")}, true},
		{"datetime time", "backdated_time", time.Now(), true},
		{"datetime string", "backdated_time", "2024-01-01", true},
		{"datetime unix", "backdated_time", int64(1700000000), true},
		{"file path", "source", "/tmp/photo.png", true},
		{"object map", "feed_targeting", map[string]any{"age_min": 18}, true},
		{"object struct", "feed_targeting", struct{ A int }{1}, true},
		{"object exportable", "feed_targeting", exported{}, true},
		{"object rejects string", "feed_targeting", "x", false},
		{"list ok", "asid", []any{1, "2"}, true},
		{"list rejects scalar", "asid", "1", false},
		{"typed list ok", "uid", []string{"1", "2"}, true},
		{"typed list bad item", "uid", []any{"1", 2}, false},
		{"list of objects", "metric", []map[string]any{{"a": 1}}, true},
		{"list of ints", "ids", []int64{1, 2}, true},
		{"map ok", "spec", map[string]int{"a": 1}, true},
		{"generic map ok", "labels", map[string]string{"a": "b"}, true},
		{"generic map rejects list", "labels", []string{"a"}, false},
		{"enum ok", "date_preset", "today", true},
		{"enum unknown value", "date_preset", "tomorrow", false},
		{"enum list ok", "fields", []string{"feed", "messages"}, true},
		{"enum list bad", "fields", []string{"feed", "nope"}, false},
		{"resource by id", "product_catalog", "123", true},
		{"resource by numeric id", "product_catalog", 123, true},
		{"resource object", "product_catalog", exported{}, true},
		{"resource rejects bool", "product_catalog", true, false},
		{"nil always fits", "limit", nil, true},
		{"unknown key", "whatever", 3.14, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsValidPair(tt.key, tt.value); got != tt.want {
				t.Errorf("IsValidPair(%q, %v) = %v, want %v", tt.key, tt.value, got, tt.want)
			}
		})
	}
}

func TestChecker_Keys(t *testing.T) {
	c := newPageChecker()

	if !c.IsValidKey("caption") || c.IsValidKey("nope") {
		t.Error("IsValidKey() mismatch")
	}
	if got := c.Type("uid"); got != "list<string>" {
		t.Errorf("Type(uid) = %q", got)
	}
	if !c.IsPrimitive("datetime") || !c.IsPrimitive("date_preset_enum") || c.IsPrimitive("ProductCatalog") {
		t.Error("IsPrimitive() mismatch")
	}
	if !c.IsFileParam("source") || !c.IsFileParam("filename") || c.IsFileParam("caption") {
		t.Error("IsFileParam() mismatch")
	}
}

func TestEmpty(t *testing.T) {
	c := Empty()
	if !c.IsValidPair("anything", struct{}{}) {
		t.Error("empty checker should accept every pair")
	}
	if c.IsValidKey("anything") {
		t.Error("empty checker has no declared keys")
	}
}

func TestChecker_TypedValue(t *testing.T) {
	c := newPageChecker()

	tests := []struct {
		key     string
		text    string
		want    any
		wantErr bool
	}{
		{"limit", "25", int64(25), false},
		{"limit", "abc", nil, true},
		{"product_count", "7", uint64(7), false},
		{"bid", "1.5", 1.5, false},
		{"no_story", "true", true, false},
		{"caption", "hi there", "hi there", false},
		{"uid", "1, 2", []any{"1", "2"}, false},
		{"ids", "1,2", []any{int64(1), int64(2)}, false},
		{"ids", `[1,2]`, []any{json.Number("1"), json.Number("2")}, false},
		{"ids", `[1,"x"]`, nil, true},
		{"bids", `[1.5, 2]`, []any{json.Number("1.5"), json.Number("2")}, false},
		{"bids", "1.5,2", []any{1.5, float64(2)}, false},
		{"bids", `[1.5, "x"]`, nil, true},
		{"spec", `{"a":1}`, map[string]any{"a": float64(1)}, false},
		{"spec", `nope`, nil, true},
		{"date_preset", "today", "today", false},
		{"date_preset", "never", nil, true},
		{"fields", "feed,bogus", nil, true},
		{"undeclared", "x", "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.text, func(t *testing.T) {
			got, err := c.TypedValue(tt.key, tt.text)
			if (err != nil) != tt.wantErr {
				t.Fatalf("TypedValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("TypedValue() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
