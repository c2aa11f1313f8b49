package graph

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Sternrassler/graph-business-client/pkg/client"
	"github.com/google/go-cmp/cmp"
)

func TestObject_SetRecordsChanges(t *testing.T) {
	obj := NewObject(testProductSchema, "1", "act_9", nil)
	obj.SetData(map[string]any{"name": "shoe", "price": json.Number("10")})

	if got := obj.Changes(); len(got) != 0 {
		t.Errorf("loaded data recorded as changes: %v", got)
	}

	obj.Set("name", "shoe")
	if got := obj.Changes(); len(got) != 0 {
		t.Errorf("setting the same value recorded a change: %v", got)
	}

	obj.Set("name", "boot")
	obj.Set("tags", []string{"a"})
	want := map[string]any{"name": "boot", "tags": []string{"a"}}
	if diff := cmp.Diff(want, obj.Changes()); diff != "" {
		t.Errorf("Changes() mismatch (-want +got):\n%s", diff)
	}

	obj.Delete("tags")
	if _, ok := obj.Get("tags"); ok {
		t.Error("tags still present after Delete")
	}
	if diff := cmp.Diff(map[string]any{"name": "boot"}, obj.ExportChangedData()); diff != "" {
		t.Errorf("ExportChangedData() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(obj.ExportChangedData(), obj.ExportData()); diff != "" {
		t.Errorf("ExportData() differs from ExportChangedData():\n%s", diff)
	}

	obj.ClearHistory()
	if got := obj.Changes(); len(got) != 0 {
		t.Errorf("Changes() after ClearHistory = %v", got)
	}
	if obj.ParentID() != "act_9" || obj.ID() != "1" {
		t.Errorf("ParentID(), ID() = %q, %q, want act_9, 1", obj.ParentID(), obj.ID())
	}
}

func TestObject_SetDataNestedTypes(t *testing.T) {
	obj := NewObject(testProductSchema, "", "", nil)
	obj.SetData(map[string]any{
		"id":      json.Number("77"),
		"catalog": map[string]any{"id": "c1", "name": "main"},
		"catalogs": []any{
			map[string]any{"id": "c2"},
			map[string]any{"id": "c3"},
		},
		"tags":  []any{"x", "y"},
		"extra": map[string]any{"k": "v"},
	})

	if obj.ID() != "77" {
		t.Errorf("ID() = %q, want 77", obj.ID())
	}

	catalog, ok := obj.GetObject("catalog")
	if !ok {
		t.Fatal("catalog should be parsed into an object")
	}
	if name := catalog.Schema().Name; name != "graphTestCatalog" {
		t.Errorf("catalog schema = %q, want graphTestCatalog", name)
	}
	if got := catalog.GetString("name"); got != "main" {
		t.Errorf("catalog name = %q, want main", got)
	}

	list, _ := obj.Get("catalogs")
	items := list.([]any)
	if len(items) != 2 {
		t.Fatalf("catalogs has %d items, want 2", len(items))
	}
	if _, ok := items[0].(*Object); !ok {
		t.Errorf("catalogs[0] is %T, want *Object", items[0])
	}

	extra, _ := obj.Get("extra")
	if _, ok := extra.(map[string]any); !ok {
		t.Errorf("untyped field extra is %T, want a plain map", extra)
	}

	exported := obj.ExportAllData()
	if diff := cmp.Diff(map[string]any{"id": "c1", "name": "main"}, exported["catalog"]); diff != "" {
		t.Errorf("exported catalog mismatch (-want +got):\n%s", diff)
	}
	wantList := []any{map[string]any{"id": "c2"}, map[string]any{"id": "c3"}}
	if diff := cmp.Diff(wantList, exported["catalogs"]); diff != "" {
		t.Errorf("exported catalogs mismatch (-want +got):\n%s", diff)
	}
}

func TestObject_ExportDropsNil(t *testing.T) {
	obj := NewObject(testProductSchema, "1", "", nil)
	obj.Set("name", nil)
	obj.Set("spec", map[string]any{"a": nil, "b": 1})

	want := map[string]any{"id": "1", "spec": map[string]any{"b": 1}}
	if diff := cmp.Diff(want, obj.ExportAllData()); diff != "" {
		t.Errorf("ExportAllData() mismatch (-want +got):\n%s", diff)
	}
}

func TestObject_StringAndJSON(t *testing.T) {
	obj := NewObject(testCatalogSchema, "5", "", nil)
	obj.Set("name", "x")

	wantString := "<graphTestCatalog> {\n    \"id\": \"5\",\n    \"name\": \"x\"\n}"
	if got := obj.String(); got != wantString {
		t.Errorf("String() = %q, want %q", got, wantString)
	}

	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if diff := cmp.Diff(map[string]any{"id": "5", "name": "x"}, decoded); diff != "" {
		t.Errorf("MarshalJSON() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"id", "name"}, obj.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestObject_AssureID(t *testing.T) {
	obj := NewObject(testCatalogSchema, "", "", nil)

	err := obj.AssureID()
	if !errors.Is(err, client.ErrBadObject) {
		t.Fatalf("AssureID() error = %v, want ErrBadObject", err)
	}
	if !strings.Contains(err.Error(), "graphTestCatalog object needs an id for this operation") {
		t.Errorf("AssureID() error = %q", err)
	}

	if _, err := obj.APIAssured(); !errors.Is(err, client.ErrBadObject) {
		t.Errorf("APIAssured() error = %v, want ErrBadObject", err)
	}

	req := obj.Request("GET", "/")
	if !errors.Is(req.Err(), client.ErrBadObject) || !strings.Contains(req.Err().Error(), "needs an id") {
		t.Errorf("Request().Err() = %v, want ErrBadObject about the id", req.Err())
	}
}

func TestAssignFieldsToParams(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
		want   client.Params
	}{
		{name: "nil uses defaults", fields: nil, want: client.Params{"fields": "id,name"}},
		{name: "explicit fields", fields: []string{"price"}, want: client.Params{"fields": "price"}},
		{name: "empty list sends nothing", fields: []string{}, want: client.Params{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssignFieldsToParams(testProductSchema, tt.fields, nil)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("AssignFieldsToParams() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	s, ok := Lookup("graphTestProduct")
	if !ok || s != testProductSchema {
		t.Fatalf("Lookup(graphTestProduct) = %v, %v", s, ok)
	}
	if _, ok := Lookup("doesNotExist"); ok {
		t.Error("Lookup(doesNotExist) found a schema")
	}

	if !s.HasField("price") || s.HasField("weight") {
		t.Error("HasField() disagrees with the declared fields")
	}
	want := []string{"catalog", "catalogs", "id", "name", "price", "tags"}
	if diff := cmp.Diff(want, s.Fields()); diff != "" {
		t.Errorf("Fields() mismatch (-want +got):\n%s", diff)
	}
	if !s.Checker().IsValidPair("price", 3) || s.Checker().IsValidPair("price", "three") {
		t.Error("Checker() does not type price as a number")
	}
}
