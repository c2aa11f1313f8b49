package graph

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/Sternrassler/graph-business-client/pkg/client"
)

// Object holds the field data of one graph resource and the changes made
// to it since it was loaded.
type Object struct {
	schema   *Schema
	api      API
	parentID string
	data     map[string]any
	changes  map[string]any
}

// NewObject creates an object of the given schema. id and parentID may be
// empty.
func NewObject(schema *Schema, id, parentID string, api API) *Object {
	if schema == nil {
		schema = genericSchema
	}
	o := &Object{
		schema:   schema,
		api:      api,
		parentID: parentID,
		data:     map[string]any{},
		changes:  map[string]any{},
	}
	if id != "" {
		o.data["id"] = id
	}
	return o
}

// Schema returns the object's schema.
func (o *Object) Schema() *Schema { return o.schema }

// API returns the API the object is bound to, or nil.
func (o *Object) API() API { return o.api }

// SetAPI binds the object to api.
func (o *Object) SetAPI(api API) { o.api = api }

// APIAssured returns the bound API or an ErrBadObject error.
func (o *Object) APIAssured() (API, error) {
	if o.api == nil {
		return nil, fmt.Errorf("%w: %s does not yet have an associated api object", client.ErrBadObject, o.schema.Name)
	}
	return o.api, nil
}

// ParentID returns the ID of the object's parent, if known.
func (o *Object) ParentID() string { return o.parentID }

// ID returns the "id" field as a string.
func (o *Object) ID() string {
	return o.GetString("id")
}

// AssureID returns an ErrBadObject error when the object has no ID.
func (o *Object) AssureID() error {
	if o.ID() == "" {
		return fmt.Errorf("%w: %s object needs an id for this operation", client.ErrBadObject, o.schema.Name)
	}
	return nil
}

// Get returns a field value.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.data[key]
	return v, ok
}

// GetString returns a string or numeric field formatted as a string.
func (o *Object) GetString(key string) string {
	switch v := o.data[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// GetObject returns a nested object field.
func (o *Object) GetObject(key string) (*Object, bool) {
	v, ok := o.data[key].(*Object)
	return v, ok
}

// Set assigns a field value and records it as a change when it differs
// from the current value.
func (o *Object) Set(key string, value any) *Object {
	if current, ok := o.data[key]; !ok || !reflect.DeepEqual(current, value) {
		o.changes[key] = value
	}
	o.data[key] = value
	return o
}

// Delete removes a field and any pending change to it.
func (o *Object) Delete(key string) {
	delete(o.data, key)
	delete(o.changes, key)
}

// SetData loads data received from the API. Fields typed with a registered
// schema name, or a list of one, become nested objects. Loaded fields are
// not recorded as changes.
func (o *Object) SetData(data map[string]any) *Object {
	for key, value := range data {
		o.data[key] = decodeTyped(o.schema.FieldTypes[key], value, o.api)
		delete(o.changes, key)
	}
	return o
}

// ClearHistory forgets all recorded changes.
func (o *Object) ClearHistory() {
	o.changes = map[string]any{}
}

// Changes returns a copy of the recorded changes.
func (o *Object) Changes() map[string]any {
	out := make(map[string]any, len(o.changes))
	for k, v := range o.changes {
		out[k] = v
	}
	return out
}

// Keys returns the field names present on the object, sorted.
func (o *Object) Keys() []string {
	keys := make([]string, 0, len(o.data))
	for k := range o.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExportAllData returns all field data with nested objects exported and
// nil values dropped.
func (o *Object) ExportAllData() map[string]any {
	return exportValue(o.data).(map[string]any)
}

// ExportChangedData returns only the recorded changes, exported.
func (o *Object) ExportChangedData() map[string]any {
	return exportValue(o.changes).(map[string]any)
}

// ExportData is an alias for ExportChangedData.
func (o *Object) ExportData() map[string]any {
	return o.ExportChangedData()
}

// MarshalJSON encodes the exported field data.
func (o *Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.ExportAllData())
}

// String renders the object as "<Name> " followed by indented JSON.
func (o *Object) String() string {
	body, err := json.MarshalIndent(o.ExportAllData(), "", "    ")
	if err != nil {
		return fmt.Sprintf("<%s> %v", o.schema.Name, err)
	}
	return fmt.Sprintf("<%s> %s", o.schema.Name, body)
}

// Request builds a request on this object's node. The request fails on
// execution when the object has no ID.
func (o *Object) Request(method, endpoint string, opts ...Option) *Request {
	if err := o.AssureID(); err != nil {
		r := NewRequest(o.api, "", method, endpoint, opts...)
		r.err = err
		return r
	}
	return NewRequest(o.api, o.ID(), method, endpoint, opts...)
}

func exportValue(value any) any {
	switch v := value.(type) {
	case *Object:
		return v.ExportAllData()
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			if item == nil {
				continue
			}
			out[k] = exportValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = exportValue(item)
		}
		return out
	case []*Object:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item.ExportAllData()
		}
		return out
	default:
		return value
	}
}

// decodeTyped turns JSON values of resource-typed fields into objects.
func decodeTyped(typ string, value any, api API) any {
	if inner, ok := strings.CutPrefix(typ, "list<"); ok && strings.HasSuffix(inner, ">") {
		items, ok := value.([]any)
		if !ok {
			return value
		}
		inner = strings.TrimSuffix(inner, ">")
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = decodeTyped(inner, item, api)
		}
		return out
	}
	m, ok := value.(map[string]any)
	if !ok {
		return value
	}
	schema, ok := Lookup(typ)
	if !ok {
		return value
	}
	return NewObject(schema, "", "", api).SetData(m)
}
