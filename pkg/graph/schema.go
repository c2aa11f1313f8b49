// Package graph implements the generic object, request, batch and cursor
// harness shared by all graph resources.
package graph

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Sternrassler/graph-business-client/pkg/client"
	"github.com/Sternrassler/graph-business-client/pkg/typecheck"
)

// API performs graph calls. *client.Client implements it.
type API interface {
	Call(ctx context.Context, call client.Call) (*client.Response, error)
	StrictMode() bool
}

// Schema describes one resource type: its fields, their types and enums.
type Schema struct {
	Name string

	// Endpoint is the edge a collection of this type is read from when no
	// endpoint is given explicitly, e.g. "product_sets".
	Endpoint string

	FieldTypes map[string]string
	Enums      map[string][]string

	// DefaultReadFields are requested when a read names no fields.
	DefaultReadFields []string

	// Node is true for types addressable by their own ID.
	Node bool
}

// Checker returns a type checker for the schema's fields.
func (s *Schema) Checker() *typecheck.Checker {
	if s == nil {
		return typecheck.Empty()
	}
	return typecheck.New(s.FieldTypes, s.Enums)
}

// HasField reports whether name is a declared field.
func (s *Schema) HasField(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.FieldTypes[name]
	return ok
}

// Fields returns the declared field names in sorted order.
func (s *Schema) Fields() []string {
	names := make([]string, 0, len(s.FieldTypes))
	for name := range s.FieldTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var registry = struct {
	sync.RWMutex
	schemas map[string]*Schema
}{schemas: make(map[string]*Schema)}

// Register makes a schema known by name so fields typed with that name are
// parsed into objects. It returns s for use in var declarations.
func Register(s *Schema) *Schema {
	registry.Lock()
	defer registry.Unlock()
	registry.schemas[s.Name] = s
	return s
}

// Lookup returns the registered schema with the given name.
func Lookup(name string) (*Schema, bool) {
	registry.RLock()
	defer registry.RUnlock()
	s, ok := registry.schemas[name]
	return s, ok
}

// genericSchema is used for responses of calls without a declared target.
var genericSchema = &Schema{Name: "Object", Node: true}

// AssignFieldsToParams sets the fields param. Nil fields fall back to the
// schema's default read fields; an empty list sets nothing.
func AssignFieldsToParams(s *Schema, fields []string, params client.Params) client.Params {
	if params == nil {
		params = client.Params{}
	}
	if fields == nil && s != nil {
		fields = s.DefaultReadFields
	}
	if len(fields) > 0 {
		params["fields"] = strings.Join(fields, ",")
	}
	return params
}
