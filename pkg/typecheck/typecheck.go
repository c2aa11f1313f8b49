// Package typecheck validates request parameters against the declared
// parameter types of a graph endpoint.
//
// Types are written the way the graph reference documents them:
//
//	string, int, unsigned int, bool, float, datetime, file,
//	Object, map, map<K, V>, list, list<T>,
//	enum names declared in the enum table (e.g. "with_enum"),
//	resource names (e.g. "ProductCatalog").
//
// Keys without a declared type are always valid.
package typecheck

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var primitiveTypes = map[string]bool{
	"string":       true,
	"int":          true,
	"unsigned int": true,
	"bool":         true,
	"float":        true,
	"datetime":     true,
	"Object":       true,
}

// Exportable is implemented by graph objects that can be sent as parameters.
type Exportable interface {
	ExportAllData() map[string]any
}

// Checker validates parameter values for one endpoint.
type Checker struct {
	types map[string]string
	enums map[string]map[string]bool
}

// New creates a Checker from parameter types and enum value tables.
func New(paramTypes map[string]string, enums map[string][]string) *Checker {
	c := &Checker{
		types: make(map[string]string, len(paramTypes)),
		enums: make(map[string]map[string]bool, len(enums)),
	}
	for k, v := range paramTypes {
		c.types[k] = v
	}
	for name, values := range enums {
		set := make(map[string]bool, len(values))
		for _, v := range values {
			set[v] = true
		}
		c.enums[name] = set
	}
	return c
}

// Empty returns a checker that accepts every parameter.
func Empty() *Checker {
	return New(nil, nil)
}

// IsValidKey reports whether the key has a declared type.
func (c *Checker) IsValidKey(key string) bool {
	_, ok := c.types[key]
	return ok
}

// Type returns the declared type of key, or "".
func (c *Checker) Type(key string) string {
	return c.types[key]
}

// IsEnum reports whether typ names an enum table.
func (c *Checker) IsEnum(typ string) bool {
	_, ok := c.enums[typ]
	return ok
}

// IsPrimitive reports whether typ is a primitive or an enum.
func (c *Checker) IsPrimitive(typ string) bool {
	return primitiveTypes[typ] || c.IsEnum(typ)
}

// IsFileParam reports whether key carries a file upload.
func (c *Checker) IsFileParam(key string) bool {
	return key == "filename" || c.types[key] == "file"
}

// IsValidPair reports whether value fits the declared type of key.
func (c *Checker) IsValidPair(key string, value any) bool {
	typ, ok := c.types[key]
	if !ok {
		return true
	}
	return c.IsType(typ, value)
}

// IsType reports whether value fits typ. A nil value fits every type.
func (c *Checker) IsType(typ string, value any) bool {
	if value == nil {
		return true
	}
	typ = strings.TrimSpace(typ)
	rv := reflect.ValueOf(value)

	switch typ {
	case "string":
		return rv.Kind() == reflect.String
	case "int":
		return isInteger(value, false)
	case "unsigned int":
		return isInteger(value, true)
	case "float":
		if n, ok := value.(json.Number); ok {
			_, err := n.Float64()
			return err == nil
		}
		return isInteger(value, false) || rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64
	case "bool":
		return rv.Kind() == reflect.Bool
	case "datetime":
		if _, ok := value.(time.Time); ok {
			return true
		}
		return rv.Kind() == reflect.String || isInteger(value, false)
	case "file":
		return rv.Kind() == reflect.String
	case "Object":
		if _, ok := value.(Exportable); ok {
			return true
		}
		return isMapLike(rv)
	case "list":
		return isList(rv)
	case "map":
		return rv.Kind() == reflect.Map
	}

	if inner, ok := strings.CutPrefix(typ, "list<"); ok && strings.HasSuffix(inner, ">") {
		inner = strings.TrimSuffix(inner, ">")
		if !isList(rv) {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if !c.IsType(inner, rv.Index(i).Interface()) {
				return false
			}
		}
		return true
	}

	if strings.HasPrefix(typ, "map<") && strings.HasSuffix(typ, ">") {
		return rv.Kind() == reflect.Map
	}

	if set, ok := c.enums[typ]; ok {
		if rv.Kind() != reflect.String {
			return false
		}
		return set[rv.String()]
	}

	if isResourceName(typ) {
		if _, ok := value.(Exportable); ok {
			return true
		}
		// resources may be referenced by ID
		return isMapLike(rv) || rv.Kind() == reflect.String || isInteger(value, true)
	}

	return true
}

// TypedValue converts textual input into the declared type of key. Lists
// accept a JSON array or comma separated values; maps and objects accept
// JSON. Undeclared keys stay strings.
func (c *Checker) TypedValue(key, text string) (any, error) {
	typ, ok := c.types[key]
	if !ok {
		return text, nil
	}
	value, err := c.convert(typ, text)
	if err != nil {
		return nil, fmt.Errorf("param %q (%s): %w", key, typ, err)
	}
	return value, nil
}

func (c *Checker) convert(typ, text string) (any, error) {
	switch typ {
	case "int":
		return strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	case "unsigned int":
		return strconv.ParseUint(strings.TrimSpace(text), 10, 64)
	case "float":
		return strconv.ParseFloat(strings.TrimSpace(text), 64)
	case "bool":
		return strconv.ParseBool(strings.TrimSpace(text))
	case "string", "datetime", "file":
		return text, nil
	case "Object", "map":
		var m map[string]any
		if err := json.Unmarshal([]byte(text), &m); err != nil {
			return nil, fmt.Errorf("expected a JSON object: %w", err)
		}
		return m, nil
	}

	if strings.HasPrefix(typ, "map<") {
		return c.convert("map", text)
	}

	if typ == "list" || strings.HasPrefix(typ, "list<") {
		inner := strings.TrimSuffix(strings.TrimPrefix(typ, "list<"), ">")
		if typ == "list" {
			inner = "string"
		}
		trimmed := strings.TrimSpace(text)
		if strings.HasPrefix(trimmed, "[") {
			var items []any
			dec := json.NewDecoder(strings.NewReader(trimmed))
			dec.UseNumber()
			if err := dec.Decode(&items); err != nil {
				return nil, fmt.Errorf("expected a JSON array: %w", err)
			}
			if !c.IsType(typ, items) && typ != "list" {
				return nil, fmt.Errorf("list items do not match %s", inner)
			}
			return items, nil
		}
		parts := strings.Split(trimmed, ",")
		items := make([]any, 0, len(parts))
		for _, p := range parts {
			item, err := c.convert(inner, strings.TrimSpace(p))
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	}

	if set, ok := c.enums[typ]; ok {
		if !set[text] {
			return nil, fmt.Errorf("%q is not a valid value", text)
		}
		return text, nil
	}

	return text, nil
}

func isInteger(value any, unsigned bool) bool {
	if n, ok := value.(json.Number); ok {
		i, err := n.Int64()
		return err == nil && (!unsigned || i >= 0)
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return !unsigned || rv.Int() >= 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isList(rv reflect.Value) bool {
	return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
}

func isMapLike(rv reflect.Value) bool {
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Map || rv.Kind() == reflect.Struct
}

func isResourceName(typ string) bool {
	if typ == "" {
		return false
	}
	for i, r := range typ {
		if i == 0 && !unicode.IsUpper(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
