package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Params are the parameters of a graph call. Values may be strings, numbers,
// booleans, slices, maps or anything encoding/json can marshal.
type Params map[string]any

// Clone returns a shallow copy of the params.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// File is a local file attached to a call under a form field name.
type File struct {
	Path string
}

// Call describes a single outbound graph call.
type Call struct {
	// Method is the HTTP method (GET, POST, DELETE).
	Method string

	// Path segments joined below the versioned base URL, e.g. {"123", "feed"}.
	// An empty path addresses the version root (used by batch calls).
	Path []string

	// URL overrides Path with an absolute URL.
	URL string

	Params  Params
	Headers http.Header

	// Files maps form field names to local files.
	Files map[string]File

	// APIVersion overrides the client's configured version.
	APIVersion string
}

// CallInfo is the description of a call kept on responses and errors.
type CallInfo struct {
	Method string            `json:"method"`
	Path   string            `json:"path"`
	Params map[string]string `json:"params,omitempty"`
}

// EncodeParams encodes top-level params into their wire form. Strings pass
// through, numbers are formatted as decimals and booleans, maps, slices and
// objects become compact JSON with sorted keys. Nil values are dropped.
func EncodeParams(params Params) (map[string]string, error) {
	out := make(map[string]string, len(params))
	for key, value := range params {
		if value == nil {
			continue
		}
		encoded, err := EncodeValue(value)
		if err != nil {
			return nil, fmt.Errorf("encode param %q: %w", key, err)
		}
		out[key] = encoded
	}
	return out, nil
}

// EncodeValue encodes a single top-level parameter value.
func EncodeValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case json.Number:
		return v.String(), nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	case json.Marshaler:
		return marshalCompact(v)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	default:
		return marshalCompact(value)
	}
}

// marshalCompact marshals without HTML escaping and without a trailing newline.
func marshalCompact(value any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
