package graph

import (
	"fmt"
	"sort"

	"github.com/Sternrassler/graph-business-client/pkg/client"
)

// ParseFunc builds an object from a decoded payload.
type ParseFunc func(payload map[string]any, api API) (*Object, error)

// ParserConfig selects how an ObjectParser builds objects. Custom wins over
// Reuse, which wins over Target.
type ParserConfig struct {
	Target *Schema
	Reuse  *Object
	Custom ParseFunc
}

// ObjectParser turns response payloads into objects.
type ObjectParser struct {
	api    API
	target *Schema
	reuse  *Object
	custom ParseFunc
}

// NewObjectParser creates a parser. At least one of cfg's fields is required.
func NewObjectParser(api API, cfg ParserConfig) (*ObjectParser, error) {
	if cfg.Target == nil && cfg.Reuse == nil && cfg.Custom == nil {
		return nil, fmt.Errorf("%w: must specify either target class calling object or custom parse method for parser", client.ErrBadObject)
	}
	return &ObjectParser{
		api:    api,
		target: cfg.Target,
		reuse:  cfg.Reuse,
		custom: cfg.Custom,
	}, nil
}

// ReuseParser returns a parser that loads responses into obj.
func ReuseParser(obj *Object) *ObjectParser {
	return &ObjectParser{api: obj.API(), reuse: obj}
}

// targetParser cannot fail for a non-nil schema.
func targetParser(api API, target *Schema) *ObjectParser {
	return &ObjectParser{api: api, target: target}
}

// ParseSingle builds one object. An object under "data" is unwrapped, and
// an "images" map is reduced to its single entry.
func (p *ObjectParser) ParseSingle(payload map[string]any) (*Object, error) {
	if p.custom != nil {
		return p.custom(payload, p.api)
	}

	data := payload
	if inner, ok := payload["data"].(map[string]any); ok {
		data = inner
	} else if images, ok := payload["images"].(map[string]any); ok && len(images) > 0 {
		keys := make([]string, 0, len(images))
		for k := range images {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if image, ok := images[keys[0]].(map[string]any); ok {
			data = image
		}
	}

	switch {
	case p.reuse != nil:
		return p.reuse.SetData(data), nil
	case p.target != nil:
		return NewObject(p.target, "", "", p.api).SetData(data), nil
	default:
		return nil, fmt.Errorf("%w: must specify either target class calling object or custom parse method for parser", client.ErrBadObject)
	}
}

// ParseMultiple builds one object per entry of a "data" array, or a single
// object from the payload itself.
func (p *ObjectParser) ParseMultiple(payload map[string]any) ([]*Object, error) {
	items, ok := payload["data"].([]any)
	if !ok {
		obj, err := p.ParseSingle(payload)
		if err != nil {
			return nil, err
		}
		return []*Object{obj}, nil
	}

	out := make([]*Object, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("data[%d]: expected an object, got %T", i, item)
		}
		obj, err := p.ParseSingle(m)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}
