package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"

	"github.com/Sternrassler/graph-business-client/pkg/client"
)

// Cursor iterates over a paginated edge, loading pages on demand.
//
//	for cursor.Next(ctx) {
//		obj := cursor.Object()
//	}
//	if err := cursor.Err(); err != nil { ... }
type Cursor struct {
	api        API
	target     *Schema
	nodeID     string
	endpoint   string
	params     client.Params
	parser     *ObjectParser
	apiVersion string

	includeSummary bool
	finished       bool
	queue          []*Object
	headers        http.Header
	total          *int64
	summary        map[string]any

	current *Object
	err     error
}

// NewCursor creates a cursor over nodeID/endpoint returning objects of
// target. An empty endpoint falls back to the target's endpoint. Nothing is
// fetched until Load or Next.
func NewCursor(api API, nodeID, endpoint string, target *Schema, opts ...Option) *Cursor {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if endpoint == "" && target != nil {
		endpoint = target.Endpoint
	}

	params := client.Params{}
	for k, v := range o.params {
		params[k] = v
	}
	params = AssignFieldsToParams(target, o.fields, params)

	parser := o.parser
	if parser == nil {
		schema := target
		if schema == nil {
			schema = genericSchema
		}
		parser = targetParser(api, schema)
	}

	_, hasDefaultSummary := params["default_summary"]
	return &Cursor{
		api:            api,
		target:         target,
		nodeID:         nodeID,
		endpoint:       endpoint,
		params:         params,
		parser:         parser,
		apiVersion:     o.apiVersion,
		includeSummary: !o.noSummary || hasDefaultSummary,
	}
}

// Params returns the params of the next page request.
func (c *Cursor) Params() client.Params {
	return c.params.Clone()
}

// Load fetches the next page into the queue, replacing its contents. It
// reports whether the page held any objects.
func (c *Cursor) Load(ctx context.Context) (bool, error) {
	if c.finished {
		return false, nil
	}
	if c.api == nil {
		return false, fmt.Errorf("%w: cursor is not bound to an api", client.ErrBadObject)
	}

	if c.includeSummary {
		_, hasDefault := c.params["default_summary"]
		_, hasSummary := c.params["summary"]
		if !hasDefault && !hasSummary {
			c.params["summary"] = true
		}
	}

	resp, err := c.api.Call(ctx, client.Call{
		Method:     http.MethodGet,
		Path:       []string{c.nodeID, c.endpoint},
		Params:     c.params,
		APIVersion: c.apiVersion,
	})
	if err != nil {
		return false, err
	}
	c.headers = resp.Headers()

	payload, ok := resp.JSON().(map[string]any)
	if !ok {
		return false, fmt.Errorf("%s/%s: expected an object page, got %s", c.nodeID, c.endpoint, resp.Body())
	}

	if after, ok := nextCursor(payload); ok {
		c.params["after"] = after
	} else {
		c.finished = true
	}

	if summary, ok := payload["summary"].(map[string]any); ok && c.includeSummary {
		c.summary = summary
		if n, ok := summary["total_count"].(json.Number); ok {
			if total, err := n.Int64(); err == nil {
				c.total = &total
			}
		}
	}

	objects, err := c.BuildObjects(payload)
	if err != nil {
		return false, err
	}
	c.queue = objects
	return len(c.queue) > 0, nil
}

// nextCursor returns paging.cursors.after when paging.next is present. The
// after cursor is returned even on the last page, so next decides.
func nextCursor(payload map[string]any) (string, bool) {
	paging, ok := payload["paging"].(map[string]any)
	if !ok {
		return "", false
	}
	if _, ok := paging["next"]; !ok {
		return "", false
	}
	cursors, ok := paging["cursors"].(map[string]any)
	if !ok {
		return "", false
	}
	after, ok := cursors["after"].(string)
	return after, ok
}

// BuildObjects parses a page payload into objects.
func (c *Cursor) BuildObjects(payload map[string]any) ([]*Object, error) {
	return c.parser.ParseMultiple(payload)
}

// Next advances to the next object, loading pages as needed.
func (c *Cursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if len(c.queue) == 0 {
		loaded, err := c.Load(ctx)
		if err != nil {
			c.err = err
			return false
		}
		if !loaded {
			return false
		}
	}
	c.current = c.queue[0]
	c.queue = c.queue[1:]
	return true
}

// Object returns the object Next advanced to.
func (c *Cursor) Object() *Object { return c.current }

// Err returns the error that stopped iteration.
func (c *Cursor) Err() error { return c.err }

// All drains the cursor.
func (c *Cursor) All(ctx context.Context) ([]*Object, error) {
	var out []*Object
	for c.Next(ctx) {
		out = append(out, c.Object())
	}
	return out, c.Err()
}

// Objects iterates over the remaining objects. A load error is yielded once
// and ends the iteration.
func (c *Cursor) Objects(ctx context.Context) iter.Seq2[*Object, error] {
	return func(yield func(*Object, error) bool) {
		for c.Next(ctx) {
			if !yield(c.Object(), nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Len returns the number of objects queued from the current page.
func (c *Cursor) Len() int { return len(c.queue) }

// Index returns the i-th queued object.
func (c *Cursor) Index(i int) *Object { return c.queue[i] }

// Finished reports whether the last page has been loaded.
func (c *Cursor) Finished() bool { return c.finished }

// Headers returns the headers of the last page response.
func (c *Cursor) Headers() http.Header { return c.headers }

// Total returns summary.total_count.
func (c *Cursor) Total() (int64, error) {
	if c.total == nil {
		return 0, fmt.Errorf("%w: couldn't retrieve the object total count for that type of request", client.ErrUnavailableProperty)
	}
	return *c.total, nil
}

// Summary renders the page summary as "<Summary> " followed by indented JSON.
func (c *Cursor) Summary() (string, error) {
	if c.summary == nil {
		return "", fmt.Errorf("%w: couldn't retrieve the object summary for that type of request", client.ErrUnavailableProperty)
	}
	body, err := json.MarshalIndent(c.summary, "", "    ")
	if err != nil {
		return "", err
	}
	return "<Summary> " + string(body), nil
}

// SummaryData returns the raw page summary, or nil.
func (c *Cursor) SummaryData() map[string]any { return c.summary }
