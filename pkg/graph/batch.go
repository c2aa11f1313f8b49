package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/Sternrassler/graph-business-client/pkg/client"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for batch execution.
var (
	batchExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_batch_executions_total",
		Help: "Total batch calls by result",
	}, []string{"result"})

	batchItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_batch_items_total",
		Help: "Total batch items by outcome (success, failure, transient)",
	}, []string{"outcome"})
)

// nullItemBody stands in for a batch item the API answered with null.
const nullItemBody = `{"error":{"message":"Batch item returned no result. Please retry your request later.","type":"BatchException","code":1,"is_transient":true}}`

// Callbacks receive the outcome of a batch item. Any of them may be nil.
// Transient failures are queued for retry after Transient is called.
type Callbacks struct {
	Success   func(*client.Response)
	Failure   func(*client.Response)
	Transient func(*client.Response)
}

// Entry is one call added to a batch.
type Entry struct {
	Method string

	// Path segments joined with "/". RelativeURL is used when Path is empty.
	Path        []string
	RelativeURL string

	Params  client.Params
	Headers map[string]string
	Files   map[string]client.File

	Callbacks Callbacks

	// Request is the request the entry was built from, if any.
	Request *Request
}

// BatchCall is the wire form of one batch entry.
type BatchCall struct {
	Method        string        `json:"method"`
	RelativeURL   string        `json:"relative_url"`
	Body          string        `json:"body,omitempty"`
	AttachedFiles string        `json:"attached_files,omitempty"`
	Headers       []BatchHeader `json:"headers,omitempty"`
}

// BatchHeader is a header of a batch call or batch result.
type BatchHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type batchItem struct {
	call      BatchCall
	files     map[string]client.File
	callbacks Callbacks
	request   *Request

	// last is the most recent transient response, reported to Failure when
	// retries run out.
	last *client.Response
}

// Batch aggregates calls into a single multi-call. A Batch is not safe for
// concurrent use.
type Batch struct {
	api   API
	id    string
	items []batchItem
}

// NewBatch creates an empty batch executed through api.
func NewBatch(api API) *Batch {
	return &Batch{api: api, id: uuid.NewString()}
}

// ID identifies the batch in logs.
func (b *Batch) ID() string { return b.id }

// Len returns the number of queued calls.
func (b *Batch) Len() int { return len(b.items) }

// Calls returns the wire form of the queued calls.
func (b *Batch) Calls() []BatchCall {
	calls := make([]BatchCall, len(b.items))
	for i, item := range b.items {
		calls[i] = item.call
	}
	return calls
}

// Add queues a call. Params are encoded the same way top-level call params
// are; GET calls carry them in relative_url, others in body.
func (b *Batch) Add(e Entry) error {
	if e.Request != nil && e.Request.api == nil && b.api != nil && b.api.StrictMode() {
		return fmt.Errorf("%w: request is not bound to an api", client.ErrBadObject)
	}

	method := strings.ToUpper(e.Method)
	if method == "" {
		method = http.MethodGet
	}
	call := BatchCall{Method: method, RelativeURL: e.RelativeURL}
	if len(e.Path) > 0 {
		call.RelativeURL = strings.Join(e.Path, "/")
	}

	if len(e.Params) > 0 {
		encoded, err := client.EncodeParams(e.Params)
		if err != nil {
			return fmt.Errorf("%w: %v", client.ErrBadParameter, err)
		}
		keys := make([]string, 0, len(encoded))
		for k := range encoded {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			quoted, err := QuoteWithEncoding(encoded[k])
			if err != nil {
				return fmt.Errorf("%w: %v", client.ErrBadParameter, err)
			}
			pairs = append(pairs, k+"="+quoted)
		}
		if method == http.MethodGet {
			call.RelativeURL += "?" + strings.Join(pairs, "&")
		} else {
			call.Body = strings.Join(pairs, "&")
		}
	}

	if len(e.Files) > 0 {
		names := make([]string, 0, len(e.Files))
		for name := range e.Files {
			names = append(names, name)
		}
		sort.Strings(names)
		call.AttachedFiles = strings.Join(names, ",")
	}

	if len(e.Headers) > 0 {
		names := make([]string, 0, len(e.Headers))
		for name := range e.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			call.Headers = append(call.Headers, BatchHeader{Name: name, Value: e.Headers[name]})
		}
	}

	b.items = append(b.items, batchItem{
		call:      call,
		files:     e.Files,
		callbacks: e.Callbacks,
		request:   e.Request,
	})
	return nil
}

// AddRequest queues a built request.
func (b *Batch) AddRequest(r *Request, callbacks Callbacks) error {
	if r.err != nil {
		return r.err
	}
	return b.Add(Entry{
		Method:    r.method,
		Path:      r.Path(),
		Params:    r.Params(),
		Files:     r.files,
		Callbacks: callbacks,
		Request:   r,
	})
}

// Execute sends the batch and dispatches each item result to its callbacks.
// It returns a batch of the items that failed transiently, or nil when
// there is nothing to retry. An empty batch is not sent.
func (b *Batch) Execute(ctx context.Context) (*Batch, error) {
	if len(b.items) == 0 {
		return nil, nil
	}
	if b.api == nil {
		return nil, fmt.Errorf("%w: batch is not bound to an api", client.ErrBadObject)
	}

	logger := log.With().Str("batch_id", b.id).Int("size", len(b.items)).Logger()

	files := map[string]client.File{}
	for _, item := range b.items {
		for name, f := range item.files {
			files[name] = f
		}
	}

	resp, err := b.api.Call(ctx, client.Call{
		Method: http.MethodPost,
		Params: client.Params{"batch": b.Calls()},
		Files:  files,
	})
	if err != nil {
		batchExecutionsTotal.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msg("Batch call failed")
		return nil, fmt.Errorf("execute batch %s: %w", b.id, err)
	}

	var results []json.RawMessage
	if err := resp.Decode(&results); err != nil {
		batchExecutionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode batch %s response: %w", b.id, err)
	}
	batchExecutionsTotal.WithLabelValues("ok").Inc()

	retry := &Batch{api: b.api, id: uuid.NewString()}
	var succeeded, failed int
	for i, item := range b.items {
		var raw json.RawMessage
		if i < len(results) {
			raw = results[i]
		}
		itemResp := itemResponse(raw, item.call)

		switch {
		case itemResp.IsSuccess():
			succeeded++
			batchItemsTotal.WithLabelValues("success").Inc()
			if item.callbacks.Success != nil {
				item.callbacks.Success(itemResp)
			}
		case itemResp.IsTransient():
			batchItemsTotal.WithLabelValues("transient").Inc()
			if item.callbacks.Transient != nil {
				item.callbacks.Transient(itemResp)
			}
			item.last = itemResp
			retry.items = append(retry.items, item)
		default:
			failed++
			batchItemsTotal.WithLabelValues("failure").Inc()
			if item.callbacks.Failure != nil {
				item.callbacks.Failure(itemResp)
			}
		}
	}

	logger.Debug().
		Int("succeeded", succeeded).
		Int("failed", failed).
		Int("retry", len(retry.items)).
		Msg("Batch executed")

	if len(retry.items) == 0 {
		return nil, nil
	}
	return retry, nil
}

// reportFailures hands each item's last transient response to its Failure
// callback.
func (b *Batch) reportFailures() {
	for _, item := range b.items {
		if item.callbacks.Failure != nil && item.last != nil {
			item.callbacks.Failure(item.last)
		}
	}
}

// itemResponse builds the response of one batch result. A null result
// becomes a transient failure.
func itemResponse(raw json.RawMessage, call BatchCall) *client.Response {
	info := client.CallInfo{Method: call.Method, Path: call.RelativeURL}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return client.NewResponse(http.StatusInternalServerError, nil, []byte(nullItemBody), info)
	}

	var result struct {
		Code    int             `json:"code"`
		Headers []BatchHeader   `json:"headers"`
		Body    json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return client.NewResponse(http.StatusInternalServerError, nil, []byte(nullItemBody), info)
	}

	headers := http.Header{}
	for _, h := range result.Headers {
		headers.Add(h.Name, h.Value)
	}

	// body is usually a JSON encoded string, sometimes an inline object
	body := []byte(result.Body)
	var s string
	if err := json.Unmarshal(result.Body, &s); err == nil {
		body = []byte(s)
	} else if bytes.Equal(bytes.TrimSpace(result.Body), []byte("null")) {
		body = nil
	}

	return client.NewResponse(result.Code, headers, body, info)
}
