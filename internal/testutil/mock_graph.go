// Package testutil provides testing utilities for the graph client.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock graph endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request received by the mock.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values

	// Form holds url-encoded or multipart form values.
	Form url.Values

	// Files maps multipart field names to file names and content types.
	Files map[string]RecordedFile

	Header http.Header
}

// RecordedFile is an uploaded multipart file.
type RecordedFile struct {
	Filename    string
	ContentType string
	Size        int
}

// Param returns a parameter from the query string or the form.
func (r RecordedRequest) Param(key string) string {
	if v := r.Query.Get(key); v != "" {
		return v
	}
	return r.Form.Get(key)
}

// BatchItem is a decoded entry of a batch call.
type BatchItem struct {
	Method        string              `json:"method"`
	RelativeURL   string              `json:"relative_url"`
	Body          string              `json:"body,omitempty"`
	AttachedFiles string              `json:"attached_files,omitempty"`
	Headers       []map[string]string `json:"headers,omitempty"`
}

// BatchResponder produces the per-item results of a batch call. Returning a
// nil entry emits a JSON null for that item.
type BatchResponder func(items []BatchItem) []any

// MockGraph is a configurable mock graph server for testing.
type MockGraph struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	batch    BatchResponder
	requests []RecordedRequest

	// Tracking
	RequestCount     int
	ConditionalCount int
	BatchCount       int
}

// NewMockGraph creates a new mock graph server.
func NewMockGraph() *MockGraph {
	mock := &MockGraph{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorded := record(r)

		mock.mu.Lock()
		mock.RequestCount++
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		mock.requests = append(mock.requests, recorded)
		batch := mock.batch
		handler, exists := mock.handlers[r.Method+" "+r.URL.Path]
		if !exists {
			handler, exists = mock.handlers[r.URL.Path]
		}
		mock.mu.Unlock()

		if raw := recorded.Form.Get("batch"); raw != "" && batch != nil && r.Method == http.MethodPost {
			mock.mu.Lock()
			mock.BatchCount++
			mock.mu.Unlock()
			serveBatch(w, raw, batch)
			return
		}

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockGraph) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGraph) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockGraph) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.BatchCount = 0
	m.requests = nil
}

// SetHandler sets a custom handler for a path, optionally prefixed with a
// method ("POST /v21.0/123/feed").
func (m *MockGraph) SetHandler(route string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[route] = handler
}

// SetResponse configures a fixed response for a route.
func (m *MockGraph) SetResponse(route string, resp MockResponse) {
	m.SetHandler(route, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetSequence answers a route with the given responses in order, repeating the last one.
func (m *MockGraph) SetSequence(route string, responses ...MockResponse) {
	var (
		mu   sync.Mutex
		next int
	)
	m.SetHandler(route, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[min(next, len(responses)-1)]
		next++
		mu.Unlock()
		writeResponse(w, resp)
	})
}

// SetBatchResponder handles POST requests carrying a batch parameter.
func (m *MockGraph) SetBatchResponder(fn BatchResponder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batch = fn
}

// Requests returns a copy of all recorded requests.
func (m *MockGraph) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// LastRequest returns the most recent request.
func (m *MockGraph) LastRequest() RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return RecordedRequest{}
	}
	return m.requests[len(m.requests)-1]
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockGraph) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockGraph) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetBatchCount returns the number of batch calls served.
func (m *MockGraph) GetBatchCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.BatchCount
}

// defaultHandler answers any node read with its ID.
func (m *MockGraph) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	id := segments[len(segments)-1]
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"id":%q}`, id)
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func serveBatch(w http.ResponseWriter, raw string, fn BatchResponder) {
	var items []BatchItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		writeResponse(w, NewErrorResponse(http.StatusBadRequest, 100, "Invalid batch", false))
		return
	}
	results := fn(items)
	data, err := json.Marshal(results)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func record(r *http.Request) RecordedRequest {
	rec := RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Form:   url.Values{},
		Files:  map[string]RecordedFile{},
		Header: r.Header.Clone(),
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return rec
		}
		for k, v := range r.MultipartForm.Value {
			rec.Form[k] = v
		}
		for field, headers := range r.MultipartForm.File {
			rec.Files[field] = recordFile(headers[0])
		}
	case "application/x-www-form-urlencoded":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return rec
		}
		if values, err := url.ParseQuery(string(body)); err == nil {
			rec.Form = values
		}
	}
	return rec
}

func recordFile(h *multipart.FileHeader) RecordedFile {
	return RecordedFile{
		Filename:    h.Filename,
		ContentType: h.Header.Get("Content-Type"),
		Size:        int(h.Size),
	}
}

// NewJSONResponse creates a response with a JSON body.
func NewJSONResponse(status int, body string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json; charset=UTF-8"},
	}
}

// NewErrorResponse creates a graph error response.
func NewErrorResponse(status, code int, message string, transient bool) MockResponse {
	return NewJSONResponse(status, ErrorBody(code, message, transient))
}

// ErrorBody renders a graph error object.
func ErrorBody(code int, message string, transient bool) string {
	body, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"message":      message,
			"type":         "OAuthException",
			"code":         code,
			"is_transient": transient,
			"fbtrace_id":   "Atest",
		},
	})
	return string(body)
}

// NewUsageResponse creates a 200 response carrying an X-App-Usage header.
func NewUsageResponse(body string, callCount int) MockResponse {
	resp := NewJSONResponse(http.StatusOK, body)
	resp.Headers["X-App-Usage"] = fmt.Sprintf(`{"call_count":%d,"total_time":1,"total_cputime":1}`, callCount)
	return resp
}

// NewETagResponse creates a handler that answers 304 when If-None-Match matches etag.
func NewETagResponse(etag, data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}

// BatchResult renders one batch item result.
func BatchResult(code int, body string) map[string]any {
	return map[string]any{
		"code":    code,
		"headers": []map[string]string{{"name": "Content-Type", "value": "text/javascript; charset=UTF-8"}},
		"body":    body,
	}
}
