package graph

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/Sternrassler/graph-business-client/pkg/client"
	"github.com/Sternrassler/graph-business-client/pkg/typecheck"
	"github.com/rs/zerolog/log"
)

type options struct {
	checker    *typecheck.Checker
	target     *Schema
	edge       bool
	parser     *ObjectParser
	fileUpload bool
	noSummary  bool
	apiVersion string
	params     client.Params
	fields     []string
}

// Option configures a Request or a Cursor.
type Option func(*options)

// WithChecker validates params against c.
func WithChecker(c *typecheck.Checker) Option {
	return func(o *options) { o.checker = c }
}

// WithParamTypes validates params against the given types and enums.
func WithParamTypes(types map[string]string, enums map[string][]string) Option {
	return WithChecker(typecheck.New(types, enums))
}

// WithTarget sets the schema of the objects the call returns. Unless a
// parser is given, responses are parsed into objects of that schema.
func WithTarget(s *Schema) Option {
	return func(o *options) { o.target = s }
}

// AsEdge marks the request as an edge call. Edge reads return a Cursor.
func AsEdge() Option {
	return func(o *options) { o.edge = true }
}

// WithParser sets the response parser.
func WithParser(p *ObjectParser) Option {
	return func(o *options) { o.parser = p }
}

// WithFileUpload allows AddFile on the request.
func WithFileUpload() Option {
	return func(o *options) { o.fileUpload = true }
}

// WithoutSummary stops cursors from asking for a summary.
func WithoutSummary() Option {
	return func(o *options) { o.noSummary = true }
}

// WithAPIVersion overrides the client's API version.
func WithAPIVersion(version string) Option {
	return func(o *options) { o.apiVersion = version }
}

// WithParams adds initial params.
func WithParams(params client.Params) Option {
	return func(o *options) { o.params = params }
}

// WithFields sets the fields to read. A nil list keeps the default.
func WithFields(fields []string) Option {
	return func(o *options) { o.fields = fields }
}

// Request is a pending graph call on a node or one of its edges.
type Request struct {
	api         API
	nodeID      string
	method      string
	endpoint    string
	opts        options
	params      client.Params
	fields      []string
	files       map[string]client.File
	fileCounter int
	err         error
}

// NewRequest builds a request for method on nodeID/endpoint. Slashes in
// endpoint are dropped, so "/" addresses the node itself.
func NewRequest(api API, nodeID, method, endpoint string, opts ...Option) *Request {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.checker == nil {
		o.checker = typecheck.Empty()
	}
	if o.parser == nil && o.target != nil {
		o.parser = targetParser(api, o.target)
	}

	r := &Request{
		api:      api,
		nodeID:   nodeID,
		method:   strings.ToUpper(method),
		endpoint: strings.ReplaceAll(endpoint, "/", ""),
		opts:     o,
		params:   client.Params{},
		fields:   []string{},
		files:    map[string]client.File{},
	}
	if nodeID == "" {
		r.fail(fmt.Errorf("%w: request needs a node id", client.ErrBadObject))
	}
	if o.params != nil {
		r.AddParams(o.params)
	}
	r.AddFields(o.fields)
	return r
}

// Method returns the HTTP method.
func (r *Request) Method() string { return r.method }

// Endpoint returns the edge name, "" for node calls.
func (r *Request) Endpoint() string { return r.endpoint }

// NodeID returns the node the request addresses.
func (r *Request) NodeID() string { return r.nodeID }

// Path returns the path segments below the API version.
func (r *Request) Path() []string {
	if r.endpoint == "" {
		return []string{r.nodeID}
	}
	return []string{r.nodeID, r.endpoint}
}

// Err returns the first error recorded while building the request.
func (r *Request) Err() error { return r.err }

// AddParam adds a parameter. File-typed params are attached as files and
// objects are exported to plain data.
func (r *Request) AddParam(key string, value any) *Request {
	checker := r.opts.checker
	if !checker.IsValidPair(key, value) {
		r.warn(fmt.Sprintf("value of %s might not be compatible. Expect %s; got %T", key, checker.Type(key), value))
	}
	if checker.IsFileParam(key) {
		path, ok := value.(string)
		if !ok {
			r.fail(fmt.Errorf("%w: file param %s must be a path, got %T", client.ErrBadParameter, key, value))
			return r
		}
		r.files[key] = client.File{Path: path}
		return r
	}
	r.params[key] = extractValue(value)
	return r
}

// AddParams adds each param in key order.
func (r *Request) AddParams(params client.Params) *Request {
	for _, key := range params.Keys() {
		r.AddParam(key, params[key])
	}
	return r
}

// AddField adds a field to read. Duplicates are ignored.
func (r *Request) AddField(field string) *Request {
	if r.opts.target != nil && len(r.opts.target.FieldTypes) > 0 && !r.opts.target.HasField(field) {
		r.warn(fmt.Sprintf("%s does not allow field %s", r.endpointName(), field))
	}
	if !slices.Contains(r.fields, field) {
		r.fields = append(r.fields, field)
	}
	return r
}

// AddFields adds each field.
func (r *Request) AddFields(fields []string) *Request {
	for _, f := range fields {
		r.AddField(f)
	}
	return r
}

// AddFile attaches a local file as source0, source1, ...
func (r *Request) AddFile(path string) *Request {
	if !r.opts.fileUpload {
		r.warn(fmt.Sprintf("Endpoint %s cannot upload files", r.endpointName()))
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		r.fail(fmt.Errorf("%w: cannot find file %s", client.ErrBadParameter, path))
		return r
	}
	r.files["source"+strconv.Itoa(r.fileCounter)] = client.File{Path: path}
	r.fileCounter++
	return r
}

// AddFiles attaches each file.
func (r *Request) AddFiles(paths []string) *Request {
	for _, p := range paths {
		r.AddFile(p)
	}
	return r
}

// Params returns the params as sent, including the joined field list.
func (r *Request) Params() client.Params {
	params := r.params.Clone()
	if len(r.fields) > 0 {
		params["fields"] = strings.Join(r.fields, ",")
	}
	return params
}

// Fields returns the requested fields.
func (r *Request) Fields() []string {
	return slices.Clone(r.fields)
}

// Files returns the attached files by form field.
func (r *Request) Files() map[string]client.File {
	out := make(map[string]client.File, len(r.files))
	for k, v := range r.files {
		out[k] = v
	}
	return out
}

// Do performs the call and returns the raw response.
func (r *Request) Do(ctx context.Context) (*client.Response, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	return r.api.Call(ctx, client.Call{
		Method:     r.method,
		Path:       r.Path(),
		Params:     r.Params(),
		Files:      r.Files(),
		APIVersion: r.opts.apiVersion,
	})
}

// Execute performs the call and parses the response into an object. Node
// reads built with a reuse parser load into the receiving object. Edge
// reads return collections and must use Cursor.
func (r *Request) Execute(ctx context.Context) (*Object, error) {
	if r.isEdgeRead() {
		return nil, fmt.Errorf("%w: %s is an edge read, use Cursor", client.ErrBadParameter, r.endpointName())
	}
	resp, err := r.Do(ctx)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	switch v := resp.JSON().(type) {
	case map[string]any:
		payload = v
	case bool:
		payload = map[string]any{"success": v}
	default:
		return nil, fmt.Errorf("%s %s: unexpected %T payload", r.method, r.endpointName(), v)
	}

	parser := r.opts.parser
	if parser == nil {
		parser = targetParser(r.api, genericSchema)
	}
	return parser.ParseSingle(payload)
}

// Cursor performs an edge read and returns a cursor with the first page
// loaded.
func (r *Request) Cursor(ctx context.Context) (*Cursor, error) {
	if !r.isEdgeRead() {
		return nil, fmt.Errorf("%w: %s %s is not an edge read", client.ErrBadParameter, r.method, r.endpointName())
	}
	if err := r.ready(); err != nil {
		return nil, err
	}

	opts := []Option{
		WithParams(r.params.Clone()),
		WithFields(r.Fields()),
		WithAPIVersion(r.opts.apiVersion),
	}
	if r.opts.parser != nil {
		opts = append(opts, WithParser(r.opts.parser))
	}
	if r.opts.noSummary {
		opts = append(opts, WithoutSummary())
	}

	cursor := NewCursor(r.api, r.nodeID, r.endpoint, r.opts.target, opts...)
	if _, err := cursor.Load(ctx); err != nil {
		return nil, err
	}
	return cursor, nil
}

// AddToBatch queues the request on batch with the given callbacks.
func (r *Request) AddToBatch(batch *Batch, callbacks Callbacks) error {
	if batch == nil {
		return fmt.Errorf("%w: batch is nil", client.ErrBadParameter)
	}
	if r.err != nil {
		return r.err
	}
	return batch.AddRequest(r, callbacks)
}

func (r *Request) isEdgeRead() bool {
	return r.opts.edge && r.method == http.MethodGet
}

func (r *Request) ready() error {
	if r.err != nil {
		return r.err
	}
	if r.api == nil {
		return fmt.Errorf("%w: request is not bound to an api", client.ErrBadObject)
	}
	return nil
}

func (r *Request) endpointName() string {
	if r.endpoint == "" {
		return "node " + r.nodeID
	}
	return r.endpoint
}

// warn logs a parameter problem, or records it as an error in strict mode.
func (r *Request) warn(msg string) {
	if r.api != nil && r.api.StrictMode() {
		r.fail(fmt.Errorf("%w: %s", client.ErrBadParameter, msg))
		return
	}
	log.Warn().Str("node", r.nodeID).Str("endpoint", r.endpoint).Msg(msg)
}

func (r *Request) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func extractValue(value any) any {
	if e, ok := value.(typecheck.Exportable); ok {
		return e.ExportAllData()
	}
	return exportValue(value)
}
