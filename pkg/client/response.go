package client

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
)

// transientMessages are fragments of error messages the API returns for
// failures that usually succeed when retried, even though the error object
// does not set is_transient.
var transientMessages = []string{
	"an unknown error occurred",
	"sorry, something went wrong",
	"dependent request failed or the entire request timed out",
	"please retry your request later",
	"temporarily unavailable",
}

// Response is the outcome of a graph call or of a single batch item.
type Response struct {
	status  int
	headers http.Header
	body    []byte
	call    CallInfo
}

// NewResponse wraps a status, headers and body. Failures whose error message
// matches a known transient pattern are rewritten with is_transient=true.
func NewResponse(status int, headers http.Header, body []byte, call CallInfo) *Response {
	if headers == nil {
		headers = http.Header{}
	}
	r := &Response{
		status:  status,
		headers: headers,
		body:    body,
		call:    call,
	}
	r.evaluateTransient()
	return r
}

// Status returns the HTTP status code.
func (r *Response) Status() int { return r.status }

// Headers returns the response headers.
func (r *Response) Headers() http.Header { return r.headers }

// Body returns the raw response body.
func (r *Response) Body() []byte { return r.body }

// Call returns the description of the call that produced the response.
func (r *Response) Call() CallInfo { return r.call }

// JSON decodes the body. A body that is not JSON is returned as a string and
// an empty body as nil. Numbers decode as json.Number.
func (r *Response) JSON() any {
	trimmed := bytes.TrimSpace(r.body)
	if len(trimmed) == 0 {
		return nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil || dec.More() {
		return string(r.body)
	}
	return v
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.body, v)
}

// IsSuccess reports whether the call succeeded.
func (r *Response) IsSuccess() bool {
	switch v := r.JSON().(type) {
	case map[string]any:
		if _, ok := v["error"]; ok {
			return false
		}
		if len(v) > 0 {
			if success, ok := v["success"]; ok {
				return truthy(success)
			}
			return true
		}
	case []any:
		if len(v) > 0 {
			return true
		}
	case string:
		if v != "" {
			if strings.Contains(v, "Service Unavailable") {
				return false
			}
			// A plain text body alone does not mean success; an HTML error
			// page from a proxy must not pass. The status decides.
			return r.status == http.StatusNotModified || (r.status >= 200 && r.status < 300)
		}
	case bool:
		if v {
			return true
		}
	}
	return r.status == http.StatusOK || r.status == http.StatusNotModified
}

// IsFailure is the negation of IsSuccess.
func (r *Response) IsFailure() bool {
	return !r.IsSuccess()
}

// IsTransient reports whether the failure was flagged as transient.
func (r *Response) IsTransient() bool {
	if r.IsSuccess() {
		return false
	}
	errObj := r.errorObject()
	if errObj == nil {
		return false
	}
	transient, _ := errObj["is_transient"].(bool)
	return transient
}

// Classify returns the error class of a failed response, or "" on success.
func (r *Response) Classify() ErrorClass {
	if r.IsSuccess() {
		return ""
	}

	apiErr := &APIError{}
	if errObj := r.errorObject(); errObj != nil {
		if code, ok := errObj["code"].(json.Number); ok {
			if n, err := code.Int64(); err == nil {
				apiErr.Code = int(n)
			}
		}
	}

	switch {
	case r.status == http.StatusTooManyRequests || apiErr.IsRateLimit():
		return ErrorClassRateLimit
	case r.IsTransient():
		return ErrorClassTransient
	case r.status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// Err returns a *RequestError for failed responses and nil otherwise.
func (r *Response) Err() *RequestError {
	if r.IsSuccess() {
		return nil
	}
	return newRequestError("Call was not successful", r)
}

// errorObject returns the decoded "error" object of the body, if any.
func (r *Response) errorObject() map[string]any {
	m, ok := r.JSON().(map[string]any)
	if !ok {
		return nil
	}
	errObj, _ := m["error"].(map[string]any)
	return errObj
}

// evaluateTransient flags failures whose message matches a transient pattern.
func (r *Response) evaluateTransient() {
	if r.IsSuccess() {
		return
	}
	body, ok := r.JSON().(map[string]any)
	if !ok {
		return
	}
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		return
	}
	if transient, _ := errObj["is_transient"].(bool); transient {
		return
	}
	message, _ := errObj["message"].(string)
	if !isTransientMessage(message) {
		return
	}

	errObj["is_transient"] = true
	rewritten, err := marshalCompact(body)
	if err != nil {
		return
	}
	r.body = []byte(rewritten)
}

func isTransientMessage(message string) bool {
	lower := strings.ToLower(message)
	for _, fragment := range transientMessages {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		return t.String() != "0"
	default:
		return true
	}
}
