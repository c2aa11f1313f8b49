package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrBadObject is returned when an object is used in a way its state does not allow,
	// e.g. a node operation on an object without an ID.
	ErrBadObject = errors.New("bad object")

	// ErrBadParameter is returned for invalid request parameters in strict mode.
	ErrBadParameter = errors.New("bad parameter")

	// ErrUnavailableProperty is returned when a property has not been received from the API.
	ErrUnavailableProperty = errors.New("unavailable property")

	// ErrRateLimited is returned when the usage tracker blocks a request.
	ErrRateLimited = errors.New("request blocked: app usage critical")
)

// ErrorClass represents a classification of failed calls.
type ErrorClass string

const (
	// ErrorClassClient represents permanent 4xx rejections.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents throttling errors (HTTP 429 or rate-limit error codes).
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassTransient represents failures the API flagged as transient.
	ErrorClassTransient ErrorClass = "transient"
)

// APIError is the "error" object of a failed graph response.
type APIError struct {
	Message        string `json:"message,omitempty"`
	Type           string `json:"type,omitempty"`
	Code           int    `json:"code,omitempty"`
	ErrorSubcode   int    `json:"error_subcode,omitempty"`
	ErrorUserTitle string `json:"error_user_title,omitempty"`
	ErrorUserMsg   string `json:"error_user_msg,omitempty"`
	FBTraceID      string `json:"fbtrace_id,omitempty"`
	IsTransient    bool   `json:"is_transient,omitempty"`
}

// IsRateLimit reports whether the error code is one of the throttling codes.
func (e *APIError) IsRateLimit() bool {
	if e == nil {
		return false
	}
	switch e.Code {
	case 4, 17, 32, 613:
		return true
	}
	return e.Code >= 80000 && e.Code <= 80014
}

// RequestError is returned for calls whose response is a failure.
type RequestError struct {
	Message    string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Call       CallInfo
	ErrorClass ErrorClass

	// API is the parsed error object, nil when the body carried none.
	API *APIError
}

// newRequestError builds a RequestError from a failed response.
func newRequestError(message string, resp *Response) *RequestError {
	e := &RequestError{
		Message:    message,
		StatusCode: resp.Status(),
		Headers:    resp.Headers(),
		Body:       resp.Body(),
		Call:       resp.Call(),
		ErrorClass: resp.Classify(),
	}

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err == nil {
		e.API = envelope.Error
	}
	return e
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "graph %s error (status %d): %s", e.ErrorClass, e.StatusCode, e.Message)
	if e.Call.Method != "" {
		fmt.Fprintf(&b, " [%s %s]", e.Call.Method, e.Call.Path)
	}
	if e.API != nil {
		fmt.Fprintf(&b, ": code %d", e.API.Code)
		if e.API.ErrorSubcode != 0 {
			fmt.Fprintf(&b, "/%d", e.API.ErrorSubcode)
		}
		if e.API.Message != "" {
			fmt.Fprintf(&b, ": %s", e.API.Message)
		}
	}
	return b.String()
}

// APITransientError reports whether the API flagged the error as transient.
func (e *RequestError) APITransientError() bool {
	return e.API != nil && e.API.IsTransient
}

// APIErrorCode returns the API error code, or 0.
func (e *RequestError) APIErrorCode() int {
	if e.API == nil {
		return 0
	}
	return e.API.Code
}

// shouldRetry determines if an error should be retried based on its classification.
// Network and server errors are only retried for idempotent methods.
func shouldRetry(errorClass ErrorClass, method string) bool {
	switch errorClass {
	case ErrorClassClient:
		return false
	case ErrorClassTransient, ErrorClassRateLimit:
		return true
	case ErrorClassServer, ErrorClassNetwork:
		return method == http.MethodGet || method == http.MethodDelete
	default:
		return false
	}
}
