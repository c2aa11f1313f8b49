package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		errorClass ErrorClass
		method     string
		expected   bool
	}{
		{name: "client error", errorClass: ErrorClassClient, method: http.MethodGet, expected: false},
		{name: "transient on POST", errorClass: ErrorClassTransient, method: http.MethodPost, expected: true},
		{name: "rate limit on POST", errorClass: ErrorClassRateLimit, method: http.MethodPost, expected: true},
		{name: "server on GET", errorClass: ErrorClassServer, method: http.MethodGet, expected: true},
		{name: "server on POST", errorClass: ErrorClassServer, method: http.MethodPost, expected: false},
		{name: "network on DELETE", errorClass: ErrorClassNetwork, method: http.MethodDelete, expected: true},
		{name: "network on POST", errorClass: ErrorClassNetwork, method: http.MethodPost, expected: false},
		{name: "unknown", errorClass: ErrorClass("unknown"), method: http.MethodGet, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.errorClass, tt.method); got != tt.expected {
				t.Errorf("shouldRetry(%q, %s) = %v, want %v", tt.errorClass, tt.method, got, tt.expected)
			}
		})
	}
}

func TestRequestError_FromResponse(t *testing.T) {
	body := `{"error":{"message":"Invalid parameter","type":"OAuthException","code":100,` +
		`"error_subcode":1487390,"error_user_title":"Bad","error_user_msg":"Fix it","fbtrace_id":"AbC"}}`
	resp := NewResponse(http.StatusBadRequest, http.Header{"X-Fb-Trace-Id": []string{"AbC"}}, []byte(body),
		CallInfo{Method: "POST", Path: "act_1/campaigns"})

	reqErr := resp.Err()
	if reqErr == nil {
		t.Fatal("Err() = nil for failed response")
	}
	if reqErr.API == nil {
		t.Fatal("API error not parsed")
	}
	if reqErr.APIErrorCode() != 100 || reqErr.API.ErrorSubcode != 1487390 {
		t.Errorf("code = %d/%d, want 100/1487390", reqErr.APIErrorCode(), reqErr.API.ErrorSubcode)
	}
	if reqErr.API.ErrorUserMsg != "Fix it" || reqErr.API.FBTraceID != "AbC" {
		t.Errorf("user message or trace id not parsed: %+v", reqErr.API)
	}
	if reqErr.ErrorClass != ErrorClassClient {
		t.Errorf("ErrorClass = %q, want client", reqErr.ErrorClass)
	}

	msg := reqErr.Error()
	for _, fragment := range []string{"status 400", "POST act_1/campaigns", "code 100/1487390", "Invalid parameter"} {
		if !strings.Contains(msg, fragment) {
			t.Errorf("Error() = %q, missing %q", msg, fragment)
		}
	}
}

func TestRequestError_As(t *testing.T) {
	resp := NewResponse(http.StatusInternalServerError, nil, []byte(`{"error":{"code":2,"is_transient":true}}`), CallInfo{})
	wrapped := fmt.Errorf("load page: %w", resp.Err())

	var reqErr *RequestError
	if !errors.As(wrapped, &reqErr) {
		t.Fatal("errors.As failed for wrapped *RequestError")
	}
	if !reqErr.APITransientError() {
		t.Error("APITransientError() = false, want true")
	}
}

func TestRequestError_NoAPIError(t *testing.T) {
	resp := NewResponse(http.StatusBadGateway, nil, []byte("Service Unavailable"), CallInfo{})
	reqErr := resp.Err()
	if reqErr.API != nil {
		t.Errorf("API = %+v, want nil", reqErr.API)
	}
	if reqErr.APIErrorCode() != 0 || reqErr.APITransientError() {
		t.Error("missing API error must report code 0 and not transient")
	}
}

func TestAPIError_IsRateLimit(t *testing.T) {
	for _, code := range []int{4, 17, 32, 613, 80000, 80014} {
		if !(&APIError{Code: code}).IsRateLimit() {
			t.Errorf("code %d should be a rate limit code", code)
		}
	}
	for _, code := range []int{1, 2, 100, 190, 80015} {
		if (&APIError{Code: code}).IsRateLimit() {
			t.Errorf("code %d should not be a rate limit code", code)
		}
	}
	var nilErr *APIError
	if nilErr.IsRateLimit() {
		t.Error("nil APIError should not be a rate limit")
	}
}
