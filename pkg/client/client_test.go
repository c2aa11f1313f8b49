package client

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/graph-business-client/internal/testutil"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func newTestClient(t *testing.T, mock *testutil.MockGraph, mutate func(*Config)) *Client {
	t.Helper()

	cfg := DefaultConfig("test-token")
	cfg.BaseURL = mock.URL()
	cfg.Retry = fastRetry()
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		errorMsg string
	}{
		{name: "valid config", config: DefaultConfig("token")},
		{name: "defaults filled in", config: Config{AccessToken: "token"}},
		{name: "missing token", config: Config{APIVersion: "v21.0"}, errorMsg: "access token is required"},
		{name: "bad version", config: Config{AccessToken: "token", APIVersion: "21.0"}, errorMsg: "api version must look like vX.Y"},
		{name: "negative rate limit", config: Config{AccessToken: "token", RateLimit: -1}, errorMsg: "rate_limit must be >= 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.config)
			if tt.errorMsg == "" {
				if err != nil {
					t.Fatalf("New() error = %v", err)
				}
				if c.APIVersion() != DefaultAPIVersion {
					t.Errorf("APIVersion() = %q, want %q", c.APIVersion(), DefaultAPIVersion)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("New() error = %v, want %q", err, tt.errorMsg)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("token")

	if cfg.AccessToken != "token" {
		t.Errorf("AccessToken = %q", cfg.AccessToken)
	}
	if cfg.APIVersion != DefaultAPIVersion || cfg.BaseURL != DefaultBaseURL {
		t.Errorf("APIVersion/BaseURL = %q/%q", cfg.APIVersion, cfg.BaseURL)
	}
	if cfg.UserAgent != "fbbizsdk-go-v"+Version() {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d, want 3", cfg.Retry.MaxAttempts)
	}
	if cfg.StrictMode {
		t.Error("StrictMode should default to false")
	}
}

func TestCall_GetSendsQueryAndCredentials(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetResponse("GET /v21.0/1234", testutil.NewJSONResponse(http.StatusOK, `{"id":"1234","name":"Page"}`))

	c := newTestClient(t, mock, func(cfg *Config) {
		cfg.AppSecret = "secret"
	})

	resp, err := c.Call(context.Background(), Call{
		Method: http.MethodGet,
		Path:   []string{"1234"},
		Params: Params{"fields": "id,name"},
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if !resp.IsSuccess() {
		t.Error("IsSuccess() = false")
	}

	req := mock.LastRequest()
	if req.Query.Get("fields") != "id,name" {
		t.Errorf("fields = %q", req.Query.Get("fields"))
	}
	if req.Query.Get("access_token") != "test-token" {
		t.Errorf("access_token = %q", req.Query.Get("access_token"))
	}
	if req.Query.Get("appsecret_proof") != c.Session().AppSecretProof() {
		t.Errorf("appsecret_proof = %q", req.Query.Get("appsecret_proof"))
	}
	if ua := req.Header.Get("User-Agent"); ua != DefaultUserAgent() {
		t.Errorf("User-Agent = %q", ua)
	}

	// credentials never leak into the call description
	if _, ok := resp.Call().Params["access_token"]; ok {
		t.Error("CallInfo.Params contains access_token")
	}
	if resp.Call().Path != "1234" {
		t.Errorf("CallInfo.Path = %q", resp.Call().Path)
	}
}

func TestCall_PostSendsFormBody(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetResponse("POST /v21.0/act_1/campaigns", testutil.NewJSONResponse(http.StatusOK, `{"id":"99"}`))

	c := newTestClient(t, mock, nil)

	_, err := c.Call(context.Background(), Call{
		Method: "post",
		Path:   []string{"act_1", "", "campaigns"},
		Params: Params{
			"name":      "Launch",
			"is_active": true,
			"spec":      map[string]any{"b": 1, "a": 2},
		},
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	req := mock.LastRequest()
	if req.Method != http.MethodPost {
		t.Errorf("Method = %s", req.Method)
	}
	if len(req.Query) != 0 {
		t.Errorf("POST must not use the query string: %v", req.Query)
	}
	if req.Form.Get("is_active") != "true" || req.Form.Get("spec") != `{"a":2,"b":1}` {
		t.Errorf("form = %v", req.Form)
	}
	if req.Form.Get("access_token") != "test-token" {
		t.Error("access_token missing from form body")
	}
}

func TestCall_MultipartUpload(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetResponse("POST /v21.0/1234/photos", testutil.NewJSONResponse(http.StatusOK, `{"id":"p1"}`))

	dir := t.TempDir()
	path := filepath.Join(dir, "pixel.png")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	if err := os.WriteFile(path, png, 0o600); err != nil {
		t.Fatal(err)
	}

	c := newTestClient(t, mock, nil)
	_, err := c.Call(context.Background(), Call{
		Method: http.MethodPost,
		Path:   []string{"1234", "photos"},
		Params: Params{"caption": "hello"},
		Files:  map[string]File{"source0": {Path: path}},
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	req := mock.LastRequest()
	file, ok := req.Files["source0"]
	if !ok {
		t.Fatalf("source0 not uploaded, files = %v", req.Files)
	}
	if file.Filename != "pixel.png" || file.ContentType != "image/png" {
		t.Errorf("uploaded file = %+v", file)
	}
	if req.Form.Get("caption") != "hello" {
		t.Errorf("caption = %q", req.Form.Get("caption"))
	}
}

func TestCall_FailureReturnsRequestError(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetResponse("/v21.0/1234", testutil.NewErrorResponse(http.StatusBadRequest, 100, "Unsupported get request", false))

	c := newTestClient(t, mock, nil)
	_, err := c.Call(context.Background(), Call{Method: http.MethodGet, Path: []string{"1234"}})

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("err = %v, want *RequestError", err)
	}
	if reqErr.APIErrorCode() != 100 || reqErr.ErrorClass != ErrorClassClient {
		t.Errorf("code/class = %d/%s", reqErr.APIErrorCode(), reqErr.ErrorClass)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("client errors must not be retried, requests = %d", mock.GetRequestCount())
	}

	attempted, succeeded := c.Stats()
	if attempted != 1 || succeeded != 0 {
		t.Errorf("Stats() = %d/%d, want 1/0", attempted, succeeded)
	}
}

func TestCall_Retry(t *testing.T) {
	transient := testutil.NewErrorResponse(http.StatusInternalServerError, 1, "An unknown error occurred", false)
	server := testutil.NewErrorResponse(http.StatusInternalServerError, 1, "Internal failure", false)
	throttled := testutil.NewErrorResponse(http.StatusBadRequest, 17, "User request limit reached", false)
	ok := testutil.NewJSONResponse(http.StatusOK, `{"success":true}`)

	tests := []struct {
		name          string
		method        string
		sequence      []testutil.MockResponse
		wantRequests  int
		wantErr       bool
		wantExhausted bool
	}{
		{name: "transient POST retried", method: http.MethodPost, sequence: seq(transient, ok), wantRequests: 2},
		{name: "server GET retried", method: http.MethodGet, sequence: seq(server, server, ok), wantRequests: 3},
		{name: "server POST not retried", method: http.MethodPost, sequence: seq(server, ok), wantRequests: 1, wantErr: true},
		{name: "rate limit code exhausted", method: http.MethodGet, sequence: seq(throttled), wantRequests: 3, wantErr: true, wantExhausted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockGraph()
			defer mock.Close()
			mock.SetSequence("/v21.0/1234", tt.sequence...)

			c := newTestClient(t, mock, nil)
			_, err := c.Call(context.Background(), Call{Method: tt.method, Path: []string{"1234"}})

			if mock.GetRequestCount() != tt.wantRequests {
				t.Errorf("requests = %d, want %d", mock.GetRequestCount(), tt.wantRequests)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && errors.Is(err, ErrRetryExhausted) != tt.wantExhausted {
				t.Errorf("err = %v, wantExhausted %v", err, tt.wantExhausted)
			}
		})
	}
}

func seq(responses ...testutil.MockResponse) []testutil.MockResponse {
	return responses
}

func TestCall_UsageTrackerBlocks(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetResponse("/v21.0/1234", testutil.NewUsageResponse(`{"id":"1234"}`, 99))

	c := newTestClient(t, mock, nil)
	ctx := context.Background()

	if _, err := c.Call(ctx, Call{Path: []string{"1234"}}); err != nil {
		t.Fatalf("first Call() error = %v", err)
	}

	_, err := c.Call(ctx, Call{Path: []string{"1234"}})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("blocked call reached the server, requests = %d", mock.GetRequestCount())
	}
}

func TestCall_ClientSideRateLimit(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()

	c := newTestClient(t, mock, func(cfg *Config) {
		cfg.RateLimit = 1000
		cfg.Burst = 2
	})

	for i := 0; i < 5; i++ {
		if _, err := c.Call(context.Background(), Call{Path: []string{"1234"}}); err != nil {
			t.Fatalf("Call() error = %v", err)
		}
	}

	attempted, succeeded := c.Stats()
	if attempted != 5 || succeeded != 5 {
		t.Errorf("Stats() = %d/%d, want 5/5", attempted, succeeded)
	}
}

func TestCall_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetResponse("/v21.0/1234", testutil.MockResponse{StatusCode: http.StatusOK, Body: `{}`, Delay: 200 * time.Millisecond})

	c := newTestClient(t, mock, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Call(ctx, Call{Path: []string{"1234"}})
	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("err = %v, want ErrContextCancelled", err)
	}
}

func TestCall_APIVersionOverride(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()

	c := newTestClient(t, mock, nil)
	if _, err := c.Call(context.Background(), Call{Path: []string{"me"}, APIVersion: "v19.0"}); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got := mock.LastRequest().Path; got != "/v19.0/me" {
		t.Errorf("path = %q, want /v19.0/me", got)
	}
}

func TestCall_CachedConditionalRead(t *testing.T) {
	redisClient := setupTestRedis(t)

	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetHandler("/v21.0/1234", testutil.NewETagResponse(`"v1"`, `{"id":"1234","name":"Cached"}`))

	c := newTestClient(t, mock, func(cfg *Config) {
		cfg.Redis = redisClient
		cfg.CacheTTL = time.Minute
	})
	ctx := context.Background()

	first, err := c.Call(ctx, Call{Path: []string{"1234"}})
	if err != nil {
		t.Fatalf("first Call() error = %v", err)
	}
	second, err := c.Call(ctx, Call{Path: []string{"1234"}})
	if err != nil {
		t.Fatalf("second Call() error = %v", err)
	}

	if mock.GetConditionalCount() != 1 {
		t.Errorf("conditional requests = %d, want 1", mock.GetConditionalCount())
	}
	if string(second.Body()) != string(first.Body()) {
		t.Errorf("cached body = %s, want %s", second.Body(), first.Body())
	}
	if second.Status() != http.StatusOK {
		t.Errorf("cached status = %d, want 200", second.Status())
	}
}
