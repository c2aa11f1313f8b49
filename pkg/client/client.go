// Package client provides the graph HTTP transport with credentials, retry,
// rate limiting, response caching and error classification.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/graph-business-client/pkg/cache"
	"github.com/Sternrassler/graph-business-client/pkg/logging"
	"github.com/Sternrassler/graph-business-client/pkg/ratelimit"
	"github.com/gabriel-vasile/mimetype"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for graph client operations.
var (
	graphRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_requests_total",
		Help: "Total graph requests by method and status",
	}, []string{"method", "status"})

	graphRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "graph_request_duration_seconds",
		Help:    "Graph request duration in seconds by method",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	graphErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_errors_total",
		Help: "Total graph errors by class",
	}, []string{"class"})
)

var apiVersionPattern = regexp.MustCompile(`^v\d+\.\d+$`)

// Config holds the client configuration.
type Config struct {
	AccessToken string `yaml:"access_token"`
	AppID       string `yaml:"app_id"`
	AppSecret   string `yaml:"app_secret"`

	// APIVersion such as "v21.0"
	APIVersion string `yaml:"api_version"`
	BaseURL    string `yaml:"base_url"`
	UserAgent  string `yaml:"user_agent"`

	Timeout time.Duration `yaml:"timeout"`

	// RateLimit is the client-side limit in requests per second (0 disables it).
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`

	Retry RetryConfig `yaml:"retry"`

	// StrictMode turns parameter warnings into errors.
	StrictMode bool `yaml:"strict_mode"`

	// Debug logs every call.
	Debug bool `yaml:"debug"`

	// Redis enables the GET response cache and shares usage state between
	// processes. Optional.
	Redis *redis.Client `yaml:"-"`

	// CacheTTL is used for cached reads whose response sets no expiry.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// DefaultConfig returns a default configuration for the given access token.
func DefaultConfig(accessToken string) Config {
	return Config{
		AccessToken: accessToken,
		APIVersion:  DefaultAPIVersion,
		BaseURL:     DefaultBaseURL,
		UserAgent:   DefaultUserAgent(),
		Timeout:     60 * time.Second,
		Retry:       DefaultRetryConfig(),
		CacheTTL:    cache.DefaultTTL,
	}
}

// Client is the graph API client.
type Client struct {
	httpClient *http.Client
	session    Session
	limiter    *rate.Limiter
	usage      *ratelimit.Tracker
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger

	attempted atomic.Int64
	succeeded atomic.Int64
}

// New creates a new graph client. Empty optional fields take their defaults.
func New(cfg Config) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if !apiVersionPattern.MatchString(cfg.APIVersion) {
		return nil, fmt.Errorf("api version must look like vX.Y (got %q)", cfg.APIVersion)
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0 (got %v)", cfg.RateLimit)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}

	logger := logging.NewLogger(logging.ComponentClient)

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		session: Session{
			AppID:       cfg.AppID,
			AppSecret:   cfg.AppSecret,
			AccessToken: cfg.AccessToken,
		},
		usage:  ratelimit.NewTracker(cfg.Redis, logger),
		config: cfg,
		logger: logger,
	}

	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = max(1, int(cfg.RateLimit))
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// Call performs a graph call. A response that is not a success is returned
// as a *RequestError; the request is retried first when its error class allows.
func (c *Client) Call(ctx context.Context, call Call) (*Response, error) {
	method := strings.ToUpper(call.Method)
	if method == "" {
		method = http.MethodGet
	}
	call.Method = method

	version := call.APIVersion
	if version == "" {
		version = c.config.APIVersion
	}

	relPath := strings.Join(nonEmpty(call.Path), "/")
	target := call.URL
	if target == "" {
		target = c.config.BaseURL + "/" + version
		if relPath != "" {
			target += "/" + relPath
		}
	}

	encoded, err := EncodeParams(call.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParameter, err)
	}
	info := CallInfo{Method: method, Path: relPath, Params: copyParams(encoded)}
	c.session.apply(encoded)

	startTime := time.Now()
	defer func() {
		graphRequestDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}
	}

	allowed, err := c.usage.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Usage check failed")
		return nil, fmt.Errorf("usage check: %w", err)
	}
	if !allowed {
		c.logger.Warn().Str("path", relPath).Msg("Request blocked by usage tracker")
		graphRequestsTotal.WithLabelValues(method, "rate_limited").Inc()
		return nil, ErrRateLimited
	}

	var (
		cacheKey    cache.CacheKey
		cachedEntry *cache.CacheEntry
	)
	cacheable := c.cache != nil && method == http.MethodGet && len(call.Files) == 0
	if cacheable {
		cacheKey = cache.CacheKey{
			Path:      version + "/" + relPath,
			Params:    info.Params,
			Principal: c.session.principal(),
		}
		if call.URL != "" {
			cacheKey.Path = call.URL
		}
		cachedEntry, err = c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("path", relPath).Msg("Cache get error")
		}
	}

	var response *Response
	c.attempted.Add(1)

	retryErr := retryWithBackoff(ctx, method, c.config.Retry, func() (ErrorClass, error) {
		req, err := c.newHTTPRequest(ctx, method, target, encoded, call)
		if err != nil {
			return ErrorClassClient, err
		}
		if cachedEntry != nil && cache.ShouldMakeConditionalRequest(cachedEntry) {
			cache.AddConditionalHeaders(req.Header, cachedEntry)
		}

		if c.config.Debug {
			c.logger.Debug().
				Str("method", method).
				Str("path", relPath).
				Interface("params", info.Params).
				Int("files", len(call.Files)).
				Msg("Executing graph request")
		}

		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ErrorClassClient, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
			}
			c.logger.Error().Err(err).Str("path", relPath).Msg("HTTP request failed")
			graphErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			graphRequestsTotal.WithLabelValues(method, "network_error").Inc()
			return classifyTransportError(err), fmt.Errorf("%s %s: %w", method, relPath, err)
		}
		body, err := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		if err != nil {
			graphErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return ErrorClassNetwork, fmt.Errorf("read response body: %w", err)
		}

		if err := c.usage.UpdateFromHeaders(ctx, httpResp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update usage from headers")
		}

		graphRequestsTotal.WithLabelValues(method, strconv.Itoa(httpResp.StatusCode)).Inc()

		if httpResp.StatusCode == http.StatusNotModified && cachedEntry != nil {
			cache.ConditionalRequests.Inc()
			c.logger.Debug().Str("path", relPath).Msg("304 Not Modified - using cache")
			if err := c.cache.UpdateTTL(ctx, cacheKey, time.Now().Add(c.config.CacheTTL)); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
			}
			response = NewResponse(cachedEntry.StatusCode, cachedEntry.Headers, cachedEntry.Data, info)
			return "", nil
		}

		response = NewResponse(httpResp.StatusCode, httpResp.Header, body, info)
		if c.config.Debug {
			c.logger.Debug().
				Str("method", method).
				Str("path", relPath).
				Int("status", httpResp.StatusCode).
				Int("bytes", len(body)).
				Msg("Graph response")
		}

		if response.IsFailure() {
			reqErr := response.Err()
			graphErrorsTotal.WithLabelValues(string(reqErr.ErrorClass)).Inc()
			c.logger.Warn().
				Str("path", relPath).
				Int("status", httpResp.StatusCode).
				Str("error_class", string(reqErr.ErrorClass)).
				Int("code", reqErr.APIErrorCode()).
				Msg("Graph request error")
			return reqErr.ErrorClass, reqErr
		}
		return "", nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	c.succeeded.Add(1)

	if cacheable && response.Status() == http.StatusOK && cache.IsCacheable(response.Headers()) {
		entry := cache.NewEntry(response.Status(), response.Headers(), response.Body(), c.config.CacheTTL)
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	// Writes drop the node's cached reads. Batch calls address the version
	// root and are not tracked.
	if c.cache != nil && method != http.MethodGet && call.URL == "" && relPath != "" {
		n, err := c.cache.Invalidate(ctx, version+"/"+relPath)
		if err != nil {
			c.logger.Warn().Err(err).Str("path", relPath).Msg("Failed to invalidate cached reads")
		} else if n > 0 {
			c.logger.Debug().Str("path", relPath).Int("entries", n).Msg("Invalidated cached reads")
		}
	}

	return response, nil
}

// newHTTPRequest builds the outbound request. GET and DELETE carry params in
// the query string, other methods in a form or multipart body.
func (c *Client) newHTTPRequest(ctx context.Context, method, target string, params map[string]string, call Call) (*http.Request, error) {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case method == http.MethodGet || method == http.MethodDelete:
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("parse url: %w", err)
		}
		query := u.Query()
		for k, v := range values {
			query[k] = v
		}
		u.RawQuery = query.Encode()
		target = u.String()
	case len(call.Files) > 0:
		buf, ct, err := multipartBody(params, call.Files)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	default:
		body = strings.NewReader(values.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for name, vals := range call.Headers {
		for _, v := range vals {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// multipartBody encodes params and files. Each file part carries the sniffed
// content type of the file.
func multipartBody(params map[string]string, files map[string]File) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for _, k := range sortedKeys(params) {
		if err := w.WriteField(k, params[k]); err != nil {
			return nil, "", fmt.Errorf("write field %q: %w", k, err)
		}
	}

	for _, name := range sortedKeys(files) {
		path := files[name].Path
		mtype, err := mimetype.DetectFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("detect content type of %s: %w", path, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("read upload %s: %w", path, err)
		}

		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, name, filepath.Base(path)))
		h.Set("Content-Type", mtype.String())
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part %q: %w", name, err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", fmt.Errorf("write part %q: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

// classifyTransportError maps transport failures to an error class. A
// request that never left the process (bad scheme, nil body) is not retried.
func classifyTransportError(err error) ErrorClass {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrorClassNetwork
	}
	if strings.Contains(err.Error(), "unsupported protocol scheme") {
		return ErrorClassClient
	}
	return ErrorClassNetwork
}

// StrictMode reports whether parameter warnings are errors.
func (c *Client) StrictMode() bool {
	return c.config.StrictMode
}

// APIVersion returns the configured API version.
func (c *Client) APIVersion() string {
	return c.config.APIVersion
}

// Session returns the credentials attached to calls.
func (c *Client) Session() Session {
	return c.session
}

// Stats returns the number of attempted and succeeded calls.
func (c *Client) Stats() (attempted, succeeded int64) {
	return c.attempted.Load(), c.succeeded.Load()
}

// Usage returns the usage tracker.
func (c *Client) Usage() *ratelimit.Tracker {
	return c.usage
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil without Redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

func nonEmpty(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func copyParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
