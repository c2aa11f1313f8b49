package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for usage tracking.
var (
	graphUsagePercent = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "graph_usage_percent",
		Help: "Latest reported usage percentage by source",
	}, []string{"source"})

	graphRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "graph_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to critical usage",
	})

	graphRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "graph_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to warning usage",
	})
)

// stateTTL bounds how long a reading survives in Redis.
const stateTTL = 10 * time.Minute

// Tracker monitors graph usage headers and gates requests. With a nil Redis
// client the state is kept in memory for this process only.
type Tracker struct {
	redis         *redis.Client
	logger        zerolog.Logger
	maxAge        time.Duration
	throttleDelay time.Duration

	mu    sync.RWMutex
	local *UsageState
}

// NewTracker creates a new usage tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		maxAge:        DefaultStateMaxAge,
		throttleDelay: 1 * time.Second,
	}
}

// SetThrottleDelay sets how long a request waits in the warning state.
func (t *Tracker) SetThrottleDelay(d time.Duration) {
	t.throttleDelay = d
}

// SetMaxAge sets how long a reading is trusted.
func (t *Tracker) SetMaxAge(d time.Duration) {
	t.maxAge = d
}

// GetState retrieves the current usage state.
// Returns a default healthy state if nothing has been recorded yet.
func (t *Tracker) GetState(ctx context.Context) (*UsageState, error) {
	if t.redis == nil {
		t.mu.RLock()
		defer t.mu.RUnlock()
		if t.local == nil {
			return defaultState(), nil
		}
		state := *t.local
		return &state, nil
	}

	data, err := t.redis.Get(ctx, RedisKeyUsageState).Bytes()
	if errors.Is(err, redis.Nil) {
		t.logger.Debug().Msg("No usage state in Redis, returning default healthy state")
		return defaultState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get usage state: %w", err)
	}

	var state UsageState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse usage state: %w", err)
	}
	state.UpdateHealth()
	return &state, nil
}

func defaultState() *UsageState {
	return &UsageState{
		LastUpdate: time.Now(),
		IsHealthy:  true,
	}
}

// UpdateFromHeaders parses the usage headers of a response and stores the state.
// Responses without usage headers leave the state untouched.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	appHeader := headers.Get(HeaderAppUsage)
	businessHeader := headers.Get(HeaderBusinessUseCaseUsage)
	accountHeader := headers.Get(HeaderAdAccountUsage)
	if appHeader == "" && businessHeader == "" && accountHeader == "" {
		return nil
	}

	now := time.Now()
	state := &UsageState{LastUpdate: now}

	if appHeader != "" {
		usage, err := ParseAppUsage(appHeader)
		if err != nil {
			return err
		}
		state.AppUsage = usage
	}

	if businessHeader != "" {
		usage, regain, err := ParseBusinessUseCaseUsage(businessHeader)
		if err != nil {
			return err
		}
		state.BusinessUsage = usage
		if regain > 0 {
			state.RegainAccessAt = now.Add(regain)
		}
	}

	if accountHeader != "" {
		usage, err := ParseAdAccountUsage(accountHeader)
		if err != nil {
			return err
		}
		state.AdAccountUsage = usage
	}
	state.UpdateHealth()

	if err := t.store(ctx, state); err != nil {
		return err
	}

	graphUsagePercent.WithLabelValues("app").Set(state.AppUsage)
	graphUsagePercent.WithLabelValues("business").Set(state.BusinessUsage)
	graphUsagePercent.WithLabelValues("ad_account").Set(state.AdAccountUsage)

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Float64("usage", state.MaxUsage()).
			Dur("regain_in", state.TimeUntilRegain()).
			Msg("Graph usage CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Float64("usage", state.MaxUsage()).
			Msg("Graph usage WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Float64("usage", state.MaxUsage()).
			Bool("is_healthy", state.IsHealthy).
			Msg("Graph usage state updated")
	}

	return nil
}

func (t *Tracker) store(ctx context.Context, state *UsageState) error {
	if t.redis == nil {
		t.mu.Lock()
		t.local = state
		t.mu.Unlock()
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal usage state: %w", err)
	}
	if err := t.redis.Set(ctx, RedisKeyUsageState, data, stateTTL).Err(); err != nil {
		return fmt.Errorf("store usage state in redis: %w", err)
	}
	return nil
}

// ShouldAllowRequest checks if a request should be allowed based on current usage.
// Returns false if the request should be blocked due to critical usage.
// Returns true but may wait for throttling in the warning state.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get usage state: %w", err)
	}

	// a reading nobody refreshed is not grounds to block
	if state.IsStale(t.maxAge) && state.TimeUntilRegain() == 0 {
		return true, nil
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Float64("usage", state.MaxUsage()).
			Dur("regain_in", state.TimeUntilRegain()).
			Msg("Graph usage critical - blocking request")

		graphRateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Float64("usage", state.MaxUsage()).
			Msg("Graph usage warning - throttling request")

		graphRateLimitThrottlesTotal.Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttleDelay):
		}
	}

	return true, nil
}

// ParseAppUsage returns the highest percentage in an X-App-Usage header.
func ParseAppUsage(value string) (float64, error) {
	var usage struct {
		CallCount    float64 `json:"call_count"`
		TotalTime    float64 `json:"total_time"`
		TotalCPUTime float64 `json:"total_cputime"`
	}
	if err := json.Unmarshal([]byte(value), &usage); err != nil {
		return 0, fmt.Errorf("parse %s header: %w", HeaderAppUsage, err)
	}
	return maxOf(usage.CallCount, usage.TotalTime, usage.TotalCPUTime), nil
}

// ParseBusinessUseCaseUsage returns the highest percentage across all entries
// of an X-Business-Use-Case-Usage header and the longest time to regain access.
func ParseBusinessUseCaseUsage(value string) (float64, time.Duration, error) {
	var usage map[string][]struct {
		Type                        string  `json:"type"`
		CallCount                   float64 `json:"call_count"`
		TotalTime                   float64 `json:"total_time"`
		TotalCPUTime                float64 `json:"total_cputime"`
		EstimatedTimeToRegainAccess float64 `json:"estimated_time_to_regain_access"`
	}
	if err := json.Unmarshal([]byte(value), &usage); err != nil {
		return 0, 0, fmt.Errorf("parse %s header: %w", HeaderBusinessUseCaseUsage, err)
	}

	var (
		max    float64
		regain time.Duration
	)
	for _, entries := range usage {
		for _, e := range entries {
			max = maxOf(max, e.CallCount, e.TotalTime, e.TotalCPUTime)
			// minutes
			if d := time.Duration(e.EstimatedTimeToRegainAccess * float64(time.Minute)); d > regain {
				regain = d
			}
		}
	}
	return max, regain, nil
}

// ParseAdAccountUsage returns acc_id_util_pct from an X-Ad-Account-Usage header.
func ParseAdAccountUsage(value string) (float64, error) {
	var usage struct {
		AccIDUtilPct float64 `json:"acc_id_util_pct"`
	}
	if err := json.Unmarshal([]byte(value), &usage); err != nil {
		return 0, fmt.Errorf("parse %s header: %w", HeaderAdAccountUsage, err)
	}
	return usage.AccIDUtilPct, nil
}

func maxOf(values ...float64) float64 {
	var max float64
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return max
}
