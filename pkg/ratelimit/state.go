// Package ratelimit implements graph API usage tracking and request gating.
// It monitors the X-App-Usage, X-Business-Use-Case-Usage and
// X-Ad-Account-Usage headers to stop calling before the platform throttles
// the app or ad account.
package ratelimit

import (
	"time"
)

// Usage headers sent by the graph API.
const (
	HeaderAppUsage             = "X-App-Usage"
	HeaderBusinessUseCaseUsage = "X-Business-Use-Case-Usage"
	HeaderAdAccountUsage       = "X-Ad-Account-Usage"
)

// Redis key for the shared usage state.
const RedisKeyUsageState = "graph:usage:state"

// Thresholds (percent of the allowed quota) for rate limit decisions.
const (
	// UsageThresholdCritical blocks all requests when usage reaches this value.
	UsageThresholdCritical = 95

	// UsageThresholdWarning applies throttling when usage reaches this value.
	UsageThresholdWarning = 75

	// UsageThresholdHealthy indicates normal operation below this value.
	UsageThresholdHealthy = 50
)

// DefaultStateMaxAge is how long a usage reading is trusted without a fresh response.
const DefaultStateMaxAge = 60 * time.Second

// UsageState represents the latest usage reading.
// This state is shared across all client instances via Redis when configured.
type UsageState struct {
	// AppUsage is the highest of call_count, total_time and total_cputime from X-App-Usage.
	AppUsage float64 `json:"app_usage"`

	// BusinessUsage is the highest percentage across all business use case entries.
	BusinessUsage float64 `json:"business_usage"`

	// AdAccountUsage is acc_id_util_pct from X-Ad-Account-Usage.
	AdAccountUsage float64 `json:"ad_account_usage"`

	// RegainAccessAt is when a throttled business use case is expected to recover.
	RegainAccessAt time.Time `json:"regain_access_at"`

	// LastUpdate is the timestamp when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy indicates whether usage is below UsageThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// MaxUsage returns the highest usage percentage across all sources.
func (s *UsageState) MaxUsage() float64 {
	max := s.AppUsage
	if s.BusinessUsage > max {
		max = s.BusinessUsage
	}
	if s.AdAccountUsage > max {
		max = s.AdAccountUsage
	}
	return max
}

// IsStale returns true if the state data is older than the given duration.
func (s *UsageState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *UsageState) NeedsCriticalBlock() bool {
	return s.MaxUsage() >= UsageThresholdCritical || s.TimeUntilRegain() > 0
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *UsageState) NeedsThrottling() bool {
	return s.MaxUsage() >= UsageThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilRegain returns the duration until throttled access is regained.
// Returns 0 if no recovery time is pending.
func (s *UsageState) TimeUntilRegain() time.Duration {
	if s.RegainAccessAt.IsZero() {
		return 0
	}
	duration := time.Until(s.RegainAccessAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current usage.
func (s *UsageState) UpdateHealth() {
	s.IsHealthy = s.MaxUsage() < UsageThresholdHealthy && s.TimeUntilRegain() == 0
}
