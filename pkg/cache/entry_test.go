package cache

import (
	"testing"
	"time"
)

func TestCacheEntry_Expiry(t *testing.T) {
	tests := []struct {
		name        string
		expires     time.Time
		wantExpired bool
		wantMin     time.Duration
		wantMax     time.Duration
	}{
		{
			name:        "long lived",
			expires:     time.Now().Add(time.Hour),
			wantExpired: false,
			wantMin:     59 * time.Minute,
			wantMax:     time.Hour,
		},
		{
			name:        "just expired",
			expires:     time.Now().Add(-time.Second),
			wantExpired: true,
		},
		{
			name:        "zero expiry",
			expires:     time.Time{},
			wantExpired: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &CacheEntry{Expires: tt.expires}
			if got := entry.IsExpired(); got != tt.wantExpired {
				t.Errorf("IsExpired() = %v, want %v", got, tt.wantExpired)
			}
			if got := entry.TTL(); got < tt.wantMin || got > tt.wantMax {
				t.Errorf("TTL() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}
