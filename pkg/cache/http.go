package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTTL is the fallback TTL when neither the caller nor the response sets one
	DefaultTTL = 5 * time.Minute
)

// NewEntry builds a cache entry from a response. The expiry comes from
// Cache-Control max-age, then Expires, then fallbackTTL (DefaultTTL if zero).
func NewEntry(status int, headers http.Header, body []byte, fallbackTTL time.Duration) *CacheEntry {
	if headers == nil {
		headers = http.Header{}
	}
	if fallbackTTL <= 0 {
		fallbackTTL = DefaultTTL
	}

	entry := &CacheEntry{
		Data:       append([]byte(nil), body...),
		ETag:       headers.Get("ETag"),
		StatusCode: status,
		Headers:    headers.Clone(),
		CachedAt:   time.Now(),
		Expires:    parseExpires(headers, fallbackTTL),
	}

	if lastModStr := headers.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry
}

// IsCacheable reports whether the response headers allow storing the body.
func IsCacheable(headers http.Header) bool {
	for _, directive := range cacheControl(headers) {
		if directive == "no-store" {
			return false
		}
	}
	return true
}

// parseExpires returns the expiry for a response.
func parseExpires(headers http.Header, fallbackTTL time.Duration) time.Time {
	for _, directive := range cacheControl(headers) {
		if seconds, ok := strings.CutPrefix(directive, "max-age="); ok {
			if n, err := strconv.Atoi(seconds); err == nil && n >= 0 {
				return time.Now().Add(time.Duration(n) * time.Second)
			}
		}
	}

	if expiresStr := headers.Get("Expires"); expiresStr != "" {
		if expires, err := http.ParseTime(expiresStr); err == nil {
			if expires.Before(time.Now()) {
				return time.Now()
			}
			return expires
		}
	}

	return time.Now().Add(fallbackTTL)
}

func cacheControl(headers http.Header) []string {
	var directives []string
	for _, value := range headers.Values("Cache-Control") {
		for _, part := range strings.Split(value, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				directives = append(directives, part)
			}
		}
	}
	return directives
}

// ShouldMakeConditionalRequest determines if we should add conditional
// request headers (If-None-Match or If-Modified-Since) based on the cache entry.
func ShouldMakeConditionalRequest(entry *CacheEntry) bool {
	if entry == nil {
		return false
	}
	return entry.ETag != "" || !entry.LastModified.IsZero()
}

// AddConditionalHeaders adds If-None-Match (ETag) or If-Modified-Since
// headers for the cache entry.
func AddConditionalHeaders(header http.Header, entry *CacheEntry) {
	if entry == nil || header == nil {
		return
	}

	// ETag is more accurate than Last-Modified
	if entry.ETag != "" {
		header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		header.Set("If-Modified-Since", entry.LastModified.Format(http.TimeFormat))
	}
}
