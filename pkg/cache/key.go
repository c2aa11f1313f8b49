package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Params never stored in a key; they are either secret or derived from the token.
var excludedParams = map[string]bool{
	"access_token":    true,
	"appsecret_proof": true,
}

// CacheKey identifies a cached graph read.
type CacheKey struct {
	// Path is the versioned request path (e.g. "v21.0/1234/feed")
	Path string

	// Params are the encoded query parameters
	Params map[string]string

	// Principal distinguishes callers with different tokens without storing the token
	Principal string
}

// String generates a deterministic cache key string.
// Format: graph:path:param1=val1:param2=val2:tok=principal
//
// Example:
//
//	graph:v21.0/1234/feed:fields=id,message:limit=25:tok=9f2c01ab
func (k CacheKey) String() string {
	parts := []string{"graph"}

	if path := strings.Trim(k.Path, "/"); path != "" {
		parts = append(parts, path)
	}

	keys := make([]string, 0, len(k.Params))
	for key := range k.Params {
		if excludedParams[key] {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", key, k.Params[key]))
	}

	if k.Principal != "" {
		parts = append(parts, "tok="+k.Principal)
	}

	return strings.Join(parts, ":")
}
