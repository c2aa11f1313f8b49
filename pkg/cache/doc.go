// Package cache stores graph GET responses in Redis and replays them through
// conditional requests.
//
// Graph nodes carry an ETag. The client keeps the last successful body for a
// (path, params, token) triple and sends If-None-Match on the next read; a
// 304 Not Modified answer is served from the stored entry and its TTL is
// extended.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Path:      "v21.0/1234/feed",
//		Params:    map[string]string{"fields": "id,message"},
//		Principal: "9f2c01ab",
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the graph API
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req.Header, entry)
//	}
//
// # Invalidation
//
// Every entry is listed under its node ("v21.0/1234" for "v21.0/1234/feed").
// The client calls Invalidate after a successful write to a node so later
// reads of the node and its edges go to the API unconditionally.
//
//	n, err := manager.Invalidate(ctx, "v21.0/1234")
//
// # Metrics
//
//   - graph_cache_hits_total{layer="redis"}
//   - graph_cache_misses_total
//   - graph_cache_size_bytes{layer="redis"}
//   - graph_304_responses_total
//   - graph_cache_errors_total{operation}
//   - graph_cache_invalidations_total
package cache
