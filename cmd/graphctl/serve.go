package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Sternrassler/graph-business-client/pkg/cache"
	"github.com/Sternrassler/graph-business-client/pkg/client"
	"github.com/Sternrassler/graph-business-client/pkg/logging"
	"github.com/Sternrassler/graph-business-client/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const proxyPrefix = "/graph/"

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a caching read proxy in front of the graph API",
		Long: `Serves GET /graph/<path> by calling the graph API with the configured
credentials, plus /health, /ready and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.cfg.Serve, newMux(a.client, a.redis, a.cfg.Serve.Timeout))
		},
	}
}

func newMux(c *client.Client, redisClient *redis.Client, timeout time.Duration) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(redisClient))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc(proxyPrefix, graphProxyHandler(c, timeout))
	return mux
}

func serve(ctx context.Context, cfg ServeConfig, handler http.Handler) error {
	logger := logging.NewLogger(logging.ComponentProxy)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("Starting graph proxy")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("proxy server: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down graph proxy")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// readyHandler reports 503 while the cache backend is unreachable. Without
// Redis the proxy is always ready.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	var manager *cache.Manager
	if redisClient != nil {
		manager = cache.NewManager(redisClient)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if manager != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := manager.Ping(ctx); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// graphProxyHandler forwards GET /graph/<path>?<params> as a graph read.
// Errors returned by the API are passed through unchanged.
func graphProxyHandler(c *client.Client, timeout time.Duration) http.HandlerFunc {
	logger := logging.NewLogger(logging.ComponentProxy)

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		path := strings.Trim(strings.TrimPrefix(r.URL.Path, proxyPrefix), "/")
		if path == "" {
			http.Error(w, "missing graph path", http.StatusBadRequest)
			return
		}

		params := client.Params{}
		for key, values := range r.URL.Query() {
			if key == "access_token" || key == "appsecret_proof" || len(values) == 0 {
				continue
			}
			params[key] = values[0]
		}

		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		resp, err := c.Call(ctx, client.Call{
			Method: http.MethodGet,
			Path:   strings.Split(path, "/"),
			Params: params,
		})
		if err != nil {
			var reqErr *client.RequestError
			if errors.As(err, &reqErr) && reqErr.StatusCode != 0 {
				logger.Debug().Str("path", path).Int("status_code", reqErr.StatusCode).Msg("Passing through graph error")
				writeUpstream(w, reqErr.StatusCode, reqErr.Headers, reqErr.Body)
				return
			}
			logger.Warn().Err(err).Str("path", path).Msg("Graph request failed")
			http.Error(w, fmt.Sprintf("graph request failed: %v", err), http.StatusBadGateway)
			return
		}
		writeUpstream(w, resp.Status(), resp.Headers(), resp.Body())
	}
}

func writeUpstream(w http.ResponseWriter, status int, headers http.Header, body []byte) {
	for key, values := range headers {
		if strings.EqualFold(key, "Content-Length") {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger := logging.NewLogger(logging.ComponentProxy)
		logger.Debug().Err(err).Msg("Failed to write response")
	}
}
