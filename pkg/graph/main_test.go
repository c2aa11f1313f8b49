package graph

import (
	"testing"
	"time"

	"github.com/Sternrassler/graph-business-client/internal/testutil"
	"github.com/Sternrassler/graph-business-client/pkg/client"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

var (
	testCatalogSchema = Register(&Schema{
		Name:     "graphTestCatalog",
		Endpoint: "catalogs",
		FieldTypes: map[string]string{
			"id":   "string",
			"name": "string",
		},
		Node: true,
	})

	testProductSchema = Register(&Schema{
		Name:     "graphTestProduct",
		Endpoint: "products",
		FieldTypes: map[string]string{
			"id":       "string",
			"name":     "string",
			"price":    "int",
			"catalog":  "graphTestCatalog",
			"catalogs": "list<graphTestCatalog>",
			"tags":     "list<string>",
		},
		DefaultReadFields: []string{"id", "name"},
		Node:              true,
	})
)

// newTestClient creates a client against a fresh mock graph server.
func newTestClient(t *testing.T, mutate func(*client.Config)) (*client.Client, *testutil.MockGraph) {
	t.Helper()

	mock := testutil.NewMockGraph()
	t.Cleanup(mock.Close)

	cfg := client.DefaultConfig("test-token")
	cfg.BaseURL = mock.URL()
	cfg.Retry = client.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	return c, mock
}

func strictMode(cfg *client.Config) { cfg.StrictMode = true }
