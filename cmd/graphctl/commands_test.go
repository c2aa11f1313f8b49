package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sternrassler/graph-business-client/internal/testutil"
	"github.com/google/go-cmp/cmp"
)

// runCmd executes graphctl against mock with a generated config file and
// returns stdout.
func runCmd(t *testing.T, mock *testutil.MockGraph, args ...string) (string, error) {
	t.Helper()
	isolateEnv(t)

	cfg := writeConfig(t, fmt.Sprintf(`
client:
  access_token: test-token
  base_url: %s
  retry:
    initial_backoff: 1ms
    max_backoff: 1ms
logging:
  level: error
`, mock.URL()))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(append([]string{"--config", cfg}, args...))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// jsonLines decodes one JSON object per output line.
func jsonLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var lines []map[string]any
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("output line %q: %v", sc.Text(), err)
		}
		lines = append(lines, m)
	}
	return lines
}

func TestGetCmd(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetResponse("GET /v21.0/123", testutil.NewJSONResponse(http.StatusOK, `{"id":"123","name":"Bakery","fan_count":42}`))

	out, err := runCmd(t, mock, "get", "123", "--schema", "Page", "--fields", "name,fan_count", "--param", "locale=de_DE")
	if err != nil {
		t.Fatalf("get error = %v", err)
	}

	got := jsonLines(t, out)
	want := []map[string]any{{"id": "123", "name": "Bakery", "fan_count": float64(42)}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("get output mismatch (-want +got):\n%s", diff)
	}

	req := mock.LastRequest()
	if f := req.Query.Get("fields"); f != "name,fan_count" {
		t.Errorf("fields = %q, want %q", f, "name,fan_count")
	}
	if l := req.Query.Get("locale"); l != "de_DE" {
		t.Errorf("locale = %q, want de_DE", l)
	}
	if tok := req.Query.Get("access_token"); tok != "test-token" {
		t.Errorf("access_token = %q, want test-token", tok)
	}
}

func TestGetCmd_ParamsNotTypedBySchema(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetResponse("GET /v21.0/123", testutil.NewJSONResponse(http.StatusOK, `{"id":"123"}`))

	// fan_count is a Page field, not a param of the read.
	_, err := runCmd(t, mock, "get", "123", "--schema", "Page", "--param", "fan_count=lots", "--param", "ids=1, 2")
	if err != nil {
		t.Fatalf("get error = %v", err)
	}

	q := mock.LastRequest().Query
	if got := q.Get("fan_count"); got != "lots" {
		t.Errorf("fan_count = %q, want lots", got)
	}
	if got := q.Get("ids"); got != "1, 2" {
		t.Errorf("ids = %q, want the value as given", got)
	}
}

func TestGetCmd_Errors(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetResponse("GET /v21.0/404", testutil.NewErrorResponse(http.StatusBadRequest, 100, "Object does not exist", false))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown schema", []string{"get", "1", "--schema", "Nope"}, `unknown schema "Nope"`},
		{"bad param", []string{"get", "1", "--param", "novalue"}, "want key=value"},
		{"graph error", []string{"get", "404"}, "Object does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, mock, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestRootCmd_NoToken(t *testing.T) {
	isolateEnv(t)
	cfg := writeConfig(t, "logging:\n  level: error\n")

	root := newRootCmd()
	root.SetArgs([]string{"--config", cfg, "get", "1"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if err := root.ExecuteContext(context.Background()); !errors.Is(err, errNoToken) {
		t.Errorf("error = %v, want %v", err, errNoToken)
	}
}

func pagedEdge(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Query().Get("after") {
	case "":
		fmt.Fprint(w, `{"data":[{"id":"1"},{"id":"2"}],"paging":{"cursors":{"after":"c1"},"next":"https://graph.facebook.com/next"}}`)
	default:
		fmt.Fprint(w, `{"data":[{"id":"3"}],"paging":{"cursors":{"after":"c2"}}}`)
	}
}

func TestEdgeCmd(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantIDs []string
	}{
		{"first page", []string{"edge", "123", "feed", "--limit", "2"}, []string{"1", "2"}},
		{"all pages", []string{"edge", "123", "/feed/", "--all"}, []string{"1", "2", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockGraph()
			defer mock.Close()
			mock.SetHandler("GET /v21.0/123/feed", pagedEdge)

			out, err := runCmd(t, mock, tt.args...)
			if err != nil {
				t.Fatalf("edge error = %v", err)
			}

			var ids []string
			for _, line := range jsonLines(t, out) {
				ids = append(ids, line["id"].(string))
			}
			if diff := cmp.Diff(tt.wantIDs, ids); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}

	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetHandler("GET /v21.0/123/feed", pagedEdge)
	if _, err := runCmd(t, mock, "edge", "123", "feed", "--limit", "2"); err != nil {
		t.Fatalf("edge error = %v", err)
	}
	if got := mock.LastRequest().Query.Get("limit"); got != "2" {
		t.Errorf("limit = %q, want 2", got)
	}
}

func writeBatchFile(t *testing.T, calls string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calls.json")
	if err := os.WriteFile(path, []byte(calls), 0o600); err != nil {
		t.Fatalf("write batch file: %v", err)
	}
	return path
}

func TestBatchCmd(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()

	rounds := 0
	mock.SetBatchResponder(func(items []testutil.BatchItem) []any {
		rounds++
		out := make([]any, len(items))
		for i, item := range items {
			switch {
			case item.RelativeURL == "flaky" && rounds == 1:
				out[i] = nil
			case item.Method == http.MethodPost:
				out[i] = testutil.BatchResult(200, `{"success":true}`)
			default:
				out[i] = testutil.BatchResult(200, fmt.Sprintf(`{"id":%q}`, item.RelativeURL))
			}
		}
		return out
	})

	path := writeBatchFile(t, `[
		{"name": "page", "method": "GET", "relative_url": "123"},
		{"method": "POST", "relative_url": "123", "params": {"about": "fresh bread"}},
		{"name": "retry", "method": "GET", "relative_url": "flaky"}
	]`)

	out, err := runCmd(t, mock, "batch", path, "--backoff", "1ms")
	if err != nil {
		t.Fatalf("batch error = %v", err)
	}

	got := jsonLines(t, out)
	want := []map[string]any{
		{"index": float64(0), "name": "page", "outcome": "success", "status": float64(200), "body": map[string]any{"id": "123"}},
		{"index": float64(1), "outcome": "success", "status": float64(200), "body": map[string]any{"success": true}},
		{"index": float64(2), "name": "retry", "outcome": "success", "status": float64(200), "body": map[string]any{"id": "flaky"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("batch output mismatch (-want +got):\n%s", diff)
	}
	if rounds != 2 {
		t.Errorf("batch rounds = %d, want 2", rounds)
	}
}

func TestBatchCmd_Failures(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetBatchResponder(func(items []testutil.BatchItem) []any {
		out := make([]any, len(items))
		for i := range items {
			out[i] = testutil.BatchResult(400, testutil.ErrorBody(100, "Invalid parameter", false))
		}
		return out
	})

	path := writeBatchFile(t, `[{"method": "GET", "relative_url": "bad"}]`)
	out, err := runCmd(t, mock, "batch", path)
	if err == nil || !strings.Contains(err.Error(), "1 of 1 calls did not succeed") {
		t.Errorf("batch error = %v, want failure count", err)
	}

	lines := jsonLines(t, out)
	if len(lines) != 1 || lines[0]["outcome"] != "failure" || lines[0]["status"] != float64(400) {
		t.Errorf("batch output = %v, want one failure with status 400", lines)
	}

	if _, err := runCmd(t, mock, "batch", writeBatchFile(t, `{"not": "a list"}`)); err == nil {
		t.Error("batch with a malformed file should fail")
	}
}
