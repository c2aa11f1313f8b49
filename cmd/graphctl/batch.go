package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Sternrassler/graph-business-client/pkg/client"
	"github.com/Sternrassler/graph-business-client/pkg/graph"
	"github.com/Sternrassler/graph-business-client/pkg/logging"
	"github.com/spf13/cobra"
)

// batchCall is one entry of a batch file.
type batchCall struct {
	Name        string            `json:"name,omitempty"`
	Method      string            `json:"method"`
	RelativeURL string            `json:"relative_url"`
	Params      map[string]any    `json:"params,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// batchResult is printed for every entry once the batch has settled.
type batchResult struct {
	Index   int             `json:"index"`
	Name    string          `json:"name,omitempty"`
	Outcome string          `json:"outcome"`
	Status  int             `json:"status"`
	Body    json.RawMessage `json:"body,omitempty"`
}

// batchResults collects callback outcomes. Chunks report concurrently.
type batchResults struct {
	mu      sync.Mutex
	results []batchResult
}

func (r *batchResults) callbacks(i int) graph.Callbacks {
	record := func(outcome string) func(*client.Response) {
		return func(resp *client.Response) {
			r.mu.Lock()
			defer r.mu.Unlock()
			res := &r.results[i]
			res.Outcome = outcome
			res.Status = resp.Status()
			res.Body = nil
			if json.Valid(resp.Body()) {
				res.Body = json.RawMessage(resp.Body())
			}
		}
	}
	return graph.Callbacks{
		Success:   record("success"),
		Failure:   record("failure"),
		Transient: record("transient"),
	}
}

func (r *batchResults) failed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, res := range r.results {
		if res.Outcome != "success" {
			n++
		}
	}
	return n
}

func readBatchFile(path string) ([]batchCall, error) {
	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}

	var calls []batchCall
	dec := json.NewDecoder(in)
	dec.UseNumber()
	if err := dec.Decode(&calls); err != nil {
		return nil, fmt.Errorf("decode batch file: %w", err)
	}
	return calls, nil
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		attempts int
		backoff  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Execute a JSON list of calls as batch requests, retrying transient failures",
		Long: `Reads a JSON array of {"method", "relative_url", "params", "headers", "name"}
objects ("-" reads stdin), sends them in batches of up to 50 calls and prints
one result per call.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			calls, err := readBatchFile(args[0])
			if err != nil {
				return err
			}

			results := &batchResults{results: make([]batchResult, len(calls))}
			batch := graph.NewBatch(a.client)
			for i, c := range calls {
				results.results[i] = batchResult{Index: i, Name: c.Name, Outcome: "pending"}
				err := batch.Add(graph.Entry{
					Method:      c.Method,
					RelativeURL: c.RelativeURL,
					Params:      client.Params(c.Params),
					Headers:     c.Headers,
					Callbacks:   results.callbacks(i),
				})
				if err != nil {
					return fmt.Errorf("call %d: %w", i, err)
				}
			}

			if err := runBatch(cmd, batch, a.cfg.Dispatch, attempts, backoff); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, res := range results.results {
				if err := writeJSON(out, res); err != nil {
					return err
				}
			}
			if n := results.failed(); n > 0 {
				return fmt.Errorf("%d of %d calls did not succeed", n, len(calls))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&attempts, "attempts", 3, "rounds for transiently failing calls")
	cmd.Flags().DurationVar(&backoff, "backoff", time.Second, "wait before the first retry round, doubled each round")
	return cmd
}

// runBatch executes the batch in chunks and re-sends transient failures
// until attempts run out.
func runBatch(cmd *cobra.Command, batch *graph.Batch, cfg graph.DispatchConfig, attempts int, backoff time.Duration) error {
	logger := logging.NewLogger(logging.ComponentCLI)
	ctx := cmd.Context()

	pending := batch
	for attempt := 1; ; attempt++ {
		retry, err := pending.ExecuteChunked(ctx, cfg)
		if err != nil {
			return err
		}
		if retry == nil {
			return nil
		}
		if attempt >= attempts {
			logger.Warn().Int("calls", retry.Len()).Int("attempts", attempts).Msg("Giving up on transient batch calls")
			return nil
		}

		logger.Info().Str("batch_id", retry.ID()).Int("calls", retry.Len()).Dur("backoff", backoff).Msg("Retrying transient batch calls")
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", client.ErrContextCancelled, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
		pending = retry
	}
}
