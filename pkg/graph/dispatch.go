package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/graph-business-client/pkg/client"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MaxBatchSize is the largest number of calls the API accepts in one batch.
const MaxBatchSize = 50

// DispatchConfig controls chunked batch execution.
type DispatchConfig struct {
	// MaxBatchSize is the chunk size, capped at MaxBatchSize.
	MaxBatchSize int `yaml:"max_batch_size"`

	// Concurrency is the number of chunks in flight.
	Concurrency int `yaml:"concurrency"`
}

// DefaultDispatchConfig returns the default dispatch configuration.
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		MaxBatchSize: MaxBatchSize,
		Concurrency:  4,
	}
}

// Chunks splits the batch into batches of at most size calls.
func (b *Batch) Chunks(size int) []*Batch {
	if size <= 0 || size > MaxBatchSize {
		size = MaxBatchSize
	}
	var chunks []*Batch
	for start := 0; start < len(b.items); start += size {
		end := min(start+size, len(b.items))
		chunks = append(chunks, &Batch{
			api:   b.api,
			id:    uuid.NewString(),
			items: b.items[start:end:end],
		})
	}
	return chunks
}

// ExecuteChunked executes the batch in chunks with bounded concurrency and
// merges their retry batches in chunk order. Callbacks of different chunks
// may run concurrently. On error the retry items gathered so far are
// returned with it.
func (b *Batch) ExecuteChunked(ctx context.Context, cfg DispatchConfig) (*Batch, error) {
	chunks := b.Chunks(cfg.MaxBatchSize)
	if len(chunks) == 0 {
		return nil, nil
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	log.Debug().
		Str("batch_id", b.id).
		Int("chunks", len(chunks)).
		Int("concurrency", concurrency).
		Msg("Dispatching batch chunks")

	retries := make([]*Batch, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			retry, err := chunk.Execute(gctx)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			retries[i] = retry
			return nil
		})
	}
	err := g.Wait()

	merged := &Batch{api: b.api, id: uuid.NewString()}
	for _, retry := range retries {
		if retry != nil {
			merged.items = append(merged.items, retry.items...)
		}
	}
	if len(merged.items) == 0 {
		merged = nil
	}
	return merged, err
}

// ExecuteWithRetry executes the batch and re-executes its retry batch until
// nothing is left or attempts run out, waiting backoff (doubled each round)
// in between. When attempts run out, the Failure callbacks of the remaining
// items receive their last response and the remaining batch is returned
// with ErrRetryExhausted.
func (b *Batch) ExecuteWithRetry(ctx context.Context, attempts int, backoff time.Duration) (*Batch, error) {
	if attempts <= 0 {
		attempts = 1
	}

	current := b
	for attempt := 1; ; attempt++ {
		next, err := current.Execute(ctx)
		if err != nil {
			return current, err
		}
		if next == nil {
			return nil, nil
		}
		current = next

		if attempt >= attempts {
			break
		}

		log.Debug().
			Str("batch_id", current.id).
			Int("attempt", attempt).
			Int("items", current.Len()).
			Dur("backoff", backoff).
			Msg("Retrying transient batch items")

		select {
		case <-ctx.Done():
			return current, fmt.Errorf("%w: %v", client.ErrContextCancelled, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	current.reportFailures()
	return current, fmt.Errorf("%w: %d batch items still failing after %d attempts", client.ErrRetryExhausted, current.Len(), attempts)
}
