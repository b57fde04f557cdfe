package processor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/talkflow/webhookq/internal/handlers"
	"github.com/talkflow/webhookq/internal/metrics"
	"github.com/talkflow/webhookq/internal/queue"
	"github.com/talkflow/webhookq/internal/queue/store"
)

// Default tunables; callers override via Config.
const (
	DefaultBatchSize      = 10
	DefaultMaxAttempts    = 3
	DefaultHandlerTimeout = 30 * time.Second
)

// Dispatch is the closed two-way routing table: status-like events go to
// Status, everything else goes to Message.
type Dispatch struct {
	Message handlers.Handler
	Status  handlers.Handler
}

// For selects the handler for an event type.
func (d Dispatch) For(eventType string) handlers.Handler {
	if queue.IsStatusEvent(eventType) {
		return d.Status
	}
	return d.Message
}

// Config for creating a new Processor.
type Config struct {
	BatchSize      int           // max entries claimed per pass (default: 10)
	MaxAttempts    int           // claims before an entry is failed (default: 3)
	HandlerTimeout time.Duration // per-handler deadline (default: 30s)
}

// Result summarizes one processor pass, for logging and the trigger endpoint.
type Result struct {
	Processed int // entries retired as done
	Failed    int // entries whose handler returned an error this pass
}

// Claimed is the number of entries this pass took ownership of.
func (r Result) Claimed() int { return r.Processed + r.Failed }

// Processor drains the queue in bounded batches. Each pass claims entries
// with exclusive ownership, dispatches them sequentially, and retires or
// requeues each one independently.
type Processor struct {
	store          store.Store
	dispatch       Dispatch
	batchSize      int
	maxAttempts    int
	handlerTimeout time.Duration
}

func New(st store.Store, dispatch Dispatch, cfg Config) *Processor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = DefaultHandlerTimeout
	}
	if dispatch.Message == nil {
		dispatch.Message = handlers.Discard
	}
	if dispatch.Status == nil {
		dispatch.Status = handlers.Discard
	}
	return &Processor{
		store:          st,
		dispatch:       dispatch,
		batchSize:      cfg.BatchSize,
		maxAttempts:    cfg.MaxAttempts,
		handlerTimeout: cfg.HandlerTimeout,
	}
}

// ProcessOnce claims and works through one batch. A zero-claim pass returns
// immediately. One entry's failure never aborts the rest of the batch.
func (p *Processor) ProcessOnce(ctx context.Context) (Result, error) {
	start := time.Now()

	claimed, err := p.store.Claim(ctx, queue.ClaimOptions{
		Limit:       p.batchSize,
		MaxAttempts: p.maxAttempts,
	})
	if err != nil {
		return Result{}, fmt.Errorf("claim batch: %w", err)
	}
	if len(claimed) == 0 {
		return Result{}, nil
	}

	var res Result
	for _, e := range claimed {
		if err := p.processEntry(ctx, e); err != nil {
			res.Failed++
		} else {
			res.Processed++
		}
	}

	metrics.ProcessDuration.Observe(time.Since(start).Seconds())
	return res, nil
}

// processEntry runs one handler invocation and records the outcome on the
// entry. Attempts was already incremented at claim time.
func (p *Processor) processEntry(ctx context.Context, e queue.Entry) error {
	err := p.invoke(ctx, e)
	if err == nil {
		if markErr := p.store.MarkDone(ctx, e.ID); markErr != nil {
			log.Printf("processor: mark done %s: %v", e.ID, markErr)
		}
		metrics.EntriesProcessed.Inc()
		return nil
	}

	if e.Attempts >= p.maxAttempts {
		log.Printf("processor: entry %s failed permanently after %d attempts: %v", e.ID, e.Attempts, err)
		if markErr := p.store.MarkFailed(ctx, e.ID, err.Error()); markErr != nil {
			log.Printf("processor: mark failed %s: %v", e.ID, markErr)
		}
		metrics.EntriesFailed.Inc()
	} else {
		log.Printf("processor: entry %s failed (attempt %d/%d), will retry: %v", e.ID, e.Attempts, p.maxAttempts, err)
		if markErr := p.store.MarkRetry(ctx, e.ID, err.Error()); markErr != nil {
			log.Printf("processor: mark retry %s: %v", e.ID, markErr)
		}
		metrics.EntriesRetried.Inc()
	}
	return err
}

// invoke runs the routed handler under the configured deadline, converting a
// panic into an ordinary handler error so the batch keeps going.
func (p *Processor) invoke(ctx context.Context, e queue.Entry) (err error) {
	hctx, cancel := context.WithTimeout(ctx, p.handlerTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return p.dispatch.For(e.EventType).Handle(hctx, e.Payload)
}
