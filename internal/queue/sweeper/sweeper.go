package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/talkflow/webhookq/internal/metrics"
	"github.com/talkflow/webhookq/internal/queue/store"
)

// Sweeper recovers entries stuck in processing: a handler that never returned
// leaves its entry claimed forever, so the sweeper periodically requeues
// claims older than the timeout (or fails them once attempts are exhausted).
type Sweeper struct {
	store        store.Store
	interval     time.Duration
	claimTimeout time.Duration
	maxAttempts  int
	stopCh       chan struct{}
}

func New(st store.Store, interval, claimTimeout time.Duration, maxAttempts int) *Sweeper {
	return &Sweeper{
		store:        st,
		interval:     interval,
		claimTimeout: claimTimeout,
		maxAttempts:  maxAttempts,
		stopCh:       make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("sweeper started, interval: %s, claim timeout: %s", s.interval, s.claimTimeout)

	for {
		select {
		case <-ctx.Done():
			log.Printf("sweeper stopped (context cancelled)")
			return

		case <-s.stopCh:
			log.Printf("sweeper stopped (stop signal)")
			return

		case <-ticker.C:
			requeued, failed, err := s.store.Sweep(ctx, s.claimTimeout, s.maxAttempts)
			if err != nil {
				metrics.SweepErrors.Inc()
				log.Printf("sweeper error: %v", err)
				continue
			}
			if requeued > 0 {
				metrics.EntriesRequeued.Add(float64(requeued))
			}
			if failed > 0 {
				metrics.EntriesExpired.Add(float64(failed))
			}
			if requeued > 0 || failed > 0 {
				log.Printf("sweeper recovered %d stuck entries (%d requeued, %d failed)", requeued+failed, requeued, failed)
			}
		}
	}
}

func (s *Sweeper) Stop() {
	close(s.stopCh)
}
