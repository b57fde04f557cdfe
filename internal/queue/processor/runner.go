package processor

import (
	"context"
	"log"
	"time"
)

// Runner drives the Processor in the background. It drains the queue on a
// fixed interval, and the receiver can Wake it for immediate processing after
// an insert without waiting for the pass to finish.
type Runner struct {
	proc     *Processor
	interval time.Duration
	wake     chan struct{}
	stopCh   chan struct{}
}

func NewRunner(proc *Processor, interval time.Duration) *Runner {
	return &Runner{
		proc:     proc,
		interval: interval,
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// Wake schedules a drain without blocking. A wake-up already pending is
// enough; extra signals are dropped.
func (r *Runner) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Printf("processor runner started, interval: %s", r.interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("processor runner stopped (context cancelled)")
			return

		case <-r.stopCh:
			log.Printf("processor runner stopped (stop signal)")
			return

		case <-ticker.C:
			r.drain(ctx)

		case <-r.wake:
			r.drain(ctx)
		}
	}
}

func (r *Runner) Stop() {
	close(r.stopCh)
}

// drain runs passes until a pass claims nothing.
func (r *Runner) drain(ctx context.Context) {
	for {
		res, err := r.proc.ProcessOnce(ctx)
		if err != nil {
			log.Printf("processor runner: %v", err)
			return
		}
		if res.Claimed() == 0 {
			return
		}
		log.Printf("processor runner: processed=%d failed=%d", res.Processed, res.Failed)
	}
}
