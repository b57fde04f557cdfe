package store

import (
	"context"
	"time"

	"github.com/talkflow/webhookq/internal/queue"
)

// Store is the DB-agnostic interface the rest of the app uses.
type Store interface {
	// Insert persists a new pending entry. When the entry carries a dedup
	// key that already exists, the insert is a no-op and inserted is false.
	Insert(ctx context.Context, e queue.Entry) (stored queue.Entry, inserted bool, err error)

	// Claim atomically transitions up to opts.Limit pending entries with
	// attempts < opts.MaxAttempts to processing, oldest first, incrementing
	// attempts and stamping started_at in the same operation. Two concurrent
	// claims never return the same entry.
	Claim(ctx context.Context, opts queue.ClaimOptions) ([]queue.Entry, error)

	// MarkDone retires a processing entry as done.
	MarkDone(ctx context.Context, id string) error

	// MarkRetry returns a processing entry to pending, recording the last
	// failure reason.
	MarkRetry(ctx context.Context, id string, errMsg string) error

	// MarkFailed retires a processing entry as terminally failed.
	MarkFailed(ctx context.Context, id string, errMsg string) error

	// Sweep requeues processing entries claimed more than olderThan ago that
	// still have attempts left, and fails the ones that do not. Returns how
	// many entries took each path.
	Sweep(ctx context.Context, olderThan time.Duration, maxAttempts int) (requeued int, failed int, err error)
}
