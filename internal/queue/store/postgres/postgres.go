package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talkflow/webhookq/internal/queue"
	"github.com/talkflow/webhookq/internal/queue/store"
)

// Ensure *PostgresStore implements store.Store at compile time.
var _ store.Store = (*PostgresStore)(nil)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// helper: convert a Go duration to a Postgres interval literal like "12.500000s".
func toInterval(d time.Duration) string {
	return fmt.Sprintf("%fs", d.Seconds())
}

// SQL templates
const (
	// ON CONFLICT on the partial dedup index turns a duplicate provider
	// delivery into a no-op insert; no row comes back in that case.
	sqlInsert = `
INSERT INTO webhook_queue (id, instance_name, event_type, dedup_key, payload)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (dedup_key) WHERE dedup_key IS NOT NULL DO NOTHING
RETURNING created_at;`

	// Single CTE TX pattern: pick -> update -> return rows. The pick and the
	// status transition are one statement, so two concurrent processor runs
	// can never claim the same entry.
	sqlClaim = `
WITH picked AS (
  SELECT id
  FROM webhook_queue
  WHERE status = 'pending'
    AND attempts < $2
  ORDER BY created_at
  FOR UPDATE SKIP LOCKED
  LIMIT $1
),
claimed AS (
  UPDATE webhook_queue q
  SET status     = 'processing',
      attempts   = q.attempts + 1,
      started_at = now()
  FROM picked
  WHERE q.id = picked.id
  RETURNING q.*
)
SELECT * FROM claimed;`

	sqlMarkDone = `
UPDATE webhook_queue
SET status = 'done', completed_at = now()
WHERE id = $1 AND status = 'processing';`

	sqlMarkRetry = `
UPDATE webhook_queue
SET status = 'pending', error_message = $2, started_at = NULL
WHERE id = $1 AND status = 'processing';`

	sqlMarkFailed = `
UPDATE webhook_queue
SET status = 'failed', error_message = $2, completed_at = now()
WHERE id = $1 AND status = 'processing';`

	sqlSweepRequeue = `
UPDATE webhook_queue
SET status = 'pending', started_at = NULL
WHERE status = 'processing'
  AND started_at < now() - $1::interval
  AND attempts < $2;`

	sqlSweepExpire = `
UPDATE webhook_queue
SET status = 'failed',
    error_message = 'claim expired: handler did not complete in time',
    completed_at = now()
WHERE status = 'processing'
  AND started_at < now() - $1::interval
  AND attempts >= $2;`
)

// Insert persists a pending entry, collapsing dedup-key duplicates.
func (p *PostgresStore) Insert(ctx context.Context, e queue.Entry) (queue.Entry, bool, error) {
	err := p.pool.QueryRow(ctx, sqlInsert,
		e.ID,
		e.InstanceName,
		e.EventType,
		e.DedupKey,
		string(e.Payload),
	).Scan(&e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// duplicate delivery; the original entry already holds this payload
		return e, false, nil
	}
	if err != nil {
		return e, false, fmt.Errorf("insert queue entry: %w", err)
	}
	return e, true, nil
}

// Claim atomically leases up to opts.Limit pending entries.
func (p *PostgresStore) Claim(ctx context.Context, opts queue.ClaimOptions) ([]queue.Entry, error) {
	rows, err := p.pool.Query(ctx, sqlClaim, opts.Limit, opts.MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	defer rows.Close()

	var out []queue.Entry
	for rows.Next() {
		var e queue.Entry
		var payload string
		// NOTE: Column order must match RETURNING q.* (table order).
		err = rows.Scan(
			&e.ID,
			&e.InstanceName,
			&e.EventType,
			&e.DedupKey,
			&payload,
			&e.Status,
			&e.Attempts,
			&e.ErrorMessage,
			&e.CreatedAt,
			&e.StartedAt,
			&e.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		e.Payload = []byte(payload)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *PostgresStore) MarkDone(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, sqlMarkDone, id)
	return err
}

func (p *PostgresStore) MarkRetry(ctx context.Context, id string, errMsg string) error {
	_, err := p.pool.Exec(ctx, sqlMarkRetry, id, errMsg)
	return err
}

func (p *PostgresStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	_, err := p.pool.Exec(ctx, sqlMarkFailed, id, errMsg)
	return err
}

// Sweep recovers entries stuck in processing past the claim timeout.
func (p *PostgresStore) Sweep(ctx context.Context, olderThan time.Duration, maxAttempts int) (int, int, error) {
	interval := toInterval(olderThan)

	tag, err := p.pool.Exec(ctx, sqlSweepRequeue, interval, maxAttempts)
	if err != nil {
		return 0, 0, fmt.Errorf("sweep requeue: %w", err)
	}
	requeued := int(tag.RowsAffected())

	tag, err = p.pool.Exec(ctx, sqlSweepExpire, interval, maxAttempts)
	if err != nil {
		return requeued, 0, fmt.Errorf("sweep expire: %w", err)
	}
	return requeued, int(tag.RowsAffected()), nil
}
