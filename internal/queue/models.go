package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a queue entry. Transitions only move
// forward: pending -> processing -> {done | pending (retry) | failed}.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Defaults used when the provider payload carries no classification metadata.
// A webhook is never rejected just because these fields are missing.
const (
	DefaultInstanceName = "unknown"
	DefaultEventType    = "messages"
)

// Entry is the durable queue row mapped to Go.
type Entry struct {
	ID           string
	InstanceName string
	EventType    string
	DedupKey     *string
	Payload      []byte
	Status       Status
	Attempts     int
	ErrorMessage *string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// ClaimOptions controls how the processor claims a batch.
type ClaimOptions struct {
	Limit       int
	MaxAttempts int
}

// envelope mirrors the well-known provider fields we classify on. Everything
// else in the payload is opaque to the queue.
type envelope struct {
	Event    string `json:"event"`
	Instance string `json:"instance"`
	Data     struct {
		Key struct {
			ID string `json:"id"`
		} `json:"key"`
	} `json:"data"`
}

// NewEntry builds a pending entry from a raw provider payload. The payload is
// stored verbatim; only classification fields are extracted, with defaults
// applied when absent. Returns an error only for malformed JSON.
func NewEntry(payload []byte) (Entry, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Entry{}, fmt.Errorf("parse webhook payload: %w", err)
	}

	instance := strings.TrimSpace(env.Instance)
	if instance == "" {
		instance = DefaultInstanceName
	}
	event := strings.TrimSpace(env.Event)
	if event == "" {
		event = DefaultEventType
	}

	e := Entry{
		ID:           uuid.NewString(),
		InstanceName: instance,
		EventType:    event,
		Payload:      payload,
		Status:       StatusPending,
	}

	// Provider message IDs give us a stable idempotency key; duplicate
	// deliveries collapse into the original entry at insert time.
	if env.Data.Key.ID != "" {
		key := instance + ":" + normalizeEvent(event) + ":" + env.Data.Key.ID
		e.DedupKey = &key
	}
	return e, nil
}

// normalizeEvent folds provider spellings ("messages.update",
// "MESSAGES_UPDATE") into one canonical form.
func normalizeEvent(eventType string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(eventType)), ".", "_")
}

// IsStatusEvent reports whether an event type routes to the status handler.
// Everything else routes to the message handler; the dispatch is a closed
// two-way split.
func IsStatusEvent(eventType string) bool {
	switch normalizeEvent(eventType) {
	case "messages_update", "status":
		return true
	}
	return false
}
