package domain

import (
	"context"
	"encoding/json"
	"time"
)

const CurrentEventSchemaVersion = 1

const (
	OutboxStatusPending    = "pending"
	OutboxStatusDispatched = "dispatched"
	OutboxStatusDead       = "dead"
)

type MutationMetadata struct {
	Actor      string
	Source     string
	RequestID  string
	OccurredAt time.Time
}

func (m MutationMetadata) Normalize() MutationMetadata {
	if m.Actor == "" {
		m.Actor = "system"
	}
	if m.Source == "" {
		m.Source = "internal"
	}
	if m.OccurredAt.IsZero() {
		m.OccurredAt = time.Now().UTC()
	}
	return m
}

type metadataCtxKey struct{}

// WithMutationMetadata attaches meta to ctx so that repositories can stamp the
// change events they write for a mutation.
func WithMutationMetadata(ctx context.Context, meta MutationMetadata) context.Context {
	return context.WithValue(ctx, metadataCtxKey{}, meta)
}

// MutationMetadataFrom returns the metadata carried by ctx, normalized.
func MutationMetadataFrom(ctx context.Context) MutationMetadata {
	meta, _ := ctx.Value(metadataCtxKey{}).(MutationMetadata)
	return meta.Normalize()
}

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	SchemaVersion    int             `json:"schema_version"`
	AggregateType    string          `json:"aggregate_type"`
	AggregateID      int64           `json:"aggregate_id"`
	AggregateVersion int64           `json:"aggregate_version"`
	OccurredAt       time.Time       `json:"occurred_at"`
	RequestID        string          `json:"request_id"`
	Actor            string          `json:"actor"`
	Source           string          `json:"source"`
	Payload          json.RawMessage `json:"payload"`
}

type AuditTrailEvent struct {
	ID               int64           `json:"id"`
	EventID          string          `json:"event_id"`
	SchemaVersion    int             `json:"schema_version"`
	AggregateType    string          `json:"aggregate_type"`
	AggregateID      int64           `json:"aggregate_id"`
	AggregateVersion int64           `json:"aggregate_version"`
	Action           string          `json:"action"`
	Actor            string          `json:"actor"`
	Source           string          `json:"source"`
	RequestID        string          `json:"request_id"`
	BeforeJSON       json.RawMessage `json:"before_json,omitempty"`
	AfterJSON        json.RawMessage `json:"after_json,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

type OutboxEvent struct {
	ID            int64
	EventID       string
	Topic         Topic
	PayloadJSON   json.RawMessage
	Status        string
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	DispatchedAt  *time.Time
}

type AuditFilter struct {
	AggregateType string
	AggregateID   int64
	Action        string
	AfterID       int64
	Limit         int
}

func (f AuditFilter) Validate() error {
	if f.AggregateType != "" {
		if err := ValidateAggregateType(f.AggregateType); err != nil {
			return err
		}
	}
	if f.AggregateID < 0 || f.AfterID < 0 {
		return ErrInvalidFilter
	}
	return nil
}
