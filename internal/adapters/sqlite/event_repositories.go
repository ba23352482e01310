package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atvirokodosprendimai/grocerydb/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type auditEventModel struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EventID          string    `gorm:"column:event_id;not null"`
	SchemaVersion    int       `gorm:"column:schema_version;not null"`
	AggregateType    string    `gorm:"column:aggregate_type;not null"`
	AggregateID      int64     `gorm:"column:aggregate_id;not null"`
	AggregateVersion int64     `gorm:"column:aggregate_version;not null"`
	Action           string    `gorm:"column:action;not null"`
	Actor            string    `gorm:"column:actor;not null"`
	Source           string    `gorm:"column:source;not null"`
	RequestID        string    `gorm:"column:request_id;not null"`
	BeforeJSON       *string   `gorm:"column:before_json"`
	AfterJSON        *string   `gorm:"column:after_json"`
	OccurredAt       time.Time `gorm:"column:occurred_at;not null"`
}

func (auditEventModel) TableName() string {
	return "audit_events"
}

type outboxEventModel struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	EventID       string     `gorm:"column:event_id;not null"`
	Topic         string     `gorm:"column:topic;not null"`
	PayloadJSON   string     `gorm:"column:payload_json;not null"`
	Status        string     `gorm:"column:status;not null"`
	Attempts      int        `gorm:"column:attempts;not null"`
	NextAttemptAt time.Time  `gorm:"column:next_attempt_at;not null"`
	LastError     string     `gorm:"column:last_error;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
	DispatchedAt  *time.Time `gorm:"column:dispatched_at"`
}

func (outboxEventModel) TableName() string {
	return "outbox_events"
}

// changeEvent describes one committed mutation. before is nil on create and
// after is nil on delete.
type changeEvent struct {
	aggregate string
	id        int64
	action    domain.Action
	meta      domain.MutationMetadata
	before    any
	after     any
}

func appendChangeEvents(tx *gorm.DB, change changeEvent) error {
	version, err := nextAggregateVersion(tx, change.aggregate, change.id)
	if err != nil {
		return err
	}

	topic := domain.NewTopic(change.aggregate, change.action)
	occurredAt := change.meta.OccurredAt.UTC()
	payload := change.after
	if payload == nil {
		payload = map[string]any{"id": change.id}
	}
	envelope := domain.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        topic.EventType(),
		SchemaVersion:    domain.CurrentEventSchemaVersion,
		AggregateType:    change.aggregate,
		AggregateID:      change.id,
		AggregateVersion: version,
		OccurredAt:       occurredAt,
		RequestID:        change.meta.RequestID,
		Actor:            change.meta.Actor,
		Source:           change.meta.Source,
		Payload:          mustJSON(payload),
	}

	audit := auditEventModel{
		EventID:          envelope.EventID,
		SchemaVersion:    envelope.SchemaVersion,
		AggregateType:    envelope.AggregateType,
		AggregateID:      envelope.AggregateID,
		AggregateVersion: envelope.AggregateVersion,
		Action:           envelope.EventType,
		Actor:            envelope.Actor,
		Source:           envelope.Source,
		RequestID:        envelope.RequestID,
		BeforeJSON:       optionalJSON(change.before),
		AfterJSON:        optionalJSON(change.after),
		OccurredAt:       occurredAt,
	}
	if err := tx.Create(&audit).Error; err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	outbox := outboxEventModel{
		EventID:       envelope.EventID,
		Topic:         topic.String(),
		PayloadJSON:   string(body),
		Status:        domain.OutboxStatusPending,
		NextAttemptAt: occurredAt,
		CreatedAt:     occurredAt,
	}
	if err := tx.Create(&outbox).Error; err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func nextAggregateVersion(tx *gorm.DB, aggregate string, id int64) (int64, error) {
	var maxVersion int64
	err := tx.Model(&auditEventModel{}).
		Where("aggregate_type = ? AND aggregate_id = ?", aggregate, id).
		Select("COALESCE(MAX(aggregate_version), 0)").
		Scan(&maxVersion).Error
	if err != nil {
		return 0, fmt.Errorf("query aggregate version: %w", err)
	}
	return maxVersion + 1, nil
}

func optionalJSON(v any) *string {
	if v == nil {
		return nil
	}
	s := string(mustJSON(v))
	return &s
}

type AuditTrailRepository struct {
	db *gormsqlite.DB
}

func NewAuditTrailRepository(db *gormsqlite.DB) *AuditTrailRepository {
	return &AuditTrailRepository{db: db}
}

func (r *AuditTrailRepository) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditTrailEvent, error) {
	var rows []auditEventModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		query := tx.Model(&auditEventModel{})
		if filter.AggregateType != "" {
			query = query.Where("aggregate_type = ?", filter.AggregateType)
		}
		if filter.AggregateID > 0 {
			query = query.Where("aggregate_id = ?", filter.AggregateID)
		}
		if filter.Action != "" {
			query = query.Where("action = ?", filter.Action)
		}
		if filter.AfterID > 0 {
			query = query.Where("id < ?", filter.AfterID)
		}
		return query.Order("id DESC").Limit(filter.Limit).Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}

	result := make([]domain.AuditTrailEvent, 0, len(rows))
	for _, row := range rows {
		event := domain.AuditTrailEvent{
			ID:               row.ID,
			EventID:          row.EventID,
			SchemaVersion:    row.SchemaVersion,
			AggregateType:    row.AggregateType,
			AggregateID:      row.AggregateID,
			AggregateVersion: row.AggregateVersion,
			Action:           row.Action,
			Actor:            row.Actor,
			Source:           row.Source,
			RequestID:        row.RequestID,
			OccurredAt:       row.OccurredAt,
		}
		if row.BeforeJSON != nil {
			event.BeforeJSON = json.RawMessage(*row.BeforeJSON)
		}
		if row.AfterJSON != nil {
			event.AfterJSON = json.RawMessage(*row.AfterJSON)
		}
		result = append(result, event)
	}

	return result, nil
}

type OutboxRepository struct {
	db *gormsqlite.DB
}

func NewOutboxRepository(db *gormsqlite.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) FetchPending(ctx context.Context, now time.Time, limit int) ([]domain.OutboxEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []outboxEventModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("status = ? AND next_attempt_at <= ?", domain.OutboxStatusPending, now.UTC()).
			Order("id ASC").
			Limit(limit).
			Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox: %w", err)
	}

	result := make([]domain.OutboxEvent, 0, len(rows))
	for _, row := range rows {
		event := domain.OutboxEvent{
			ID:            row.ID,
			EventID:       row.EventID,
			PayloadJSON:   json.RawMessage(row.PayloadJSON),
			Status:        row.Status,
			Attempts:      row.Attempts,
			NextAttemptAt: row.NextAttemptAt,
			LastError:     row.LastError,
			CreatedAt:     row.CreatedAt,
			DispatchedAt:  row.DispatchedAt,
		}
		// A row with an unknown topic keeps the zero Topic; the dispatcher
		// dead-letters it.
		if topic, err := domain.ParseTopic(row.Topic); err == nil {
			event.Topic = topic
		}
		result = append(result, event)
	}
	return result, nil
}

func (r *OutboxRepository) MarkDispatched(ctx context.Context, id int64, at time.Time) error {
	at = at.UTC()
	return r.update(ctx, id, "mark outbox dispatched", map[string]any{
		"status":        domain.OutboxStatusDispatched,
		"dispatched_at": &at,
		"last_error":    "",
	})
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, attempts int, nextAttemptAt time.Time, errMsg string) error {
	return r.update(ctx, id, "mark outbox failed", map[string]any{
		"attempts":        attempts,
		"next_attempt_at": nextAttemptAt.UTC(),
		"last_error":      errMsg,
	})
}

func (r *OutboxRepository) MarkDead(ctx context.Context, id int64, attempts int, errMsg string) error {
	return r.update(ctx, id, "mark outbox dead", map[string]any{
		"status":     domain.OutboxStatusDead,
		"attempts":   attempts,
		"last_error": errMsg,
	})
}

func (r *OutboxRepository) update(ctx context.Context, id int64, op string, columns map[string]any) error {
	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Model(&outboxEventModel{}).Where("id = ?", id).Updates(columns).Error
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
