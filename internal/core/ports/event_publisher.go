package ports

import (
	"context"
	"time"

	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, topic domain.Topic, event domain.EventEnvelope) error
}

type AuditTrailRepository interface {
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditTrailEvent, error)
}

// OutboxRepository tracks delivery state of change events. FetchPending
// returns pending events due at or before now, oldest first.
type OutboxRepository interface {
	FetchPending(ctx context.Context, now time.Time, limit int) ([]domain.OutboxEvent, error)
	MarkDispatched(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, attempts int, nextAttemptAt time.Time, errMsg string) error
	MarkDead(ctx context.Context, id int64, attempts int, errMsg string) error
}
