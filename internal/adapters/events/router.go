package events

import (
	"context"

	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/ports"
)

// AggregateRouter delivers each event to the publisher registered for the
// topic's aggregate, or to the fallback when none is registered.
type AggregateRouter struct {
	fallback ports.EventPublisher
	routes   map[string]ports.EventPublisher
}

func NewAggregateRouter(fallback ports.EventPublisher) *AggregateRouter {
	return &AggregateRouter{fallback: fallback, routes: map[string]ports.EventPublisher{}}
}

// Route registers p for aggregate. A nil p leaves the aggregate on the fallback.
func (r *AggregateRouter) Route(aggregate string, p ports.EventPublisher) *AggregateRouter {
	if p != nil {
		r.routes[aggregate] = p
	}
	return r
}

func (r *AggregateRouter) Publish(ctx context.Context, topic domain.Topic, event domain.EventEnvelope) error {
	if p, ok := r.routes[topic.Aggregate]; ok {
		return p.Publish(ctx, topic, event)
	}
	return r.fallback.Publish(ctx, topic, event)
}
