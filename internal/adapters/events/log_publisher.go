package events

import (
	"context"
	"log"

	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
)

type LogPublisher struct {
	logger *log.Logger
}

// NewLogPublisher writes one line per event to logger, or to the standard
// logger when logger is nil.
func NewLogPublisher(logger *log.Logger) *LogPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, topic domain.Topic, event domain.EventEnvelope) error {
	p.logger.Printf("%s %s/%d v%d event_id=%s actor=%s request_id=%s",
		topic, topic.Aggregate, event.AggregateID, event.AggregateVersion, event.EventID, event.Actor, event.RequestID)
	return nil
}
