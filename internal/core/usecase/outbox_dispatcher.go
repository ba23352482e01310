package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/ports"
)

// RetryPolicy schedules redelivery of a failed change event. The n-th failure
// waits n² seconds, capped at MaxBackoff; the MaxAttempts-th failure is final.
type RetryPolicy struct {
	MaxAttempts int
	MaxBackoff  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, MaxBackoff: 5 * time.Minute}
}

func (p RetryPolicy) Backoff(attempts int) time.Duration {
	if attempts <= 1 {
		return time.Second
	}
	d := time.Duration(attempts*attempts) * time.Second
	if d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// NextAttempt reports when an event that has now failed attempts times may
// be retried. ok is false once the attempt budget is spent.
func (p RetryPolicy) NextAttempt(now time.Time, attempts int) (time.Time, bool) {
	if attempts >= p.MaxAttempts {
		return time.Time{}, false
	}
	return now.Add(p.Backoff(attempts)), true
}

// DeliveryStats counts outcomes of delivery attempts for one aggregate.
type DeliveryStats struct {
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dead      int64 `json:"dead"`
}

type OutboxDispatcherMetrics struct {
	Total       DeliveryStats            `json:"total"`
	ByAggregate map[string]DeliveryStats `json:"by_aggregate"`
}

// OutboxDispatcher polls the outbox for grocery and store change events that
// are due and hands each to the publisher under its topic.
type OutboxDispatcher struct {
	repo      ports.OutboxRepository
	publisher ports.EventPublisher
	interval  time.Duration
	batchSize int
	policy    RetryPolicy
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsMu sync.Mutex
	stats   map[string]DeliveryStats
}

func NewOutboxDispatcher(repo ports.OutboxRepository, publisher ports.EventPublisher, interval time.Duration, batchSize int) *OutboxDispatcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &OutboxDispatcher{
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		policy:    DefaultRetryPolicy(),
		now:       func() time.Time { return time.Now().UTC() },
		stats:     map[string]DeliveryStats{},
	}
}

func (d *OutboxDispatcher) Start(parent context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	d.cancel = cancel
	d.wg.Add(1)
	go d.run(ctx)
}

func (d *OutboxDispatcher) Close() error {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
	return nil
}

func (d *OutboxDispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if err := d.dispatchDue(ctx); err != nil && ctx.Err() == nil {
			log.Printf("outbox dispatch: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// dispatchDue delivers one batch of due events. It stops at the first error
// recording delivery state; publish failures are recorded, not returned.
func (d *OutboxDispatcher) dispatchDue(ctx context.Context) error {
	events, err := d.repo.FetchPending(ctx, d.now(), d.batchSize)
	if err != nil {
		return err
	}

	for _, event := range events {
		if !event.Topic.Valid() {
			if err := d.repo.MarkDead(ctx, event.ID, event.Attempts, "unroutable topic"); err != nil {
				return err
			}
			d.record(event.Topic.Aggregate, func(s *DeliveryStats) { s.Dead++ })
			log.Printf("outbox event dead id=%d event_id=%s: unroutable topic", event.ID, event.EventID)
			continue
		}
		if err := d.deliver(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (d *OutboxDispatcher) deliver(ctx context.Context, event domain.OutboxEvent) error {
	aggregate := event.Topic.Aggregate

	var envelope domain.EventEnvelope
	publishErr := json.Unmarshal(event.PayloadJSON, &envelope)
	if publishErr != nil {
		publishErr = fmt.Errorf("decode payload: %w", publishErr)
	} else {
		publishErr = d.publisher.Publish(ctx, event.Topic, envelope)
	}

	if publishErr == nil {
		if err := d.repo.MarkDispatched(ctx, event.ID, d.now()); err != nil {
			return err
		}
		d.record(aggregate, func(s *DeliveryStats) { s.Delivered++ })
		return nil
	}

	attempts := event.Attempts + 1
	next, ok := d.policy.NextAttempt(d.now(), attempts)
	if !ok {
		if err := d.repo.MarkDead(ctx, event.ID, attempts, publishErr.Error()); err != nil {
			return err
		}
		d.record(aggregate, func(s *DeliveryStats) { s.Failed++; s.Dead++ })
		log.Printf("outbox event dead id=%d event_id=%s topic=%s attempts=%d error=%q", event.ID, event.EventID, event.Topic, attempts, publishErr)
		return nil
	}
	if err := d.repo.MarkFailed(ctx, event.ID, attempts, next, publishErr.Error()); err != nil {
		return err
	}
	d.record(aggregate, func(s *DeliveryStats) { s.Failed++ })
	return nil
}

func (d *OutboxDispatcher) record(aggregate string, apply func(*DeliveryStats)) {
	if aggregate == "" {
		aggregate = "unknown"
	}
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	s := d.stats[aggregate]
	apply(&s)
	d.stats[aggregate] = s
}

func (d *OutboxDispatcher) Metrics() OutboxDispatcherMetrics {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	m := OutboxDispatcherMetrics{ByAggregate: make(map[string]DeliveryStats, len(d.stats))}
	for aggregate, s := range d.stats {
		m.ByAggregate[aggregate] = s
		m.Total.Delivered += s.Delivered
		m.Total.Failed += s.Failed
		m.Total.Dead += s.Dead
	}
	return m
}
