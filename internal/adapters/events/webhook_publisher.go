package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
)

const (
	defaultWebhookTimeout = 10 * time.Second

	headerTopic            = "X-Grocerydb-Topic"
	headerEventType        = "X-Grocerydb-Event-Type"
	headerEventID          = "X-Grocerydb-Event-Id"
	headerAggregate        = "X-Grocerydb-Aggregate"
	headerAggregateID      = "X-Grocerydb-Aggregate-Id"
	headerAggregateVersion = "X-Grocerydb-Aggregate-Version"
	headerSignature        = "X-Hub-Signature-256"
)

// WebhookPublisher POSTs grocery and store change events to one endpoint.
// The body is the event envelope, signed with HMAC-SHA256 over the raw bytes.
// Any non-2xx response is a delivery failure.
type WebhookPublisher struct {
	url    string
	secret []byte
	client *http.Client
}

func NewWebhookPublisher(url, secret string, timeout time.Duration) *WebhookPublisher {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookPublisher{
		url:    url,
		secret: []byte(secret),
		client: &http.Client{Timeout: timeout},
	}
}

// Publish sends event with routing headers derived from topic, so receivers
// can dispatch on the aggregate without decoding the body:
//
//	X-Grocerydb-Topic:             events.store.updated
//	X-Grocerydb-Event-Type:        store.updated
//	X-Grocerydb-Aggregate:         store
//	X-Grocerydb-Aggregate-Id:      <event.AggregateID>
//	X-Grocerydb-Aggregate-Version: <event.AggregateVersion>
//	X-Grocerydb-Event-Id:          <event.EventID>
//	X-Hub-Signature-256:           sha256=<hex HMAC-SHA256 of the body>
func (p *WebhookPublisher) Publish(ctx context.Context, topic domain.Topic, event domain.EventEnvelope) error {
	req, err := p.newRequest(ctx, topic, event)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver %s to webhook: %w", topic, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook rejected %s event %s: status %d", topic.EventType(), event.EventID, resp.StatusCode)
	}
	return nil
}

func (p *WebhookPublisher) newRequest(ctx context.Context, topic domain.Topic, event domain.EventEnvelope) (*http.Request, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", topic, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerTopic, topic.String())
	req.Header.Set(headerEventType, topic.EventType())
	req.Header.Set(headerAggregate, topic.Aggregate)
	req.Header.Set(headerAggregateID, strconv.FormatInt(event.AggregateID, 10))
	req.Header.Set(headerAggregateVersion, strconv.FormatInt(event.AggregateVersion, 10))
	req.Header.Set(headerEventID, event.EventID)
	req.Header.Set(headerSignature, "sha256="+p.sign(body))
	return req, nil
}

func (p *WebhookPublisher) sign(body []byte) string {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
