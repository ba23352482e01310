package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
)

func TestWebhookPublisherSignsAndSendsEvent(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	secret := "test-secret"
	pub := NewWebhookPublisher(srv.URL, secret, 5*time.Second)

	event := domain.EventEnvelope{
		EventID:          "evt-1",
		EventType:        "grocery.created",
		SchemaVersion:    1,
		AggregateType:    "grocery",
		AggregateID:      1,
		AggregateVersion: 1,
		Payload:          json.RawMessage(`{"id":1,"name":"Milk"}`),
	}

	topic := domain.NewTopic(domain.AggregateGrocery, domain.ActionCreated)
	if err := pub.Publish(context.Background(), topic, event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ct := gotHeaders.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if topic := gotHeaders.Get("X-Grocerydb-Topic"); topic != "events.grocery.created" {
		t.Errorf("X-Grocerydb-Topic = %q", topic)
	}
	if et := gotHeaders.Get("X-Grocerydb-Event-Type"); et != "grocery.created" {
		t.Errorf("X-Grocerydb-Event-Type = %q", et)
	}
	if id := gotHeaders.Get("X-Grocerydb-Event-Id"); id != "evt-1" {
		t.Errorf("X-Grocerydb-Event-Id = %q", id)
	}
	if agg := gotHeaders.Get("X-Grocerydb-Aggregate"); agg != "grocery" {
		t.Errorf("X-Grocerydb-Aggregate = %q", agg)
	}
	if id := gotHeaders.Get("X-Grocerydb-Aggregate-Id"); id != "1" {
		t.Errorf("X-Grocerydb-Aggregate-Id = %q", id)
	}
	if v := gotHeaders.Get("X-Grocerydb-Aggregate-Version"); v != "1" {
		t.Errorf("X-Grocerydb-Aggregate-Version = %q", v)
	}

	sigHeader := gotHeaders.Get("X-Hub-Signature-256")
	if !strings.HasPrefix(sigHeader, "sha256=") {
		t.Fatalf("X-Hub-Signature-256 header missing or malformed: %q", sigHeader)
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	if want := hex.EncodeToString(mac.Sum(nil)); strings.TrimPrefix(sigHeader, "sha256=") != want {
		t.Errorf("signature mismatch: got %q, want %q", sigHeader, want)
	}

	var decoded domain.EventEnvelope
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.EventID != event.EventID || decoded.AggregateID != 1 {
		t.Errorf("unexpected decoded event: %+v", decoded)
	}
}

func TestWebhookPublisherNon2xxReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	pub := NewWebhookPublisher(srv.URL, "secret", 5*time.Second)
	event := domain.EventEnvelope{EventID: "evt-2", EventType: "store.updated", SchemaVersion: 1}

	err := pub.Publish(context.Background(), domain.NewTopic(domain.AggregateStore, domain.ActionUpdated), event)
	if err == nil {
		t.Fatal("expected error for 500 response, got nil")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "store.updated") {
		t.Errorf("error should mention status code 500, got: %v", err)
	}
}

func TestWebhookPublisherContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	pub := NewWebhookPublisher(srv.URL, "secret", 5*time.Second)
	event := domain.EventEnvelope{EventID: "evt-3", EventType: "store.deleted", SchemaVersion: 1}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Publish(ctx, domain.NewTopic(domain.AggregateStore, domain.ActionDeleted), event)
	if err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected error to wrap context.Canceled, got: %v", err)
	}
}

func TestLogPublisherWritesEventLine(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLogPublisher(log.New(&buf, "", 0))

	err := pub.Publish(context.Background(), domain.NewTopic(domain.AggregateGrocery, domain.ActionDeleted), domain.EventEnvelope{
		EventID:          "evt-4",
		EventType:        "grocery.deleted",
		AggregateType:    "grocery",
		AggregateID:      9,
		AggregateVersion: 3,
		Actor:            "ops",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	line := buf.String()
	for _, want := range []string{"events.grocery.deleted", "grocery/9 v3", "event_id=evt-4", "actor=ops"} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line missing %q: %s", want, line)
		}
	}
}

type recordingPublisher struct {
	topics []domain.Topic
}

func (p *recordingPublisher) Publish(_ context.Context, topic domain.Topic, _ domain.EventEnvelope) error {
	p.topics = append(p.topics, topic)
	return nil
}

func TestAggregateRouterRoutesByAggregate(t *testing.T) {
	fallback := &recordingPublisher{}
	stores := &recordingPublisher{}
	router := NewAggregateRouter(fallback).
		Route(domain.AggregateStore, stores).
		Route(domain.AggregateGrocery, nil)

	topics := []domain.Topic{
		domain.NewTopic(domain.AggregateGrocery, domain.ActionCreated),
		domain.NewTopic(domain.AggregateStore, domain.ActionUpdated),
		domain.NewTopic(domain.AggregateStore, domain.ActionDeleted),
	}
	for _, topic := range topics {
		if err := router.Publish(context.Background(), topic, domain.EventEnvelope{}); err != nil {
			t.Fatalf("publish %s: %v", topic, err)
		}
	}

	if len(fallback.topics) != 1 || fallback.topics[0] != topics[0] {
		t.Fatalf("expected grocery event on fallback, got %v", fallback.topics)
	}
	if len(stores.topics) != 2 || stores.topics[0] != topics[1] || stores.topics[1] != topics[2] {
		t.Fatalf("expected store events on store route, got %v", stores.topics)
	}
}
