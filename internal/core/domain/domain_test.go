package domain

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGroceryApplyReplacementKeepsID(t *testing.T) {
	g := Grocery{ID: 7, Name: "Milk"}
	got := g.ApplyReplacement(Grocery{ID: 99, Name: "Oat milk"})
	want := Grocery{ID: 7, Name: "Oat milk"}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestStoreApplyReplacementCopiesNameAndAddress(t *testing.T) {
	s := Store{ID: 1, Name: "Corner Shop", Address: "1 Main St"}
	got := s.ApplyReplacement(Store{Name: "Corner Shop", Address: "2 Main St"})
	if got.ID != 1 || got.Address != "2 Main St" || got.Name != "Corner Shop" {
		t.Fatalf("unexpected store: %v", got)
	}
}

func TestStructuralEqualityAndString(t *testing.T) {
	a := Store{ID: 2, Name: "A", Address: "x"}
	b := Store{ID: 2, Name: "A", Address: "x"}
	if a != b {
		t.Fatal("expected structurally equal stores")
	}
	if a.String() != "Store(id=2, name=A, address=x)" {
		t.Fatalf("unexpected string form: %s", a.String())
	}
	if (Grocery{Name: "Bread"}).String() != "Grocery(id=0, name=Bread)" {
		t.Fatal("unexpected grocery string form")
	}
	if !(Grocery{Name: "Bread"}).Transient() {
		t.Fatal("expected zero id grocery to be transient")
	}
}

func TestMutationMetadataFromContext(t *testing.T) {
	meta := MutationMetadataFrom(context.Background())
	if meta.Actor != "system" || meta.Source != "internal" || meta.OccurredAt.IsZero() {
		t.Fatalf("expected normalized defaults, got %+v", meta)
	}

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := WithMutationMetadata(context.Background(), MutationMetadata{Actor: "ops", Source: "api", RequestID: "r1", OccurredAt: at})
	meta = MutationMetadataFrom(ctx)
	if meta.Actor != "ops" || meta.Source != "api" || meta.RequestID != "r1" || !meta.OccurredAt.Equal(at) {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
}

func TestAuditFilterValidate(t *testing.T) {
	if err := (AuditFilter{AggregateType: "grocery"}).Validate(); err != nil {
		t.Fatalf("expected valid filter, got %v", err)
	}
	if err := (AuditFilter{AggregateType: "orders"}).Validate(); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected invalid filter, got %v", err)
	}
	if err := (AuditFilter{AfterID: -1}).Validate(); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected invalid filter, got %v", err)
	}
}

func TestTopicRoundTrip(t *testing.T) {
	topic := NewTopic(AggregateStore, ActionUpdated)
	if topic.String() != "events.store.updated" || topic.EventType() != "store.updated" {
		t.Fatalf("unexpected topic forms: %s / %s", topic, topic.EventType())
	}

	parsed, err := ParseTopic(topic.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != topic {
		t.Fatalf("expected %v, got %v", topic, parsed)
	}
}

func TestParseTopicRejectsUnknownParts(t *testing.T) {
	for _, raw := range []string{"", "grocery.created", "events.grocery", "events.order.created", "events.grocery.renamed"} {
		if _, err := ParseTopic(raw); !errors.Is(err, ErrInvalidTopic) {
			t.Fatalf("%q: expected ErrInvalidTopic, got %v", raw, err)
		}
	}
}
