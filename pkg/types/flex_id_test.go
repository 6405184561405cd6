package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFlexIDUnmarshal(t *testing.T) {
	type payload struct {
		ID FlexID `json:"id"`
	}

	var got payload
	if err := json.Unmarshal([]byte(`{"id": " ord-1 "}`), &got); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if got.ID != "ord-1" {
		t.Fatalf("expected ord-1, got %q", got.ID)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{"id": 1042}`), &got); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if got.ID != "1042" {
		t.Fatalf("expected 1042, got %q", got.ID)
	}

	got = payload{ID: "stale"}
	if err := json.Unmarshal([]byte(`{"id": null}`), &got); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if got.ID != "" {
		t.Fatalf("expected empty id for null, got %q", got.ID)
	}

	if err := json.Unmarshal([]byte(`{"id": {"nested": true}}`), &got); err == nil {
		t.Fatal("expected object id to fail")
	}
}

func TestFirstID(t *testing.T) {
	if got := FirstID("", "b", "c"); got != "b" {
		t.Fatalf("unexpected first id %q", got)
	}
	if got := FirstID(); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}

func TestMoney(t *testing.T) {
	if got := Money(decimal.RequireFromString("58.9")); got.String() != "58.90" {
		t.Fatalf("unexpected money %q", got)
	}
	if MoneyPtr(nil) != nil {
		t.Fatal("expected nil for nil amount")
	}
	raw, err := json.Marshal(map[string]any{"total": Money(decimal.NewFromInt(5))})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"total":5.00}` {
		t.Fatalf("expected bare number, got %s", raw)
	}
}
