package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert outbox: %w", &pgconn.PgError{Code: "23505"})
	if !isUniqueViolation(wrapped) {
		t.Fatalf("expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "42P01"}) {
		t.Fatalf("undefined table is not a unique violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Fatalf("plain errors are not unique violations")
	}
}

func TestOutboxModelToMessageCopiesPayload(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.FixedZone("x", 7200))
	row := outboxModel{
		OutboxID:     "evt-1",
		EventType:    "ledger.vote_cast",
		PartitionKey: "voting_data",
		Payload:      []byte(`{"a":1}`),
		CreatedAt:    at,
	}
	message := row.toMessage()
	row.Payload[0] = 'x'
	if string(message.Payload) != `{"a":1}` {
		t.Fatalf("expected payload copy, got %s", message.Payload)
	}
	if message.CreatedAt.Location() != time.UTC || !message.CreatedAt.Equal(at) {
		t.Fatalf("expected UTC timestamp, got %v", message.CreatedAt)
	}
}

func TestTableNames(t *testing.T) {
	if (stateModel{}).TableName() != "election_ledger_state" {
		t.Fatalf("unexpected state table")
	}
	if (outboxModel{}).TableName() != "election_ledger_outbox" {
		t.Fatalf("unexpected outbox table")
	}
}

func TestSystemAdapters(t *testing.T) {
	now := (SystemClock{}).Now()
	if now.Location() != time.UTC {
		t.Fatalf("expected UTC clock")
	}
	if now.Nanosecond()%int(time.Millisecond) != 0 {
		t.Fatalf("expected millisecond resolution, got %v", now)
	}
	id, err := (UUIDGenerator{}).NewID(context.Background())
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("expected uuid, got %q", id)
	}
	if parsed.Version() != 7 {
		t.Fatalf("expected v7 uuid, got version %d", parsed.Version())
	}
}
