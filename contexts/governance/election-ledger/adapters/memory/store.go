package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	domainerrors "electionkeeper/contexts/governance/election-ledger/domain/errors"
	"electionkeeper/contexts/governance/election-ledger/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	sequence  uint64
	published bool
}

// Store keeps ledger records and the outbox in process memory. It implements
// StateStore, OutboxRepository, Clock and IDGenerator.
type Store struct {
	mu sync.RWMutex

	records  map[string][]byte
	outbox   map[string]outboxRecord
	sequence uint64
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		records: make(map[string][]byte),
		outbox:  make(map[string]outboxRecord),
	}
}

// SetNow pins the clock used by Now. Passing nil restores wall time.
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Load(_ context.Context, name string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.records[name]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(value), true, nil
}

// Commit checks every record guard and outbox event before touching any state
// so a conflict leaves the store unchanged.
func (s *Store) Commit(_ context.Context, records []ports.StateRecord, events []ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range records {
		if err := s.checkGuardLocked(record); err != nil {
			return err
		}
	}

	pending := make([]outboxRecord, 0, len(events))
	for _, envelope := range events {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		outboxID := strings.TrimSpace(envelope.EventID)
		if outboxID == "" {
			outboxID = uuid.NewString()
		}
		if existing, ok := s.outbox[outboxID]; ok {
			if !bytes.Equal(existing.message.Payload, payload) {
				return domainerrors.ErrOutboxConflict
			}
			continue
		}
		createdAt := envelope.OccurredAt.UTC()
		if createdAt.IsZero() {
			createdAt = s.nowLocked()
		}
		pending = append(pending, outboxRecord{
			message: ports.OutboxMessage{
				OutboxID:     outboxID,
				EventType:    strings.TrimSpace(envelope.EventType),
				PartitionKey: strings.TrimSpace(envelope.PartitionKey),
				Payload:      payload,
				CreatedAt:    createdAt,
			},
		})
	}

	for _, record := range records {
		s.records[record.Name] = slices.Clone(record.Value)
	}
	for _, row := range pending {
		s.sequence++
		row.sequence = s.sequence
		s.outbox[row.message.OutboxID] = row
	}
	return nil
}

func (s *Store) checkGuardLocked(record ports.StateRecord) error {
	current, exists := s.records[record.Name]
	switch record.Guard {
	case ports.GuardAbsent:
		if exists {
			return domainerrors.ErrStaleState
		}
	case ports.GuardUnchanged:
		if !exists || !bytes.Equal(current, record.Expected) {
			return domainerrors.ErrStaleState
		}
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a outboxRecord, b outboxRecord) int {
		if c := a.message.CreatedAt.Compare(b.message.CreatedAt); c != 0 {
			return c
		}
		if a.sequence < b.sequence {
			return -1
		}
		if a.sequence > b.sequence {
			return 1
		}
		return 0
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrOutboxNotFound
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowLocked()
}

func (s *Store) nowLocked() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
