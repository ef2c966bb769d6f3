package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidEnvelope = errors.New("invalid event envelope")

// Envelope is the versioned event envelope shared by the API, the outbox and
// the worker relay. Fields are append-only.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// Validate reports the first missing header field.
func (e Envelope) Validate() error {
	switch {
	case strings.TrimSpace(e.EventID) == "":
		return fmt.Errorf("%w: event_id is required", ErrInvalidEnvelope)
	case strings.TrimSpace(e.EventType) == "":
		return fmt.Errorf("%w: event_type is required", ErrInvalidEnvelope)
	case strings.TrimSpace(e.SourceService) == "":
		return fmt.Errorf("%w: source_service is required", ErrInvalidEnvelope)
	case e.SchemaVersion < 1:
		return fmt.Errorf("%w: schema_version must be positive", ErrInvalidEnvelope)
	case e.PartitionKeyPath != "" && strings.TrimSpace(e.PartitionKey) == "":
		return fmt.Errorf("%w: partition_key is required with partition_key_path", ErrInvalidEnvelope)
	}
	return nil
}
