package postgresadapter

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// UUIDGenerator issues time-ordered v7 UUIDs for outbox event ids.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate event id: %w", err)
	}
	return id.String(), nil
}
