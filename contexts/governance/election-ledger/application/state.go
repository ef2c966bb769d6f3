package application

import (
	"context"
	"fmt"

	"electionkeeper/contexts/governance/election-ledger/domain/codec"
	"electionkeeper/contexts/governance/election-ledger/domain/entities"
	domainerrors "electionkeeper/contexts/governance/election-ledger/domain/errors"
	"electionkeeper/contexts/governance/election-ledger/ports"
)

// State is everything persisted for a deployed ledger.
type State struct {
	Admin   entities.PublicKey
	Ledger  entities.Ledger
	Encoded []byte
}

// IsDeployed reports whether the deploy flag has been written.
func IsDeployed(ctx context.Context, store ports.StateStore) (bool, error) {
	_, found, err := store.Load(ctx, ports.InitFlagKey)
	if err != nil {
		return false, err
	}
	return found, nil
}

// LoadState reads and decodes the admin record and the ledger. Each call
// returns a fresh ledger value that callers may mutate freely.
func LoadState(ctx context.Context, store ports.StateStore) (State, error) {
	deployed, err := IsDeployed(ctx, store)
	if err != nil {
		return State{}, err
	}
	if !deployed {
		return State{}, domainerrors.ErrNotDeployed
	}

	rawAdmin, found, err := store.Load(ctx, ports.AdminKey)
	if err != nil {
		return State{}, err
	}
	if !found {
		return State{}, fmt.Errorf("%w: %s", domainerrors.ErrMissingKey, ports.AdminKey)
	}
	if len(rawAdmin) != entities.PublicKeyLength {
		return State{}, fmt.Errorf("%w: %s holds %d bytes", domainerrors.ErrUnexpectedType, ports.AdminKey, len(rawAdmin))
	}

	encoded, found, err := store.Load(ctx, ports.LedgerKey)
	if err != nil {
		return State{}, err
	}
	if !found {
		return State{}, fmt.Errorf("%w: %s", domainerrors.ErrMissingKey, ports.LedgerKey)
	}
	ledger, err := codec.Decode(encoded)
	if err != nil {
		return State{}, fmt.Errorf("%w: %s: %w", domainerrors.ErrUnexpectedType, ports.LedgerKey, err)
	}
	if ledger.EndTimestamp <= ledger.StartTimestamp {
		return State{}, fmt.Errorf("%w: %s: %w", domainerrors.ErrUnexpectedType, ports.LedgerKey, domainerrors.ErrStartNotBeforeEnd)
	}

	return State{
		Admin:   entities.PublicKey(rawAdmin),
		Ledger:  ledger,
		Encoded: encoded,
	}, nil
}

// LoadStateForWrite is LoadState for command execution. Under replace
// accounting a revote releases the prior vote from the used power, so the
// loaded ledger must satisfy used == sum(votes) for every participant.
func LoadStateForWrite(ctx context.Context, store ports.StateStore, accounting entities.RevoteAccounting) (State, error) {
	state, err := LoadState(ctx, store)
	if err != nil {
		return State{}, err
	}
	if accounting == entities.RevoteAccumulate {
		return state, nil
	}
	if err := state.Ledger.CheckInvariants(); err != nil {
		return State{}, fmt.Errorf("%w: %s: %w", domainerrors.ErrUnexpectedType, ports.LedgerKey, err)
	}
	return state, nil
}
