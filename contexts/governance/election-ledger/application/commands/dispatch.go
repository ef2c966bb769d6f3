package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	application "electionkeeper/contexts/governance/election-ledger/application"
	"electionkeeper/contexts/governance/election-ledger/domain/codec"
	"electionkeeper/contexts/governance/election-ledger/domain/entities"
	domainerrors "electionkeeper/contexts/governance/election-ledger/domain/errors"
	"electionkeeper/contexts/governance/election-ledger/ports"
)

var initFlagValue = []byte{1}

// maxCommitAttempts bounds how often a command is re-run after another process
// committed between its load and its commit.
const maxCommitAttempts = 5

// ExecuteResult describes a committed command.
type ExecuteResult struct {
	Method    Method
	EventID   string
	BlockTime uint64
	Ledger    entities.Ledger
}

// LedgerUseCase executes ledger commands one at a time. Each call decodes a
// fresh copy of the persisted ledger, mutates it and commits the re-encoded
// bytes together with the outbox event. A failed call writes nothing. The mutex
// orders calls within a process; guarded commits order them across processes
// sharing one store.
type LedgerUseCase struct {
	Store      ports.StateStore
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Accounting entities.RevoteAccounting
	Logger     *slog.Logger

	mu sync.Mutex
}

// Invoke parses the method and its positional arguments and executes the
// resulting command on behalf of caller.
func (uc *LedgerUseCase) Invoke(
	ctx context.Context,
	caller entities.PublicKey,
	method string,
	args []json.RawMessage,
) (ExecuteResult, error) {
	cmd, err := ParseCommand(method, args)
	if err != nil {
		application.ResolveLogger(uc.Logger).Warn("ledger command rejected during parsing",
			"event", "ledger_command_parse_failed",
			"module", "governance/election-ledger",
			"layer", "application",
			"method", method,
			"error", err.Error(),
		)
		return ExecuteResult{}, err
	}
	return uc.Execute(ctx, caller, cmd)
}

// Execute runs one command. Deploy must come first and only once; the four
// catalog and roster commands need the caller to be the deploying admin.
func (uc *LedgerUseCase) Execute(ctx context.Context, caller entities.PublicKey, cmd Command) (ExecuteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if cmd == nil {
		return ExecuteResult{}, domainerrors.ErrUnknownCommand
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	now := uc.now()
	blockTime := blockTimeMillis(now)
	logger.Info("ledger command processing started",
		"event", "ledger_command_started",
		"module", "governance/election-ledger",
		"layer", "application",
		"method", string(cmd.Method()),
		"caller", caller.String(),
		"block_time_ms", blockTime,
	)

	var (
		ledger  entities.Ledger
		eventID string
		err     error
	)
	for attempt := 1; ; attempt++ {
		ledger, eventID, err = uc.attempt(ctx, caller, cmd, blockTime, now)
		if !errors.Is(err, domainerrors.ErrStaleState) || attempt == maxCommitAttempts {
			break
		}
		logger.Warn("ledger state changed before commit, retrying",
			"event", "ledger_command_retry",
			"module", "governance/election-ledger",
			"layer", "application",
			"method", string(cmd.Method()),
			"attempt", attempt,
		)
	}
	if err != nil {
		level := slog.LevelWarn
		if !isRejection(err) {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "ledger command failed",
			"event", "ledger_command_failed",
			"module", "governance/election-ledger",
			"layer", "application",
			"method", string(cmd.Method()),
			"caller", caller.String(),
			"error", err.Error(),
		)
		return ExecuteResult{}, err
	}

	logger.Info("ledger command committed",
		"event", "ledger_command_committed",
		"module", "governance/election-ledger",
		"layer", "application",
		"method", string(cmd.Method()),
		"caller", caller.String(),
		"event_id", eventID,
		"projects", len(ledger.Projects),
		"participants", len(ledger.Participants),
	)
	return ExecuteResult{
		Method:    cmd.Method(),
		EventID:   eventID,
		BlockTime: blockTime,
		Ledger:    ledger,
	}, nil
}

// attempt loads, mutates and commits once. The commit is guarded by the bytes
// that were loaded, so a concurrent writer in another process makes it fail
// with ErrStaleState instead of overwriting that writer's result.
func (uc *LedgerUseCase) attempt(
	ctx context.Context,
	caller entities.PublicKey,
	cmd Command,
	blockTime uint64,
	now time.Time,
) (entities.Ledger, string, error) {
	records, ledger, err := uc.apply(ctx, caller, cmd, blockTime)
	if err != nil {
		return entities.Ledger{}, "", err
	}
	events, eventID, err := uc.buildEvents(ctx, cmd, caller, blockTime, now)
	if err != nil {
		return entities.Ledger{}, "", err
	}
	if err := uc.Store.Commit(ctx, records, events); err != nil {
		// Another deploy won the race for the init flag.
		if errors.Is(err, domainerrors.ErrStaleState) && cmd.Method() == MethodDeploy {
			return entities.Ledger{}, "", domainerrors.ErrAlreadyDeployed
		}
		return entities.Ledger{}, "", err
	}
	return ledger, eventID, nil
}

func (uc *LedgerUseCase) apply(
	ctx context.Context,
	caller entities.PublicKey,
	cmd Command,
	blockTime uint64,
) ([]ports.StateRecord, entities.Ledger, error) {
	if deploy, ok := cmd.(DeployCommand); ok {
		return uc.deploy(ctx, caller, deploy)
	}

	state, err := application.LoadStateForWrite(ctx, uc.Store, uc.accounting())
	if err != nil {
		return nil, entities.Ledger{}, err
	}
	ledger := state.Ledger

	vote, isVote := cmd.(CastVoteCommand)
	switch {
	case isVote:
		if err := ledger.CastVoteWith(uc.accounting(), caller, vote.ProjectID, vote.Amount, blockTime); err != nil {
			return nil, entities.Ledger{}, err
		}
	case IsAdminMethod(cmd.Method()):
		capability, err := AuthorizeAdmin(caller, state.Admin)
		if err != nil {
			return nil, entities.Ledger{}, err
		}
		if err := capability.Apply(&ledger, cmd); err != nil {
			return nil, entities.Ledger{}, err
		}
	default:
		return nil, entities.Ledger{}, fmt.Errorf("%w: %s", domainerrors.ErrUnknownCommand, cmd.Method())
	}

	encoded, err := codec.Encode(ledger)
	if err != nil {
		return nil, entities.Ledger{}, err
	}
	return []ports.StateRecord{{
		Name:     ports.LedgerKey,
		Value:    encoded,
		Guard:    ports.GuardUnchanged,
		Expected: state.Encoded,
	}}, ledger, nil
}

func (uc *LedgerUseCase) deploy(
	ctx context.Context,
	caller entities.PublicKey,
	cmd DeployCommand,
) ([]ports.StateRecord, entities.Ledger, error) {
	deployed, err := application.IsDeployed(ctx, uc.Store)
	if err != nil {
		return nil, entities.Ledger{}, err
	}
	if deployed {
		return nil, entities.Ledger{}, domainerrors.ErrAlreadyDeployed
	}
	ledger, err := entities.NewLedger(cmd.StartAt, cmd.EndAt)
	if err != nil {
		return nil, entities.Ledger{}, err
	}
	encoded, err := codec.Encode(ledger)
	if err != nil {
		return nil, entities.Ledger{}, err
	}
	admin := caller
	return []ports.StateRecord{
		{Name: ports.LedgerKey, Value: encoded, Guard: ports.GuardAbsent},
		{Name: ports.AdminKey, Value: admin[:], Guard: ports.GuardAbsent},
		{Name: ports.InitFlagKey, Value: initFlagValue, Guard: ports.GuardAbsent},
	}, ledger, nil
}

func (uc *LedgerUseCase) buildEvents(
	ctx context.Context,
	cmd Command,
	caller entities.PublicKey,
	blockTime uint64,
	now time.Time,
) ([]ports.EventEnvelope, string, error) {
	// Without an ID generator the use case runs without an outbox.
	if uc.IDGen == nil {
		return nil, "", nil
	}
	eventType, data := eventFor(cmd, caller.String(), blockTime)
	if eventType == "" {
		return nil, "", nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return nil, "", err
	}
	envelope, err := newLedgerEnvelope(eventID, eventType, now, data)
	if err != nil {
		return nil, "", err
	}
	return []ports.EventEnvelope{envelope}, eventID, nil
}

func (uc *LedgerUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc *LedgerUseCase) accounting() entities.RevoteAccounting {
	if uc.Accounting.Valid() {
		return uc.Accounting
	}
	return entities.RevoteReplace
}

// blockTimeMillis converts wall time to block time. Instants before the epoch
// clamp to zero.
func blockTimeMillis(now time.Time) uint64 {
	ms := now.UnixMilli()
	if ms < 0 {
		return 0
	}
	return uint64(ms)
}

// isRejection separates caller mistakes from storage failures for logging.
func isRejection(err error) bool {
	var argErr *ArgumentError
	switch {
	case errors.As(err, &argErr),
		errors.Is(err, domainerrors.ErrStartNotBeforeEnd),
		errors.Is(err, domainerrors.ErrVotingNotStarted),
		errors.Is(err, domainerrors.ErrVotingEnded),
		errors.Is(err, domainerrors.ErrNotAParticipant),
		errors.Is(err, domainerrors.ErrNotEnoughVotingPower),
		errors.Is(err, domainerrors.ErrProjectDoesNotExist),
		errors.Is(err, domainerrors.ErrNotTheAdmin),
		errors.Is(err, domainerrors.ErrAlreadyDeployed),
		errors.Is(err, domainerrors.ErrNotDeployed),
		errors.Is(err, domainerrors.ErrUnknownCommand):
		return true
	default:
		return false
	}
}
