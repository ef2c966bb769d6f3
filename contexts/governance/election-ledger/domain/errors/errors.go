package errors

import "errors"

var (
	ErrStartNotBeforeEnd    = errors.New("voting start is not before voting end")
	ErrVotingNotStarted     = errors.New("voting has not started")
	ErrVotingEnded          = errors.New("voting has ended")
	ErrNotAParticipant      = errors.New("caller is not a participant")
	ErrNotEnoughVotingPower = errors.New("not enough voting power")
	ErrProjectDoesNotExist  = errors.New("project does not exist")

	ErrUnknownCommand      = errors.New("unknown command")
	ErrMissingArgument     = errors.New("missing argument")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotTheAdmin         = errors.New("caller is not the admin account")
	ErrAlreadyDeployed     = errors.New("ledger is already deployed")
	ErrNotDeployed         = errors.New("ledger is not deployed")
	ErrMissingKey          = errors.New("storage key is missing")
	ErrUnexpectedType      = errors.New("stored value has unexpected type")
	ErrInvalidPublicKey    = errors.New("invalid public key")
	ErrProjectNotFound     = errors.New("project not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrMalformedEncoding   = errors.New("malformed ledger encoding")
	ErrInvariantViolation  = errors.New("ledger invariant violation")
	ErrStaleState          = errors.New("ledger state changed since it was loaded")
	ErrOutboxConflict      = errors.New("outbox event conflict")
	ErrOutboxNotFound      = errors.New("outbox event not found")
	ErrUnsupportedFormat   = errors.New("unsupported snapshot format")
)
