package commands

import (
	"fmt"

	"electionkeeper/contexts/governance/election-ledger/domain/entities"
	domainerrors "electionkeeper/contexts/governance/election-ledger/domain/errors"
)

// AdminCapability proves the caller matched the recorded admin. The zero value
// grants nothing.
type AdminCapability struct {
	granted bool
}

// AuthorizeAdmin compares the caller with the admin recorded at deploy time.
func AuthorizeAdmin(caller entities.PublicKey, admin entities.PublicKey) (AdminCapability, error) {
	if caller != admin {
		return AdminCapability{}, domainerrors.ErrNotTheAdmin
	}
	return AdminCapability{granted: true}, nil
}

// Apply runs an admin-only command against the ledger.
func (c AdminCapability) Apply(ledger *entities.Ledger, cmd Command) error {
	if !c.granted {
		return domainerrors.ErrNotTheAdmin
	}
	admin, ok := cmd.(adminCommand)
	if !ok {
		return fmt.Errorf("%w: %s is not an admin method", domainerrors.ErrUnknownCommand, cmd.Method())
	}
	admin.applyAdmin(ledger)
	return nil
}

// IsAdminMethod reports whether the method needs an AdminCapability.
func IsAdminMethod(method Method) bool {
	switch method {
	case MethodAddOrUpdateParticipant, MethodRemoveParticipant, MethodAddOrUpdateProject, MethodRemoveProject:
		return true
	default:
		return false
	}
}

type adminCommand interface {
	Command
	applyAdmin(ledger *entities.Ledger)
}

func (c AddOrUpdateParticipantCommand) applyAdmin(ledger *entities.Ledger) {
	ledger.AddOrUpdateParticipant(c.PublicKey, c.VotingPower)
}

func (c RemoveParticipantCommand) applyAdmin(ledger *entities.Ledger) {
	ledger.RemoveParticipantIfExists(c.PublicKey)
}

func (c AddOrUpdateProjectCommand) applyAdmin(ledger *entities.Ledger) {
	ledger.AddOrUpdateProject(c.ProjectID, c.Project)
}

func (c RemoveProjectCommand) applyAdmin(ledger *entities.Ledger) {
	ledger.RemoveProjectIfExistsAndCancelVotes(c.ProjectID)
}
