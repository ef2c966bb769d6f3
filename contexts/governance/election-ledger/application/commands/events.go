package commands

import (
	"encoding/json"
	"time"

	"electionkeeper/contexts/governance/election-ledger/ports"
)

const (
	EventLedgerDeployed         = "ledger.deployed"
	EventParticipantUpserted    = "ledger.participant_upserted"
	EventParticipantRemoved     = "ledger.participant_removed"
	EventProjectUpserted        = "ledger.project_upserted"
	EventProjectRemoved         = "ledger.project_removed"
	EventVoteCast               = "ledger.vote_cast"
	ledgerEventSourceService    = "election-ledger"
	ledgerEventPartitionKeyPath = "ledger_key"
	ledgerEventSchemaVersion    = 1
)

// EventTypes lists every event the command side emits.
func EventTypes() []string {
	return []string{
		EventLedgerDeployed,
		EventParticipantUpserted,
		EventParticipantRemoved,
		EventProjectUpserted,
		EventProjectRemoved,
		EventVoteCast,
	}
}

func newLedgerEnvelope(
	eventID string,
	eventType string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Every ledger event shares one partition so consumers see mutations in
	// commit order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    ledgerEventSourceService,
		TraceID:          eventID,
		SchemaVersion:    ledgerEventSchemaVersion,
		PartitionKeyPath: ledgerEventPartitionKeyPath,
		PartitionKey:     ports.LedgerKey,
		Data:             payload,
	}, nil
}

// eventFor describes a successful command as an event type and payload.
func eventFor(cmd Command, caller string, blockTime uint64) (string, map[string]any) {
	data := map[string]any{
		"caller":        caller,
		"block_time_ms": blockTime,
	}
	switch c := cmd.(type) {
	case DeployCommand:
		data["start_timestamp"] = c.StartAt
		data["end_timestamp"] = c.EndAt
		return EventLedgerDeployed, data
	case AddOrUpdateParticipantCommand:
		data["public_key"] = c.PublicKey.String()
		data["total_voting_power"] = c.VotingPower
		return EventParticipantUpserted, data
	case RemoveParticipantCommand:
		data["public_key"] = c.PublicKey.String()
		return EventParticipantRemoved, data
	case AddOrUpdateProjectCommand:
		data["project_id"] = uint64(c.ProjectID)
		data["name"] = c.Project.Name
		data["team_name"] = c.Project.TeamName
		data["video_link"] = c.Project.VideoLink
		data["github_link"] = c.Project.GithubLink
		data["drive_link"] = c.Project.DriveLink
		return EventProjectUpserted, data
	case RemoveProjectCommand:
		data["project_id"] = uint64(c.ProjectID)
		return EventProjectRemoved, data
	case CastVoteCommand:
		data["public_key"] = caller
		data["project_id"] = uint64(c.ProjectID)
		data["amount"] = c.Amount
		return EventVoteCast, data
	default:
		return "", nil
	}
}
