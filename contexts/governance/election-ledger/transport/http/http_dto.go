package http

import "encoding/json"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CommandRequest invokes one ledger method with positional arguments.
// Unsigned integers may be JSON numbers or decimal strings; public keys are
// 64-character hex strings.
type CommandRequest struct {
	Method string            `json:"method"`
	Args   []json.RawMessage `json:"args"`
}

type CommandResponse struct {
	Method      string         `json:"method"`
	EventID     string         `json:"event_id,omitempty"`
	BlockTimeMS uint64         `json:"block_time_ms"`
	Ledger      LedgerResponse `json:"ledger"`
}

type LedgerResponse struct {
	Admin            string `json:"admin,omitempty"`
	StartTimestamp   uint64 `json:"start_timestamp"`
	EndTimestamp     uint64 `json:"end_timestamp"`
	ProjectCount     int    `json:"project_count"`
	ParticipantCount int    `json:"participant_count"`
}

type ProjectResponse struct {
	ProjectID  uint64 `json:"project_id"`
	Name       string `json:"name"`
	TeamName   string `json:"team_name"`
	VideoLink  string `json:"video_link"`
	GithubLink string `json:"github_link"`
	DriveLink  string `json:"drive_link"`
}

type ProjectListResponse struct {
	Items []ProjectResponse `json:"items"`
}

type VoteResponse struct {
	ProjectID uint64 `json:"project_id"`
	Amount    uint64 `json:"amount"`
}

type ParticipantResponse struct {
	PublicKey        string         `json:"public_key"`
	TotalVotingPower uint64         `json:"total_voting_power"`
	UsedVotingPower  uint64         `json:"used_voting_power"`
	Votes            []VoteResponse `json:"votes"`
}

type ParticipantListResponse struct {
	Items []ParticipantResponse `json:"items"`
}
