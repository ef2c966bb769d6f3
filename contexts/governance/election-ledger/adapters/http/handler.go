package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	application "electionkeeper/contexts/governance/election-ledger/application"
	"electionkeeper/contexts/governance/election-ledger/application/commands"
	"electionkeeper/contexts/governance/election-ledger/application/queries"
	"electionkeeper/contexts/governance/election-ledger/domain/entities"
	domainerrors "electionkeeper/contexts/governance/election-ledger/domain/errors"
	httptransport "electionkeeper/contexts/governance/election-ledger/transport/http"
)

type Handler struct {
	Commands *commands.LedgerUseCase
	Queries  queries.LedgerQueryUseCase
	Logger   *slog.Logger
}

// ExecuteCommandHandler godoc
// @Summary Execute a ledger method
// @Description Runs deploy, admin or cast_vote on behalf of the caller. The caller key is authenticated upstream.
// @Tags election-ledger
// @Accept json
// @Produce json
// @Param X-Caller-Key header string true "Caller public key (64 hex characters)"
// @Param request body httptransport.CommandRequest true "Method and positional arguments"
// @Success 200 {object} httptransport.CommandResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/ledger/commands [post]
func (h Handler) ExecuteCommandHandler(
	ctx context.Context,
	callerKey string,
	req httptransport.CommandRequest,
) (httptransport.CommandResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	caller, err := entities.ParsePublicKey(callerKey)
	if err != nil {
		return httptransport.CommandResponse{}, err
	}
	logger.Info("ledger command request received",
		"event", "http_ledger_command_received",
		"module", "governance/election-ledger",
		"layer", "transport",
		"method", req.Method,
		"caller", caller.String(),
	)
	result, err := h.Commands.Invoke(ctx, caller, req.Method, req.Args)
	if err != nil {
		return httptransport.CommandResponse{}, err
	}
	response := httptransport.CommandResponse{
		Method:      string(result.Method),
		EventID:     result.EventID,
		BlockTimeMS: result.BlockTime,
		Ledger: httptransport.LedgerResponse{
			StartTimestamp:   result.Ledger.StartTimestamp,
			EndTimestamp:     result.Ledger.EndTimestamp,
			ProjectCount:     len(result.Ledger.Projects),
			ParticipantCount: len(result.Ledger.Participants),
		},
	}
	if result.Method == commands.MethodDeploy {
		response.Ledger.Admin = caller.String()
	}
	return response, nil
}

// LedgerHandler godoc
// @Summary Get the ledger overview
// @Tags election-ledger
// @Produce json
// @Success 200 {object} httptransport.LedgerResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/ledger [get]
func (h Handler) LedgerHandler(ctx context.Context) (httptransport.LedgerResponse, error) {
	overview, err := h.Queries.Overview(ctx)
	if err != nil {
		return httptransport.LedgerResponse{}, err
	}
	return httptransport.LedgerResponse{
		Admin:            overview.Admin.String(),
		StartTimestamp:   overview.StartTimestamp,
		EndTimestamp:     overview.EndTimestamp,
		ProjectCount:     overview.ProjectCount,
		ParticipantCount: overview.ParticipantCount,
	}, nil
}

// ListProjectsHandler godoc
// @Summary List projects
// @Description Returns every project in ascending id order.
// @Tags election-ledger
// @Produce json
// @Success 200 {object} httptransport.ProjectListResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/ledger/projects [get]
func (h Handler) ListProjectsHandler(ctx context.Context) (httptransport.ProjectListResponse, error) {
	items, err := h.Queries.Projects(ctx)
	if err != nil {
		return httptransport.ProjectListResponse{}, err
	}
	response := httptransport.ProjectListResponse{Items: make([]httptransport.ProjectResponse, 0, len(items))}
	for _, item := range items {
		response.Items = append(response.Items, mapProject(item))
	}
	return response, nil
}

// GetProjectHandler godoc
// @Summary Get a project
// @Tags election-ledger
// @Produce json
// @Param project_id path int true "Project id"
// @Success 200 {object} httptransport.ProjectResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/ledger/projects/{project_id} [get]
func (h Handler) GetProjectHandler(ctx context.Context, projectID string) (httptransport.ProjectResponse, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(projectID), 10, 64)
	if err != nil {
		return httptransport.ProjectResponse{}, fmt.Errorf("%w: project id %q", domainerrors.ErrInvalidArgument, projectID)
	}
	item, err := h.Queries.Project(ctx, entities.ProjectID(id))
	if err != nil {
		return httptransport.ProjectResponse{}, err
	}
	return mapProject(item), nil
}

// ListParticipantsHandler godoc
// @Summary List participants
// @Description Returns the roster in ascending public key order.
// @Tags election-ledger
// @Produce json
// @Success 200 {object} httptransport.ParticipantListResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/ledger/participants [get]
func (h Handler) ListParticipantsHandler(ctx context.Context) (httptransport.ParticipantListResponse, error) {
	items, err := h.Queries.Participants(ctx)
	if err != nil {
		return httptransport.ParticipantListResponse{}, err
	}
	response := httptransport.ParticipantListResponse{Items: make([]httptransport.ParticipantResponse, 0, len(items))}
	for _, item := range items {
		response.Items = append(response.Items, mapParticipant(item))
	}
	return response, nil
}

// GetParticipantHandler godoc
// @Summary Get a participant
// @Tags election-ledger
// @Produce json
// @Param public_key path string true "Participant public key (64 hex characters)"
// @Success 200 {object} httptransport.ParticipantResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/ledger/participants/{public_key} [get]
func (h Handler) GetParticipantHandler(ctx context.Context, publicKey string) (httptransport.ParticipantResponse, error) {
	key, err := entities.ParsePublicKey(publicKey)
	if err != nil {
		return httptransport.ParticipantResponse{}, err
	}
	item, err := h.Queries.Participant(ctx, key)
	if err != nil {
		return httptransport.ParticipantResponse{}, err
	}
	return mapParticipant(item), nil
}

// SnapshotHandler godoc
// @Summary Export the ledger snapshot
// @Description Returns the canonical binary record, or a CBOR document with format=cbor.
// @Tags election-ledger
// @Produce application/octet-stream
// @Produce application/cbor
// @Param format query string false "binary (default) or cbor"
// @Success 200 {file} file
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/ledger/snapshot [get]
func (h Handler) SnapshotHandler(ctx context.Context, format string) (queries.Snapshot, error) {
	snapshot, err := h.Queries.Snapshot(ctx, format)
	if err != nil {
		return queries.Snapshot{}, err
	}
	application.ResolveLogger(h.Logger).Debug("ledger snapshot exported",
		"event", "http_ledger_snapshot_exported",
		"module", "governance/election-ledger",
		"layer", "transport",
		"format", snapshot.Format,
		"bytes", len(snapshot.Body),
	)
	return snapshot, nil
}

func mapProject(item queries.ProjectView) httptransport.ProjectResponse {
	return httptransport.ProjectResponse{
		ProjectID:  uint64(item.ProjectID),
		Name:       item.Project.Name,
		TeamName:   item.Project.TeamName,
		VideoLink:  item.Project.VideoLink,
		GithubLink: item.Project.GithubLink,
		DriveLink:  item.Project.DriveLink,
	}
}

// mapParticipant lists votes in ascending project id order.
func mapParticipant(item queries.ParticipantView) httptransport.ParticipantResponse {
	ids := make([]entities.ProjectID, 0, len(item.Participant.Votes))
	for id := range item.Participant.Votes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	votes := make([]httptransport.VoteResponse, 0, len(ids))
	for _, id := range ids {
		votes = append(votes, httptransport.VoteResponse{
			ProjectID: uint64(id),
			Amount:    item.Participant.Votes[id],
		})
	}
	return httptransport.ParticipantResponse{
		PublicKey:        item.PublicKey.String(),
		TotalVotingPower: item.Participant.TotalVotingPower,
		UsedVotingPower:  item.Participant.UsedVotingPower,
		Votes:            votes,
	}
}
