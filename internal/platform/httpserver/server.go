package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	electionledger "electionkeeper/contexts/governance/election-ledger"
	ledgererrors "electionkeeper/contexts/governance/election-ledger/domain/errors"
	ledgerhttp "electionkeeper/contexts/governance/election-ledger/transport/http"

	_ "electionkeeper/internal/platform/httpserver/docs"
	httpSwagger "github.com/swaggo/http-swagger"
)

const (
	callerKeyHeader = "X-Caller-Key"
	maxCommandBytes = 1 << 20
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	ledger     electionledger.Module
	httpServer *http.Server
}

func New(ledger electionledger.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		ledger: ledger,
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/ledger/commands", s.handleLedgerCommand)
	s.mux.HandleFunc("GET /v1/ledger", s.handleGetLedger)
	s.mux.HandleFunc("GET /v1/ledger/projects", s.handleListProjects)
	s.mux.HandleFunc("GET /v1/ledger/projects/{project_id}", s.handleGetProject)
	s.mux.HandleFunc("GET /v1/ledger/participants", s.handleListParticipants)
	s.mux.HandleFunc("GET /v1/ledger/participants/{public_key}", s.handleGetParticipant)
	s.mux.HandleFunc("GET /v1/ledger/snapshot", s.handleGetSnapshot)
}

func (s *Server) handleLedgerCommand(w http.ResponseWriter, r *http.Request) {
	callerKey := strings.TrimSpace(r.Header.Get(callerKeyHeader))
	if callerKey == "" {
		writeLedgerError(w, http.StatusUnauthorized, "missing_caller_key", callerKeyHeader+" header is required")
		return
	}
	var req ledgerhttp.CommandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBytes)).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.ExecuteCommandHandler(r.Context(), callerKey, req)
	if err != nil {
		s.writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.LedgerHandler(r.Context())
	if err != nil {
		s.writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.ListProjectsHandler(r.Context())
	if err != nil {
		s.writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.GetProjectHandler(r.Context(), r.PathValue("project_id"))
	if err != nil {
		s.writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.ListParticipantsHandler(r.Context())
	if err != nil {
		s.writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetParticipant(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.GetParticipantHandler(r.Context(), r.PathValue("public_key"))
	if err != nil {
		s.writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.ledger.Handler.SnapshotHandler(r.Context(), r.URL.Query().Get("format"))
	if err != nil {
		s.writeLedgerDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", snapshot.ContentType)
	w.Header().Set("X-Snapshot-Format", snapshot.Format)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(snapshot.Body)
}

func (s *Server) writeLedgerDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledgererrors.ErrUnknownCommand):
		writeLedgerError(w, http.StatusBadRequest, "unknown_command", err.Error())
	case errors.Is(err, ledgererrors.ErrMissingArgument):
		writeLedgerError(w, http.StatusBadRequest, "missing_argument", err.Error())
	case errors.Is(err, ledgererrors.ErrInvalidArgument):
		writeLedgerError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, ledgererrors.ErrInvalidPublicKey):
		writeLedgerError(w, http.StatusBadRequest, "invalid_public_key", err.Error())
	case errors.Is(err, ledgererrors.ErrUnsupportedFormat):
		writeLedgerError(w, http.StatusBadRequest, "unsupported_format", err.Error())
	case errors.Is(err, ledgererrors.ErrNotTheAdmin):
		writeLedgerError(w, http.StatusForbidden, "not_the_admin", err.Error())
	case errors.Is(err, ledgererrors.ErrProjectNotFound):
		writeLedgerError(w, http.StatusNotFound, "project_not_found", err.Error())
	case errors.Is(err, ledgererrors.ErrParticipantNotFound):
		writeLedgerError(w, http.StatusNotFound, "participant_not_found", err.Error())
	case errors.Is(err, ledgererrors.ErrAlreadyDeployed):
		writeLedgerError(w, http.StatusConflict, "already_deployed", err.Error())
	case errors.Is(err, ledgererrors.ErrNotDeployed):
		writeLedgerError(w, http.StatusConflict, "not_deployed", err.Error())
	case errors.Is(err, ledgererrors.ErrStaleState):
		writeLedgerError(w, http.StatusConflict, "stale_state", err.Error())
	case errors.Is(err, ledgererrors.ErrStartNotBeforeEnd):
		writeLedgerError(w, http.StatusUnprocessableEntity, "start_not_before_end", err.Error())
	case errors.Is(err, ledgererrors.ErrVotingNotStarted):
		writeLedgerError(w, http.StatusUnprocessableEntity, "voting_not_started", err.Error())
	case errors.Is(err, ledgererrors.ErrVotingEnded):
		writeLedgerError(w, http.StatusUnprocessableEntity, "voting_ended", err.Error())
	case errors.Is(err, ledgererrors.ErrNotAParticipant):
		writeLedgerError(w, http.StatusUnprocessableEntity, "not_a_participant", err.Error())
	case errors.Is(err, ledgererrors.ErrNotEnoughVotingPower):
		writeLedgerError(w, http.StatusUnprocessableEntity, "not_enough_voting_power", err.Error())
	case errors.Is(err, ledgererrors.ErrProjectDoesNotExist):
		writeLedgerError(w, http.StatusUnprocessableEntity, "project_does_not_exist", err.Error())
	default:
		s.logger.Error("ledger request failed",
			"event", "http_ledger_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		writeLedgerError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeLedgerError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ledgerhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
