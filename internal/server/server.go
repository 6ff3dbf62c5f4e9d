package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rootrelay/internal/activity"
	"rootrelay/internal/config"
	"rootrelay/internal/continuation"
	"rootrelay/internal/history"
	"rootrelay/internal/skillclient"
	"rootrelay/internal/telemetry"
	"rootrelay/internal/transport"
)

// Server is the HTTP surface of the relay: it receives user turns on the
// bot endpoint, skill callbacks on the conversations endpoints, and exposes
// health/admin endpoints.
type Server struct {
	cfg       *config.Config
	validator *transport.Validator
	cont      *continuation.Handler
	turnLog   history.Store
	metrics   *telemetry.Metrics
	router    chi.Router
	logger    *slog.Logger
}

// NewServer creates a Server wired with the given dependencies.
func NewServer(
	cfg *config.Config,
	validator *transport.Validator,
	cont *continuation.Handler,
	turnLog history.Store,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *Server {
	s := &Server{
		cfg:       cfg,
		validator: validator,
		cont:      cont,
		turnLog:   turnLog,
		metrics:   metrics,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging(logger))
	r.Use(Recovery(logger))

	r.Post("/api/messages", s.handleMessages)

	r.Route("/v3/conversations", func(r chi.Router) {
		r.Post("/", s.notSupported(continuation.OpCreateConversation))
		r.Get("/", s.notSupported(continuation.OpGetConversations))
		r.Post("/{conversationId}/activities", s.handleSkillActivity(continuation.OpSendToConversation))
		r.Post("/{conversationId}/activities/history", s.notSupported(continuation.OpSendConversationHistory))
		r.Post("/{conversationId}/activities/{activityId}", s.handleSkillActivity(continuation.OpReplyToActivity))
		r.Put("/{conversationId}/activities/{activityId}", s.notSupported(continuation.OpUpdateActivity))
		r.Delete("/{conversationId}/activities/{activityId}", s.notSupported(continuation.OpDeleteActivity))
		r.Get("/{conversationId}/activities/{activityId}/members", s.notSupported(continuation.OpGetActivityMembers))
		r.Get("/{conversationId}/members", s.notSupported(continuation.OpGetConversationMembers))
		r.Get("/{conversationId}/pagedmembers", s.notSupported(continuation.OpGetConversationPagedMembers))
		r.Delete("/{conversationId}/members/{memberId}", s.notSupported(continuation.OpDeleteConversationMember))
		r.Post("/{conversationId}/attachments", s.notSupported(continuation.OpUploadAttachment))
	})

	r.Get("/health", s.handleHealth)
	r.Get("/admin/turns", s.handleAdminTurns)
	r.Get("/admin/skills", s.handleAdminSkills)
	r.Get("/admin/metrics", s.handleAdminMetrics)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleMessages processes POST /api/messages: one inbound user turn.
// Pipeline: validate → parse → record → route → respond.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if err := s.validator.Validate(r); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	act, err := transport.ParseActivity(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rec := recordFor(act)
	if err := s.turnLog.Save(rec); err != nil {
		s.logger.Error("failed to record turn", "error", err, "conversation_id", act.Conversation.ID)
	}

	forwarded, err := s.cont.ProcessUserTurn(r.Context(), act)
	if err != nil {
		_ = s.turnLog.UpdateStatus(rec.ID, history.StatusFailed)
		s.writeTurnError(w, act, err)
		return
	}

	switch {
	case forwarded:
		_ = s.turnLog.UpdateStatus(rec.ID, history.StatusForwarded)
	case act.Type == activity.TypeEndOfConversation:
		_ = s.turnLog.UpdateStatus(rec.ID, history.StatusEnded)
	default:
		_ = s.turnLog.UpdateStatus(rec.ID, history.StatusAnswered)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSkillActivity processes an activity a skill sends back into a
// bridged conversation.
func (s *Server) handleSkillActivity(op continuation.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.validator.Validate(r); err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			return
		}

		act, err := transport.ParseActivity(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		bridgedID := chi.URLParam(r, "conversationId")
		activityID := chi.URLParam(r, "activityId")

		rr, err := s.cont.Invoke(r.Context(), op, bridgedID, activityID, act)
		if err != nil {
			s.writeContinuationError(w, bridgedID, err)
			return
		}

		writeJSON(w, http.StatusOK, rr)
	}
}

// notSupported answers a deliberately unimplemented channel-protocol
// operation with an explicit 501.
func (s *Server) notSupported(op continuation.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		err := &continuation.NotSupportedError{Op: op}
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": err.Error()})
	}
}

// writeTurnError maps a failed user turn to a response. A relay failure is
// presented generically, without the skill's internal endpoint.
func (s *Server) writeTurnError(w http.ResponseWriter, act *activity.Activity, err error) {
	var relayErr *skillclient.RelayError
	switch {
	case errors.As(err, &relayErr):
		s.logger.Error("relay to skill failed",
			"skill", relayErr.SkillID,
			"status", relayErr.Status,
			"conversation_id", act.Conversation.ID,
		)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "relay to skill failed"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "turn cancelled"})
	default:
		s.logger.Error("turn failed", "error", err, "conversation_id", act.Conversation.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "turn processing failed"})
	}
}

// writeContinuationError maps a failed continuation to a response.
func (s *Server) writeContinuationError(w http.ResponseWriter, bridgedID string, err error) {
	var unknown *continuation.UnknownBridgeError
	var notSupported *continuation.NotSupportedError
	switch {
	case errors.As(err, &unknown):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": unknown.Error()})
	case errors.As(err, &notSupported):
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": notSupported.Error()})
	case errors.Is(err, continuation.ErrConversationBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conversation is busy"})
	default:
		s.logger.Error("continuation failed", "error", err, "bridged_id", bridgedID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "continuation failed"})
	}
}

// handleHealth responds to GET /health with a simple liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAdminTurns responds to GET /admin/turns with recent turn records.
func (s *Server) handleAdminTurns(w http.ResponseWriter, _ *http.Request) {
	turns, err := s.turnLog.List(50, 0)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list turns"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"turns": turns,
		"count": len(turns),
	})
}

// handleAdminSkills responds to GET /admin/skills with configured skill descriptors.
func (s *Server) handleAdminSkills(w http.ResponseWriter, _ *http.Request) {
	type skillView struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
		Endpoint    string `json:"endpoint"`
	}
	skills := make([]skillView, 0, len(s.cfg.Skills))
	for _, sk := range s.cfg.Skills {
		skills = append(skills, skillView{ID: sk.ID, DisplayName: sk.DisplayName, Endpoint: sk.Endpoint})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"skills": skills,
		"count":  len(skills),
	})
}

// handleAdminMetrics responds to GET /admin/metrics with counter values.
func (s *Server) handleAdminMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// recordFor builds the turn-log record for an inbound activity.
func recordFor(act *activity.Activity) history.Record {
	return history.Record{
		ID:             uuid.New(),
		ConversationID: act.Conversation.ID,
		Type:           act.Type,
		Text:           act.Text,
		CallerID:       act.CallerID,
		Status:         history.StatusReceived,
		Timestamp:      time.Now().UTC(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
