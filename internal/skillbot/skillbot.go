package skillbot

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"rootrelay/internal/activity"
	"rootrelay/internal/genagent"
	"rootrelay/internal/server"
	"rootrelay/internal/transport"
	"rootrelay/internal/turn"
)

// endKeyword ends the skill conversation and hands control back to the root.
const endKeyword = "end"

// Bot is the skill-side message handler: it runs the structured-output agent
// for each user message relayed by the root and posts replies back to the
// caller's service URL.
type Bot struct {
	agent     *genagent.Agent
	responder turn.Responder
	validator *transport.Validator
	logger    *slog.Logger
	router    chi.Router

	mu        sync.Mutex
	histories map[string]*genagent.History // keyed by (bridged) conversation id
}

// New creates a Bot wired with the given agent and responder.
func New(agent *genagent.Agent, responder turn.Responder, validator *transport.Validator, logger *slog.Logger) *Bot {
	b := &Bot{
		agent:     agent,
		responder: responder,
		validator: validator,
		logger:    logger,
		histories: make(map[string]*genagent.History),
	}

	r := chi.NewRouter()
	r.Use(server.RequestID)
	r.Use(server.Logging(logger))
	r.Use(server.Recovery(logger))
	r.Post("/api/messages", b.handleMessages)
	r.Get("/health", b.handleHealth)

	b.router = r
	return b
}

// ServeHTTP implements http.Handler.
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// handleMessages processes one activity relayed from the root bot.
func (b *Bot) handleMessages(w http.ResponseWriter, r *http.Request) {
	if err := b.validator.Validate(r); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	act, err := transport.ParseActivity(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if act.Type != activity.TypeMessage {
		// Non-message traffic is acknowledged without a reply.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err := b.onMessage(r.Context(), act); err != nil {
		b.logger.Error("message handling failed", "error", err, "conversation_id", act.Conversation.ID)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "message handling failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// onMessage runs the agent for a user message, or ends the conversation when
// the end keyword is received.
func (b *Bot) onMessage(ctx context.Context, act *activity.Activity) error {
	tc := turn.New(act, "", b.responder)
	convID := act.Conversation.ID

	if strings.EqualFold(strings.TrimSpace(act.Text), endKeyword) {
		b.dropHistory(convID)
		_, err := tc.Send(ctx, &activity.Activity{
			Type: activity.TypeEndOfConversation,
			Code: activity.CodeCompletedSuccessfully,
			Text: "Skill conversation ended.",
		})
		return err
	}

	resp, err := b.agent.Invoke(ctx, act.Text, b.history(convID))
	var exhausted *genagent.ExhaustedError
	if errors.As(err, &exhausted) {
		b.logger.Error("agent exhausted retries", "error", err, "conversation_id", convID)
		_, sendErr := tc.SendText(ctx, "I could not produce a response. Please try again.")
		return sendErr
	}
	if err != nil {
		return err
	}

	reply := activity.NewMessage("")
	switch resp.ContentType {
	case genagent.ContentTypeAdaptiveCard:
		if json.Valid([]byte(resp.Content)) {
			reply.Value = json.RawMessage(resp.Content)
		} else {
			reply.Text = resp.Content
		}
	default:
		reply.Text = resp.Content
	}

	_, err = tc.Send(ctx, reply)
	return err
}

// handleHealth responds to GET /health with a simple liveness check.
func (b *Bot) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// history returns the chat history for a conversation, creating it with the
// agent instructions on first use.
func (b *Bot) history(conversationID string) *genagent.History {
	b.mu.Lock()
	defer b.mu.Unlock()

	h, ok := b.histories[conversationID]
	if !ok {
		h = genagent.NewHistory(genagent.Message{Role: genagent.RoleSystem, Content: genagent.Instructions})
		b.histories[conversationID] = h
	}
	return h
}

func (b *Bot) dropHistory(conversationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.histories, conversationID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
