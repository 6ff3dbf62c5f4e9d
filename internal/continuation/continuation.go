package continuation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"rootrelay/internal/activity"
	"rootrelay/internal/bridge"
	"rootrelay/internal/turn"
)

// Handler bridges skill-originated activities back into the user-facing
// conversation, serializing continuation callbacks per conversation so two
// of them never interleave sends.
type Handler struct {
	store      bridge.Store
	turns      turn.Handler
	responder  turn.Responder
	oauthScope string
	permits    *permits
	logger     *slog.Logger
}

// NewHandler creates a Handler wired with the given dependencies. turns is
// the root turn handler that endOfConversation activities are re-dispatched
// through.
func NewHandler(store bridge.Store, turns turn.Handler, responder turn.Responder, oauthScope string, logger *slog.Logger) *Handler {
	return &Handler{
		store:      store,
		turns:      turns,
		responder:  responder,
		oauthScope: oauthScope,
		permits:    newPermits(),
		logger:     logger,
	}
}

// ProcessUserTurn runs one inbound user turn through the root turn handler.
// The returned flag reports whether the turn was forwarded to a skill rather
// than handled locally. User turns take no resumption permit: ordering of
// inbound requests is the hosting channel's concern, and a forwarded turn
// blocks on the skill while the skill's reply arrives here as a continuation
// callback before the forward returns.
func (h *Handler) ProcessUserTurn(ctx context.Context, act *activity.Activity) (bool, error) {
	tc := turn.New(act, h.oauthScope, h.responder)
	err := h.turns.OnTurn(ctx, tc)
	return tc.Forwarded, err
}

// Invoke dispatches one channel-protocol operation received from a skill.
// Only the send and reply variants are implemented; everything else returns
// a NotSupportedError.
func (h *Handler) Invoke(ctx context.Context, op Operation, bridgedID, activityID string, act *activity.Activity) (activity.ResourceResponse, error) {
	switch op {
	case OpSendToConversation:
		return h.processActivity(ctx, bridgedID, "", act)
	case OpReplyToActivity:
		return h.processActivity(ctx, bridgedID, activityID, act)
	default:
		return activity.ResourceResponse{}, &NotSupportedError{Op: op}
	}
}

// processActivity resumes the originating user conversation for a
// skill-originated activity. endOfConversation deletes the bridge reference
// and re-dispatches through the root turn handler so the engagement flag is
// cleared; everything else is delivered as-is.
func (h *Handler) processActivity(ctx context.Context, bridgedID, replyToID string, act *activity.Activity) (activity.ResourceResponse, error) {
	ref, err := h.store.Lookup(ctx, bridgedID)
	if errors.Is(err, bridge.ErrNotFound) {
		return activity.ResourceResponse{}, &UnknownBridgeError{BridgedID: bridgedID}
	}
	if err != nil {
		return activity.ResourceResponse{}, fmt.Errorf("looking up bridge reference: %w", err)
	}

	var resource activity.ResourceResponse
	err = h.resume(ref, func() error {
		in := act.Clone()
		in.ApplyRef(ref.Conversation)
		if replyToID != "" {
			in.ReplyToID = replyToID
		}
		in.CallerID = activity.BotToBotCallerPrefix + ref.SkillAppID

		tc := turn.Resumed(ref.Conversation, ref.OAuthScope, h.responder)

		if in.Type == activity.TypeEndOfConversation {
			if err := h.store.Delete(ctx, bridgedID); err != nil {
				return fmt.Errorf("deleting bridge reference: %w", err)
			}
			tc.Activity.Merge(in)
			return h.turns.OnTurn(ctx, tc)
		}

		rr, err := tc.Send(ctx, in)
		if err != nil {
			return err
		}
		resource = rr
		return nil
	})
	if err != nil {
		return activity.ResourceResponse{}, err
	}

	// The end-of-conversation branch produces no delivery confirmation;
	// synthesize one so the caller always gets a well-formed acknowledgement.
	if resource.ID == "" {
		resource.ID = strings.ReplaceAll(uuid.New().String(), "-", "")
	}
	return resource, nil
}

// resume acquires the resumption permit for the referenced conversation,
// runs fn, and releases the permit on every exit path.
func (h *Handler) resume(ref bridge.Reference, fn func() error) error {
	convID := ref.Conversation.Conversation.ID
	release, err := h.permits.acquire(convID)
	if err != nil {
		return fmt.Errorf("resuming conversation %q: %w", convID, err)
	}
	defer release()

	h.logger.Debug("conversation resumed", "conversation_id", convID, "skill", ref.SkillID)
	return fn()
}
