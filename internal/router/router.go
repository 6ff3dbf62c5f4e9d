package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"rootrelay/internal/activity"
	"rootrelay/internal/bridge"
	"rootrelay/internal/config"
	"rootrelay/internal/skillclient"
	"rootrelay/internal/telemetry"
	"rootrelay/internal/turn"
)

const connectingText = "Got it, connecting you to the agent..."

// Router is the root-side turn handler: per inbound turn it either runs a
// local handler or forwards the turn to the target skill, tracking the
// per-conversation active-skill flag through the bridge store.
type Router struct {
	bot     config.BotConfig
	target  config.SkillDescriptor
	store   bridge.Store
	client  skillclient.Client
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// New creates a Router wired with the given dependencies.
func New(
	bot config.BotConfig,
	target config.SkillDescriptor,
	store bridge.Store,
	client skillclient.Client,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *Router {
	metrics.AddInstance()
	return &Router{
		bot:     bot,
		target:  target,
		store:   store,
		client:  client,
		metrics: metrics,
		logger:  logger,
	}
}

// OnTurn decides per-turn handling. While the conversation is engaged with
// the skill, every activity except endOfConversation is forwarded; otherwise
// the activity is dispatched to the local handler for its type.
func (r *Router) OnTurn(ctx context.Context, tc *turn.Context) error {
	if tc.Activity.Type != activity.TypeEndOfConversation {
		engaged, err := r.store.Engaged(ctx, tc.Ref.Conversation.ID)
		if err != nil {
			return fmt.Errorf("checking engagement: %w", err)
		}
		if engaged {
			return r.sendToSkill(ctx, tc)
		}
	}

	switch tc.Activity.Type {
	case activity.TypeMessage:
		return r.onMessage(ctx, tc)
	case activity.TypeConversationUpdate:
		return r.onConversationUpdate(ctx, tc)
	case activity.TypeEndOfConversation:
		return r.onEndOfConversation(ctx, tc)
	default:
		return nil
	}
}

// onMessage engages the skill when the trigger keyword appears, otherwise
// answers with the help prompt.
func (r *Router) onMessage(ctx context.Context, tc *turn.Context) error {
	if strings.Contains(tc.Activity.Text, r.bot.TriggerKeyword) {
		if _, err := tc.SendText(ctx, connectingText); err != nil {
			return err
		}
		if err := r.store.SetEngaged(ctx, tc.Ref.Conversation.ID); err != nil {
			return fmt.Errorf("setting engagement: %w", err)
		}
		return r.sendToSkill(ctx, tc)
	}

	_, err := tc.SendText(ctx, r.prompt())
	return err
}

// onEndOfConversation clears the engagement and summarizes what the skill
// reported back, then re-offers the trigger prompt.
func (r *Router) onEndOfConversation(ctx context.Context, tc *turn.Context) error {
	if err := r.store.ClearEngaged(ctx, tc.Ref.Conversation.ID); err != nil {
		return fmt.Errorf("clearing engagement: %w", err)
	}

	msg := fmt.Sprintf("Received %s.\n\nCode: %s", activity.TypeEndOfConversation, tc.Activity.Code)
	if strings.TrimSpace(tc.Activity.Text) != "" {
		msg += "\n\nText: " + tc.Activity.Text
	}
	if tc.Activity.Value != nil {
		v, err := json.Marshal(tc.Activity.Value)
		if err != nil {
			return fmt.Errorf("encoding end-of-conversation value: %w", err)
		}
		msg += "\n\nValue: " + string(v)
	}

	if _, err := tc.SendText(ctx, msg); err != nil {
		return err
	}
	_, err := tc.SendText(ctx, "Back in the root bot. "+r.prompt())
	return err
}

// onConversationUpdate greets every added member other than the bot itself.
func (r *Router) onConversationUpdate(ctx context.Context, tc *turn.Context) error {
	for _, member := range tc.Activity.MembersAdded {
		if member.ID == tc.Activity.Recipient.ID {
			continue
		}
		if _, err := tc.SendText(ctx, r.prompt()); err != nil {
			return err
		}
	}
	return nil
}

// sendToSkill mints a bridged conversation id for the handoff and posts the
// activity to the target skill. A non-2xx answer surfaces as a RelayError;
// the caller decides whether to retry the whole turn.
func (r *Router) sendToSkill(ctx context.Context, tc *turn.Context) error {
	r.metrics.AddForward()
	span := telemetry.StartSpan(ctx, r.logger, "bot2bot")
	defer span.End(ctx)

	bridgedID, err := r.store.Create(ctx, bridge.Options{
		OAuthScope: tc.OAuthScope,
		FromAppID:  r.bot.AppID,
		Activity:   tc.Activity,
		Skill:      r.target,
	})
	if err != nil {
		return fmt.Errorf("creating bridge reference: %w", err)
	}

	resp, err := r.client.Send(ctx, r.target, r.bot.HostEndpoint, bridgedID, tc.Activity)
	if err != nil {
		return fmt.Errorf("forwarding to skill %q: %w", r.target.ID, err)
	}
	if !resp.Success() {
		return &skillclient.RelayError{
			SkillID:  r.target.ID,
			Endpoint: r.target.Endpoint,
			Status:   resp.Status,
			Body:     string(resp.Body),
		}
	}

	tc.Forwarded = true
	r.logger.Debug("forwarded to skill",
		"skill", r.target.ID,
		"bridged_id", bridgedID,
		"type", tc.Activity.Type,
	)
	return nil
}

func (r *Router) prompt() string {
	return fmt.Sprintf("Say %q and I'll patch you through", r.bot.TriggerKeyword)
}
