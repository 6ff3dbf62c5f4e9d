package turn

import (
	"context"
	"time"

	"rootrelay/internal/activity"
)

// Responder delivers one outbound activity into a user-facing conversation
// and returns the delivery id.
type Responder interface {
	Deliver(ctx context.Context, act *activity.Activity) (string, error)
}

// Handler processes one turn of a conversation.
type Handler interface {
	OnTurn(ctx context.Context, tc *Context) error
}

// Context binds one inbound activity to the conversation it belongs to and
// to the responder used for outbound replies.
type Context struct {
	Activity   *activity.Activity
	Ref        activity.ConversationReference
	OAuthScope string

	// Forwarded is set by the turn handler when the activity was relayed
	// to a skill instead of being handled locally.
	Forwarded bool

	responder Responder
}

// New builds a turn context for an inbound activity.
func New(act *activity.Activity, oauthScope string, responder Responder) *Context {
	return &Context{
		Activity:   act,
		Ref:        act.Ref(),
		OAuthScope: oauthScope,
		responder:  responder,
	}
}

// Resumed builds a turn context for a conversation resumed out of band: the
// activity is a synthetic anchor addressed by the stored reference, with no
// live inbound request behind it.
func Resumed(ref activity.ConversationReference, oauthScope string, responder Responder) *Context {
	anchor := &activity.Activity{
		Type:         activity.TypeEvent,
		Name:         "continueConversation",
		ChannelID:    ref.ChannelID,
		ServiceURL:   ref.ServiceURL,
		Conversation: ref.Conversation,
		From:         ref.User,
		Recipient:    ref.Bot,
		ID:           ref.ActivityID,
		Timestamp:    time.Now().UTC(),
	}
	return &Context{
		Activity:   anchor,
		Ref:        ref,
		OAuthScope: oauthScope,
		responder:  responder,
	}
}

// Send addresses act as a reply within this conversation and delivers it.
func (tc *Context) Send(ctx context.Context, act *activity.Activity) (activity.ResourceResponse, error) {
	out := act.Clone()
	out.ApplyRef(tc.Ref)

	id, err := tc.responder.Deliver(ctx, out)
	if err != nil {
		return activity.ResourceResponse{}, err
	}
	return activity.ResourceResponse{ID: id}, nil
}

// SendText delivers a plain text message into this conversation.
func (tc *Context) SendText(ctx context.Context, text string) (activity.ResourceResponse, error) {
	return tc.Send(ctx, activity.NewMessage(text))
}
