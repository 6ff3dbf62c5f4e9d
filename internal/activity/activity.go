package activity

import (
	"encoding/json"
	"time"
)

// Type identifies the kind of conversational event an Activity carries.
type Type string

const (
	TypeMessage            Type = "message"
	TypeConversationUpdate Type = "conversationUpdate"
	TypeEndOfConversation  Type = "endOfConversation"
	TypeEvent              Type = "event"
	TypeTyping             Type = "typing"
)

// End-of-conversation codes reported by a skill.
const (
	CodeCompletedSuccessfully = "completedSuccessfully"
	CodeUserCancelled         = "userCancelled"
	CodeError                 = "error"
)

// BotToBotCallerPrefix tags CallerID on activities relayed between bots.
const BotToBotCallerPrefix = "urn:botframework:aadappid:"

// Account identifies a conversation participant (user, bot, or channel account).
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Conversation identifies the conversation an activity belongs to.
type Conversation struct {
	ID string `json:"id"`
}

// Activity is a single conversational event. Type is always set;
// endOfConversation activities may omit Text.
type Activity struct {
	Type           Type            `json:"type"`
	ID             string          `json:"id,omitempty"`
	ChannelID      string          `json:"channelId,omitempty"`
	ServiceURL     string          `json:"serviceUrl,omitempty"`
	Conversation   Conversation    `json:"conversation"`
	From           Account         `json:"from,omitempty"`
	Recipient      Account         `json:"recipient,omitempty"`
	Text           string          `json:"text,omitempty"`
	Value          any             `json:"value,omitempty"`
	Code           string          `json:"code,omitempty"`
	Name           string          `json:"name,omitempty"`
	ReplyToID      string          `json:"replyToId,omitempty"`
	CallerID       string          `json:"callerId,omitempty"`
	MembersAdded   []Account       `json:"membersAdded,omitempty"`
	Timestamp      time.Time       `json:"timestamp,omitempty"`
	LocalTimestamp time.Time       `json:"localTimestamp,omitempty"`
	ChannelData    json.RawMessage `json:"channelData,omitempty"`
}

// ConversationReference carries everything needed to resume a conversation
// later: channel, endpoints, participants, and the original conversation id.
type ConversationReference struct {
	ChannelID    string       `json:"channelId,omitempty"`
	ServiceURL   string       `json:"serviceUrl,omitempty"`
	Conversation Conversation `json:"conversation"`
	User         Account      `json:"user,omitempty"`
	Bot          Account      `json:"bot,omitempty"`
	ActivityID   string       `json:"activityId,omitempty"`
}

// ResourceResponse acknowledges delivery of one activity.
type ResourceResponse struct {
	ID string `json:"id"`
}

// NewMessage builds a plain text message activity.
func NewMessage(text string) *Activity {
	return &Activity{
		Type:      TypeMessage,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// Clone returns a shallow copy of the activity. ChannelData and Value are
// shared with the original; callers that mutate them must copy first.
func (a *Activity) Clone() *Activity {
	c := *a
	if a.MembersAdded != nil {
		c.MembersAdded = append([]Account(nil), a.MembersAdded...)
	}
	return &c
}

// Ref extracts the conversation reference for an inbound activity, so the
// conversation can be resumed after the originating request has completed.
// On an inbound activity From is the user and Recipient is the bot.
func (a *Activity) Ref() ConversationReference {
	return ConversationReference{
		ChannelID:    a.ChannelID,
		ServiceURL:   a.ServiceURL,
		Conversation: a.Conversation,
		User:         a.From,
		Bot:          a.Recipient,
		ActivityID:   a.ID,
	}
}

// ApplyRef addresses the activity as an outbound reply within the referenced
// conversation: the bot becomes the sender and the stored user the recipient.
func (a *Activity) ApplyRef(ref ConversationReference) {
	a.ChannelID = ref.ChannelID
	a.ServiceURL = ref.ServiceURL
	a.Conversation = ref.Conversation
	a.From = ref.Bot
	a.Recipient = ref.User
	if a.ReplyToID == "" {
		a.ReplyToID = ref.ActivityID
	}
}

// Merge copies the payload fields of src onto a, keeping a's addressing
// (conversation, from, recipient, service URL) intact. Used when a skill's
// endOfConversation is re-dispatched as a locally originated turn.
func (a *Activity) Merge(src *Activity) {
	a.Type = src.Type
	a.Text = src.Text
	a.Value = src.Value
	a.Code = src.Code
	a.Name = src.Name
	a.ReplyToID = src.ReplyToID
	a.ChannelData = src.ChannelData
	a.Timestamp = src.Timestamp
	a.LocalTimestamp = src.LocalTimestamp
}
