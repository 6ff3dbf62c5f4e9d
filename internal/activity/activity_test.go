package activity

import (
	"testing"
	"time"
)

func inbound() *Activity {
	return &Activity{
		Type:         TypeMessage,
		ID:           "act-1",
		ChannelID:    "emulator",
		ServiceURL:   "http://channel.local",
		Conversation: Conversation{ID: "conv-1"},
		From:         Account{ID: "user-1", Name: "User"},
		Recipient:    Account{ID: "bot-1", Name: "Bot"},
		Text:         "hello",
	}
}

func TestNewMessage(t *testing.T) {
	act := NewMessage("hi there")
	if act.Type != TypeMessage {
		t.Errorf("Type = %q, want %q", act.Type, TypeMessage)
	}
	if act.Text != "hi there" {
		t.Errorf("Text = %q, want %q", act.Text, "hi there")
	}
	if act.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestRefCapturesInboundAddressing(t *testing.T) {
	ref := inbound().Ref()

	if ref.Conversation.ID != "conv-1" {
		t.Errorf("Conversation.ID = %q, want conv-1", ref.Conversation.ID)
	}
	if ref.User.ID != "user-1" {
		t.Errorf("User.ID = %q, want user-1", ref.User.ID)
	}
	if ref.Bot.ID != "bot-1" {
		t.Errorf("Bot.ID = %q, want bot-1", ref.Bot.ID)
	}
	if ref.ActivityID != "act-1" {
		t.Errorf("ActivityID = %q, want act-1", ref.ActivityID)
	}
	if ref.ServiceURL != "http://channel.local" {
		t.Errorf("ServiceURL = %q", ref.ServiceURL)
	}
}

func TestApplyRefReversesDirection(t *testing.T) {
	ref := inbound().Ref()

	reply := NewMessage("the answer")
	reply.ApplyRef(ref)

	if reply.From.ID != "bot-1" {
		t.Errorf("From.ID = %q, want bot-1", reply.From.ID)
	}
	if reply.Recipient.ID != "user-1" {
		t.Errorf("Recipient.ID = %q, want user-1", reply.Recipient.ID)
	}
	if reply.Conversation.ID != "conv-1" {
		t.Errorf("Conversation.ID = %q, want conv-1", reply.Conversation.ID)
	}
	if reply.ReplyToID != "act-1" {
		t.Errorf("ReplyToID = %q, want act-1", reply.ReplyToID)
	}
}

func TestApplyRefKeepsExplicitReplyTo(t *testing.T) {
	ref := inbound().Ref()

	reply := NewMessage("threaded")
	reply.ReplyToID = "other-act"
	reply.ApplyRef(ref)

	if reply.ReplyToID != "other-act" {
		t.Errorf("ReplyToID = %q, want other-act", reply.ReplyToID)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := inbound()
	orig.MembersAdded = []Account{{ID: "m-1"}}

	c := orig.Clone()
	c.Text = "changed"
	c.Conversation.ID = "other"
	c.MembersAdded[0].ID = "m-2"

	if orig.Text != "hello" {
		t.Errorf("original Text mutated: %q", orig.Text)
	}
	if orig.Conversation.ID != "conv-1" {
		t.Errorf("original Conversation mutated: %q", orig.Conversation.ID)
	}
	if orig.MembersAdded[0].ID != "m-1" {
		t.Errorf("original MembersAdded mutated: %q", orig.MembersAdded[0].ID)
	}
}

func TestMergeKeepsAddressing(t *testing.T) {
	dst := inbound()
	dst.ApplyRef(dst.Ref())

	src := &Activity{
		Type:      TypeEndOfConversation,
		Code:      CodeCompletedSuccessfully,
		Text:      "done",
		Value:     map[string]any{"k": "v"},
		Timestamp: time.Now().UTC(),
	}

	dst.Merge(src)

	if dst.Type != TypeEndOfConversation {
		t.Errorf("Type = %q, want endOfConversation", dst.Type)
	}
	if dst.Code != CodeCompletedSuccessfully {
		t.Errorf("Code = %q", dst.Code)
	}
	if dst.Text != "done" {
		t.Errorf("Text = %q", dst.Text)
	}
	// Addressing is untouched.
	if dst.Conversation.ID != "conv-1" {
		t.Errorf("Conversation.ID = %q, want conv-1", dst.Conversation.ID)
	}
	if dst.ServiceURL != "http://channel.local" {
		t.Errorf("ServiceURL = %q", dst.ServiceURL)
	}
}
