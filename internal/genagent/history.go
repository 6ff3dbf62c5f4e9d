package genagent

// Role tags who authored a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry in a chat history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History is an ordered chat history. It accumulates across retries so the
// model sees its own malformed output alongside the corrective feedback.
type History struct {
	msgs []Message
}

// NewHistory creates a history seeded with the given messages.
func NewHistory(msgs ...Message) *History {
	return &History{msgs: append([]Message(nil), msgs...)}
}

// Add appends a message.
func (h *History) Add(m Message) {
	h.msgs = append(h.msgs, m)
}

// Messages returns a copy of the accumulated messages in order.
func (h *History) Messages() []Message {
	return append([]Message(nil), h.msgs...)
}

// Len returns the number of accumulated messages.
func (h *History) Len() int { return len(h.msgs) }
