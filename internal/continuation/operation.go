package continuation

import "fmt"

// Operation is one entry in the closed set of channel-protocol operations a
// skill may invoke against the root. Only the send/reply variants are
// implemented; the rest fail explicitly with a NotSupportedError.
type Operation string

const (
	OpSendToConversation          Operation = "sendToConversation"
	OpReplyToActivity             Operation = "replyToActivity"
	OpUpdateActivity              Operation = "updateActivity"
	OpDeleteActivity              Operation = "deleteActivity"
	OpGetActivityMembers          Operation = "getActivityMembers"
	OpCreateConversation          Operation = "createConversation"
	OpGetConversations            Operation = "getConversations"
	OpGetConversationMembers      Operation = "getConversationMembers"
	OpGetConversationPagedMembers Operation = "getConversationPagedMembers"
	OpDeleteConversationMember    Operation = "deleteConversationMember"
	OpSendConversationHistory     Operation = "sendConversationHistory"
	OpUploadAttachment            Operation = "uploadAttachment"
)

// NotSupportedError reports a channel-protocol operation the relay
// deliberately does not implement.
type NotSupportedError struct {
	Op Operation
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("operation %q is not supported", e.Op)
}

// UnknownBridgeError reports an activity for a bridged id with no stored
// reference. The conversation cannot be resumed; the continuation fails.
type UnknownBridgeError struct {
	BridgedID string
}

func (e *UnknownBridgeError) Error() string {
	return fmt.Sprintf("no bridge reference for conversation %q", e.BridgedID)
}
