package event

import "time"

const (
	ConversationsTopic         = "conversations.events"
	EventConversationConverted = "conversation.converted"
)

// ConversationEvent signals a conversation lifecycle change, currently only
// the converted-to-order transition used by the analytics dashboard.
type ConversationEvent struct {
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	SessionID  string    `json:"session_id"`
	OrderID    string    `json:"order_id,omitempty"`
}
