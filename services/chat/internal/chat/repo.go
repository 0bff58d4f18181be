package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConversationRepo persists conversations. Turns are append-only; analytics
// and conversion status are updated in place.
type ConversationRepo interface {
	Create(ctx context.Context, conversation *Conversation) error
	Get(ctx context.Context, id uuid.UUID) (*Conversation, error)
	List(ctx context.Context, since, until *time.Time) ([]Conversation, error)
	AppendTurns(ctx context.Context, id uuid.UUID, turns []Turn) error
	SaveAnalytics(ctx context.Context, id uuid.UUID, analytics AnalyticsState) error
	MarkConverted(ctx context.Context, id uuid.UUID, orderID uuid.UUID) error
}

// OrderSubmission is the priced order sent to the order service. The session
// id rides along so the store can reject a second submission for the same
// conversation.
type OrderSubmission struct {
	SessionID    string      `json:"session_id"`
	CustomerName string      `json:"customer_name,omitempty"`
	Items        []DraftLine `json:"items"`
	Subtotal     float64     `json:"subtotal"`
	Tax          float64     `json:"tax"`
	Total        float64     `json:"total"`
}

// OrderRef is the store's acknowledgement of a persisted order.
type OrderRef struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber int64     `json:"order_number"`
	Total       float64   `json:"total"`
}

// OrderStore submits finalized orders to the order service. Insert is
// idempotent per session: resubmitting for an already-converted session
// returns the existing order's reference, not an error.
type OrderStore interface {
	Insert(ctx context.Context, submission OrderSubmission) (*OrderRef, error)
}
