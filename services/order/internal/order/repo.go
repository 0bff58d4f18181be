package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type OrderRepo interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	GetBySession(ctx context.Context, sessionID string) (*Order, error)
	List(ctx context.Context) ([]*Order, error)
	ListByStatus(ctx context.Context, status string) ([]*Order, error)
	ListSince(ctx context.Context, since time.Time) ([]*Order, error)
	Save(ctx context.Context, order *Order) error
}

// TicketCounter hands out the customer-facing order numbers. Next must be
// atomic and monotonic across concurrent callers.
type TicketCounter interface {
	Next(ctx context.Context) (int64, error)
}
