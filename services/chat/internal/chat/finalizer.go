package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/google/uuid"

	"github.com/brewchat/brewchat/pkg/event"
	"github.com/brewchat/brewchat/pkg/pricing"
)

// ErrEmptyDraft rejects a confirmed order with no items before any store
// contact happens.
var ErrEmptyDraft = errors.New("confirmed order has no items")

// Finalizer turns a confirmed order draft into a persisted order, at most
// once per conversation. A failed submission leaves the conversation
// unfinalized so the next confirmation retries cleanly.
type Finalizer struct {
	orders    OrderStore
	sessions  ConversationRepo
	publisher events.Publisher
	logger    apt.Logger
}

func NewFinalizer(orders OrderStore, sessions ConversationRepo, publisher events.Publisher, logger apt.Logger) *Finalizer {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Finalizer{
		orders:    orders,
		sessions:  sessions,
		publisher: publisher,
		logger:    logger,
	}
}

// Finalize validates and prices the draft, submits it to the order store,
// and records the conversion on the conversation. The caller must hold the
// session state's lock; a second confirmation for an already-finalized
// session returns the existing reference without touching the store.
func (f *Finalizer) Finalize(ctx context.Context, state *ConversationState, draft OrderDraft) (*OrderRef, error) {
	conversation := state.Conversation

	if conversation.Finalized {
		if state.LastOrder != nil {
			return state.LastOrder, nil
		}
		ref := &OrderRef{}
		if conversation.LinkedOrderID != nil {
			ref.ID = *conversation.LinkedOrderID
		}
		return ref, nil
	}

	if len(draft.Items) == 0 {
		return nil, ErrEmptyDraft
	}

	lines := make([]DraftLine, len(draft.Items))
	copy(lines, draft.Items)
	lineTotals := make([]float64, len(lines))
	for i := range lines {
		NormalizeLine(&lines[i])
		if lines[i].Name == "" {
			return nil, fmt.Errorf("order line %d has no name", i)
		}
		lineTotals[i] = pricing.LineTotal(lines[i].TotalPrice, lines[i].Quantity)
	}

	subtotal := pricing.Subtotal(lineTotals)
	submission := OrderSubmission{
		SessionID:    conversation.ID.String(),
		CustomerName: draft.CustomerName,
		Items:        lines,
		Subtotal:     subtotal,
		Tax:          pricing.Tax(subtotal),
		Total:        pricing.Total(subtotal),
	}

	ref, err := f.orders.Insert(ctx, submission)
	if err != nil {
		return nil, fmt.Errorf("cannot submit order: %w", err)
	}

	conversation.Finalized = true
	orderID := ref.ID
	conversation.LinkedOrderID = &orderID
	conversation.BeforeUpdate()
	state.LastOrder = ref

	f.recordConversion(conversation.ID, ref)

	return ref, nil
}

// recordConversion persists the conversion flag and announces it, both in
// the background. The order itself is already durable in the order service;
// these are bookkeeping for the dashboard and can be retried by hand if a
// write is lost.
func (f *Finalizer) recordConversion(sessionID uuid.UUID, ref *OrderRef) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := f.sessions.MarkConverted(ctx, sessionID, ref.ID); err != nil {
			f.logger.Error("cannot mark conversation converted", "session_id", sessionID, "error", err)
		}

		if f.publisher == nil {
			return
		}
		evt := event.ConversationEvent{
			EventType:  event.EventConversationConverted,
			OccurredAt: time.Now(),
			SessionID:  sessionID.String(),
			OrderID:    ref.ID.String(),
		}
		payload, err := json.Marshal(evt)
		if err != nil {
			f.logger.Error("cannot marshal conversation event", "error", err)
			return
		}
		if err := f.publisher.Publish(ctx, event.ConversationsTopic, payload); err != nil {
			f.logger.Error("cannot publish conversation event", "session_id", sessionID, "error", err)
		}
	}()
}
