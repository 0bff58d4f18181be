package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

func newTestManager(repo *MockConversationRepo, store *MockOrderStore) *SessionManager {
	logger := apt.NewNoopLogger()
	extractor := newTestExtractor()
	finalizer := NewFinalizer(store, repo, NewMockPublisher(), logger)
	registry := NewStateRegistry(repo)
	return NewSessionManager(registry, extractor, finalizer, repo, logger)
}

func TestHandleTurnFullConversation(t *testing.T) {
	repo := NewMockConversationRepo()
	store := NewMockOrderStore()
	m := newTestManager(repo, store)

	conversation, err := m.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	id := conversation.ID

	// Turn 1: the customer orders, the cashier reports a cart.
	result, err := m.HandleTurn(context.Background(), id,
		"Can I get a latte?",
		`One latte! Anything else? [CART][{"name": "Latte", "quantity": 1, "unit_price": 5.25}][/CART]`)
	if err != nil {
		t.Fatalf("turn 1 error = %v", err)
	}
	if result.DisplayText != "One latte! Anything else?" {
		t.Errorf("turn 1 display text: %q", result.DisplayText)
	}
	if len(result.Cart) != 1 || result.Subtotal != 5.25 {
		t.Errorf("turn 1 cart: %+v subtotal %v", result.Cart, result.Subtotal)
	}

	// Turn 2: quantity bump plus an upsell attempt.
	result, err = m.HandleTurn(context.Background(), id,
		"Make it two. And no, no croissant.",
		`Two lattes. [CART][{"name": "Latte", "quantity": 2, "unit_price": 5.25}][/CART] `+
			`[ANALYTICS]{"off_menu_requests": [], "upsell_attempts": ["croissant"], "upsell_successes": []}[/ANALYTICS]`)
	if err != nil {
		t.Fatalf("turn 2 error = %v", err)
	}
	if result.Subtotal != 10.50 {
		t.Errorf("turn 2 subtotal = %v, want 10.50", result.Subtotal)
	}
	if !result.AnalyticsChanged {
		t.Error("turn 2 should report analytics change")
	}

	// Turn 3: confirmation produces an order.
	result, err = m.HandleTurn(context.Background(), id,
		"That's everything.",
		`Order's in! [ORDER]{"confirmed": true, "customer_name": "Maya", "items": `+
			`[{"name": "Latte", "quantity": 2, "base_price": 5.25, "total_price": 5.25}]}[/ORDER]`)
	if err != nil {
		t.Fatalf("turn 3 error = %v", err)
	}
	if result.Order == nil {
		t.Fatalf("turn 3 produced no order: %+v", result)
	}
	if result.Order.OrderNumber != 1 {
		t.Errorf("order number = %d, want 1", result.Order.OrderNumber)
	}
	if result.Order.Total != 11.43 { // 10.50 + 8.875% tax
		t.Errorf("order total = %v, want 11.43", result.Order.Total)
	}

	persisted, err := repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(persisted.Turns) != 6 {
		t.Errorf("persisted %d turns, want 6", len(persisted.Turns))
	}
	if persisted.Turns[0].Speaker != SpeakerCustomer || persisted.Turns[1].Speaker != SpeakerCashier {
		t.Errorf("unexpected turn speakers: %+v", persisted.Turns[:2])
	}
}

func TestHandleTurnDuplicateConfirmation(t *testing.T) {
	repo := NewMockConversationRepo()
	store := NewMockOrderStore()
	m := newTestManager(repo, store)

	conversation, _ := m.Open(context.Background())
	id := conversation.ID

	confirm := `Done! [ORDER]{"confirmed": true, "items": [{"name": "Latte", "quantity": 1, "base_price": 5.25, "total_price": 5.25}]}[/ORDER]`

	first, err := m.HandleTurn(context.Background(), id, "Yes, confirm.", confirm)
	if err != nil {
		t.Fatalf("first confirmation error = %v", err)
	}
	second, err := m.HandleTurn(context.Background(), id, "Confirm again?", confirm)
	if err != nil {
		t.Fatalf("second confirmation error = %v", err)
	}

	if len(store.Submissions) != 1 {
		t.Fatalf("expected one persisted order, got %d", len(store.Submissions))
	}
	if second.Order == nil || second.Order.ID != first.Order.ID {
		t.Errorf("duplicate confirmation returned %+v, want existing ref %+v", second.Order, first.Order)
	}
}

func TestHandleTurnOrderFailureIsTransient(t *testing.T) {
	repo := NewMockConversationRepo()
	store := NewMockOrderStore()
	store.InsertFunc = func(ctx context.Context, submission OrderSubmission) (*OrderRef, error) {
		return nil, errors.New("order service unavailable")
	}
	m := newTestManager(repo, store)

	conversation, _ := m.Open(context.Background())
	id := conversation.ID

	result, err := m.HandleTurn(context.Background(), id, "Confirm.",
		`Done! [ORDER]{"confirmed": true, "items": [{"name": "Latte", "quantity": 1, "base_price": 5.25, "total_price": 5.25}]}[/ORDER]`)
	if err != nil {
		t.Fatalf("turn should not fail on store error, got %v", err)
	}
	if result.Order != nil {
		t.Error("failed submission still produced an order ref")
	}
	if result.OrderError == "" {
		t.Error("expected a transient order error message")
	}

	// The turn itself was recorded despite the failure.
	persisted, _ := repo.Get(context.Background(), id)
	if len(persisted.Turns) != 2 {
		t.Errorf("persisted %d turns, want 2", len(persisted.Turns))
	}
	if persisted.Finalized {
		t.Error("conversation finalized despite store failure")
	}
}

func TestHandleTurnCartStillAppliesAfterFinalization(t *testing.T) {
	repo := NewMockConversationRepo()
	store := NewMockOrderStore()
	m := newTestManager(repo, store)

	conversation, _ := m.Open(context.Background())
	id := conversation.ID

	_, err := m.HandleTurn(context.Background(), id, "Confirm.",
		`Done! [ORDER]{"confirmed": true, "items": [{"name": "Latte", "quantity": 1, "base_price": 5.25, "total_price": 5.25}]}[/ORDER]`)
	if err != nil {
		t.Fatalf("confirmation error = %v", err)
	}

	result, err := m.HandleTurn(context.Background(), id, "Actually add a cookie for here.",
		`Sure, added. [CART][{"name": "Cookie", "quantity": 1, "unit_price": 2.50}][/CART]`)
	if err != nil {
		t.Fatalf("post-finalization turn error = %v", err)
	}
	if len(result.Cart) != 1 || result.Cart[0].Name != "Cookie" {
		t.Errorf("cart update dropped after finalization: %+v", result.Cart)
	}
}

func TestStateRegistryRehydrates(t *testing.T) {
	repo := NewMockConversationRepo()

	conversation := NewConversation()
	conversation.BeforeCreate()
	conversation.Finalized = true
	orderID := apt.GenerateNewID()
	conversation.LinkedOrderID = &orderID
	if err := repo.Create(context.Background(), conversation); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	registry := NewStateRegistry(repo)
	state, err := registry.Acquire(context.Background(), conversation.ID)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !state.Conversation.Finalized {
		t.Error("rehydrated state lost finalized flag")
	}

	// Same id resolves to the same live state.
	again, err := registry.Acquire(context.Background(), conversation.ID)
	if err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if again != state {
		t.Error("registry returned a different state for the same session")
	}
}

func TestStateRegistryUnknownSession(t *testing.T) {
	registry := NewStateRegistry(NewMockConversationRepo())

	state, err := registry.Acquire(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if state != nil {
		t.Fatal("expected nil state for unknown session")
	}
}
