package chat

import (
	"context"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

const (
	SpeakerCustomer = "customer"
	SpeakerCashier  = "cashier"
)

// Turn is one utterance in a conversation. Cashier turns store the
// conversational text only; side-channel payloads are folded into the
// session's cart and analytics instead.
type Turn struct {
	Speaker string    `json:"speaker" bson:"speaker"`
	Text    string    `json:"text" bson:"text"`
	At      time.Time `json:"at" bson:"at"`
}

// Conversation is one ordering session between a customer and the cashier
// model. Finalized never reverts to false, and LinkedOrderID is set exactly
// when Finalized is.
type Conversation struct {
	ID            uuid.UUID      `json:"id" bson:"_id"`
	Turns         []Turn         `json:"turns" bson:"turns"`
	Analytics     AnalyticsState `json:"analytics" bson:"analytics"`
	Finalized     bool           `json:"finalized" bson:"finalized"`
	LinkedOrderID *uuid.UUID     `json:"linked_order_id,omitempty" bson:"linked_order_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" bson:"updated_at"`
}

func NewConversation() *Conversation {
	return &Conversation{
		ID: apt.GenerateNewID(),
	}
}

func (c *Conversation) GetID() uuid.UUID {
	return c.ID
}

func (c *Conversation) SetID(id uuid.UUID) {
	c.ID = id
}

func (c *Conversation) ResourceType() string {
	return "conversation"
}

func (c *Conversation) EnsureID() {
	if c.ID == uuid.Nil {
		c.ID = apt.GenerateNewID()
	}
}

func (c *Conversation) BeforeCreate() {
	c.EnsureID()
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
}

func (c *Conversation) BeforeUpdate() {
	c.UpdatedAt = time.Now()
}

// ConversationState is the live, in-memory state for one session: the
// persisted conversation plus the working cart. The mutex serializes turns
// for the session; two tabs or a retry-after-timeout can race on the same id.
type ConversationState struct {
	mu           sync.Mutex
	Conversation *Conversation
	Cart         Cart
	LastOrder    *OrderRef
}

// Lock serializes turn processing for this session.
func (s *ConversationState) Lock() {
	s.mu.Lock()
}

func (s *ConversationState) Unlock() {
	s.mu.Unlock()
}

// StateRegistry maps session ids to live state, rehydrating from the repo
// for sessions this process has not seen yet. The working cart is not
// persisted; a rehydrated session starts with an empty cart and catches up
// on the model's next snapshot.
type StateRegistry struct {
	mu       sync.RWMutex
	states   map[uuid.UUID]*ConversationState
	sessions ConversationRepo
}

func NewStateRegistry(sessions ConversationRepo) *StateRegistry {
	return &StateRegistry{
		states:   make(map[uuid.UUID]*ConversationState),
		sessions: sessions,
	}
}

// Open creates and persists a fresh conversation and registers its state.
func (r *StateRegistry) Open(ctx context.Context) (*ConversationState, error) {
	conversation := NewConversation()
	conversation.BeforeCreate()

	if err := r.sessions.Create(ctx, conversation); err != nil {
		return nil, err
	}

	state := &ConversationState{Conversation: conversation}

	r.mu.Lock()
	r.states[conversation.ID] = state
	r.mu.Unlock()

	return state, nil
}

// Acquire returns the live state for a session, loading it from the repo if
// this process has not touched it yet. A nil state with nil error means the
// session does not exist.
func (r *StateRegistry) Acquire(ctx context.Context, id uuid.UUID) (*ConversationState, error) {
	r.mu.RLock()
	state, ok := r.states[id]
	r.mu.RUnlock()
	if ok {
		return state, nil
	}

	conversation, err := r.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request may have rehydrated the same session first.
	if existing, ok := r.states[id]; ok {
		return existing, nil
	}
	state = &ConversationState{Conversation: conversation}
	r.states[id] = state
	return state, nil
}

// TurnResult is what one processed turn returns to the chat client.
type TurnResult struct {
	DisplayText      string     `json:"display_text"`
	Cart             []CartItem `json:"cart"`
	Subtotal         float64    `json:"subtotal"`
	AnalyticsChanged bool       `json:"analytics_changed"`
	Order            *OrderRef  `json:"order,omitempty"`
	OrderError       string     `json:"order_error,omitempty"`
}

// SessionManager orchestrates conversations: it owns the state registry and
// drives extract, reconcile, merge, and finalize for each turn.
type SessionManager struct {
	registry  *StateRegistry
	extractor *Extractor
	finalizer *Finalizer
	sessions  ConversationRepo
	logger    apt.Logger
}

func NewSessionManager(registry *StateRegistry, extractor *Extractor, finalizer *Finalizer, sessions ConversationRepo, logger apt.Logger) *SessionManager {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &SessionManager{
		registry:  registry,
		extractor: extractor,
		finalizer: finalizer,
		sessions:  sessions,
		logger:    logger,
	}
}

func (m *SessionManager) Open(ctx context.Context) (*Conversation, error) {
	state, err := m.registry.Open(ctx)
	if err != nil {
		return nil, err
	}
	return state.Conversation, nil
}

func (m *SessionManager) Get(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	return m.sessions.Get(ctx, id)
}

func (m *SessionManager) List(ctx context.Context, since, until *time.Time) ([]Conversation, error) {
	return m.sessions.List(ctx, since, until)
}

// HandleTurn processes one customer/cashier exchange. Turns are appended
// first, so a failure anywhere downstream never loses the exchange. Cart and
// analytics updates always apply; finalization runs at most once per session,
// and a store failure surfaces as a transient message on the result rather
// than failing the turn. A nil result with nil error means the session does
// not exist.
func (m *SessionManager) HandleTurn(ctx context.Context, id uuid.UUID, customerText, assistantText string) (*TurnResult, error) {
	state, err := m.registry.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}

	state.Lock()
	defer state.Unlock()

	extraction := m.extractor.Extract(assistantText)

	now := time.Now()
	turns := []Turn{
		{Speaker: SpeakerCustomer, Text: customerText, At: now},
		{Speaker: SpeakerCashier, Text: extraction.DisplayText, At: now},
	}
	if err := m.sessions.AppendTurns(ctx, id, turns); err != nil {
		return nil, err
	}
	conversation := state.Conversation
	conversation.Turns = append(conversation.Turns, turns...)
	conversation.BeforeUpdate()

	state.Cart.Reconcile(extraction.Cart)

	result := &TurnResult{
		DisplayText: extraction.DisplayText,
		Cart:        state.Cart.Items,
		Subtotal:    state.Cart.Subtotal(),
	}

	if conversation.Analytics.Merge(extraction.Analytics) {
		result.AnalyticsChanged = true
		m.persistAnalytics(id, conversation.Analytics)
	}

	if extraction.Order.State == SegmentPresent && extraction.Order.Draft != nil {
		ref, err := m.finalizer.Finalize(ctx, state, *extraction.Order.Draft)
		if err != nil {
			m.logger.Error("cannot finalize order", "session_id", id, "error", err)
			result.OrderError = "could not place the order, please confirm again"
		} else {
			result.Order = ref
		}
	}

	return result, nil
}

// persistAnalytics writes merged analytics in the background. Losing a write
// is acceptable: the model re-reports its cumulative events, so the next
// merge restores anything dropped here.
func (m *SessionManager) persistAnalytics(id uuid.UUID, analytics AnalyticsState) {
	snapshot := AnalyticsState{
		OffMenuRequests: append([]string(nil), analytics.OffMenuRequests...),
		UpsellAttempts:  append([]string(nil), analytics.UpsellAttempts...),
		UpsellSuccesses: append([]string(nil), analytics.UpsellSuccesses...),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.sessions.SaveAnalytics(ctx, id, snapshot); err != nil {
			m.logger.Error("cannot persist analytics", "session_id", id, "error", err)
		}
	}()
}
