package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// MockConversationRepo is a mock implementation of ConversationRepo for testing
type MockConversationRepo struct {
	mu                sync.RWMutex
	conversations     map[uuid.UUID]*Conversation
	AppendTurnsFunc   func(ctx context.Context, id uuid.UUID, turns []Turn) error
	SaveAnalyticsFunc func(ctx context.Context, id uuid.UUID, analytics AnalyticsState) error
	MarkConvertedFunc func(ctx context.Context, id uuid.UUID, orderID uuid.UUID) error
}

func NewMockConversationRepo() *MockConversationRepo {
	return &MockConversationRepo{
		conversations: make(map[uuid.UUID]*Conversation),
	}
}

func (m *MockConversationRepo) Create(ctx context.Context, c *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *c
	m.conversations[c.ID] = &clone
	return nil
}

func (m *MockConversationRepo) Get(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, nil
	}
	clone := *c
	return &clone, nil
}

func (m *MockConversationRepo) List(ctx context.Context, since, until *time.Time) ([]Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []Conversation
	for _, c := range m.conversations {
		if since != nil && c.CreatedAt.Before(*since) {
			continue
		}
		if until != nil && !c.CreatedAt.Before(*until) {
			continue
		}
		result = append(result, *c)
	}
	return result, nil
}

func (m *MockConversationRepo) AppendTurns(ctx context.Context, id uuid.UUID, turns []Turn) error {
	if m.AppendTurnsFunc != nil {
		return m.AppendTurnsFunc(ctx, id, turns)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return fmt.Errorf("conversation not found")
	}
	c.Turns = append(c.Turns, turns...)
	return nil
}

func (m *MockConversationRepo) SaveAnalytics(ctx context.Context, id uuid.UUID, analytics AnalyticsState) error {
	if m.SaveAnalyticsFunc != nil {
		return m.SaveAnalyticsFunc(ctx, id, analytics)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return fmt.Errorf("conversation not found")
	}
	c.Analytics = analytics
	return nil
}

func (m *MockConversationRepo) MarkConverted(ctx context.Context, id uuid.UUID, orderID uuid.UUID) error {
	if m.MarkConvertedFunc != nil {
		return m.MarkConvertedFunc(ctx, id, orderID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return fmt.Errorf("conversation not found")
	}
	if !c.Finalized {
		c.Finalized = true
		c.LinkedOrderID = &orderID
	}
	return nil
}

// MockOrderStore is a mock implementation of OrderStore for testing
type MockOrderStore struct {
	mu          sync.Mutex
	Submissions []OrderSubmission
	bySession   map[string]*OrderRef
	nextNumber  int64
	InsertFunc  func(ctx context.Context, submission OrderSubmission) (*OrderRef, error)
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		bySession: make(map[string]*OrderRef),
	}
}

func (m *MockOrderStore) Insert(ctx context.Context, submission OrderSubmission) (*OrderRef, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, submission)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.bySession[submission.SessionID]; ok {
		return existing, nil
	}
	m.Submissions = append(m.Submissions, submission)
	m.nextNumber++
	ref := &OrderRef{
		ID:          apt.GenerateNewID(),
		OrderNumber: m.nextNumber,
		Total:       submission.Total,
	}
	m.bySession[submission.SessionID] = ref
	return ref, nil
}

// MockPublisher is a mock implementation of events.Publisher for testing
type MockPublisher struct {
	mu          sync.Mutex
	Published   []PublishedMsg
	PublishFunc func(ctx context.Context, topic string, msg []byte) error
}

type PublishedMsg struct {
	Topic string
	Msg   []byte
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, PublishedMsg{Topic: topic, Msg: msg})
	return nil
}
