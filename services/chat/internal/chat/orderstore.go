package chat

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/google/uuid"
)

// APIOrderStore implements OrderStore against the order service HTTP API.
type APIOrderStore struct {
	client *apt.ServiceClient
	logger apt.Logger
}

func NewAPIOrderStore(orderURL string, logger apt.Logger) (*APIOrderStore, error) {
	if orderURL == "" {
		return nil, fmt.Errorf("order service URL is required")
	}
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	client := apt.NewServiceClient(orderURL)
	if client == nil {
		return nil, fmt.Errorf("failed to create order service client")
	}

	return &APIOrderStore{client: client, logger: logger}, nil
}

// Insert submits the order. The order service holds a unique index on the
// session id and answers a conflict for a second submission, so a failed
// create is followed by a session lookup: if an order already exists for the
// session (a retry that lost its first response), its reference is returned
// as a success.
func (s *APIOrderStore) Insert(ctx context.Context, submission OrderSubmission) (*OrderRef, error) {
	resp, err := s.client.Request(ctx, "POST", "/orders", submission)
	if err != nil {
		existing, lookupErr := s.getBySession(ctx, submission.SessionID)
		if lookupErr == nil && existing != nil {
			s.logger.Info("recovered existing order for session", "session_id", submission.SessionID, "order_id", existing.ID)
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	ref, err := decodeOrderRef(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid order response: %w", err)
	}
	return ref, nil
}

func (s *APIOrderStore) getBySession(ctx context.Context, sessionID string) (*OrderRef, error) {
	path := fmt.Sprintf("/orders/session/%s", sessionID)
	resp, err := s.client.Request(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	return decodeOrderRef(resp.Data)
}

func decodeOrderRef(data interface{}) (*OrderRef, error) {
	fields, ok := data.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected response shape")
	}

	idStr, _ := fields["id"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("order id missing or invalid")
	}

	ref := &OrderRef{ID: id}
	if number, ok := fields["order_number"].(float64); ok {
		ref.OrderNumber = int64(number)
	}
	if total, ok := fields["total"].(float64); ok {
		ref.Total = total
	}
	return ref, nil
}
