package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/appetiteclub/apt"
	"github.com/go-chi/chi/v5"
)

func newTestChatHandler(repo *MockConversationRepo, store *MockOrderStore) (*Handler, chi.Router) {
	deps := HandlerDeps{
		Manager:  newTestManager(repo, store),
		Sessions: repo,
	}
	h := NewHandler(deps, apt.NewConfig(), nil)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return h, r
}

func turnBody(customer, assistant string) []byte {
	body, _ := json.Marshal(TurnRequest{CustomerText: customer, AssistantText: assistant})
	return body
}

func TestHandlerCreateConversation(t *testing.T) {
	_, router := newTestChatHandler(NewMockConversationRepo(), NewMockOrderStore())

	req := httptest.NewRequest("POST", "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp struct {
		Data Conversation `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("cannot decode response: %v", err)
	}
	if resp.Data.Finalized {
		t.Error("new conversation starts finalized")
	}
}

func TestHandlerPostTurn(t *testing.T) {
	repo := NewMockConversationRepo()
	_, router := newTestChatHandler(repo, NewMockOrderStore())

	createReq := httptest.NewRequest("POST", "/conversations", nil)
	createRec := httptest.NewRecorder()
	router.ServeHTTP(createRec, createReq)

	var created struct {
		Data Conversation `json:"data"`
	}
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("cannot decode create response: %v", err)
	}

	path := fmt.Sprintf("/conversations/%s/turns", created.Data.ID)
	body := turnBody("Can I get a latte?",
		`One latte! [CART][{"name": "Latte", "quantity": 1, "unit_price": 5.25}][/CART]`)
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Data TurnResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("cannot decode turn result: %v", err)
	}
	result := resp.Data
	if result.DisplayText != "One latte!" {
		t.Errorf("display text = %q", result.DisplayText)
	}
	if result.Subtotal != 5.25 {
		t.Errorf("subtotal = %v, want 5.25", result.Subtotal)
	}
}

func TestHandlerPostTurnValidation(t *testing.T) {
	repo := NewMockConversationRepo()
	_, router := newTestChatHandler(repo, NewMockOrderStore())

	conversation := NewConversation()
	conversation.BeforeCreate()
	_ = repo.Create(context.Background(), conversation)

	tests := []struct {
		name string
		path string
		body []byte
		want int
	}{
		{
			name: "invalidID",
			path: "/conversations/not-a-uuid/turns",
			body: turnBody("hi", "hello"),
			want: http.StatusBadRequest,
		},
		{
			name: "missingAssistantText",
			path: fmt.Sprintf("/conversations/%s/turns", conversation.ID),
			body: turnBody("hi", ""),
			want: http.StatusBadRequest,
		},
		{
			name: "invalidJSON",
			path: fmt.Sprintf("/conversations/%s/turns", conversation.ID),
			body: []byte("{not json"),
			want: http.StatusBadRequest,
		},
		{
			name: "unknownSession",
			path: fmt.Sprintf("/conversations/%s/turns", apt.GenerateNewID()),
			body: turnBody("hi", "hello"),
			want: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.path, bytes.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestHandlerAnalyticsSummary(t *testing.T) {
	repo := NewMockConversationRepo()
	_, router := newTestChatHandler(repo, NewMockOrderStore())

	first := NewConversation()
	first.BeforeCreate()
	first.Analytics = AnalyticsState{
		OffMenuRequests: []string{"matcha lemonade"},
		UpsellAttempts:  []string{"croissant"},
		UpsellSuccesses: []string{"croissant"},
	}
	first.Finalized = true
	orderID := apt.GenerateNewID()
	first.LinkedOrderID = &orderID
	_ = repo.Create(context.Background(), first)

	second := NewConversation()
	second.BeforeCreate()
	second.Analytics = AnalyticsState{
		OffMenuRequests: []string{"Matcha Lemonade", "bubble tea"},
	}
	_ = repo.Create(context.Background(), second)

	req := httptest.NewRequest("GET", "/analytics/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		Data AnalyticsSummaryResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("cannot decode summary: %v", err)
	}
	summary := resp.Data
	if summary.Conversations != 2 || summary.Converted != 1 {
		t.Errorf("conversations = %d converted = %d", summary.Conversations, summary.Converted)
	}
	if summary.ConversionRate != 0.5 {
		t.Errorf("conversion rate = %v, want 0.5", summary.ConversionRate)
	}
	// The restated matcha lemonade dedupes across conversations.
	if len(summary.OffMenuRequests) != 2 {
		t.Errorf("off-menu requests = %v", summary.OffMenuRequests)
	}
	if summary.UpsellAttempts != 1 || summary.UpsellSuccesses != 1 {
		t.Errorf("upsell tallies = %d/%d", summary.UpsellAttempts, summary.UpsellSuccesses)
	}
}

func TestHandlerGetConversationNotFound(t *testing.T) {
	_, router := newTestChatHandler(NewMockConversationRepo(), NewMockOrderStore())

	path := fmt.Sprintf("/conversations/%s", apt.GenerateNewID())
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandlerListConversationsBadRange(t *testing.T) {
	_, router := newTestChatHandler(NewMockConversationRepo(), NewMockOrderStore())

	req := httptest.NewRequest("GET", "/conversations?since=yesterday", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
