package chat

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	logger   apt.Logger
	config   *apt.Config
	tlm      *telemetry.HTTP
	manager  *SessionManager
	sessions ConversationRepo
}

type HandlerDeps struct {
	Manager  *SessionManager
	Sessions ConversationRepo
}

func NewHandler(hd HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	return &Handler{
		config:   config,
		logger:   logger,
		tlm:      telemetry.NewHTTP(),
		manager:  hd.Manager,
		sessions: hd.Sessions,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/conversations", func(r chi.Router) {
		r.Post("/", h.CreateConversation)
		r.Get("/", h.ListConversations)
		r.Get("/{id}", h.GetConversation)
		r.Post("/{id}/turns", h.PostTurn)
	})
	r.Get("/analytics/summary", h.AnalyticsSummary)
}

type TurnRequest struct {
	CustomerText  string `json:"customer_text"`
	AssistantText string `json:"assistant_text"`
}

func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateConversation")
	defer finish()

	log := h.log(r)

	conversation, err := h.manager.Open(r.Context())
	if err != nil {
		log.Error("cannot create conversation", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not create conversation")
		return
	}

	log.Info("conversation opened", "id", conversation.ID.String())
	links := apt.RESTfulLinksFor(conversation)
	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, conversation, links...)
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetConversation")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	conversation, err := h.manager.Get(r.Context(), id)
	if err != nil {
		log.Error("error retrieving conversation", "error", err, "id", id.String())
		apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve conversation")
		return
	}
	if conversation == nil {
		log.Debug("conversation not found", "id", id.String())
		apt.RespondError(w, http.StatusNotFound, "Conversation not found")
		return
	}

	links := apt.RESTfulLinksFor(conversation)
	apt.RespondSuccess(w, conversation, links...)
}

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListConversations")
	defer finish()

	log := h.log(r)

	since, until, ok := h.parseRangeParams(w, r, log)
	if !ok {
		return
	}

	conversations, err := h.manager.List(r.Context(), since, until)
	if err != nil {
		log.Error("error retrieving conversations", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve conversations")
		return
	}

	apt.RespondCollection(w, conversations, "conversation")
}

// PostTurn processes one customer/cashier exchange. Processing is serialized
// per session by the state registry, so concurrent posts for the same
// conversation queue up rather than interleave.
func (h *Handler) PostTurn(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.PostTurn")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	req, ok := h.decodeTurnPayload(w, r, log)
	if !ok {
		return
	}
	if req.AssistantText == "" {
		log.Debug("turn without assistant text", "id", id.String())
		apt.RespondError(w, http.StatusBadRequest, "assistant_text is required")
		return
	}

	result, err := h.manager.HandleTurn(r.Context(), id, req.CustomerText, req.AssistantText)
	if err != nil {
		log.Error("cannot process turn", "error", err, "id", id.String())
		apt.RespondError(w, http.StatusInternalServerError, "Could not process turn")
		return
	}
	if result == nil {
		log.Debug("turn for unknown conversation", "id", id.String())
		apt.RespondError(w, http.StatusNotFound, "Conversation not found")
		return
	}

	apt.Respond(w, http.StatusOK, result, nil)
}

// AnalyticsSummaryResponse aggregates conversation analytics for the
// dashboard.
type AnalyticsSummaryResponse struct {
	Conversations   int      `json:"conversations"`
	Converted       int      `json:"converted"`
	ConversionRate  float64  `json:"conversion_rate"`
	OffMenuRequests []string `json:"off_menu_requests"`
	UpsellAttempts  int      `json:"upsell_attempts"`
	UpsellSuccesses int      `json:"upsell_successes"`
}

func (h *Handler) AnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.AnalyticsSummary")
	defer finish()

	log := h.log(r)

	since, until, ok := h.parseRangeParams(w, r, log)
	if !ok {
		return
	}

	conversations, err := h.sessions.List(r.Context(), since, until)
	if err != nil {
		log.Error("error retrieving conversations for summary", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not compute summary")
		return
	}

	summary := AnalyticsSummaryResponse{
		Conversations:   len(conversations),
		OffMenuRequests: []string{},
	}
	offMenu := map[string]string{}
	for _, conversation := range conversations {
		if conversation.Finalized {
			summary.Converted++
		}
		summary.UpsellAttempts += len(conversation.Analytics.UpsellAttempts)
		summary.UpsellSuccesses += len(conversation.Analytics.UpsellSuccesses)
		for _, request := range conversation.Analytics.OffMenuRequests {
			offMenu[normalizeEntry(request)] = request
		}
	}
	for _, request := range offMenu {
		summary.OffMenuRequests = append(summary.OffMenuRequests, request)
	}
	sort.Strings(summary.OffMenuRequests)
	if summary.Conversations > 0 {
		summary.ConversionRate = float64(summary.Converted) / float64(summary.Conversations)
	}

	apt.Respond(w, http.StatusOK, summary, nil)
}

// Helper methods

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log apt.Logger) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		log.Debug("missing id parameter")
		apt.RespondError(w, http.StatusBadRequest, "Missing id parameter")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "id", idStr)
		apt.RespondError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) parseRangeParams(w http.ResponseWriter, r *http.Request, log apt.Logger) (*time.Time, *time.Time, bool) {
	var since, until *time.Time

	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		parsed, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			log.Debug("invalid since parameter", "since", sinceStr)
			apt.RespondError(w, http.StatusBadRequest, "Invalid since parameter")
			return nil, nil, false
		}
		since = &parsed
	}
	if untilStr := r.URL.Query().Get("until"); untilStr != "" {
		parsed, err := time.Parse(time.RFC3339, untilStr)
		if err != nil {
			log.Debug("invalid until parameter", "until", untilStr)
			apt.RespondError(w, http.StatusBadRequest, "Invalid until parameter")
			return nil, nil, false
		}
		until = &parsed
	}

	return since, until, true
}

func (h *Handler) decodeTurnPayload(w http.ResponseWriter, r *http.Request, log apt.Logger) (TurnRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return TurnRequest{}, false
	}

	var req TurnRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return TurnRequest{}, false
	}

	return req, true
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", r.Context().Value("request_id"))
}
