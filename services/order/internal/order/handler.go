package order

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brewchat/brewchat/pkg/enums/orderstatus"
	"github.com/brewchat/brewchat/pkg/event"
)

const MaxBodyBytes = 1 << 20

// ErrDuplicateSession is returned by OrderRepo.Create when an order already
// exists for the submission's session id.
var ErrDuplicateSession = errors.New("an order already exists for this session")

type Handler struct {
	logger    apt.Logger
	config    *apt.Config
	tlm       *telemetry.HTTP
	orderRepo OrderRepo
	counter   TicketCounter
	publisher events.Publisher
}

type HandlerDeps struct {
	OrderRepo OrderRepo
	Counter   TicketCounter
	Publisher events.Publisher
}

func NewHandler(hd HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	return &Handler{
		config:    config,
		logger:    logger,
		tlm:       telemetry.NewHTTP(),
		orderRepo: hd.OrderRepo,
		counter:   hd.Counter,
		publisher: hd.Publisher,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/session/{sessionID}", h.GetOrderBySession)
		r.Get("/{id}", h.GetOrder)
		r.Put("/{id}/status", h.UpdateOrderStatus)
	})
}

type OrderCreateRequest struct {
	SessionID    string      `json:"session_id"`
	CustomerName string      `json:"customer_name"`
	Items        []OrderLine `json:"items"`
	Subtotal     float64     `json:"subtotal"`
	Tax          float64     `json:"tax"`
	Total        float64     `json:"total"`
}

type OrderStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// CreateOrder inserts a priced order submission. A session id may carry at
// most one order; re-submissions for the same session answer 409 with the
// already-persisted order so retrying callers can recover the reference.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateOrder")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	req, ok := h.decodeOrderCreatePayload(w, r, log)
	if !ok {
		return
	}

	order := NewOrder()
	order.SessionID = req.SessionID
	order.CustomerName = req.CustomerName
	order.Items = req.Items
	order.Subtotal = req.Subtotal
	order.Tax = req.Tax
	order.Total = req.Total
	order.BeforeCreate()

	if err := order.Validate(); err != nil {
		log.Debug("invalid order submission", "error", err)
		apt.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if order.SessionID != "" {
		existing, err := h.orderRepo.GetBySession(ctx, order.SessionID)
		if err != nil {
			log.Error("cannot check for existing session order", "error", err, "session_id", order.SessionID)
			apt.RespondError(w, http.StatusInternalServerError, "Could not create order")
			return
		}
		if existing != nil {
			log.Info("duplicate order submission for session", "session_id", order.SessionID, "order_id", existing.ID.String())
			apt.Respond(w, http.StatusConflict, existing, nil)
			return
		}
	}

	number, err := h.counter.Next(ctx)
	if err != nil {
		log.Error("cannot assign order number", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not create order")
		return
	}
	order.OrderNumber = number

	if err := h.orderRepo.Create(ctx, order); err != nil {
		// The unique session index can still fire under a concurrent retry.
		if errors.Is(err, ErrDuplicateSession) {
			existing, getErr := h.orderRepo.GetBySession(ctx, order.SessionID)
			if getErr == nil && existing != nil {
				apt.Respond(w, http.StatusConflict, existing, nil)
				return
			}
		}
		log.Error("cannot create order", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not create order")
		return
	}

	h.publishOrderEvent(ctx, event.EventOrderCreated, order, "")

	links := apt.RESTfulLinksFor(order)
	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, order, links...)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	order, err := h.orderRepo.Get(ctx, id)
	if err != nil {
		log.Error("error loading order", "error", err, "id", id.String())
		apt.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	if order == nil {
		apt.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	links := apt.RESTfulLinksFor(order)
	apt.RespondSuccess(w, order, links...)
}

// GetOrderBySession resolves the order created from a conversation. Callers
// that lost a create response use it to recover the order reference.
func (h *Handler) GetOrderBySession(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrderBySession")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		log.Debug("missing sessionID parameter")
		apt.RespondError(w, http.StatusBadRequest, "Missing sessionID parameter")
		return
	}

	order, err := h.orderRepo.GetBySession(ctx, sessionID)
	if err != nil {
		log.Error("error loading order by session", "error", err, "session_id", sessionID)
		apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve order")
		return
	}
	if order == nil {
		apt.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	links := apt.RESTfulLinksFor(order)
	apt.RespondSuccess(w, order, links...)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListOrders")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	status := r.URL.Query().Get("status")
	sinceStr := r.URL.Query().Get("since")

	var orders []*Order
	var err error

	if status != "" {
		if orderstatus.ByName(status) == nil {
			log.Debug("invalid status parameter", "status", status)
			apt.RespondError(w, http.StatusBadRequest, "Invalid status parameter")
			return
		}
		orders, err = h.orderRepo.ListByStatus(ctx, status)
	} else if sinceStr != "" {
		since, parseErr := time.Parse(time.RFC3339, sinceStr)
		if parseErr != nil {
			log.Debug("invalid since parameter", "since", sinceStr)
			apt.RespondError(w, http.StatusBadRequest, "Invalid since parameter")
			return
		}
		orders, err = h.orderRepo.ListSince(ctx, since)
	} else {
		orders, err = h.orderRepo.List(ctx)
	}

	if err != nil {
		log.Error("error retrieving orders", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve orders")
		return
	}

	apt.RespondCollection(w, orders, "order")
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateOrderStatus")
	defer finish()

	log := h.log(r)
	ctx := r.Context()

	id, ok := h.parseIDParam(w, r, log)
	if !ok {
		return
	}

	order, err := h.orderRepo.Get(ctx, id)
	if err != nil || order == nil {
		log.Error("order not found", "error", err, "id", id.String())
		apt.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}

	req, ok := h.decodeOrderStatusPayload(w, r, log)
	if !ok {
		return
	}

	target := orderstatus.ByName(req.Status)
	if target == nil {
		log.Debug("invalid status", "status", req.Status)
		apt.RespondError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	previousStatus := order.Status
	if err := order.TransitionTo(*target, req.Reason); err != nil {
		log.Debug("rejected status transition", "error", err, "id", id.String())
		apt.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.orderRepo.Save(ctx, order); err != nil {
		log.Error("cannot update order", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not update order")
		return
	}

	h.publishOrderEvent(ctx, event.EventOrderStatusChanged, order, previousStatus)

	links := apt.RESTfulLinksFor(order)
	apt.RespondSuccess(w, order, links...)
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

func (h *Handler) decodeOrderCreatePayload(w http.ResponseWriter, r *http.Request, log apt.Logger) (OrderCreateRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return OrderCreateRequest{}, false
	}

	var req OrderCreateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return OrderCreateRequest{}, false
	}

	return req, true
}

func (h *Handler) decodeOrderStatusPayload(w http.ResponseWriter, r *http.Request, log apt.Logger) (OrderStatusRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return OrderStatusRequest{}, false
	}

	var req OrderStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return OrderStatusRequest{}, false
	}

	return req, true
}

func (h *Handler) publishOrderEvent(ctx context.Context, eventType string, o *Order, previousStatus string) {
	if h.publisher == nil {
		return
	}

	evt := event.OrderEvent{
		EventType:      eventType,
		OccurredAt:     time.Now().UTC(),
		OrderID:        o.ID.String(),
		OrderNumber:    o.OrderNumber,
		SessionID:      o.SessionID,
		Status:         o.Status,
		PreviousStatus: previousStatus,
		CancelReason:   o.CancelReason,
		CustomerName:   o.CustomerName,
		ItemCount:      len(o.Items),
		Total:          o.Total,
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("cannot marshal order event", "error", err, "order_id", o.ID.String())
		return
	}
	if err := h.publisher.Publish(ctx, event.OrdersTopic, payload); err != nil {
		h.logger.Error("cannot publish order event", "error", err, "order_id", o.ID.String())
	} else {
		h.logger.Info("published order event", "event_type", eventType, "order_id", o.ID.String())
	}
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", r.Context().Value("request_id"))
}
