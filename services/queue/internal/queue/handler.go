package queue

import (
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	logger apt.Logger
	config *apt.Config
	tlm    *telemetry.HTTP
	board  *Board
}

func NewHandler(board *Board, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	return &Handler{
		config: config,
		logger: logger,
		tlm:    telemetry.NewHTTP(),
		board:  board,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/queue", h.GetQueue)
}

// GetQueue lists open orders for the staff display, oldest ticket first.
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetQueue")
	defer finish()

	entries := h.board.Open()
	apt.RespondCollection(w, entries, "queue_entry")
}
