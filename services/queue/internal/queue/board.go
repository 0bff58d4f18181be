package queue

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"

	"github.com/brewchat/brewchat/pkg/enums/orderstatus"
	"github.com/brewchat/brewchat/pkg/event"
)

// BoardEntry is one order on the staff queue display.
type BoardEntry struct {
	OrderID      string  `json:"order_id"`
	OrderNumber  int64   `json:"order_number"`
	CustomerName string  `json:"customer_name"`
	ItemCount    int     `json:"item_count"`
	Total        float64 `json:"total"`
	Status       string  `json:"status"`
}

// Board maintains the in-memory staff queue, rebuilt from the order event
// stream. Replaying the stream on startup restores the board after a
// restart; the durable consumer then feeds it live events.
type Board struct {
	mu      sync.RWMutex
	entries map[string]*BoardEntry

	stream events.StreamConsumer
	logger apt.Logger
}

func NewBoard(stream events.StreamConsumer, logger apt.Logger) *Board {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Board{
		entries: make(map[string]*BoardEntry),
		stream:  stream,
		logger:  logger,
	}
}

// Warm rebuilds the board by replaying the order event stream.
func (b *Board) Warm(ctx context.Context) error {
	if b.stream == nil {
		b.logger.Info("no stream configured, board starts empty")
		return nil
	}

	messages, err := b.stream.Fetch(ctx, 10000)
	if err != nil {
		return err
	}

	for _, msg := range messages {
		if err := b.Apply(ctx, msg.Data); err != nil {
			b.logger.Debug("skipping unreadable replayed event", "error", err)
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	b.logger.Info("board warmed from stream", "events", len(messages), "open_orders", len(b.entries))
	return nil
}

// Apply folds one order event into the board. Terminal orders drop off the
// display. Events are applied in stream order, so a replayed history
// converges to the same board as live consumption.
func (b *Board) Apply(ctx context.Context, data []byte) error {
	var evt event.OrderEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return err
	}
	if evt.OrderID == "" {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	status := orderstatus.ByName(evt.Status)
	if status != nil && status.IsTerminal() {
		delete(b.entries, evt.OrderID)
		return nil
	}

	entry, ok := b.entries[evt.OrderID]
	if !ok {
		entry = &BoardEntry{OrderID: evt.OrderID}
		b.entries[evt.OrderID] = entry
	}
	entry.Status = evt.Status
	if evt.OrderNumber != 0 {
		entry.OrderNumber = evt.OrderNumber
	}
	if evt.CustomerName != "" {
		entry.CustomerName = evt.CustomerName
	}
	if evt.ItemCount != 0 {
		entry.ItemCount = evt.ItemCount
	}
	if evt.Total != 0 {
		entry.Total = evt.Total
	}
	return nil
}

// Open lists the orders currently on the board, oldest ticket first.
func (b *Board) Open() []BoardEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]BoardEntry, 0, len(b.entries))
	for _, entry := range b.entries {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrderNumber < result[j].OrderNumber })
	return result
}
