package queue

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
)

// OrderEventSubscriber feeds the board from the order event stream: a replay
// on startup, then the durable subscription for live events.
type OrderEventSubscriber struct {
	stream events.StreamConsumer
	board  *Board
	logger apt.Logger
}

func NewOrderEventSubscriber(stream events.StreamConsumer, board *Board, logger apt.Logger) *OrderEventSubscriber {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &OrderEventSubscriber{
		stream: stream,
		board:  board,
		logger: logger,
	}
}

func (s *OrderEventSubscriber) Start(ctx context.Context) error {
	if s.stream == nil {
		return fmt.Errorf("order event subscriber not configured")
	}
	if err := s.board.Warm(ctx); err != nil {
		s.logger.Error("cannot warm board from stream, starting empty", "error", err)
	}
	return s.stream.SubscribeStream(ctx, s.board.Apply)
}
