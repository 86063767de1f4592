package order

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saddiabu4/telegram-market/pkg/messaging"
	"github.com/saddiabu4/telegram-market/pkg/messaging/events"
)

// Submitter is the capability interface for the outbound order channel.
// Exactly one implementation is selected at startup; call sites never probe
// for the bridge themselves.
type Submitter interface {
	// Submit hands the payload to the channel. Delivery is one-way: once the
	// hand-off succeeds there is no acknowledgement, retry or confirmation.
	Submit(ctx context.Context, order events.OrderSubmittedEvent) error
}

// BridgeSubmitter forwards orders to the host channel via a message publisher.
type BridgeSubmitter struct {
	publisher messaging.Publisher
	logger    *slog.Logger
}

// NewBridgeSubmitter creates a submitter backed by the given publisher.
func NewBridgeSubmitter(publisher messaging.Publisher, logger *slog.Logger) *BridgeSubmitter {
	return &BridgeSubmitter{
		publisher: publisher,
		logger:    logger.With("component", "order_bridge"),
	}
}

// Submit publishes the order on the host channel.
func (b *BridgeSubmitter) Submit(ctx context.Context, order events.OrderSubmittedEvent) error {
	if err := b.publisher.Publish(ctx, order); err != nil {
		return fmt.Errorf("failed to hand order to bridge: %w", err)
	}
	b.logger.InfoContext(ctx, "Order handed to bridge", "order_id", order.OrderID, "total", order.Total)
	return nil
}

// MockSubmitter stands in when no bridge is configured: it accepts every
// order without any network call. Not for production use.
type MockSubmitter struct {
	logger *slog.Logger
}

// NewMockSubmitter creates the stand-in submitter.
func NewMockSubmitter(logger *slog.Logger) *MockSubmitter {
	return &MockSubmitter{logger: logger.With("component", "order_mock")}
}

// Submit logs the order and reports success.
func (m *MockSubmitter) Submit(ctx context.Context, order events.OrderSubmittedEvent) error {
	m.logger.WarnContext(ctx, "Order accepted by mock submitter (non-production behavior)",
		"order_id", order.OrderID, "items", len(order.Items), "total", order.Total)
	return nil
}
