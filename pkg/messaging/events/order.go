package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/saddiabu4/telegram-market/pkg/messaging"
)

// OrderSubmittedEvent carries a checkout payload handed off to the host channel.
// Delivery is one-way: no acknowledgement is awaited beyond the publish call.
type OrderSubmittedEvent struct {
	Type        string             `json:"type"`
	OrderID     uuid.UUID          `json:"order_id"`
	Items       []OrderItemPayload `json:"items"`
	Total       int64              `json:"total"`
	Summary     string             `json:"orderText"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

type OrderItemPayload struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

func (o OrderSubmittedEvent) Subject() string {
	return messaging.OrdersSubmittedSubject
}

func (o OrderSubmittedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}
