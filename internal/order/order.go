// Package order serializes cart contents into an order payload and hands it
// to the configured submission strategy.
package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/saddiabu4/telegram-market/internal/cart"
	"github.com/saddiabu4/telegram-market/pkg/messaging/events"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var pricePrinter = message.NewPrinter(language.Uzbek)

// Build assembles the order payload from the cart lines: the ordered item
// list, the grand total and a human-readable summary. It does not check for
// emptiness; that is the caller's job.
func Build(lines []cart.Line, total int64) events.OrderSubmittedEvent {
	items := make([]events.OrderItemPayload, 0, len(lines))
	for _, l := range lines {
		items = append(items, events.OrderItemPayload{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.Price,
			LineTotal: l.Price * l.Quantity,
		})
	}
	return events.OrderSubmittedEvent{
		Type:        "order",
		OrderID:     uuid.New(),
		Items:       items,
		Total:       total,
		Summary:     summary(lines, total),
		SubmittedAt: time.Now().UTC(),
	}
}

// summary renders the order text shown to the shop owner.
func summary(lines []cart.Line, total int64) string {
	var b strings.Builder
	b.WriteString("🛒 *Yangi buyurtma!*\n\n")
	for i, l := range lines {
		b.WriteString(fmt.Sprintf("%d. *%s*\n", i+1, l.Name))
		b.WriteString(fmt.Sprintf("   📦 %d dona × %s so'm\n", l.Quantity, formatPrice(l.Price)))
		b.WriteString(fmt.Sprintf("   💰 Jami: %s so'm\n\n", formatPrice(l.Price*l.Quantity)))
	}
	b.WriteString("━━━━━━━━━━━━━━━━━━\n")
	b.WriteString(fmt.Sprintf("💵 *Umumiy: %s so'm*", formatPrice(total)))
	return b.String()
}

// formatPrice groups digits the way the storefront displays so'm amounts.
func formatPrice(amount int64) string {
	return pricePrinter.Sprintf("%d", amount)
}
