package normalize

import (
	"strings"

	"github.com/shopspring/decimal"

	"order-board/internal/ordersync/domain/dto"
	"order-board/internal/ordersync/domain/models"
)

// UnknownItemName is the last resort when a line item resolves to no name at
// all. It renders as-is on the boards.
const UnknownItemName = "Unknown Item"

// Order converts a wire payload into the canonical in-memory shape. It is a
// pure function: the payload is not modified and no state is touched.
//
// Guarantees: the result's Items is never nil, every item has a non-empty
// display name, and money fields are exact decimals. An order with no items
// at all comes back with empty Items; the cache decides what to do with it.
func Order(p dto.OrderPayload) models.Order {
	items := make([]models.OrderItem, 0, len(p.OrderItems))
	for _, ip := range p.OrderItems {
		items = append(items, models.OrderItem{
			ID:                  ip.ID,
			Name:                itemName(ip),
			Quantity:            ip.Quantity,
			Price:               decimal.NewFromFloat(ip.Price),
			SpecialInstructions: ip.SpecialInstructions,
		})
	}

	return models.Order{
		ID:            p.ID,
		OrderNumber:   p.OrderNumber,
		Status:        Status(p.Status),
		PaymentStatus: PaymentStatus(p.PaymentStatus),
		CustomerName:  p.CustomerName,
		CustomerPhone: p.CustomerPhone,
		OrderType:     p.OrderType,
		TotalAmount:   decimal.NewFromFloat(p.TotalAmount),
		CreatedAt:     p.CreatedAt,
		Notes:         p.Notes,
		Items:         items,
		Origin:        models.OriginConfirmed,
	}
}

// itemName resolves the display name through the fallback chain: flat name
// field, then the nested menu item, then the literal placeholder. Some
// payload producers send both; the flat field wins when non-blank.
func itemName(ip dto.OrderItemPayload) string {
	if name := strings.TrimSpace(ip.MenuItemName); name != "" {
		return name
	}
	if ip.MenuItem != nil {
		if name := strings.TrimSpace(ip.MenuItem.Name); name != "" {
			return name
		}
	}
	return UnknownItemName
}

// Status maps a wire status string onto the known lifecycle. Unknown values
// pass through untouched so a new server state does not break eviction rules
// for the ones we do know.
func Status(s string) models.OrderStatus {
	return models.OrderStatus(strings.ToLower(strings.TrimSpace(s)))
}

func PaymentStatus(s string) models.PaymentStatus {
	return models.PaymentStatus(strings.ToLower(strings.TrimSpace(s)))
}
