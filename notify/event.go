// Package notify delivers order notifications through a transactional outbox.
package notify

import (
	"encoding/json"
	"time"

	"github.com/George-Dev-Web/cakes2/models"
	"github.com/shopspring/decimal"
)

// Event is the payload stored in the outbox and published to subscribers.
type Event struct {
	Kind          string               `json:"kind"`
	OrderID       uint                 `json:"order_id"`
	OrderNumber   string               `json:"order_number"`
	Status        models.OrderStatus   `json:"status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	CustomerName  string               `json:"customer_name"`
	CustomerEmail string               `json:"customer_email"`
	TotalPrice    decimal.Decimal      `json:"total_price"`
	ItemCount     int                  `json:"item_count"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

func NewEvent(kind string, o *models.Order, at time.Time) Event {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return Event{
		Kind:          kind,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		TotalPrice:    o.TotalPrice,
		ItemCount:     count,
		OccurredAt:    at.UTC(),
	}
}

func decodeEvent(payload string) (Event, error) {
	var ev Event
	err := json.Unmarshal([]byte(payload), &ev)
	return ev, err
}
