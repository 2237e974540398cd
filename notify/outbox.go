package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/George-Dev-Web/cakes2/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Broadcaster pushes live frames to connected dashboards.
type Broadcaster interface {
	Broadcast(v any)
}

// Waker is told that new outbox rows are ready.
type Waker interface {
	Wake()
}

// Outbox writes notification rows inside the caller's transaction and pokes
// the worker and the live dashboard once that transaction has committed.
type Outbox struct {
	log    *zap.Logger
	events bool
	waker  Waker
	hub    Broadcaster
	now    func() time.Time
}

type OutboxOption func(*Outbox)

// WithEvents stages an event-channel row next to every email row.
func WithEvents(enabled bool) OutboxOption {
	return func(o *Outbox) { o.events = enabled }
}

func WithWaker(w Waker) OutboxOption {
	return func(o *Outbox) { o.waker = w }
}

func WithBroadcaster(b Broadcaster) OutboxOption {
	return func(o *Outbox) { o.hub = b }
}

func NewOutbox(log *zap.Logger, opts ...OutboxOption) *Outbox {
	o := &Outbox{log: log.Named("outbox"), now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Outbox) Stage(tx *gorm.DB, kind string, order *models.Order) error {
	now := o.now().UTC()
	payload, err := json.Marshal(NewEvent(kind, order, now))
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", kind, err)
	}

	channels := []string{models.ChannelEmail}
	if o.events {
		channels = append(channels, models.ChannelEvent)
	}
	msgs := make([]models.OutboxMessage, 0, len(channels))
	for _, ch := range channels {
		msgs = append(msgs, models.OutboxMessage{
			Channel:       ch,
			Kind:          kind,
			OrderID:       order.ID,
			Payload:       string(payload),
			Status:        models.OutboxPending,
			NextAttemptAt: now,
		})
	}
	if err := tx.Create(&msgs).Error; err != nil {
		return fmt.Errorf("stage outbox messages: %w", err)
	}
	return nil
}

func (o *Outbox) Committed(kind string, order *models.Order) {
	if o.waker != nil {
		o.waker.Wake()
	}
	if o.hub != nil {
		o.hub.Broadcast(NewEvent(kind, order, o.now()))
	}
	o.log.Debug("order change committed", zap.String("kind", kind), zap.String("order_number", order.OrderNumber))
}
