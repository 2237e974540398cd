package models

import "time"

type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxSent    OutboxStatus = "sent"
	OutboxFailed  OutboxStatus = "failed"

	ChannelEmail = "email"
	ChannelEvent = "event"

	KindOrderCreated       = "order.created"
	KindOrderStatusChanged = "order.status_changed"
)

// OutboxMessage is written in the same transaction as the order change it
// describes and delivered later by the notification worker.
type OutboxMessage struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	Channel       string       `gorm:"size:20;not null;index:idx_outbox_due,priority:2" json:"channel"`
	Kind          string       `gorm:"size:50;not null" json:"kind"`
	OrderID       uint         `gorm:"index;not null" json:"order_id"`
	Payload       string       `gorm:"type:text" json:"payload"`
	Status        OutboxStatus `gorm:"type:VARCHAR(20);not null;index:idx_outbox_due,priority:1" json:"status"`
	Attempts      int          `gorm:"not null;default:0" json:"attempts"`
	LastError     string       `gorm:"type:text" json:"last_error,omitempty"`
	NextAttemptAt time.Time    `gorm:"not null;index:idx_outbox_due,priority:3" json:"next_attempt_at"`
	ProcessedAt   *time.Time   `json:"processed_at"`
	CreatedAt     time.Time    `json:"created_at"`
}
