package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/George-Dev-Web/cakes2/models"
	"github.com/keighl/postmark"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// EmailSender sends one transactional email.
type EmailSender interface {
	Send(ctx context.Context, e Email) error
}

// PostmarkSender sends through the Postmark API.
type PostmarkSender struct {
	client *postmark.Client
	from   string
}

func NewPostmarkSender(token, from string) *PostmarkSender {
	return &PostmarkSender{client: postmark.NewClient(token, ""), from: from}
}

func (s *PostmarkSender) Send(_ context.Context, e Email) error {
	_, err := s.client.SendEmail(postmark.Email{
		From:     s.from,
		To:       e.To,
		Subject:  e.Subject,
		HtmlBody: e.HTML,
		TextBody: e.Text,
		Tag:      "order",
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogSender only logs. It stands in for Postmark when no token is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.Named("email")}
}

func (s *LogSender) Send(_ context.Context, e Email) error {
	s.log.Info("email not sent, no provider configured",
		zap.String("to", e.To),
		zap.String("subject", e.Subject),
	)
	return nil
}

// EmailHandler renders order emails from outbox messages.
type EmailHandler struct {
	db          *gorm.DB
	sender      EmailSender
	frontendURL string
}

func NewEmailHandler(db *gorm.DB, sender EmailSender, frontendURL string) *EmailHandler {
	return &EmailHandler{db: db, sender: sender, frontendURL: frontendURL}
}

func (h *EmailHandler) Handle(ctx context.Context, msg *models.OutboxMessage) error {
	ev, err := decodeEvent(msg.Payload)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	var order models.Order
	err = h.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		First(&order, msg.OrderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("order %d no longer exists", msg.OrderID)
	}
	if err != nil {
		return fmt.Errorf("load order %d: %w", msg.OrderID, err)
	}

	var email Email
	switch msg.Kind {
	case models.KindOrderCreated:
		email, err = ConfirmationEmail(&order, h.frontendURL)
	case models.KindOrderStatusChanged:
		email, err = StatusUpdateEmail(&order, ev.Status, h.frontendURL)
	default:
		return fmt.Errorf("unknown email kind %q", msg.Kind)
	}
	if err != nil {
		return err
	}
	return h.sender.Send(ctx, email)
}
