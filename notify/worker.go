package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/George-Dev-Web/cakes2/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler delivers one outbox message on its channel.
type Handler interface {
	Handle(ctx context.Context, msg *models.OutboxMessage) error
}

type HandlerFunc func(ctx context.Context, msg *models.OutboxMessage) error

func (f HandlerFunc) Handle(ctx context.Context, msg *models.OutboxMessage) error { return f(ctx, msg) }

const (
	DefaultPollInterval = time.Second
	DefaultBatchSize    = 50
	DefaultMaxAttempts  = 5
	DefaultBaseBackoff  = 30 * time.Second
)

// Worker drains due outbox messages. Delivery is at-least-once; a message
// that keeps failing is retried with exponential backoff and eventually
// parked as failed.
type Worker struct {
	db          *gorm.DB
	log         *zap.Logger
	handlers    map[string]Handler
	interval    time.Duration
	batchSize   int
	maxAttempts int
	baseBackoff time.Duration
	now         func() time.Time
	wake        chan struct{}
}

type WorkerOption func(*Worker)

func WithPollInterval(d time.Duration) WorkerOption {
	return func(w *Worker) { w.interval = d }
}

func WithBackoff(base time.Duration, maxAttempts int) WorkerOption {
	return func(w *Worker) {
		w.baseBackoff = base
		w.maxAttempts = maxAttempts
	}
}

func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *Worker) { w.now = now }
}

func NewWorker(db *gorm.DB, log *zap.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		db:          db,
		log:         log.Named("outbox-worker"),
		handlers:    map[string]Handler{},
		interval:    DefaultPollInterval,
		batchSize:   DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		baseBackoff: DefaultBaseBackoff,
		now:         time.Now,
		wake:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Register routes a channel to h. It must be called before Run.
func (w *Worker) Register(channel string, h Handler) {
	w.handlers[channel] = h
}

// Wake asks the worker to poll now instead of waiting for the next tick.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("outbox worker started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ticker.C:
		case <-w.wake:
		case <-ctx.Done():
			w.log.Info("outbox worker stopped")
			return
		}
		if _, err := w.ProcessDue(ctx); err != nil {
			w.log.Error("failed to fetch outbox messages", zap.Error(err))
		}
	}
}

// ProcessDue handles one batch of due messages and returns how many were
// delivered.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	var msgs []models.OutboxMessage
	err := w.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.OutboxPending, w.now().UTC()).
		Order("id").
		Limit(w.batchSize).
		Find(&msgs).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range msgs {
		msg := &msgs[i]
		if err := w.deliver(ctx, msg); err != nil {
			w.fail(ctx, msg, err)
			continue
		}
		w.markSent(ctx, msg)
		sent++
	}
	return sent, nil
}

func (w *Worker) deliver(ctx context.Context, msg *models.OutboxMessage) (err error) {
	h, ok := w.handlers[msg.Channel]
	if !ok {
		return fmt.Errorf("no handler for channel %q", msg.Channel)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, msg)
}

func (w *Worker) markSent(ctx context.Context, msg *models.OutboxMessage) {
	now := w.now().UTC()
	err := w.db.WithContext(ctx).Model(msg).Updates(map[string]any{
		"status":       models.OutboxSent,
		"attempts":     msg.Attempts + 1,
		"processed_at": now,
		"last_error":   "",
	}).Error
	if err != nil {
		w.log.Error("failed to mark outbox message sent", zap.Uint("id", msg.ID), zap.Error(err))
		return
	}
	w.log.Info("outbox message delivered",
		zap.Uint("id", msg.ID),
		zap.String("channel", msg.Channel),
		zap.String("kind", msg.Kind),
		zap.Uint("order_id", msg.OrderID),
	)
}

func (w *Worker) fail(ctx context.Context, msg *models.OutboxMessage, cause error) {
	attempts := msg.Attempts + 1
	updates := map[string]any{
		"attempts":   attempts,
		"last_error": cause.Error(),
	}
	fields := []zap.Field{
		zap.Uint("id", msg.ID),
		zap.String("channel", msg.Channel),
		zap.String("kind", msg.Kind),
		zap.Int("attempts", attempts),
		zap.Error(cause),
	}
	if attempts >= w.maxAttempts {
		updates["status"] = models.OutboxFailed
		w.log.Error("outbox message failed permanently", fields...)
	} else {
		next := w.now().UTC().Add(w.backoff(attempts))
		updates["next_attempt_at"] = next
		w.log.Warn("outbox message delivery failed", append(fields, zap.Time("next_attempt_at", next))...)
	}
	if err := w.db.WithContext(ctx).Model(msg).Updates(updates).Error; err != nil {
		w.log.Error("failed to record outbox failure", zap.Uint("id", msg.ID), zap.Error(err))
	}
}

// backoff is base * 2^(attempts-1).
func (w *Worker) backoff(attempts int) time.Duration {
	return w.baseBackoff << (attempts - 1)
}
