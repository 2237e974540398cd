// Package order turns carts into orders and manages them afterwards.
package order

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/database"
	"github.com/George-Dev-Web/cakes2/models"
	"github.com/George-Dev-Web/cakes2/pagination"
	"github.com/George-Dev-Web/cakes2/pricing"
	"github.com/George-Dev-Web/cakes2/services/cart"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Notifier receives order changes. Stage runs inside the order transaction;
// Committed runs once the transaction is durable.
type Notifier interface {
	Stage(tx *gorm.DB, kind string, order *models.Order) error
	Committed(kind string, order *models.Order)
}

type nopNotifier struct{}

func (nopNotifier) Stage(*gorm.DB, string, *models.Order) error { return nil }
func (nopNotifier) Committed(string, *models.Order)             {}

// Viewer is the identity an order is read or changed on behalf of. The zero
// value is an anonymous caller.
type Viewer struct {
	UserID  uint
	IsAdmin bool
}

func (v Viewer) Authenticated() bool { return v.UserID != 0 }

type Engine struct {
	db                    *gorm.DB
	log                   *zap.Logger
	notifier              Notifier
	now                   func() time.Time
	trackingRequiresToken bool
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTrackingToken controls whether TrackByNumber demands the order's
// tracking token.
func WithTrackingToken(required bool) Option {
	return func(e *Engine) { e.trackingRequiresToken = required }
}

func NewEngine(db *gorm.DB, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		db:                    db,
		log:                   log.Named("order"),
		notifier:              nopNotifier{},
		now:                   time.Now,
		trackingRequiresToken: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateOrder converts the owner's cart into an order. The order, its items,
// copied images, status log, outbox rows and the emptied cart commit together
// or not at all.
func (e *Engine) CreateOrder(ctx context.Context, owner cart.Owner, in CheckoutInput) (*models.Order, error) {
	now := e.now()
	if err := in.normalize(now); err != nil {
		return nil, err
	}

	var (
		order *models.Order
		err   error
	)
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		order, err = e.createOnce(ctx, owner, in, now, attempt)
		if err == nil {
			break
		}
		if !database.IsUniqueViolation(err) {
			return nil, err
		}
		e.log.Warn("order number collision, retrying",
			zap.Int("attempt", attempt+1), zap.Error(err))
	}
	if err != nil {
		return nil, apperrors.Conflict("Could not allocate an order number, please retry")
	}

	e.log.Info("order created",
		zap.Uint("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.TotalPrice.StringFixed(2)),
		zap.Stringer("owner", owner),
	)
	e.notifier.Committed(models.KindOrderCreated, order)
	return order, nil
}

func (e *Engine) createOnce(ctx context.Context, owner cart.Owner, in CheckoutInput, now time.Time, attempt int) (*models.Order, error) {
	var order models.Order
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := cart.LockForCheckout(tx, owner)
		if err != nil {
			return err
		}
		if len(c.Items) == 0 {
			return apperrors.Validation("Cart is empty")
		}

		number, err := GenerateOrderNumber(tx, now, attempt)
		if err != nil {
			return apperrors.Database("Failed to generate order number", err)
		}

		totals := pricing.OrderTotals(cart.Total(c))
		order = models.Order{
			OrderNumber:         number,
			TrackingToken:       newTrackingToken(),
			UserID:              owner.UserID,
			CustomerName:        in.CustomerName,
			CustomerEmail:       in.CustomerEmail,
			CustomerPhone:       in.CustomerPhone,
			DeliveryAddress:     in.DeliveryAddress,
			DeliveryDate:        in.DeliveryDate,
			DeliveryTime:        in.DeliveryTime,
			Subtotal:            totals.Subtotal,
			DeliveryFee:         totals.DeliveryFee,
			Tax:                 totals.Tax,
			Discount:            totals.Discount,
			TotalPrice:          totals.Total,
			PaymentMethod:       in.PaymentMethod,
			PaymentStatus:       models.PaymentStatusPending,
			Status:              models.OrderStatusPending,
			SpecialInstructions: in.SpecialInstructions,
			Items:               snapshotItems(c.Items),
		}
		if err := tx.Create(&order).Error; err != nil {
			return apperrors.Database("Failed to create order", err)
		}

		entry := models.OrderStatusLog{OrderID: order.ID, ToStatus: models.OrderStatusPending, ChangedBy: owner.UserID, Note: "order placed"}
		if err := tx.Create(&entry).Error; err != nil {
			return apperrors.Database("Failed to record order status", err)
		}

		if err := cart.ClearItems(tx, c.ID); err != nil {
			return err
		}

		return e.notifier.Stage(tx, models.KindOrderCreated, &order)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// snapshotItems copies every configuration and price field so later catalog
// edits never reach the order.
func snapshotItems(items []models.CartItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, ci := range items {
		name := "Custom Cake"
		if ci.Cake != nil {
			name = ci.Cake.Name
		}
		toppings := make([]uint, len(ci.Toppings))
		copy(toppings, ci.Toppings)

		oi := models.OrderItem{
			CakeID:             ci.CakeID,
			CakeName:           name,
			Quantity:           ci.Quantity,
			CakeShape:          ci.CakeShape,
			CakeSize:           ci.CakeSize,
			CakeLayers:         ci.CakeLayers,
			Flavor:             ci.Flavor,
			Filling:            ci.Filling,
			Frosting:           ci.Frosting,
			IsGlutenFree:       ci.IsGlutenFree,
			IsVegan:            ci.IsVegan,
			IsSugarFree:        ci.IsSugarFree,
			IsDairyFree:        ci.IsDairyFree,
			Toppings:           toppings,
			Decorations:        ci.Decorations,
			MessageOnCake:      ci.MessageOnCake,
			Notes:              ci.Notes,
			BasePrice:          ci.BasePrice,
			CustomizationPrice: ci.CustomizationPrice,
			UnitPrice:          ci.UnitPrice(),
			Subtotal:           ci.Subtotal(),
		}
		for _, img := range ci.ReferenceImages {
			oi.ReferenceImages = append(oi.ReferenceImages, models.OrderItemImage{
				ImageURL:      img.ImageURL,
				PublicID:      img.PublicID,
				ImageFilename: img.ImageFilename,
				Description:   img.Description,
				UploadedAt:    img.UploadedAt,
			})
		}
		out = append(out, oi)
	}
	return out
}

// StatusUpdate carries an admin status change. A nil AdminNotes leaves the
// stored notes untouched.
type StatusUpdate struct {
	Status     models.OrderStatus
	AdminNotes *string
}

// UpdateStatus moves an order through its lifecycle. Only admins may call it.
func (e *Engine) UpdateStatus(ctx context.Context, actor Viewer, orderID uint, upd StatusUpdate) (*models.Order, error) {
	if !actor.IsAdmin {
		return nil, apperrors.Authorization("Admin access required")
	}
	status, err := ParseStatus(string(upd.Status))
	if err != nil {
		return nil, err
	}
	upd.Status = status

	var (
		order   models.Order
		changed bool
		from    models.OrderStatus
	)
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOrder(tx, orderID, &order); err != nil {
			return err
		}
		from = order.Status
		if err := checkTransition(from, upd.Status); err != nil {
			return err
		}

		now := e.now()
		changed = from != upd.Status
		order.Status = upd.Status
		if upd.Status == models.OrderStatusConfirmed && order.ConfirmedAt == nil {
			order.ConfirmedAt = &now
		}
		if upd.Status == models.OrderStatusDelivered && order.CompletedAt == nil {
			order.CompletedAt = &now
		}
		if upd.AdminNotes != nil {
			order.AdminNotes = *upd.AdminNotes
		}

		err := tx.Model(&order).
			Select("status", "admin_notes", "confirmed_at", "completed_at").
			Updates(&order).Error
		if err != nil {
			return apperrors.Database("Failed to update order status", err)
		}
		if !changed {
			return nil
		}

		actorID := actor.UserID
		entry := models.OrderStatusLog{OrderID: order.ID, FromStatus: from, ToStatus: upd.Status, ChangedBy: &actorID}
		if upd.AdminNotes != nil {
			entry.Note = *upd.AdminNotes
		}
		if err := tx.Create(&entry).Error; err != nil {
			return apperrors.Database("Failed to record order status", err)
		}
		return e.notifier.Stage(tx, models.KindOrderStatusChanged, &order)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		e.log.Info("order status updated",
			zap.Uint("order_id", order.ID),
			zap.String("from", string(from)),
			zap.String("to", string(order.Status)),
			zap.Uint("admin_id", actor.UserID),
		)
		e.notifier.Committed(models.KindOrderStatusChanged, &order)
	}
	return e.withItems(ctx, order.ID)
}

// PaymentUpdate carries an admin payment change. A nil Reference leaves the
// stored reference untouched.
type PaymentUpdate struct {
	Status    models.PaymentStatus
	Reference *string
}

// UpdatePayment records the payment outcome of an order. Only admins may
// call it.
func (e *Engine) UpdatePayment(ctx context.Context, actor Viewer, orderID uint, upd PaymentUpdate) (*models.Order, error) {
	if !actor.IsAdmin {
		return nil, apperrors.Authorization("Admin access required")
	}
	payment, err := ParsePaymentStatus(string(upd.Status))
	if err != nil {
		return nil, err
	}
	upd.Status = payment

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := lockOrder(tx, orderID, &order); err != nil {
			return err
		}
		order.PaymentStatus = upd.Status
		if upd.Reference != nil {
			order.PaymentReference = *upd.Reference
		}
		err := tx.Model(&order).Select("payment_status", "payment_reference").Updates(&order).Error
		if err != nil {
			return apperrors.Database("Failed to update payment status", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("order payment updated",
		zap.Uint("order_id", orderID),
		zap.String("payment_status", string(upd.Status)),
		zap.Uint("admin_id", actor.UserID),
	)
	return e.withItems(ctx, orderID)
}

func lockOrder(tx *gorm.DB, id uint, order *models.Order) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("Order not found")
	}
	if err != nil {
		return apperrors.Database("Failed to fetch order", err)
	}
	return nil
}

func (e *Engine) withItems(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := e.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Items.ReferenceImages").
		First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Order not found")
	}
	if err != nil {
		return nil, apperrors.Database("Failed to fetch order", err)
	}
	return &order, nil
}

// canView enforces the visibility rule: admins see everything, signed-in
// customers see only their own orders, anonymous callers holding an id or
// number may see that order.
func canView(v Viewer, order *models.Order) error {
	if v.IsAdmin || !v.Authenticated() {
		return nil
	}
	if order.UserID == nil || *order.UserID != v.UserID {
		return apperrors.Authorization("Unauthorized to view this order")
	}
	return nil
}

// Get returns one order by id subject to the visibility rule.
func (e *Engine) Get(ctx context.Context, v Viewer, id uint) (*models.Order, error) {
	order, err := e.withItems(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(v, order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetByNumber returns one order by order number subject to the visibility rule.
func (e *Engine) GetByNumber(ctx context.Context, v Viewer, number string) (*models.Order, error) {
	var order models.Order
	err := e.db.WithContext(ctx).Select("id").Where("order_number = ?", number).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Order not found")
	}
	if err != nil {
		return nil, apperrors.Database("Failed to fetch order", err)
	}
	return e.Get(ctx, v, order.ID)
}

// ListForUser returns a page of the user's orders, newest first.
func (e *Engine) ListForUser(ctx context.Context, userID uint, p pagination.Params) ([]models.Order, int64, error) {
	return e.list(e.db.WithContext(ctx).Where("user_id = ?", userID), p)
}

// ListAll returns a page of every order, optionally filtered by status.
func (e *Engine) ListAll(ctx context.Context, status string, p pagination.Params) ([]models.Order, int64, error) {
	q := e.db.WithContext(ctx)
	if status != "" {
		s, err := ParseStatus(status)
		if err != nil {
			return nil, 0, err
		}
		q = q.Where("status = ?", s)
	}
	return e.list(q, p)
}

func (e *Engine) list(q *gorm.DB, p pagination.Params) ([]models.Order, int64, error) {
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Model(&models.Order{}).Count(&total).Error; err != nil {
		return nil, 0, apperrors.Database("Failed to count orders", err)
	}
	orders := []models.Order{}
	err := q.Preload("Items").
		Order("created_at DESC, id DESC").
		Offset(p.Offset()).
		Limit(p.PerPage).
		Find(&orders).Error
	if err != nil {
		return nil, 0, apperrors.Database("Failed to retrieve orders", err)
	}
	return orders, total, nil
}

// TrackByNumber returns the public projection of an order. When tracking
// tokens are required a wrong token is reported exactly like an unknown
// number.
func (e *Engine) TrackByNumber(ctx context.Context, number, token string) (*models.OrderTracking, error) {
	var order models.Order
	err := e.db.WithContext(ctx).Where("order_number = ?", number).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Order not found")
	}
	if err != nil {
		return nil, apperrors.Database("Failed to track order", err)
	}
	if e.trackingRequiresToken && subtle.ConstantTimeCompare([]byte(token), []byte(order.TrackingToken)) != 1 {
		return nil, apperrors.NotFound("Order not found")
	}
	return &models.OrderTracking{
		OrderNumber:  order.OrderNumber,
		Status:       order.Status,
		CustomerName: order.CustomerName,
		DeliveryDate: order.DeliveryDate,
		TotalPrice:   order.TotalPrice,
		CreatedAt:    order.CreatedAt,
	}, nil
}

// StatusHistory returns the audit trail of an order, oldest first.
func (e *Engine) StatusHistory(ctx context.Context, v Viewer, id uint) ([]models.OrderStatusLog, error) {
	if _, err := e.Get(ctx, v, id); err != nil {
		return nil, err
	}
	logs := []models.OrderStatusLog{}
	err := e.db.WithContext(ctx).Where("order_id = ?", id).Order("id").Find(&logs).Error
	if err != nil {
		return nil, apperrors.Database("Failed to fetch order history", err)
	}
	return logs, nil
}
