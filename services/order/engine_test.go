package order

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/database/dbtest"
	"github.com/George-Dev-Web/cakes2/models"
	"github.com/George-Dev-Web/cakes2/pagination"
	"github.com/George-Dev-Web/cakes2/services/cart"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)

type recordingNotifier struct {
	mu        sync.Mutex
	staged    []string
	committed []string
	stageErr  error
}

func (r *recordingNotifier) Stage(tx *gorm.DB, kind string, o *models.Order) error {
	if r.stageErr != nil {
		return r.stageErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staged = append(r.staged, kind+":"+o.OrderNumber)
	return nil
}

func (r *recordingNotifier) Committed(kind string, o *models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, kind+":"+o.OrderNumber)
}

type fixture struct {
	db       *gorm.DB
	carts    *cart.Engine
	orders   *Engine
	notifier *recordingNotifier
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	db := dbtest.Open(t)
	n := &recordingNotifier{}
	opts = append([]Option{WithNotifier(n), WithClock(func() time.Time { return fixedNow })}, opts...)
	return &fixture{
		db:       db,
		carts:    cart.NewEngine(db, zap.NewNop()),
		orders:   NewEngine(db, zap.NewNop(), opts...),
		notifier: n,
	}
}

func checkout() CheckoutInput {
	return CheckoutInput{
		CustomerName:    "Wanjiru Kamau",
		CustomerEmail:   "wanjiru@example.com",
		CustomerPhone:   "+254712345678",
		DeliveryAddress: "12 Ngong Road, Nairobi",
		DeliveryDate:    fixedNow.AddDate(0, 0, 3),
		DeliveryTime:    "Afternoon",
		PaymentMethod:   "mpesa",
	}
}

func (f *fixture) fillCart(t *testing.T, owner cart.Owner) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), owner, cart.ItemSpec{Quantity: 1, CakeSize: "Small"})
	require.NoError(t, err)
}

func TestCreateOrder_EndToEndTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := cart.GuestOwner("guest-1")

	berries := models.CustomizationOption{
		Category: models.CategoryTopping, Name: "Fresh Berries", Price: decimal.NewFromInt(300),
		Active: true, IsVeganCompatible: true, IsGlutenFreeCompatible: true,
	}
	require.NoError(t, f.db.Create(&berries).Error)

	c, err := f.carts.AddItem(ctx, owner, cart.ItemSpec{
		Quantity: 2, CakeSize: "Medium", IsVegan: true, Toppings: []uint{berries.ID},
	})
	require.NoError(t, err)
	require.Equal(t, "8600", cart.Total(c).String())

	order, err := f.orders.CreateOrder(ctx, owner, checkout())
	require.NoError(t, err)

	assert.Equal(t, "ORD-20260101-001", order.OrderNumber)
	assert.Equal(t, "8600", order.Subtotal.String())
	assert.Equal(t, "500", order.DeliveryFee.String())
	assert.Equal(t, "1376", order.Tax.String())
	assert.Equal(t, "9876", order.TotalPrice.String())
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "M-Pesa", order.PaymentMethod)
	assert.Nil(t, order.UserID)
	assert.Len(t, order.TrackingToken, 32)

	require.Len(t, order.Items, 1)
	assert.Equal(t, "Custom Cake", order.Items[0].CakeName)
	assert.Equal(t, "4300", order.Items[0].UnitPrice.String())
	assert.Equal(t, "8600", order.Items[0].Subtotal.String())

	assert.Equal(t, []string{"order.created:ORD-20260101-001"}, f.notifier.staged)
	assert.Equal(t, []string{"order.created:ORD-20260101-001"}, f.notifier.committed)

	// The cart survives, empty and reusable.
	after, err := f.carts.GetOrCreateCart(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, c.ID, after.ID)
	assert.Empty(t, after.Items)

	var logs []models.OrderStatusLog
	require.NoError(t, f.db.Where("order_id = ?", order.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, models.OrderStatusPending, logs[0].ToStatus)
}

func TestCreateOrder_SnapshotsSurviveCatalogChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := cart.UserOwner(4)

	cake := models.Cake{Name: "Chocolate Dream", Price: decimal.NewFromInt(4500), IsAvailable: true}
	require.NoError(t, f.db.Create(&cake).Error)
	c, err := f.carts.AddItem(ctx, owner, cart.ItemSpec{CakeID: &cake.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.carts.AttachImage(ctx, owner, c.Items[0].ID, cart.ImageInput{URL: "https://img/ref.png", Filename: "ref.png"})
	require.NoError(t, err)

	order, err := f.orders.CreateOrder(ctx, owner, checkout())
	require.NoError(t, err)
	require.NotNil(t, order.UserID)
	assert.Equal(t, uint(4), *order.UserID)

	require.NoError(t, f.db.Model(&cake).Update("price", decimal.NewFromInt(9999)).Error)

	got, err := f.orders.Get(ctx, Viewer{UserID: 4}, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Chocolate Dream", got.Items[0].CakeName)
	assert.Equal(t, "4500", got.Items[0].BasePrice.String())
	require.Len(t, got.Items[0].ReferenceImages, 1)
	assert.Equal(t, "https://img/ref.png", got.Items[0].ReferenceImages[0].ImageURL)

	var images int64
	f.db.Model(&models.CartItemImage{}).Count(&images)
	assert.Zero(t, images)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orders.CreateOrder(ctx, cart.GuestOwner("nobody"), checkout())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.TypeValidation))
	assert.Contains(t, err.Error(), "Cart is empty")

	_, err = f.carts.GetOrCreateCart(ctx, cart.GuestOwner("empty"))
	require.NoError(t, err)
	_, err = f.orders.CreateOrder(ctx, cart.GuestOwner("empty"), checkout())
	assert.True(t, apperrors.Is(err, apperrors.TypeValidation))
}

func TestCreateOrder_ValidatesCheckoutInput(t *testing.T) {
	f := newFixture(t)
	owner := cart.GuestOwner("g")
	f.fillCart(t, owner)

	tests := map[string]func(*CheckoutInput){
		"short name":      func(in *CheckoutInput) { in.CustomerName = "A" },
		"bad email":       func(in *CheckoutInput) { in.CustomerEmail = "not-an-email" },
		"bad phone":       func(in *CheckoutInput) { in.CustomerPhone = "12ab" },
		"short address":   func(in *CheckoutInput) { in.DeliveryAddress = "Nairobi" },
		"missing date":    func(in *CheckoutInput) { in.DeliveryDate = time.Time{} },
		"past date":       func(in *CheckoutInput) { in.DeliveryDate = fixedNow.AddDate(0, 0, -1) },
		"unknown payment": func(in *CheckoutInput) { in.PaymentMethod = "barter" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := checkout()
			mutate(&in)
			_, err := f.orders.CreateOrder(context.Background(), owner, in)
			assert.True(t, apperrors.Is(err, apperrors.TypeValidation), "got %v", err)
		})
	}

	var orders int64
	f.db.Model(&models.Order{}).Count(&orders)
	assert.Zero(t, orders)
}

func TestCreateOrder_RollsBackWhenItemInsertFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := cart.GuestOwner("g")
	f.fillCart(t, owner)

	err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_order_items", func(db *gorm.DB) {
		if db.Statement.Table == "order_items" {
			_ = db.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	_, err = f.orders.CreateOrder(ctx, owner, checkout())
	require.Error(t, err)

	var orders, items, logs int64
	f.db.Model(&models.Order{}).Count(&orders)
	f.db.Model(&models.OrderItem{}).Count(&items)
	f.db.Model(&models.OrderStatusLog{}).Count(&logs)
	assert.Zero(t, orders)
	assert.Zero(t, items)
	assert.Zero(t, logs)

	c, err := f.carts.GetOrCreateCart(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
	assert.Empty(t, f.notifier.committed)
}

func TestCreateOrder_RollsBackWhenStagingFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := cart.GuestOwner("g")
	f.fillCart(t, owner)
	f.notifier.stageErr = errors.New("outbox unavailable")

	_, err := f.orders.CreateOrder(ctx, owner, checkout())
	require.Error(t, err)

	var orders int64
	f.db.Model(&models.Order{}).Count(&orders)
	assert.Zero(t, orders)

	c, err := f.carts.GetOrCreateCart(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
}

func TestCreateOrder_RetriesOnNumberCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// One order today, but it holds sequence 002, so counting yields a taken number.
	taken := models.Order{OrderNumber: "ORD-20260101-002", TrackingToken: "t-002", DeliveryDate: fixedNow}
	require.NoError(t, f.db.Create(&taken).Error)

	owner := cart.GuestOwner("g")
	f.fillCart(t, owner)

	order, err := f.orders.CreateOrder(ctx, owner, checkout())
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260101-003", order.OrderNumber)

	c, err := f.carts.GetOrCreateCart(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestCreateOrder_ConcurrentNumbersAreUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const n = 10

	for i := 0; i < n; i++ {
		f.fillCart(t, cart.GuestOwner(fmt.Sprintf("g-%d", i)))
	}

	numbers := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order, err := f.orders.CreateOrder(ctx, cart.GuestOwner(fmt.Sprintf("g-%d", i)), checkout())
			if assert.NoError(t, err) {
				numbers[i] = order.OrderNumber
			}
		}(i)
	}
	wg.Wait()

	pattern := regexp.MustCompile(`^ORD-\d{8}-\d{3}$`)
	seen := map[string]bool{}
	for _, num := range numbers {
		assert.Regexp(t, pattern, num)
		assert.False(t, seen[num], "duplicate %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
}

func TestGenerateOrderNumber_UsesUTCDay(t *testing.T) {
	db := dbtest.Open(t)
	nairobi := time.FixedZone("EAT", 3*3600)
	lateLocal := time.Date(2026, 1, 2, 1, 0, 0, 0, nairobi) // still Jan 1 in UTC

	number, err := GenerateOrderNumber(db, lateLocal, 0)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260101-001", number)

	require.NoError(t, db.Create(&models.Order{OrderNumber: "ORD-20251231-007", TrackingToken: "x", DeliveryDate: fixedNow}).Error)
	number, err = GenerateOrderNumber(db, lateLocal, 1)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260101-001", number)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := cart.UserOwner(2)
	f.fillCart(t, owner)
	order, err := f.orders.CreateOrder(ctx, owner, checkout())
	require.NoError(t, err)

	admin := Viewer{UserID: 1, IsAdmin: true}

	_, err = f.orders.UpdateStatus(ctx, Viewer{UserID: 2}, order.ID, StatusUpdate{Status: models.OrderStatusConfirmed})
	assert.True(t, apperrors.Is(err, apperrors.TypeAuthorization))

	_, err = f.orders.UpdateStatus(ctx, admin, order.ID, StatusUpdate{Status: "baking"})
	assert.True(t, apperrors.Is(err, apperrors.TypeValidation))

	_, err = f.orders.UpdateStatus(ctx, admin, 9999, StatusUpdate{Status: models.OrderStatusConfirmed})
	assert.True(t, apperrors.Is(err, apperrors.TypeNotFound))

	notes := "call before delivery"
	updated, err := f.orders.UpdateStatus(ctx, admin, order.ID, StatusUpdate{Status: models.OrderStatusConfirmed, AdminNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, updated.Status)
	require.NotNil(t, updated.ConfirmedAt)
	assert.Equal(t, notes, updated.AdminNotes)
	firstConfirmed := *updated.ConfirmedAt

	// Re-confirming keeps the original stamp and the notes when none are sent.
	updated, err = f.orders.UpdateStatus(ctx, admin, order.ID, StatusUpdate{Status: models.OrderStatusConfirmed})
	require.NoError(t, err)
	assert.True(t, firstConfirmed.Equal(*updated.ConfirmedAt))
	assert.Equal(t, notes, updated.AdminNotes)

	updated, err = f.orders.UpdateStatus(ctx, admin, order.ID, StatusUpdate{Status: models.OrderStatusDelivered})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)

	_, err = f.orders.UpdateStatus(ctx, admin, order.ID, StatusUpdate{Status: models.OrderStatusCancelled})
	assert.True(t, apperrors.Is(err, apperrors.TypeValidation))

	history, err := f.orders.StatusHistory(ctx, admin, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.OrderStatusConfirmed, history[1].ToStatus)
	assert.Equal(t, models.OrderStatusDelivered, history[2].ToStatus)

	assert.Equal(t, []string{
		"order.created:" + order.OrderNumber,
		"order.status_changed:" + order.OrderNumber,
		"order.status_changed:" + order.OrderNumber,
	}, f.notifier.committed)
}

func TestUpdateStatus_NormalizesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := cart.UserOwner(2)
	f.fillCart(t, owner)
	order, err := f.orders.CreateOrder(ctx, owner, checkout())
	require.NoError(t, err)

	admin := Viewer{UserID: 1, IsAdmin: true}

	updated, err := f.orders.UpdateStatus(ctx, admin, order.ID, StatusUpdate{Status: "Confirmed"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, updated.Status)
	assert.NotNil(t, updated.ConfirmedAt)

	updated, err = f.orders.UpdateStatus(ctx, admin, order.ID, StatusUpdate{Status: " DELIVERED "})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, updated.Status)
	assert.NotNil(t, updated.CompletedAt)

	_, err = f.orders.UpdateStatus(ctx, admin, order.ID, StatusUpdate{Status: "pending"})
	assert.True(t, apperrors.Is(err, apperrors.TypeValidation))

	var stored models.Order
	require.NoError(t, f.db.First(&stored, order.ID).Error)
	assert.Equal(t, models.OrderStatusDelivered, stored.Status)

	updated, err = f.orders.UpdatePayment(ctx, admin, order.ID, PaymentUpdate{Status: "Paid"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)
}

func TestUpdatePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := cart.GuestOwner("g")
	f.fillCart(t, owner)
	order, err := f.orders.CreateOrder(ctx, owner, checkout())
	require.NoError(t, err)

	ref := "QJK2XYZ"
	_, err = f.orders.UpdatePayment(ctx, Viewer{}, order.ID, PaymentUpdate{Status: models.PaymentStatusPaid, Reference: &ref})
	assert.True(t, apperrors.Is(err, apperrors.TypeAuthorization))

	updated, err := f.orders.UpdatePayment(ctx, Viewer{UserID: 1, IsAdmin: true}, order.ID, PaymentUpdate{Status: models.PaymentStatusPaid, Reference: &ref})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)
	assert.Equal(t, ref, updated.PaymentReference)
	assert.Equal(t, models.OrderStatusPending, updated.Status)
}

func TestGet_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := cart.UserOwner(10)
	f.fillCart(t, owner)
	order, err := f.orders.CreateOrder(ctx, owner, checkout())
	require.NoError(t, err)

	_, err = f.orders.Get(ctx, Viewer{UserID: 10}, order.ID)
	assert.NoError(t, err)

	_, err = f.orders.Get(ctx, Viewer{UserID: 11}, order.ID)
	assert.True(t, apperrors.Is(err, apperrors.TypeAuthorization))

	_, err = f.orders.Get(ctx, Viewer{UserID: 99, IsAdmin: true}, order.ID)
	assert.NoError(t, err)

	_, err = f.orders.Get(ctx, Viewer{}, order.ID)
	assert.NoError(t, err)

	_, err = f.orders.GetByNumber(ctx, Viewer{UserID: 11}, order.OrderNumber)
	assert.True(t, apperrors.Is(err, apperrors.TypeAuthorization))

	_, err = f.orders.GetByNumber(ctx, Viewer{}, "ORD-19990101-001")
	assert.True(t, apperrors.Is(err, apperrors.TypeNotFound))
}

func TestGet_GuestOrderHiddenFromOtherCustomers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := cart.GuestOwner("g")
	f.fillCart(t, owner)
	order, err := f.orders.CreateOrder(ctx, owner, checkout())
	require.NoError(t, err)

	_, err = f.orders.Get(ctx, Viewer{UserID: 3}, order.ID)
	assert.True(t, apperrors.Is(err, apperrors.TypeAuthorization))
}

func TestTrackByNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := cart.GuestOwner("g")
	f.fillCart(t, owner)
	order, err := f.orders.CreateOrder(ctx, owner, checkout())
	require.NoError(t, err)

	tracking, err := f.orders.TrackByNumber(ctx, order.OrderNumber, order.TrackingToken)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, tracking.OrderNumber)
	assert.Equal(t, models.OrderStatusPending, tracking.Status)
	assert.Equal(t, "Wanjiru Kamau", tracking.CustomerName)
	assert.Equal(t, order.TotalPrice.String(), tracking.TotalPrice.String())

	_, err = f.orders.TrackByNumber(ctx, order.OrderNumber, "wrong")
	assert.True(t, apperrors.Is(err, apperrors.TypeNotFound))

	_, err = f.orders.TrackByNumber(ctx, "ORD-19990101-001", order.TrackingToken)
	assert.True(t, apperrors.Is(err, apperrors.TypeNotFound))
}

func TestTrackByNumber_TokenOptional(t *testing.T) {
	f := newFixture(t, WithTrackingToken(false))
	ctx := context.Background()
	owner := cart.GuestOwner("g")
	f.fillCart(t, owner)
	order, err := f.orders.CreateOrder(ctx, owner, checkout())
	require.NoError(t, err)

	tracking, err := f.orders.TrackByNumber(ctx, order.OrderNumber, "")
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, tracking.OrderNumber)
}

func TestListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.fillCart(t, cart.UserOwner(5))
		_, err := f.orders.CreateOrder(ctx, cart.UserOwner(5), checkout())
		require.NoError(t, err)
	}
	f.fillCart(t, cart.UserOwner(6))
	other, err := f.orders.CreateOrder(ctx, cart.UserOwner(6), checkout())
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(ctx, Viewer{UserID: 1, IsAdmin: true}, other.ID, StatusUpdate{Status: models.OrderStatusCancelled})
	require.NoError(t, err)

	mine, total, err := f.orders.ListForUser(ctx, 5, pagination.New(1, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, mine, 2)

	all, total, err := f.orders.ListAll(ctx, "", pagination.New(1, 50))
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, all, 4)

	cancelled, total, err := f.orders.ListAll(ctx, "cancelled", pagination.New(1, 50))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, other.ID, cancelled[0].ID)

	_, _, err = f.orders.ListAll(ctx, "lost", pagination.New(1, 50))
	assert.True(t, apperrors.Is(err, apperrors.TypeValidation))
}
