package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string
type PaymentStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // Order placed, awaiting confirmation
	OrderStatusConfirmed OrderStatus = "confirmed" // Accepted by the bakery
	OrderStatusPreparing OrderStatus = "preparing" // In the oven
	OrderStatusReady     OrderStatus = "ready"     // Ready for delivery or pickup
	OrderStatusDelivered OrderStatus = "delivered" // Customer received the cake
	OrderStatusCancelled OrderStatus = "cancelled"

	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Terminal reports whether no further status change is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type Order struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	OrderNumber   string `gorm:"size:50;uniqueIndex;not null" json:"order_number"`
	TrackingToken string `gorm:"size:64;uniqueIndex;not null" json:"-"`
	UserID        *uint  `gorm:"index" json:"user_id"`

	CustomerName  string `gorm:"size:100;not null" json:"customer_name"`
	CustomerEmail string `gorm:"size:100;not null" json:"customer_email"`
	CustomerPhone string `gorm:"size:20;not null" json:"customer_phone"`

	DeliveryAddress string    `gorm:"not null" json:"delivery_address"`
	DeliveryDate    time.Time `gorm:"not null" json:"delivery_date"`
	DeliveryTime    string    `gorm:"size:50" json:"delivery_time"` // Morning, Afternoon, Evening

	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	DeliveryFee decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"delivery_fee"`
	Tax         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax"`
	Discount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`

	PaymentMethod    string        `gorm:"size:50" json:"payment_method"` // COD, Card, M-Pesa
	PaymentStatus    PaymentStatus `gorm:"type:VARCHAR(20);default:'pending'" json:"payment_status"`
	PaymentReference string        `gorm:"size:100" json:"payment_reference"`

	Status              OrderStatus `gorm:"type:VARCHAR(20);default:'pending';index" json:"status"`
	SpecialInstructions string      `json:"special_instructions"`
	AdminNotes          string      `json:"admin_notes,omitempty"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// OrderItem is a frozen copy of a cart line at checkout.
type OrderItem struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	OrderID  uint   `gorm:"index;not null" json:"order_id"`
	CakeID   *uint  `json:"cake_id"`
	CakeName string `gorm:"size:150" json:"cake_name"`
	Quantity int    `gorm:"not null" json:"quantity"`

	CakeShape  string `gorm:"size:50" json:"cake_shape"`
	CakeSize   string `gorm:"size:50" json:"cake_size"`
	CakeLayers int    `json:"cake_layers"`
	Flavor     string `gorm:"size:100" json:"flavor"`
	Filling    string `gorm:"size:100" json:"filling"`
	Frosting   string `gorm:"size:100" json:"frosting"`

	IsGlutenFree bool `json:"is_gluten_free"`
	IsVegan      bool `json:"is_vegan"`
	IsSugarFree  bool `json:"is_sugar_free"`
	IsDairyFree  bool `json:"is_dairy_free"`

	Toppings      []uint `gorm:"serializer:json" json:"toppings"`
	Decorations   string `gorm:"size:500" json:"decorations"`
	MessageOnCake string `gorm:"size:200" json:"message_on_cake"`
	Notes         string `gorm:"size:1000" json:"notes"`

	BasePrice          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"base_price"`
	CustomizationPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"customization_price"`
	UnitPrice          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`

	ReferenceImages []OrderItemImage `gorm:"foreignKey:OrderItemID;constraint:OnDelete:CASCADE" json:"reference_images"`

	CreatedAt time.Time `json:"created_at"`
}

type OrderItemImage struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderItemID   uint      `gorm:"index;not null" json:"order_item_id"`
	ImageURL      string    `gorm:"size:500;not null" json:"image_url"`
	PublicID      string    `gorm:"size:255" json:"public_id"`
	ImageFilename string    `gorm:"size:255" json:"image_filename"`
	Description   string    `gorm:"size:500" json:"description"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// OrderStatusLog records every status transition.
type OrderStatusLog struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	OrderID    uint        `gorm:"index;not null" json:"order_id"`
	FromStatus OrderStatus `gorm:"type:VARCHAR(20)" json:"from_status"`
	ToStatus   OrderStatus `gorm:"type:VARCHAR(20);not null" json:"to_status"`
	ChangedBy  *uint       `json:"changed_by"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}

// OrderTracking is the public projection returned by order tracking.
type OrderTracking struct {
	OrderNumber  string          `json:"order_number"`
	Status       OrderStatus     `json:"status"`
	CustomerName string          `json:"customer_name"`
	DeliveryDate time.Time       `json:"delivery_date"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	CreatedAt    time.Time       `json:"created_at"`
}
