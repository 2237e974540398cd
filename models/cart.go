package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart belongs to exactly one of a user or an anonymous session.
type Cart struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    *uint      `gorm:"uniqueIndex" json:"user_id"`
	SessionID *string    `gorm:"size:64;uniqueIndex" json:"session_id,omitempty"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CartItem struct {
	ID       uint  `gorm:"primaryKey" json:"id"`
	CartID   uint  `gorm:"index;not null" json:"cart_id"`
	CakeID   *uint `json:"cake_id"`
	Cake     *Cake `gorm:"foreignKey:CakeID" json:"cake,omitempty"`
	Quantity int   `gorm:"not null;default:1" json:"quantity"`

	CakeShape  string `gorm:"size:50" json:"cake_shape"`
	CakeSize   string `gorm:"size:50" json:"cake_size"`
	CakeLayers int    `gorm:"default:2" json:"cake_layers"`
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

	ReferenceImages []CartItemImage `gorm:"foreignKey:CartItemID;constraint:OnDelete:CASCADE" json:"reference_images"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UnitPrice is base plus customization for a single cake.
func (i CartItem) UnitPrice() decimal.Decimal {
	return i.BasePrice.Add(i.CustomizationPrice)
}

// Subtotal is always derived from the price snapshot, never stored.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type CartItemImage struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CartItemID    uint      `gorm:"index;not null" json:"cart_item_id"`
	ImageURL      string    `gorm:"size:500;not null" json:"image_url"`
	PublicID      string    `gorm:"size:255" json:"public_id"`
	ImageFilename string    `gorm:"size:255" json:"image_filename"`
	Description   string    `gorm:"size:500" json:"description"`
	UploadedAt    time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}
