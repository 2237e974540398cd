package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// Money goes over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type Cake struct {
	ID              uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string          `gorm:"size:150;not null" json:"name"`
	Description     string          `json:"description"`
	Category        string          `gorm:"size:50;index" json:"category"` // Birthday, Wedding, Anniversary, Custom
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	ImageURL        string          `gorm:"size:500" json:"image_url"`
	IsAvailable     bool            `gorm:"index" json:"is_available"`
	IsFeatured      bool            `gorm:"default:false" json:"is_featured"`
	CanBeVegan      bool            `gorm:"default:false" json:"can_be_vegan"`
	CanBeGlutenFree bool            `gorm:"default:false" json:"can_be_gluten_free"`
	SortOrder       int             `gorm:"default:0" json:"sort_order"`
	ViewsCount      int             `gorm:"default:0" json:"views_count"`
	Images          []CakeImage     `gorm:"foreignKey:CakeID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

// CakeImage is one picture in a cake's gallery.
type CakeImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CakeID    uint      `gorm:"index;not null" json:"cake_id"`
	ImageURL  string    `gorm:"size:500;not null" json:"image_url"`
	PublicID  string    `gorm:"size:255" json:"public_id"`
	Caption   string    `gorm:"size:200" json:"caption"`
	SortOrder int       `gorm:"default:0" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}
