package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OptionCategory string

const (
	CategoryShape              OptionCategory = "shape"
	CategorySize               OptionCategory = "size"
	CategoryFlavor             OptionCategory = "flavor"
	CategoryFilling            OptionCategory = "filling"
	CategoryFrosting           OptionCategory = "frosting"
	CategoryTopping            OptionCategory = "topping"
	CategoryDecoration         OptionCategory = "decoration"
	CategoryDietaryRestriction OptionCategory = "dietary_restriction"
)

// OptionCategories lists the categories in display order.
var OptionCategories = []OptionCategory{
	CategoryShape,
	CategorySize,
	CategoryFlavor,
	CategoryFilling,
	CategoryFrosting,
	CategoryTopping,
	CategoryDecoration,
	CategoryDietaryRestriction,
}

func (c OptionCategory) Valid() bool {
	for _, known := range OptionCategories {
		if c == known {
			return true
		}
	}
	return false
}

type CustomizationOption struct {
	ID                     uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Category               OptionCategory  `gorm:"size:50;not null;index" json:"category"`
	Name                   string          `gorm:"size:100;not null" json:"name"`
	Description            string          `json:"description"`
	Price                  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	ImageURL               string          `gorm:"size:500" json:"image_url"`
	Active                 bool            `gorm:"not null" json:"active"`
	SortOrder              int             `gorm:"default:0" json:"sort_order"`
	IsVeganCompatible      bool            `gorm:"not null" json:"is_vegan_compatible"`
	IsGlutenFreeCompatible bool            `gorm:"not null" json:"is_gluten_free_compatible"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}
