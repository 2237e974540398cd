// Package pricing holds the price rules for cart lines and order totals.
// All arithmetic is decimal; tax is rounded half-up to two places.
package pricing

import (
	"github.com/shopspring/decimal"
)

const (
	MinQuantity = 1
	MaxQuantity = 50
	MinLayers   = 1
	MaxLayers   = 10

	DefaultSize = "Medium"
)

var (
	DeliveryFee      = decimal.NewFromInt(500)
	TaxRate          = decimal.NewFromFloat(0.16)
	DietarySurcharge = decimal.NewFromInt(500)

	sizePrices = map[string]decimal.Decimal{
		"Small":  decimal.NewFromInt(2000),
		"Medium": decimal.NewFromInt(3500),
		"Large":  decimal.NewFromInt(5000),
		"XL":     decimal.NewFromInt(7500),
	}

	shapes = map[string]bool{
		"Round":     true,
		"Square":    true,
		"Rectangle": true,
		"Heart":     true,
		"Custom":    true,
	}
)

// Sizes is the enumerated size set in ascending price order.
var Sizes = []string{"Small", "Medium", "Large", "XL"}

func ValidSize(size string) bool {
	_, ok := sizePrices[size]
	return ok
}

func ValidShape(shape string) bool {
	return shapes[shape]
}

// SizePrice is the base price of a custom cake. Unknown sizes are priced as Medium.
func SizePrice(size string) decimal.Decimal {
	if p, ok := sizePrices[size]; ok {
		return p
	}
	return sizePrices[DefaultSize]
}

// Surcharges is the flat dietary add-on: 500 each for gluten-free and vegan.
func Surcharges(glutenFree, vegan bool) decimal.Decimal {
	total := decimal.Zero
	if glutenFree {
		total = total.Add(DietarySurcharge)
	}
	if vegan {
		total = total.Add(DietarySurcharge)
	}
	return total
}

// CustomizationPrice sums option deltas plus dietary surcharges.
func CustomizationPrice(optionPrices []decimal.Decimal, glutenFree, vegan bool) decimal.Decimal {
	total := Surcharges(glutenFree, vegan)
	for _, p := range optionPrices {
		total = total.Add(p)
	}
	return total
}

// LineSubtotal is (base + customization) * quantity.
func LineSubtotal(base, customization decimal.Decimal, quantity int) decimal.Decimal {
	return base.Add(customization).Mul(decimal.NewFromInt(int64(quantity)))
}

type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total_price"`
}

// Tax is subtotal * 16%, rounded half-up to cents.
func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(TaxRate).Round(2)
}

// OrderTotals derives the frozen order amounts from a cart subtotal.
func OrderTotals(subtotal decimal.Decimal) Totals {
	tax := Tax(subtotal)
	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: DeliveryFee,
		Tax:         tax,
		Discount:    decimal.Zero,
		Total:       subtotal.Add(DeliveryFee).Add(tax),
	}
}
