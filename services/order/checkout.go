package order

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/George-Dev-Web/cakes2/apperrors"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

var paymentMethods = map[string]string{
	"cod":    "COD",
	"card":   "Card",
	"mpesa":  "M-Pesa",
	"m-pesa": "M-Pesa",
}

// CheckoutInput is everything a customer supplies at checkout. Prices are
// deliberately absent; totals always come from the persisted cart.
type CheckoutInput struct {
	CustomerName        string    `json:"customer_name"`
	CustomerEmail       string    `json:"customer_email"`
	CustomerPhone       string    `json:"customer_phone"`
	DeliveryAddress     string    `json:"delivery_address"`
	DeliveryDate        time.Time `json:"delivery_date"`
	DeliveryTime        string    `json:"delivery_time"`
	PaymentMethod       string    `json:"payment_method"`
	SpecialInstructions string    `json:"special_instructions"`
}

// normalize trims the input and validates it against today's date.
func (in *CheckoutInput) normalize(now time.Time) error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.ToLower(strings.TrimSpace(in.CustomerEmail))
	in.CustomerPhone = strings.ReplaceAll(strings.TrimSpace(in.CustomerPhone), " ", "")
	in.DeliveryAddress = strings.TrimSpace(in.DeliveryAddress)
	in.DeliveryTime = strings.TrimSpace(in.DeliveryTime)
	in.SpecialInstructions = strings.TrimSpace(in.SpecialInstructions)

	if n := len(in.CustomerName); n < 2 || n > 100 {
		return apperrors.Validation("Name must be between 2 and 100 characters")
	}
	if addr, err := mail.ParseAddress(in.CustomerEmail); err != nil || addr.Address != in.CustomerEmail {
		return apperrors.Validation("Invalid email address")
	}
	if !phonePattern.MatchString(in.CustomerPhone) {
		return apperrors.Validation("Invalid phone number format")
	}
	if n := len(in.DeliveryAddress); n < 10 || n > 500 {
		return apperrors.Validation("Address must be between 10 and 500 characters")
	}
	if in.DeliveryDate.IsZero() {
		return apperrors.Validation("delivery_date is required")
	}
	today := now.UTC().Truncate(24 * time.Hour)
	if in.DeliveryDate.UTC().Before(today) {
		return apperrors.Validation("delivery_date cannot be in the past")
	}
	if len(in.DeliveryTime) > 50 {
		return apperrors.Validation("delivery_time must be at most 50 characters")
	}
	method, ok := paymentMethods[strings.ToLower(strings.TrimSpace(in.PaymentMethod))]
	if !ok {
		return apperrors.Validation("payment_method must be one of COD, Card, M-Pesa")
	}
	in.PaymentMethod = method
	if len(in.SpecialInstructions) > 1000 {
		return apperrors.Validation("Special instructions are too long")
	}
	return nil
}
