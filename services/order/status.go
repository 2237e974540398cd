package order

import (
	"strings"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/models"
)

// ParseStatus maps user input onto the order status set.
func ParseStatus(status string) (models.OrderStatus, error) {
	switch s := models.OrderStatus(strings.ToLower(strings.TrimSpace(status))); s {
	case models.OrderStatusPending,
		models.OrderStatusConfirmed,
		models.OrderStatusPreparing,
		models.OrderStatusReady,
		models.OrderStatusDelivered,
		models.OrderStatusCancelled:
		return s, nil
	}
	return "", apperrors.Validation("Invalid order status %q", status)
}

// ParsePaymentStatus maps user input onto the payment status set.
func ParsePaymentStatus(status string) (models.PaymentStatus, error) {
	switch s := models.PaymentStatus(strings.ToLower(strings.TrimSpace(status))); s {
	case models.PaymentStatusPending,
		models.PaymentStatusPaid,
		models.PaymentStatusFailed,
		models.PaymentStatusRefunded:
		return s, nil
	}
	return "", apperrors.Validation("Invalid payment status %q", status)
}

// checkTransition rejects any change out of delivered or cancelled.
func checkTransition(from, to models.OrderStatus) error {
	if from == to {
		return nil
	}
	if from.Terminal() {
		return apperrors.Validation("Order is %s and can no longer change status", from)
	}
	return nil
}
