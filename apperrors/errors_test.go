package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvelope_TypedError(t *testing.T) {
	err := fmt.Errorf("add item: %w", Validation("Quantity must be between %d and %d", 1, 50))

	status, body := Envelope(err, false)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, TypeValidation, body.Error.Type)
	assert.Equal(t, 400, body.Error.Code)
	assert.Equal(t, "Quantity must be between 1 and 50", body.Error.Message)
}

func TestEnvelope_UnknownErrorHidesDetailInProduction(t *testing.T) {
	status, body := Envelope(errors.New("pq: connection refused"), false)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, TypeDatabase, body.Error.Type)
	assert.Equal(t, "Internal server error", body.Error.Message)
}

func TestEnvelope_DebugShowsCause(t *testing.T) {
	_, body := Envelope(Database("Failed to create order", errors.New("disk full")), true)

	assert.Equal(t, "Failed to create order: disk full", body.Error.Message)
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("Order not found"))

	assert.True(t, Is(err, TypeNotFound))
	assert.False(t, Is(err, TypeValidation))
	assert.False(t, Is(errors.New("plain"), TypeNotFound))
}

func TestStatusCodes(t *testing.T) {
	cases := map[int]*Error{
		http.StatusBadRequest:          Validation("x"),
		http.StatusUnauthorized:        Authentication("x"),
		http.StatusForbidden:           Authorization("x"),
		http.StatusNotFound:            NotFound("x"),
		http.StatusConflict:            Conflict("x"),
		http.StatusInternalServerError: Database("x", nil),
	}
	for status, err := range cases {
		assert.Equal(t, status, err.Status, string(err.Type))
	}
}
