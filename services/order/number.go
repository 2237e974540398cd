package order

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/George-Dev-Web/cakes2/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxNumberAttempts bounds the retries after an order_number collision.
const maxNumberAttempts = 5

func numberPrefix(now time.Time) string {
	return "ORD-" + now.UTC().Format("20060102") + "-"
}

// GenerateOrderNumber returns ORD-YYYYMMDD-NNN for the UTC day of now. The
// first attempt counts today's orders; later attempts continue after the
// highest sequence issued so far so a retry never reuses a taken number.
func GenerateOrderNumber(tx *gorm.DB, now time.Time, attempt int) (string, error) {
	prefix := numberPrefix(now)
	today := tx.Model(&models.Order{}).Where("order_number LIKE ?", prefix+"%")

	var seq int
	if attempt == 0 {
		var count int64
		if err := today.Count(&count).Error; err != nil {
			return "", fmt.Errorf("count today's orders: %w", err)
		}
		seq = int(count) + 1
	} else {
		var numbers []string
		err := today.
			Order("LENGTH(order_number) DESC, order_number DESC").
			Limit(1).
			Pluck("order_number", &numbers).Error
		if err != nil {
			return "", fmt.Errorf("find last order number: %w", err)
		}
		seq = 1
		if len(numbers) > 0 {
			last, err := strconv.Atoi(strings.TrimPrefix(numbers[0], prefix))
			if err != nil {
				return "", fmt.Errorf("malformed order number %q", numbers[0])
			}
			seq = last + 1
		}
	}
	return fmt.Sprintf("%s%03d", prefix, seq), nil
}

// newTrackingToken is a random 128-bit identifier, hex encoded.
func newTrackingToken() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}
