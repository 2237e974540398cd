package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/George-Dev-Web/cakes2/models"
	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: orders.order_number")))
}

func TestUniqueOrderNumberIsEnforced(t *testing.T) {
	db := openTestDB(t)

	first := models.Order{OrderNumber: "ORD-20260101-001", TrackingToken: "a"}
	require.NoError(t, db.Create(&first).Error)

	dup := models.Order{OrderNumber: "ORD-20260101-001", TrackingToken: "b"}
	err := db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestSeed_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Seed(db))
	require.NoError(t, Seed(db))

	var options, cakes int64
	db.Model(&models.CustomizationOption{}).Count(&options)
	db.Model(&models.Cake{}).Count(&cakes)
	assert.Equal(t, int64(len(seedOptions())), options)
	assert.Equal(t, int64(len(seedCakes())), cakes)
}
