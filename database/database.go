package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/George-Dev-Web/cakes2/config"
	"github.com/George-Dev-Web/cakes2/models"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to postgres and applies the pool settings.
func Open(cfg config.DatabaseConfig, log *zap.Logger, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	gormConfig := &gorm.Config{
		TranslateError: true,
		Logger: logger.New(
			zap.NewStdLog(log.Named("gorm")),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  level,
				IgnoreRecordNotFoundError: true,
			},
		),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Cake{},
		&models.CakeImage{},
		&models.CustomizationOption{},
		&models.Cart{},
		&models.CartItem{},
		&models.CartItemImage{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderItemImage{},
		&models.OrderStatusLog{},
		&models.OutboxMessage{},
	); err != nil {
		return fmt.Errorf("auto-migrate failed: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err came from a unique constraint. It
// understands the translated gorm error, raw postgres errors (SQLSTATE 23505)
// and sqlite's constraint message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
