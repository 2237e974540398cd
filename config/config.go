package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Env       string
	Port      string
	JWTSecret string
	JWTTTL    time.Duration

	CORSOrigins []string
	FrontendURL string

	Database DatabaseConfig

	RedisURL string
	CacheTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	PostmarkToken string
	EmailSender   string

	Cloudinary CloudinaryConfig

	UploadsDir          string
	BackupDir           string
	BackupRetentionDays int
	BackupHour          int
	MaxUploadBytes      int64

	FirebaseCredentialsJSON string
	FirebaseProjectID       string

	TrackingRequiresToken bool
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// DSN returns DATABASE_URL when set, otherwise a key/value postgres DSN.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:         strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTTTL:      getDuration("JWT_TTL", 24*time.Hour),
		CORSOrigins: getList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        os.Getenv("DB_PASSWORD"),
			Name:            getEnv("DB_NAME", "cakes2"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		RedisURL:      os.Getenv("REDIS_URL"),
		CacheTTL:      getDuration("CACHE_TTL", 10*time.Minute),
		KafkaBrokers:  getList("KAFKA_BROKERS", nil),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "cake-orders"),
		PostmarkToken: os.Getenv("POSTMARK_API_TOKEN"),
		EmailSender:   getEnv("EMAIL_SENDER", "orders@cakes2.local"),
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		},
		UploadsDir:              getEnv("UPLOADS_DIR", "./uploads"),
		BackupDir:               getEnv("BACKUP_DIR", "./backup/uploads"),
		BackupRetentionDays:     getInt("BACKUP_RETENTION_DAYS", 4),
		BackupHour:              getInt("BACKUP_HOUR", 2),
		MaxUploadBytes:          int64(getInt("MAX_UPLOAD_MB", 10)) << 20,
		FirebaseCredentialsJSON: os.Getenv("FIREBASE_CREDENTIALS_JSON"),
		FirebaseProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		TrackingRequiresToken:   getBool("ORDER_TRACKING_REQUIRES_TOKEN", true),
	}

	if cfg.JWTSecret == "" && !cfg.IsProduction() {
		cfg.JWTSecret = "dev-secret-change-me"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

func (c *Config) Validate() error {
	var errs []error
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		errs = append(errs, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters in production"))
	}
	if c.BackupHour < 0 || c.BackupHour > 23 {
		errs = append(errs, fmt.Errorf("BACKUP_HOUR must be 0-23, got %d", c.BackupHour))
	}
	if c.FirebaseCredentialsJSON != "" && c.FirebaseProjectID == "" {
		errs = append(errs, errors.New("FIREBASE_PROJECT_ID must be set with FIREBASE_CREDENTIALS_JSON"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func getList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
