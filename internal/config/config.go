package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Server
	Port        string
	Environment string

	// JWT
	JWTSecret string

	// NATS
	NATSURL string

	// Redis
	RedisURL string

	// Image store (external object storage for scan photos)
	ImageStoreURL    string
	ImageStoreAPIKey string

	// Detection provider
	DetectorURL        string
	DetectorAPIKey     string
	DetectionThreshold float64

	// Chat provider (OpenAI-compatible, backs the in-app assistant)
	ChatProviderURL    string
	ChatProviderAPIKey string
	ChatModel          string

	// Inventory
	LowStockThreshold int
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	lowStock, _ := strconv.Atoi(getEnv("LOW_STOCK_THRESHOLD", "5"))
	threshold, _ := strconv.ParseFloat(getEnv("DETECTION_THRESHOLD", "0.3"), 64)

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "storevision_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Server
		Port:        getEnv("PORT", "8088"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// NATS
		NATSURL: getEnv("NATS_URL", ""),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Image store
		ImageStoreURL:    getEnv("IMAGE_STORE_URL", ""),
		ImageStoreAPIKey: getEnv("IMAGE_STORE_API_KEY", ""),

		// Detection provider
		DetectorURL:        getEnv("DETECTOR_URL", ""),
		DetectorAPIKey:     getEnv("DETECTOR_API_KEY", ""),
		DetectionThreshold: threshold,

		// Chat provider
		ChatProviderURL:    getEnv("CHAT_PROVIDER_URL", ""),
		ChatProviderAPIKey: getEnv("CHAT_PROVIDER_API_KEY", ""),
		ChatModel:          getEnv("CHAT_MODEL", "Claude Sonnet 4.5"),

		// Inventory
		LowStockThreshold: lowStock,
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// InitRedis returns nil when REDIS_URL is unset; the repository treats a
// nil client as cache-off.
func InitRedis(cfg *Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	return redis.NewClient(opts), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
