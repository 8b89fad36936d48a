// Package config loads application configuration from environment
// variables.  A .env file in the working directory is read first when
// present; real environment variables take precedence over it.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/civic-service-portal/internal/database"
)

// Config holds all runtime configuration values.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	LogLevel       string // logrus level name
	DB             database.Options
	AutoMigrate    bool   // apply the embedded schema on start
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	// ReferenceMaxAttempts bounds request creation retries on a
	// reference number collision.
	ReferenceMaxAttempts int

	RateLimit RateLimitConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Queue     QueueConfig
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load() // optional; absent .env is not an error

	return Config{
		Env:      must("APP_ENV"),
		Port:     must("APP_PORT"),
		LogLevel: envStr("LOG_LEVEL", "info"),
		DB: database.Options{
			User:            must("DB_USER"),
			Pass:            os.Getenv("DB_PASS"), // empty allowed
			Host:            must("DB_HOST"),
			Port:            must("DB_PORT"),
			Name:            must("DB_NAME"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		AutoMigrate:          envBool("DB_AUTO_MIGRATE", true),
		JWTSecret:            must("JWT_SECRET"),
		AccessTTLMin:         mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:       mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:           mustInt("BCRYPT_COST"),
		ReferenceMaxAttempts: envInt("REFERENCE_MAX_ATTEMPTS", 5),
		RateLimit:            LoadRateLimitConfig(),
		Cache:                LoadCacheConfig(),
		Redis:                LoadRedisConfig(),
		Queue:                LoadQueueConfig(),
	}
}
