package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Asset backends
const (
	AssetsDisk       = "disk"
	AssetsCloudinary = "cloudinary"
)

// Config validation errors
var (
	// ErrMissingJWTSecret is returned when JWT_SECRET is empty
	ErrMissingJWTSecret = errors.New("JWT_SECRET is required")
	// ErrWeakJWTSecret is returned outside development when JWT_SECRET is too short
	ErrWeakJWTSecret = errors.New("JWT_SECRET is too short")
	// ErrUnknownBackend is returned for an unsupported STORE_BACKEND or ASSET_BACKEND
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrMissingDSN is returned when the selected store has no connection string
	ErrMissingDSN = errors.New("database connection string is required")
	// ErrMissingCloudinary is returned when the cloudinary asset backend lacks credentials
	ErrMissingCloudinary = errors.New("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required")
	// ErrInvalidValue is returned for out-of-range numeric settings
	ErrInvalidValue = errors.New("invalid configuration value")
)

// MinJWTSecretLength matches auth.MinSecretLength
const MinJWTSecretLength = 32

// Config holds every setting the server reads from the environment.
type Config struct {
	Environment string
	LogLevel    string
	Port        string

	JWTSecret  string
	JWTIssuer  string
	SessionTTL time.Duration
	BcryptCost int

	// StoreBackend selects the repository implementation: mongo, postgres or memory.
	StoreBackend  string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string

	// RedisURL enables the shared rate limiter when set.
	RedisURL          string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	CORSAllowedOrigins []string

	AssetBackend        string
	AssetDir            string
	AssetBaseURL        string
	AssetMaxDimension   int
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	AuthorCacheSize int
	AuthorCacheTTL  time.Duration
}

// IsDevelopment reports whether the server runs in development mode
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate checks the configuration for invalid values.
// Returns nil if the configuration is valid, or an error describing the problem.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if !c.IsDevelopment() && len(c.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("%w: need at least %d bytes outside development, got %d",
			ErrWeakJWTSecret, MinJWTSecretLength, len(c.JWTSecret))
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: SESSION_TTL must be positive, got %v", ErrInvalidValue, c.SessionTTL)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("%w: BCRYPT_COST must be between 4 and 31, got %d", ErrInvalidValue, c.BcryptCost)
	}

	switch c.StoreBackend {
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("%w: MONGO_URI", ErrMissingDSN)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL", ErrMissingDSN)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: STORE_BACKEND=%q", ErrUnknownBackend, c.StoreBackend)
	}

	switch c.AssetBackend {
	case AssetsDisk:
		if c.AssetDir == "" {
			return fmt.Errorf("%w: ASSET_DIR is required for the disk asset backend", ErrInvalidValue)
		}
	case AssetsCloudinary:
		if c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			return ErrMissingCloudinary
		}
	default:
		return fmt.Errorf("%w: ASSET_BACKEND=%q", ErrUnknownBackend, c.AssetBackend)
	}

	if c.AssetMaxDimension <= 0 {
		return fmt.Errorf("%w: ASSET_MAX_DIMENSION must be positive, got %d", ErrInvalidValue, c.AssetMaxDimension)
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("%w: rate limit must be positive, got %d per %v", ErrInvalidValue, c.RateLimitRequests, c.RateLimitWindow)
	}
	if c.AuthorCacheSize <= 0 {
		return fmt.Errorf("%w: AUTHOR_CACHE_SIZE must be positive, got %d", ErrInvalidValue, c.AuthorCacheSize)
	}

	return nil
}

// DefaultConfig returns a Config with sensible default values.
// JWTSecret has no default.
func DefaultConfig() Config {
	return Config{
		Environment:        "development",
		LogLevel:           "info",
		Port:               "5000",
		JWTIssuer:          "murmur",
		SessionTTL:         15 * 24 * time.Hour,
		BcryptCost:         10,
		StoreBackend:       BackendMongo,
		MongoURI:           "mongodb://localhost:27017",
		MongoDatabase:      "murmur",
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		AssetBackend:       AssetsDisk,
		AssetDir:           "./data/assets",
		AssetMaxDimension:  2048,
		AuthorCacheSize:    1000,
		AuthorCacheTTL:     30 * time.Second,
	}
}

// Load reads an optional .env file and then the environment, and validates the result
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv creates a Config from environment variables.
// Uses defaults for any missing or unparsable variables.
func FromEnv() Config {
	cfg := DefaultConfig()

	setString(&cfg.Environment, "ENVIRONMENT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Port, "PORT")

	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.JWTIssuer, "JWT_ISSUER")
	setDuration(&cfg.SessionTTL, "SESSION_TTL")
	setInt(&cfg.BcryptCost, "BCRYPT_COST")

	setString(&cfg.StoreBackend, "STORE_BACKEND")
	setString(&cfg.MongoURI, "MONGO_URI")
	setString(&cfg.MongoDatabase, "MONGO_DATABASE")
	setString(&cfg.DatabaseURL, "DATABASE_URL")

	setString(&cfg.RedisURL, "REDIS_URL")
	setInt(&cfg.RateLimitRequests, "RATE_LIMIT_REQUESTS")
	setDuration(&cfg.RateLimitWindow, "RATE_LIMIT_WINDOW")

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORSAllowedOrigins = origins
	}

	setString(&cfg.AssetBackend, "ASSET_BACKEND")
	setString(&cfg.AssetDir, "ASSET_DIR")
	setString(&cfg.AssetBaseURL, "ASSET_BASE_URL")
	setInt(&cfg.AssetMaxDimension, "ASSET_MAX_DIMENSION")
	setString(&cfg.CloudinaryCloudName, "CLOUDINARY_CLOUD_NAME")
	setString(&cfg.CloudinaryAPIKey, "CLOUDINARY_API_KEY")
	setString(&cfg.CloudinaryAPISecret, "CLOUDINARY_API_SECRET")

	setInt(&cfg.AuthorCacheSize, "AUTHOR_CACHE_SIZE")
	setDuration(&cfg.AuthorCacheTTL, "AUTHOR_CACHE_TTL")

	return cfg
}

// SlogLevel maps LogLevel onto slog; unknown values fall back to info
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("[CONFIG] invalid integer value, using default",
			"key", key,
			"value", v,
			"default", *dst,
			"error", err,
		)
		return
	}
	*dst = n
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("[CONFIG] invalid duration value, using default",
			"key", key,
			"value", v,
			"default", dst.String(),
			"error", err,
		)
		return
	}
	*dst = d
}
