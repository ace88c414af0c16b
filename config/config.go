// Package config reads FarmSetu's runtime settings from the environment.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string

	MongoURI      string
	MongoDatabase string

	JWTSecret []byte
	JWTExpire time.Duration

	UploadRoot     string
	UploadDir      string
	MaxUploadBytes int64
	StorageBackend string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool

	CloudinaryURL    string
	CloudinaryFolder string

	LogLevel      slog.Level
	LogDir        string
	FluentEnabled bool
	FluentHost    string
	FluentPort    int

	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int

	GeocoderURL       string
	GeocoderUserAgent string
}

const (
	defaultPort           = "5000"
	defaultMongoURI       = "mongodb://127.0.0.1:27017"
	defaultMongoDatabase  = "farmsetu"
	defaultJWTExpire      = 30 * 24 * time.Hour
	defaultUploadRoot     = "/uploads"
	defaultUploadDir      = "uploads"
	defaultMaxUploadBytes = 20 << 20 // 20 MiB per file
	defaultStorage        = "disk"
	defaultLogDir         = "logs"
	defaultFluentPort     = 24224
	defaultCORSOrigins    = "*"
	defaultRateLimitRPS   = 1.0
	defaultRateLimitBurst = 20
	defaultGeocoderURL    = "https://nominatim.openstreetmap.org/reverse"
	defaultGeocoderAgent  = "FarmSetu/1.0"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:    readEnv("PORT", defaultPort),
		GinMode: readEnv("GIN_MODE", "debug"),

		MongoURI:      readEnv("MONGODB_URI", defaultMongoURI),
		MongoDatabase: readEnv("MONGODB_DATABASE", defaultMongoDatabase),

		JWTSecret: []byte(readEnv("JWT_SECRET", "")),
		JWTExpire: parseDuration("JWT_EXPIRE", defaultJWTExpire),

		UploadRoot:     readEnv("UPLOAD_ROOT", defaultUploadRoot),
		UploadDir:      readEnv("UPLOAD_DIR", defaultUploadDir),
		MaxUploadBytes: parseInt64("UPLOAD_MAX_FILE_BYTES", defaultMaxUploadBytes),
		StorageBackend: strings.ToLower(readEnv("STORAGE_BACKEND", defaultStorage)),

		S3Endpoint:  readEnv("S3_ENDPOINT", ""),
		S3AccessKey: readEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: readEnv("S3_SECRET_KEY", ""),
		S3Bucket:    readEnv("S3_BUCKET", "farmsetu-uploads"),
		S3Region:    readEnv("S3_REGION", "us-east-1"),
		S3UseSSL:    parseBool("S3_USE_SSL", false),

		CloudinaryURL:    readEnv("CLOUDINARY_URL", ""),
		CloudinaryFolder: readEnv("CLOUDINARY_FOLDER", "farmsetu"),

		LogLevel:      parseLevel(readEnv("LOG_LEVEL", "info")),
		LogDir:        readEnv("LOG_DIR", defaultLogDir),
		FluentEnabled: parseBool("FLUENT_ENABLED", false),
		FluentHost:    readEnv("FLUENT_HOST", "127.0.0.1"),
		FluentPort:    parseInt("FLUENT_PORT", defaultFluentPort),

		CORSOrigins:    parseList("CORS_ORIGINS", defaultCORSOrigins),
		RateLimitRPS:   parseFloat("RATE_LIMIT_RPS", defaultRateLimitRPS),
		RateLimitBurst: parseInt("RATE_LIMIT_BURST", defaultRateLimitBurst),

		GeocoderURL:       readEnv("GEOCODER_URL", defaultGeocoderURL),
		GeocoderUserAgent: readEnv("GEOCODER_USER_AGENT", defaultGeocoderAgent),
	}

	if len(cfg.JWTSecret) == 0 {
		return nil, ErrMissingJWTSecret
	}
	if cfg.JWTExpire <= 0 {
		cfg.JWTExpire = defaultJWTExpire
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = defaultRateLimitBurst
	}
	return cfg, nil
}

// Release reports whether gin should run in release mode.
func (c *Config) Release() bool { return c.GinMode == "release" }

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func parseList(key, def string) []string {
	parts := strings.Split(readEnv(key, def), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt64(key string, def int64) int64 {
	if v := readEnv(key, ""); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseInt(key string, def int) int {
	if v := readEnv(key, ""); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseFloat(key string, def float64) float64 {
	if v := readEnv(key, ""); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v := readEnv(key, ""); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

// parseDuration accepts Go durations ("720h") and whole days ("30d").
func parseDuration(key string, def time.Duration) time.Duration {
	v := readEnv(key, "")
	if v == "" {
		return def
	}
	if days, ok := strings.CutSuffix(v, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil {
			return time.Duration(n) * 24 * time.Hour
		}
	}
	if parsed, err := time.ParseDuration(v); err == nil {
		return parsed
	}
	return def
}

func parseLevel(v string) slog.Level {
	switch strings.ToLower(v) {
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
