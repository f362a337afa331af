package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/matzehuels/cardcrop/pkg/cache"
)

// Cache backends selectable with CARDCROP_CACHE.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendS3    = "s3"
)

// DefaultMaxUploadBytes limits uploaded PDFs.
const DefaultMaxUploadBytes = 50 << 20

// Config holds service settings, read from the environment.
type Config struct {
	Addr           string
	MaxUploadBytes int64
	RequestTimeout time.Duration
	Pdftoppm       string

	// Cache selects where crop results and job artifacts live.
	Cache     string
	CacheDir  string
	KeyPrefix string
	Redis     cache.RedisConfig
	S3        cache.S3Config
}

// LoadConfig reads a .env file if present, then the environment.
func LoadConfig(logger *log.Logger) Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment variables")
	}

	return Config{
		Addr:           getEnv("CARDCROP_ADDR", ":8080"),
		MaxUploadBytes: int64(getEnvInt("CARDCROP_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
		RequestTimeout: getEnvDuration("CARDCROP_REQUEST_TIMEOUT", 2*time.Minute),
		Pdftoppm:       getEnv("CARDCROP_PDFTOPPM", ""),
		Cache:          strings.ToLower(getEnv("CARDCROP_CACHE", BackendFile)),
		CacheDir:       getEnv("CARDCROP_CACHE_DIR", filepath.Join(os.TempDir(), "cardcrop-server")),
		KeyPrefix:      getEnv("CARDCROP_KEY_PREFIX", ""),
		Redis: cache.RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		S3: cache.S3Config{
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			Prefix:          getEnv("S3_PREFIX", "cardcrop/"),
		},
	}
}

// OpenCache connects the configured backend.
func (c Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	switch c.Cache {
	case BackendFile, "":
		return cache.NewFileCache(c.CacheDir)
	case BackendRedis:
		return cache.NewRedisCache(ctx, c.Redis)
	case BackendS3:
		return cache.NewS3Cache(ctx, c.S3)
	}
	return nil, fmt.Errorf("unknown cache backend %q (want file, redis or s3)", c.Cache)
}

// Keyer returns the key derivation for the service, scoped by KeyPrefix
// when several deployments share a backend.
func (c Config) Keyer() cache.Keyer {
	if c.KeyPrefix == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), c.KeyPrefix)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
