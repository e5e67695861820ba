package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ObjectStoreConfig describes the S3-compatible bucket that holds uploaded
// video and thumbnail assets.
type ObjectStoreConfig struct {
	Endpoint      string
	Region        string
	Bucket        string
	PublicBaseURL string
}

// IdentityConfig describes the external identity provider used to verify
// session tokens and look up subscriber profiles.
type IdentityConfig struct {
	SecretKey        string
	DirectoryBaseURL string
	ProfileCacheTTL  time.Duration
}

// Config captures the runtime settings for the service.
type Config struct {
	AppPort        int
	DatabaseURL    string
	MigrationDir   string
	SeedDir        string
	LogLevel       string
	CORSOrigin     string
	ObjectStore    ObjectStoreConfig
	Identity       IdentityConfig
	FFProbePath    string
	FFProbeTimeout time.Duration
	UploadTempDir  string
	MaxUploadBytes int64
}

// Load reads configuration from the environment, falling back to a local
// .env file when one is present.
func Load() (Config, error) {
	_ = godotenv.Load()

	port, err := getInt("CLIPSTREAM_PORT", 8080)
	if err != nil {
		return Config{}, err
	}

	cacheTTL, err := getDuration("CLIPSTREAM_IDENTITY_CACHE_TTL", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}

	probeTimeout, err := getDuration("CLIPSTREAM_FFPROBE_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	maxUpload, err := getInt64("CLIPSTREAM_MAX_UPLOAD_BYTES", 100<<20)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppPort:      port,
		DatabaseURL:  getString("CLIPSTREAM_DATABASE_URL", ""),
		MigrationDir: getString("CLIPSTREAM_MIGRATIONS", "migrations"),
		SeedDir:      getString("CLIPSTREAM_SEEDS", "seeds"),
		LogLevel:     getString("CLIPSTREAM_LOG_LEVEL", "info"),
		CORSOrigin:   getString("CLIPSTREAM_CORS_ORIGIN", "http://localhost:5173"),
		ObjectStore: ObjectStoreConfig{
			Endpoint:      getString("CLIPSTREAM_S3_ENDPOINT", ""),
			Region:        getString("CLIPSTREAM_S3_REGION", "us-east-1"),
			Bucket:        getString("CLIPSTREAM_S3_BUCKET", ""),
			PublicBaseURL: getString("CLIPSTREAM_S3_PUBLIC_URL", ""),
		},
		Identity: IdentityConfig{
			SecretKey:        getString("CLIPSTREAM_IDENTITY_SECRET", ""),
			DirectoryBaseURL: getString("CLIPSTREAM_IDENTITY_DIRECTORY_URL", ""),
			ProfileCacheTTL:  cacheTTL,
		},
		FFProbePath:    getString("CLIPSTREAM_FFPROBE_PATH", "ffprobe"),
		FFProbeTimeout: probeTimeout,
		UploadTempDir:  getString("CLIPSTREAM_UPLOAD_TEMP_DIR", os.TempDir()),
		MaxUploadBytes: maxUpload,
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("CLIPSTREAM_DATABASE_URL is required")
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func getInt64(key string, fallback int64) (int64, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}
