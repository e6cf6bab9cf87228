package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	UsageBackendMySQL = "mysql"
	UsageBackendRedis = "redis"
)

// Config aggregates runtime configuration for the gateway and its providers.
type Config struct {
	HTTPListenAddr          string
	AdminListenAddr         string
	AdminUsername           string
	AdminPassword           string
	LogLevel                string
	MySQLDSN                string
	UsageBackend            string
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	FirebaseProjectID       string
	FirebaseCredentialsFile string
	LLMAPIKey               string
	LLMBaseURL              string
	LLMModel                string
	ClipdropAPIKey          string
	ClipdropBaseURL         string
	RequestTimeout          time.Duration
	FreeUsageLimit          int
	MaxUploadBytes          int64
	UploadTmpDir            string
	S3Endpoint              string
	S3Region                string
	S3AccessKey             string
	S3SecretKey             string
	S3Bucket                string
	S3PublicBaseURL         string
	S3UsePathStyle          bool
	S3Prefix                string
	CDNTransformBaseURL     string
}

// Load reads configuration from environment variables, applying sane defaults.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	const (
		defaultLLMBaseURL      = "https://generativelanguage.googleapis.com/v1beta/openai/"
		defaultClipdropBaseURL = "https://clipdrop-api.co"
	)

	cfg := Config{
		HTTPListenAddr:          getEnv("HTTP_LISTEN_ADDR", ":8080"),
		AdminListenAddr:         os.Getenv("ADMIN_LISTEN_ADDR"),
		AdminUsername:           os.Getenv("ADMIN_USERNAME"),
		AdminPassword:           os.Getenv("ADMIN_PASSWORD"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		UsageBackend:            strings.ToLower(getEnv("USAGE_BACKEND", UsageBackendMySQL)),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 getInt("REDIS_DB", 0),
		FirebaseCredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),
		LLMBaseURL:              normalizeBaseURL(getEnv("LLM_BASE_URL", defaultLLMBaseURL), defaultLLMBaseURL),
		LLMModel:                getEnv("LLM_MODEL", "gemini-2.0-flash"),
		ClipdropBaseURL:         normalizeBaseURL(getEnv("CLIPDROP_BASE_URL", defaultClipdropBaseURL), defaultClipdropBaseURL),
		RequestTimeout:          time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 60)),
		FreeUsageLimit:          getInt("FREE_USAGE_LIMIT", 10),
		MaxUploadBytes:          int64(getInt("MAX_UPLOAD_MB", 5)) << 20,
		UploadTmpDir:            getEnv("UPLOAD_TMP_DIR", os.TempDir()),
		S3Endpoint:              getEnv("S3_ENDPOINT", ""),
		S3Region:                os.Getenv("S3_REGION"),
		S3AccessKey:             os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:             os.Getenv("S3_SECRET_KEY"),
		S3Bucket:                os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:         os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:          getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:                getEnv("S3_PREFIX", "creations"),
		CDNTransformBaseURL:     os.Getenv("CDN_TRANSFORM_BASE_URL"),
	}

	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.FirebaseProjectID = os.Getenv("FIREBASE_PROJECT_ID")
	cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")
	cfg.ClipdropAPIKey = os.Getenv("CLIPDROP_API_KEY")

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	if c.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if c.FirebaseProjectID == "" {
		missing = append(missing, "FIREBASE_PROJECT_ID")
	}
	if c.LLMAPIKey == "" {
		missing = append(missing, "LLM_API_KEY")
	}
	if c.ClipdropAPIKey == "" {
		missing = append(missing, "CLIPDROP_API_KEY")
	}
	if c.S3Region == "" {
		missing = append(missing, "S3_REGION")
	}
	if c.S3AccessKey == "" {
		missing = append(missing, "S3_ACCESS_KEY")
	}
	if c.S3SecretKey == "" {
		missing = append(missing, "S3_SECRET_KEY")
	}
	if c.S3Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if c.S3PublicBaseURL == "" {
		missing = append(missing, "S3_PUBLIC_BASE_URL")
	}
	if c.UsageBackend == UsageBackendRedis && c.RedisAddr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if c.AdminListenAddr != "" {
		if c.AdminUsername == "" {
			missing = append(missing, "ADMIN_USERNAME")
		}
		if c.AdminPassword == "" {
			missing = append(missing, "ADMIN_PASSWORD")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}

	switch c.UsageBackend {
	case UsageBackendMySQL, UsageBackendRedis:
	default:
		return fmt.Errorf("unsupported usage backend: %s", c.UsageBackend)
	}
	if c.FreeUsageLimit < 0 {
		return fmt.Errorf("FREE_USAGE_LIMIT must not be negative")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

// AdminEnabled reports whether the plan management API should be started.
func (c Config) AdminEnabled() bool {
	return c.AdminListenAddr != ""
}

// normalizeBaseURL adds a missing scheme and falls back when the value cannot be parsed.
func normalizeBaseURL(raw string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		host, rest, _ := strings.Cut(parsed.Path, "/")
		parsed.Host = host
		parsed.Path = ""
		if rest != "" {
			parsed.Path = "/" + rest
		}
	}
	if parsed.Host == "" {
		return fallback
	}

	return parsed.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// loadEnvFile seeds the environment from the first env file found.
// A missing file is fine; an explicitly configured path that cannot be read is not.
func loadEnvFile() error {
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		if err := godotenv.Overload(custom); err != nil {
			return fmt.Errorf("load env file %s: %w", custom, err)
		}
		return nil
	}

	candidates := []string{
		filepath.Join("configs", ".env"),
		".env",
	}
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}
