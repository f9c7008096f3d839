// config/config.go
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

type Config struct {
	Port           string
	DatabaseURL    string
	AllowedOrigins []string
	ServiceToken   string
	LogLevel       string

	// Account sync; disabled when SyncServiceURL is empty.
	SyncServiceURL   string
	SyncEndpointPath string
	SyncInterval     time.Duration

	RedisURL string

	SweepInterval      time.Duration
	ZeroProgressPolicy string

	R2 R2Config
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether enough is set to talk to R2.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// Load reads a .env file if one exists, then the environment. The returned
// bool is false when no .env file was found.
func Load() (*Config, bool, error) {
	foundDotenv := godotenv.Load() == nil

	cfg := &Config{
		Port:               getenv("PORT", "5200"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		AllowedOrigins:     splitList(getenv("ALLOWED_ORIGINS", "http://localhost:3000")),
		ServiceToken:       os.Getenv("SERVICE_TOKEN"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		SyncServiceURL:     os.Getenv("SYNC_SERVICE_URL"),
		SyncEndpointPath:   getenv("SYNC_ENDPOINT_PATH", "/api/v1/public/profiles"),
		RedisURL:           os.Getenv("REDIS_URL"),
		ZeroProgressPolicy: getenv("SETTLEMENT_ZERO_PROGRESS_POLICY", "refund"),
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},
	}

	var err error
	if cfg.SweepInterval, err = durationEnv("SETTLEMENT_SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, foundDotenv, err
	}
	if cfg.SyncInterval, err = durationEnv("SYNC_INTERVAL", time.Minute); err != nil {
		return nil, foundDotenv, err
	}

	if cfg.DatabaseURL == "" {
		return nil, foundDotenv, errors.New("DATABASE_URL environment variable not set")
	}
	if cfg.ServiceToken == "" {
		return nil, foundDotenv, errors.New("SERVICE_TOKEN environment variable not set")
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, foundDotenv, fmt.Errorf("invalid PORT %q: %w", cfg.Port, err)
	}
	return cfg, foundDotenv, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// durationEnv accepts Go durations ("90s") or plain seconds ("90").
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
