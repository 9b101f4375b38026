// Package config loads application configuration from the environment. A
// .env file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Env     string
	Port    string
	BaseURL string

	DBDriver string
	DSN      string

	SessionSecret string
	SessionMaxAge int

	GoogleKey    string
	GoogleSecret string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string

	RedisAddr     string
	RedisPassword string

	Storage StorageConfig

	BcryptCost             int
	RateLimitPerMinute     int
	AuthRateLimitPerMinute int
}

// StorageConfig points at an S3 compatible bucket. Cloudflare R2 is assumed
// when Endpoint is empty and AccountID is set.
type StorageConfig struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	PublicURL       string
	Endpoint        string
	Region          string
}

func (s StorageConfig) Enabled() bool {
	return s.Bucket != "" && s.AccessKeyID != "" && s.AccessKeySecret != "" && (s.Endpoint != "" || s.AccountID != "")
}

func (c Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

// Load reads the .env file (if any) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Env:           env("APP_ENV", "development"),
		Port:          env("PORT", "3000"),
		BaseURL:       strings.TrimRight(env("BASE_URL", "http://localhost:3000"), "/"),
		DBDriver:      strings.ToLower(env("DB_DRIVER", "postgres")),
		DSN:           os.Getenv("DSN"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		GoogleKey:     os.Getenv("GOOGLE_KEY"),
		GoogleSecret:  os.Getenv("GOOGLE_SECRET"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: strings.TrimRight(env("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
		OpenAIModel:   env("OPENAI_MODEL", "gpt-4-turbo"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		Storage: StorageConfig{
			AccountID:       os.Getenv("ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("BUCKET_NAME"),
			PublicURL:       os.Getenv("PUBLIC_URL"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			Region:          env("S3_REGION", "auto"),
		},
	}

	var errs []error
	var err error
	if cfg.SessionMaxAge, err = envInt("SESSION_MAX_AGE", 60*60*24*7); err != nil {
		errs = append(errs, err)
	}
	if cfg.BcryptCost, err = envInt("BCRYPT_COST", bcrypt.DefaultCost); err != nil {
		errs = append(errs, err)
	}
	if cfg.RateLimitPerMinute, err = envInt("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		errs = append(errs, err)
	}
	if cfg.AuthRateLimitPerMinute, err = envInt("AUTH_RATE_LIMIT_PER_MINUTE", 20); err != nil {
		errs = append(errs, err)
	}

	var missing []string
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if cfg.DSN == "" {
		missing = append(missing, "DSN")
	}
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", ")))
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver))
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q", key, s)
	}
	return n, nil
}
