package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Env       string
	Addr      string
	DBDSN     string
	RedisAddr string
	LogLevel  string

	FrontendURL *url.URL

	JWTAccessSecret  string
	JWTRefreshSecret string
	RefreshTokenTTL  time.Duration

	MaxLoginAttempts int
	AccountLockTime  time.Duration
	MaxOTPAttempts   int

	DeliveryFee decimal.Decimal

	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	SenderEmail string
}

func Load() (Config, error) {
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:              getenv("APP_ENV"),
		Addr:             getenv("APP_ADDR"),
		DBDSN:            getenv("APP_DB_DSN"),
		RedisAddr:        getenv("APP_REDIS_ADDR"),
		LogLevel:         getenv("APP_LOG_LEVEL"),
		JWTAccessSecret:  getenv("APP_JWT_ACCESS_SECRET"),
		JWTRefreshSecret: getenv("APP_JWT_REFRESH_SECRET"),
		SMTPHost:         getenv("APP_SMTP_HOST"),
		SMTPUser:         getenv("APP_SMTP_USER"),
		SMTPPass:         getenv("APP_SMTP_PASS"),
		SenderEmail:      strings.TrimSpace(strings.ToLower(getenv("APP_SENDER_EMAIL"))),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}

	frontendRaw := getenv("APP_FRONTEND_URL")
	if frontendRaw == "" {
		frontendRaw = "http://localhost:5173/"
	}
	parsed, err := url.Parse(frontendRaw)
	if err != nil {
		return Config{}, fmt.Errorf("APP_FRONTEND_URL: %w", err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return Config{}, errors.New("APP_FRONTEND_URL: must be an absolute URL")
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	cfg.FrontendURL = parsed

	days, err := intEnv(getenv, "APP_REFRESH_TOKEN_DAYS", 7)
	if err != nil {
		return Config{}, err
	}
	if days <= 0 {
		return Config{}, errors.New("APP_REFRESH_TOKEN_DAYS: must be > 0")
	}
	cfg.RefreshTokenTTL = time.Duration(days) * 24 * time.Hour

	cfg.MaxLoginAttempts, err = intEnv(getenv, "APP_MAX_LOGIN_ATTEMPTS", 5)
	if err != nil {
		return Config{}, err
	}
	lockMinutes, err := intEnv(getenv, "APP_ACCOUNT_LOCK_MINUTES", 15)
	if err != nil {
		return Config{}, err
	}
	cfg.AccountLockTime = time.Duration(lockMinutes) * time.Minute
	cfg.MaxOTPAttempts, err = intEnv(getenv, "APP_MAX_OTP_ATTEMPTS", 5)
	if err != nil {
		return Config{}, err
	}
	if cfg.MaxLoginAttempts <= 0 || lockMinutes <= 0 || cfg.MaxOTPAttempts <= 0 {
		return Config{}, errors.New("login/OTP thresholds must be > 0")
	}

	feeRaw := getenv("APP_DELIVERY_FEE")
	if feeRaw == "" {
		feeRaw = "2"
	}
	cfg.DeliveryFee, err = decimal.NewFromString(feeRaw)
	if err != nil {
		return Config{}, fmt.Errorf("APP_DELIVERY_FEE: %w", err)
	}
	if cfg.DeliveryFee.IsNegative() {
		return Config{}, errors.New("APP_DELIVERY_FEE: must be >= 0")
	}

	cfg.SMTPPort, err = intEnv(getenv, "APP_SMTP_PORT", 587)
	if err != nil {
		return Config{}, err
	}
	if cfg.SenderEmail == "" {
		cfg.SenderEmail = strings.TrimSpace(strings.ToLower(cfg.SMTPUser))
	}

	if cfg.JWTAccessSecret != "" && cfg.JWTAccessSecret == cfg.JWTRefreshSecret {
		return Config{}, errors.New("APP_JWT_REFRESH_SECRET: must differ from APP_JWT_ACCESS_SECRET")
	}

	if cfg.IsProd() {
		if cfg.DBDSN == "" {
			return Config{}, errors.New("APP_DB_DSN: required in prod")
		}
		if len(cfg.JWTAccessSecret) < 32 {
			return Config{}, errors.New("APP_JWT_ACCESS_SECRET: must be at least 32 bytes in prod")
		}
		if len(cfg.JWTRefreshSecret) < 32 {
			return Config{}, errors.New("APP_JWT_REFRESH_SECRET: must be at least 32 bytes in prod")
		}
	}

	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func intEnv(getenv func(string) string, key string, def int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
