package config

import (
	"testing"
	"time"
)

func getenvFrom(env map[string]string) func(string) string {
	return func(k string) string { return env[k] }
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv(getenvFrom(map[string]string{}))
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.Env != "dev" {
		t.Fatalf("Env: got %q", cfg.Env)
	}
	if cfg.Addr != "127.0.0.1:8080" {
		t.Fatalf("Addr: got %q", cfg.Addr)
	}
	if cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Fatalf("RefreshTokenTTL: got %v", cfg.RefreshTokenTTL)
	}
	if cfg.MaxLoginAttempts != 5 {
		t.Fatalf("MaxLoginAttempts: got %d", cfg.MaxLoginAttempts)
	}
	if cfg.AccountLockTime != 15*time.Minute {
		t.Fatalf("AccountLockTime: got %v", cfg.AccountLockTime)
	}
	if cfg.MaxOTPAttempts != 5 {
		t.Fatalf("MaxOTPAttempts: got %d", cfg.MaxOTPAttempts)
	}
	if cfg.DeliveryFee.String() != "2" {
		t.Fatalf("DeliveryFee: got %s", cfg.DeliveryFee)
	}
	if cfg.FrontendURL == nil || cfg.FrontendURL.Host != "localhost:5173" {
		t.Fatalf("FrontendURL: got %v", cfg.FrontendURL)
	}
}

func TestLoadFromEnv_SecretsMustDiffer(t *testing.T) {
	_, err := LoadFromEnv(getenvFrom(map[string]string{
		"APP_JWT_ACCESS_SECRET":  "same-secret-same-secret-same-sec",
		"APP_JWT_REFRESH_SECRET": "same-secret-same-secret-same-sec",
	}))
	if err == nil {
		t.Fatalf("expected error for identical access/refresh secrets")
	}
}

func TestLoadFromEnv_ProdRequirements(t *testing.T) {
	base := map[string]string{
		"APP_ENV":                "prod",
		"APP_DB_DSN":             "postgres://u:p@127.0.0.1:5432/forkfast",
		"APP_JWT_ACCESS_SECRET":  "access-secret-access-secret-0001",
		"APP_JWT_REFRESH_SECRET": "refresh-secret-refresh-secret-01",
	}

	if _, err := LoadFromEnv(getenvFrom(base)); err != nil {
		t.Fatalf("LoadFromEnv prod: %v", err)
	}

	for _, missing := range []string{"APP_DB_DSN", "APP_JWT_ACCESS_SECRET", "APP_JWT_REFRESH_SECRET"} {
		env := map[string]string{}
		for k, v := range base {
			env[k] = v
		}
		delete(env, missing)
		if _, err := LoadFromEnv(getenvFrom(env)); err == nil {
			t.Fatalf("expected error when %s is missing in prod", missing)
		}
	}
}

func TestLoadFromEnv_RefreshDays(t *testing.T) {
	cfg, err := LoadFromEnv(getenvFrom(map[string]string{"APP_REFRESH_TOKEN_DAYS": "30"}))
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.RefreshTokenTTL != 30*24*time.Hour {
		t.Fatalf("RefreshTokenTTL: got %v", cfg.RefreshTokenTTL)
	}

	if _, err := LoadFromEnv(getenvFrom(map[string]string{"APP_REFRESH_TOKEN_DAYS": "0"})); err == nil {
		t.Fatalf("expected error for zero refresh days")
	}
}

func TestLoadFromEnv_BadEnv(t *testing.T) {
	if _, err := LoadFromEnv(getenvFrom(map[string]string{"APP_ENV": "staging"})); err == nil {
		t.Fatalf("expected error for unknown APP_ENV")
	}
}
