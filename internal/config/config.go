// Package config assembles runtime settings from the environment and
// the secrets provider. Plain knobs come from EEBOOK_* variables;
// credentials go through secrets.Provider so production can source them
// from Vault without code changes.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"eebook.org/internal/secrets"
)

// Config is the full runtime configuration of the API process.
type Config struct {
	HTTPAddr string

	PostgresDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret       []byte
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	CookieDomain string
	CookieSecure bool

	RateLimitRPS   float64
	RateLimitBurst int

	VaultAddr  string
	VaultToken string
	VaultMount string
}

const (
	secretPath   = "eebook/auth"
	jwtSecretKey = "jwt_secret"

	dbSecretPath  = "eebook/db"
	dbPasswordKey = "password"

	// dbPasswordPlaceholder in the DSN is replaced with the password
	// fetched from the secrets provider, keeping it out of the
	// environment in production.
	dbPasswordPlaceholder = "__DB_PASSWORD__"
)

// Load reads the environment, chooses a secrets provider (Vault when
// EEBOOK_VAULT_ADDR is set, env otherwise) and resolves credentials
// through it.
func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{
		HTTPAddr:        envDefault("EEBOOK_HTTP_ADDR", ":8080"),
		PostgresDSN:     os.Getenv("EEBOOK_PG_DSN"),
		RedisAddr:       envDefault("EEBOOK_REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("EEBOOK_REDIS_PASSWORD"),
		Issuer:          envDefault("EEBOOK_JWT_ISSUER", "eebook-users"),
		CookieDomain:    os.Getenv("EEBOOK_COOKIE_DOMAIN"),
		CookieSecure:    envDefault("EEBOOK_COOKIE_SECURE", "true") == "true",
		VaultAddr:       os.Getenv("EEBOOK_VAULT_ADDR"),
		VaultToken:      os.Getenv("EEBOOK_VAULT_TOKEN"),
		VaultMount:      envDefault("EEBOOK_VAULT_MOUNT", "secret"),
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 15 * 24 * time.Hour,
		RateLimitRPS:    10,
		RateLimitBurst:  20,
	}

	// The ledger and user store cannot run without Postgres; a missing
	// DSN must stop the process here, not on the first request.
	if cfg.PostgresDSN == "" {
		return nil, errors.New("config: EEBOOK_PG_DSN is required")
	}

	var err error
	if cfg.RedisDB, err = envInt("EEBOOK_REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.AccessTokenTTL, err = envDuration("EEBOOK_ACCESS_TTL", cfg.AccessTokenTTL); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = envDuration("EEBOOK_REFRESH_TTL", cfg.RefreshTokenTTL); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = envFloat("EEBOOK_RATE_LIMIT_RPS", cfg.RateLimitRPS); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = envInt("EEBOOK_RATE_LIMIT_BURST", cfg.RateLimitBurst); err != nil {
		return nil, err
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= cfg.AccessTokenTTL {
		return nil, errors.New("config: refresh TTL must exceed access TTL")
	}

	provider, err := cfg.secretsProvider()
	if err != nil {
		return nil, err
	}
	secret, err := provider.GetSecret(ctx, secretPath, jwtSecretKey)
	if err != nil {
		return nil, fmt.Errorf("config: jwt secret: %w", err)
	}
	if len(secret) < 32 {
		return nil, errors.New("config: jwt secret must be at least 32 bytes")
	}
	cfg.JWTSecret = []byte(secret)

	if strings.Contains(cfg.PostgresDSN, dbPasswordPlaceholder) {
		pw, err := provider.GetSecret(ctx, dbSecretPath, dbPasswordKey)
		if err != nil {
			return nil, fmt.Errorf("config: database password: %w", err)
		}
		cfg.PostgresDSN = strings.ReplaceAll(cfg.PostgresDSN, dbPasswordPlaceholder, pw)
	}

	return cfg, nil
}

func (c *Config) secretsProvider() (secrets.Provider, error) {
	if c.VaultAddr == "" {
		return secrets.EnvProvider{}, nil
	}
	token := c.VaultToken
	if token == "" {
		if path := os.Getenv("EEBOOK_VAULT_TOKEN_FILE"); path != "" {
			b, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("config: vault token file: %w", err)
			}
			token = strings.TrimSpace(string(b))
		}
	}
	return secrets.NewVaultProvider(c.VaultAddr, token, c.VaultMount)
}

func envDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	return n, nil
}

func envFloat(name string, def float64) (float64, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	return f, nil
}

func envDuration(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", name, err)
	}
	return d, nil
}
