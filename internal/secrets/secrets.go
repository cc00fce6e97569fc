// Package secrets abstracts where sensitive configuration values come
// from. Production reads them from Vault's KV v2 engine; development
// and tests fall back to environment variables.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// ErrNotFound signals a missing secret or key.
var ErrNotFound = errors.New("secrets: not found")

// Provider fetches a single named value from a secret path.
type Provider interface {
	GetSecret(ctx context.Context, path, key string) (string, error)
}

// VaultProvider reads from a KV v2 mount.
type VaultProvider struct {
	client *vault.Client
	mount  string
}

// NewVaultProvider connects to Vault at addr with the given token. An
// empty mount defaults to "secret".
func NewVaultProvider(addr, token, mount string) (*VaultProvider, error) {
	cfg := vault.DefaultConfig()
	cfg.Address = addr
	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("secrets: vault client: %w", err)
	}
	client.SetToken(token)
	if mount == "" {
		mount = "secret"
	}
	return &VaultProvider{client: client, mount: mount}, nil
}

func (p *VaultProvider) GetSecret(ctx context.Context, path, key string) (string, error) {
	kv, err := p.client.KVv2(p.mount).Get(ctx, path)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("secrets: read %s: %w", path, err)
	}
	v, ok := kv.Data[key]
	if !ok {
		return "", ErrNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("secrets: %s/%s is not a string", path, key)
	}
	return s, nil
}

// EnvProvider maps path/key pairs onto environment variables:
// ("app/auth", "jwt_secret") becomes APP_AUTH_JWT_SECRET.
type EnvProvider struct{}

func (EnvProvider) GetSecret(_ context.Context, path, key string) (string, error) {
	name := envName(path, key)
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return v, nil
}

func envName(path, key string) string {
	s := path + "_" + key
	s = strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(s)
	return strings.ToUpper(s)
}
