package secrets

import (
	"context"
	"errors"
	"testing"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("EEBOOK_AUTH_JWT_SECRET", "from-env")

	v, err := EnvProvider{}.GetSecret(context.Background(), "eebook/auth", "jwt_secret")
	if err != nil {
		t.Fatalf("GetSecret: %v", err)
	}
	if v != "from-env" {
		t.Fatalf("unexpected value: %q", v)
	}

	_, err = EnvProvider{}.GetSecret(context.Background(), "eebook/auth", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEnvName(t *testing.T) {
	cases := []struct {
		path, key, want string
	}{
		{"eebook/auth", "jwt_secret", "EEBOOK_AUTH_JWT_SECRET"},
		{"db-main", "dsn", "DB_MAIN_DSN"},
		{"a.b", "c", "A_B_C"},
	}
	for _, tc := range cases {
		if got := envName(tc.path, tc.key); got != tc.want {
			t.Fatalf("envName(%q, %q) = %q, want %q", tc.path, tc.key, got, tc.want)
		}
	}
}
