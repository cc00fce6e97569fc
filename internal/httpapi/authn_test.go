package httpapi

import (
	"testing"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc.def.ghi", "abc.def.ghi", true},
		{"  Bearer   spaced  ", "spaced", true},
		{"", "", false},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"abc.def.ghi", "", false},
	}
	for _, tc := range cases {
		got, err := extractBearerToken(tc.header)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("extractBearerToken(%q) = %q, %v; want %q", tc.header, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("extractBearerToken(%q) expected error", tc.header)
		}
	}
}

func TestIsPublicPath(t *testing.T) {
	public := []string{"/healthz", "/readyz", "/metrics", "/v1/auth/login", "/v1/auth/register", "/v1/auth/refresh"}
	for _, p := range public {
		if !isPublicPath(p) {
			t.Fatalf("%s should be public", p)
		}
	}
	private := []string{"/v1/auth/me", "/v1/auth/logout", "/v1/users", "/v1/users/abc"}
	for _, p := range private {
		if isPublicPath(p) {
			t.Fatalf("%s should require authentication", p)
		}
	}
}
