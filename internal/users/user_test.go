package users

import (
	"testing"
	"time"
)

func TestEntityTransitionsStampUpdatedAt(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	u := &User{Active: true, CreatedAt: created, UpdatedAt: created}

	later := created.Add(time.Hour)
	u.Deactivate(later)
	if u.Active || !u.UpdatedAt.Equal(later) {
		t.Fatalf("Deactivate: active=%v updated=%v", u.Active, u.UpdatedAt)
	}

	later = later.Add(time.Hour)
	u.Activate(later)
	if !u.Active || !u.UpdatedAt.Equal(later) {
		t.Fatalf("Activate: active=%v updated=%v", u.Active, u.UpdatedAt)
	}

	later = later.Add(time.Hour)
	u.VerifyEmail(later)
	if !u.Verified || !u.UpdatedAt.Equal(later) {
		t.Fatalf("VerifyEmail: verified=%v updated=%v", u.Verified, u.UpdatedAt)
	}

	later = later.Add(time.Hour)
	u.TouchLogin(later)
	if u.LastLoginAt == nil || !u.LastLoginAt.Equal(later) || !u.UpdatedAt.Equal(later) {
		t.Fatalf("TouchLogin: last=%v updated=%v", u.LastLoginAt, u.UpdatedAt)
	}
}

func TestFullName(t *testing.T) {
	cases := []struct {
		first, last, want string
	}{
		{"Ada", "Lovelace", "Ada Lovelace"},
		{"Ada", "", "Ada"},
		{"", "Lovelace", "Lovelace"},
		{"", "", ""},
	}
	for _, tc := range cases {
		u := &User{FirstName: tc.first, LastName: tc.last}
		if got := u.FullName(); got != tc.want {
			t.Fatalf("FullName(%q, %q) = %q, want %q", tc.first, tc.last, got, tc.want)
		}
	}
}
