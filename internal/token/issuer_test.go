package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	return issuer
}

func TestNewIssuer_Misconfigured(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{name: "empty secret", secret: ""},
		{name: "insecure default", secret: "default_jwt_secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIssuer(tt.secret, time.Minute)
			if !errors.Is(err, ErrMisconfigured) {
				t.Errorf("expected ErrMisconfigured, got %v", err)
			}
		})
	}
}

func TestIssuer_RoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	tests := []struct {
		name     string
		identity string
		room     string
	}{
		{name: "identity and room", identity: "u1", room: "r1"},
		{name: "identity only", identity: "u2", room: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := issuer.Issue(tt.identity, tt.room)
			if err != nil {
				t.Fatalf("Issue failed: %v", err)
			}

			claims, err := issuer.Verify(raw)
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if claims.Identity() != tt.identity {
				t.Errorf("expected identity %q, got %q", tt.identity, claims.Identity())
			}
			if claims.Room != tt.room {
				t.Errorf("expected room %q, got %q", tt.room, claims.Room)
			}
		})
	}
}

func TestIssuer_Expired(t *testing.T) {
	issuer := newTestIssuer(t)

	issued := time.Now().Add(-10 * time.Minute)
	issuer.now = func() time.Time { return issued }
	raw, err := issuer.Issue("u1", "r1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Still inside the validity window.
	issuer.now = func() time.Time { return issued.Add(30 * time.Second) }
	if _, err := issuer.Verify(raw); err != nil {
		t.Errorf("token should verify before expiry, got %v", err)
	}

	// Strictly after expiry.
	issuer.now = time.Now
	_, err = issuer.Verify(raw)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
}

func TestIssuer_Invalid(t *testing.T) {
	issuer := newTestIssuer(t)
	other, err := NewIssuer("other-secret", time.Minute)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	raw, err := issuer.Issue("u1", "r1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	tamperPayload := func(raw string) string {
		parts := strings.Split(raw, ".")
		payload := []byte(parts[1])
		if payload[0] == 'A' {
			payload[0] = 'B'
		} else {
			payload[0] = 'A'
		}
		return parts[0] + "." + string(payload) + "." + parts[2]
	}

	foreign, err := other.Issue("u1", "r1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	tests := []struct {
		name string
		raw  string
	}{
		{name: "signed with different secret", raw: foreign},
		{name: "tampered payload", raw: tamperPayload(raw)},
		{name: "garbage", raw: "not.a.token"},
		{name: "empty", raw: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Verify(tt.raw)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestIssuer_MissingIdentity(t *testing.T) {
	issuer := newTestIssuer(t)

	raw, err := issuer.Issue("", "r1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := issuer.Verify(raw); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for empty identity, got %v", err)
	}
}
