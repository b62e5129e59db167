package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/posrapor/posrapor/internal/shared"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Hour)

	raw, err := tokens.Issue(42, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	userID, err := tokens.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != 42 {
		t.Fatalf("verified user id = %d, want 42", userID)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)

	raw, err := issuer.Issue(42, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(raw); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Minute)

	raw, err := tokens.Issue(42, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tokens.Verify(raw); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for expired token, got %v", err)
	}
}

func TestTokenRejectsGarbage(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Hour)
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := tokens.Verify(raw); !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Fatalf("Verify(%q): expected ErrInvalidCredentials, got %v", raw, err)
		}
	}
}
