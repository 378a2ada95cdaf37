package auth

import (
	"errors"
	"testing"
	"time"
)

func TestMintAndVerifyInvite(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.MintInvite("den")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	room, err := svc.VerifyInvite(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if room != "den" {
		t.Fatalf("expected room den, got %s", room)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a").MintInvite("den")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	if _, err := NewTokenService("secret-b").VerifyInvite(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService("test-secret")
	base := time.Unix(1_700_000_000, 0)
	svc.nowFn = func() time.Time { return base }

	token, err := svc.MintInvite("den")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	svc.nowFn = func() time.Time { return base.Add(DefaultInviteTTL + time.Minute) }
	if _, err := svc.VerifyInvite(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret")

	if _, err := svc.VerifyInvite("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
