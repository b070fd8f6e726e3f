package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.GenerateToken("u1", "owner")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.OwnerRef != "u1" {
		t.Fatalf("expected owner ref u1, got %q", claims.OwnerRef)
	}
	if claims.Role != "owner" {
		t.Fatalf("expected role owner, got %q", claims.Role)
	}
}

func TestGenerateRequiresOwnerRef(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	if _, err := svc.GenerateToken("", "owner"); err == nil {
		t.Fatal("expected error for empty owner ref")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenService("secret-a", time.Hour)
	verifier := NewTokenService("secret-b", time.Hour)

	token, err := issuer.GenerateToken("u1", "owner")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := verifier.ValidateToken(token); err == nil {
		t.Fatal("expected validation failure with wrong secret")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	if _, err := svc.ValidateToken("not-a-token"); err == nil {
		t.Fatal("expected validation failure for garbage token")
	}
}
