package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	token, exp, err := tm.GenerateToken(7, domain.RoleEmployee)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(exp) <= 29*time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 7 || claims.Role != domain.RoleEmployee || claims.Subject != "7" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", 30).GenerateToken(1, domain.RoleUser)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewTokenManager("two", 30).ParseToken(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	issued := time.Now().Add(-2 * time.Hour)
	tm.now = func() time.Time { return issued }
	token, _, err := tm.GenerateToken(1, domain.RoleUser)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	tm.now = time.Now
	if _, err := tm.ParseToken(token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatal("password stored in plaintext")
	}
	if err := ComparePassword(hash, "s3cret-pass"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("compare wrong = %v, want mismatch", err)
	}
	if _, err := HashPassword(strings.Repeat("x", 73), 4); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("long password err = %v", err)
	}
}
