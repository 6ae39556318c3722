package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)
	token, err := s.Sign(Claims{
		Email:            "agent@example.com",
		Method:           "code",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "agent@example.com"},
	})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "agent@example.com" || claims.Email != "agent@example.com" || claims.Method != "code" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Fatalf("expected exp and iat to be set")
	}
}

func TestVerifyRejects(t *testing.T) {
	t.Parallel()

	signer := NewSigner("test-secret", time.Hour)
	good, err := signer.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "a"}})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	expired := NewSigner("test-secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "a"}})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	other, err := NewSigner("other-secret", time.Hour).Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "a"}})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "a",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("none token: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not.a.token"},
		{name: "tampered", token: good + "A"},
		{name: "expired", token: old},
		{name: "wrong secret", token: other},
		{name: "alg none", token: unsigned},
		{name: "empty", token: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := signer.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("Verify(%s) = %v, want ErrInvalidToken", tt.name, err)
			}
		})
	}
}

func TestUnconfiguredSigner(t *testing.T) {
	s := NewSigner("   ", time.Hour)
	if s.Configured() {
		t.Fatalf("blank secret should not be configured")
	}
	if _, err := s.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "a"}}); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("Sign = %v, want ErrMissingSecret", err)
	}
	if _, err := s.Verify("x"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("Verify = %v, want ErrMissingSecret", err)
	}
}

func TestSignRequiresSubject(t *testing.T) {
	_, err := NewSigner("s", time.Hour).Sign(Claims{Email: "a@b.c"})
	if err == nil || !strings.Contains(err.Error(), "sub") {
		t.Fatalf("expected sub error, got %v", err)
	}
}
