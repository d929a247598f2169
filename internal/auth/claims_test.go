package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-32-characters-long"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateAccessToken("service-cli", RoleAdmin, testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("GenerateAccessToken() returned empty token")
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	if claims.Subject != "service-cli" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "service-cli")
	}
	if claims.Role != RoleAdmin {
		t.Errorf("Role = %q, want %q", claims.Role, RoleAdmin)
	}
	if claims.ID == "" {
		t.Error("token ID (jti) is empty")
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(time.Now()) {
		t.Error("expiry missing or not in the future")
	}
}

func TestGenerateAccessToken_EmptySubject(t *testing.T) {
	_, err := GenerateAccessToken("", RoleAdmin, testSecret, 15)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("GenerateAccessToken() error = %v, want ErrTokenInvalid", err)
	}
}

func TestGenerateAccessToken_DefaultTTL(t *testing.T) {
	token, err := GenerateAccessToken("service-cli", RoleViewer, testSecret, 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining < 14*time.Minute || remaining > 16*time.Minute {
		t.Errorf("default TTL = %v, want ~15m", remaining)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("service-cli", RoleAdmin, testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	_, err = ParseToken(token, "a-completely-different-secret-value")
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
	}
}

func TestParseToken_Expired(t *testing.T) {
	now := time.Now()
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "service-cli",
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-30 * time.Minute)),
			ID:        "expired-token",
		},
		Role: RoleAdmin,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}

	_, err = ParseToken(signed, testSecret)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
	}
}

func TestParseToken_WrongAlgorithm(t *testing.T) {
	// alg=none tokens must be rejected outright.
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "service-cli",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: RoleAdmin,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}

	if _, err := ParseToken(signed, testSecret); err == nil {
		t.Error("ParseToken() accepted alg=none token")
	}
}

func TestParseToken_MissingRole(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "service-cli",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}

	_, err = ParseToken(signed, testSecret)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
	}
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("not.a.token", testSecret)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Subject:   "vendor-api",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	// Signed with a key we don't know; TokenExpiry must still read exp.
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("vendor-private-key"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}

	got, err := TokenExpiry(signed)
	if err != nil {
		t.Fatalf("TokenExpiry() error = %v", err)
	}
	if !got.Equal(exp) {
		t.Errorf("TokenExpiry() = %v, want %v", got, exp)
	}
}

func TestTokenExpiry_MissingExp(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: "vendor-api"}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("vendor-private-key"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}

	if _, err := TokenExpiry(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("TokenExpiry() error = %v, want ErrTokenInvalid", err)
	}
}

func TestTokenExpiry_Garbage(t *testing.T) {
	if _, err := TokenExpiry(strings.Repeat("x", 20)); err == nil {
		t.Error("TokenExpiry() accepted garbage input")
	}
}
