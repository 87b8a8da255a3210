package auth

import (
	"testing"
	"time"

	"github.com/AutoFixLink/AutoFixLink/internal/common/config"
)

func TestGenerateAndVerifyAccessToken(t *testing.T) {
	cfg := config.AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		Issuer:    "autofixlink",
		Audience:  "autofixlink",
	}

	token, exp, err := GenerateAccessToken(cfg, "eng-1", "Kim", []string{"engineer"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}
	if exp.Before(time.Now()) {
		t.Fatalf("expected exp in future")
	}

	claims, err := VerifyAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if claims.Subject != "eng-1" {
		t.Fatalf("subject mismatch: %s", claims.Subject)
	}
	if claims.Name != "Kim" {
		t.Fatalf("name mismatch: %s", claims.Name)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "engineer" {
		t.Fatalf("roles mismatch: %#v", claims.Roles)
	}
}

func TestVerifyAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "secret-a", Issuer: "autofixlink"}
	token, _, err := GenerateAccessToken(cfg, "eng-1", "", nil, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	bad := config.AuthConfig{JWTSecret: "secret-b", Issuer: "autofixlink"}
	if _, err := VerifyAccessToken(bad, token); err == nil {
		t.Fatalf("expected verify failure with wrong secret")
	}
}

func TestVerifyAccessTokenRejectsWrongIssuer(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "secret", Issuer: "other"}
	token, _, err := GenerateAccessToken(cfg, "eng-1", "", nil, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	check := config.AuthConfig{JWTSecret: "secret", Issuer: "autofixlink"}
	if _, err := VerifyAccessToken(check, token); err == nil {
		t.Fatalf("expected issuer mismatch failure")
	}
}

func TestSessionTokenSource(t *testing.T) {
	src := &SessionTokenSource{}
	if got := src.AccessToken(); got != "" {
		t.Fatalf("expected empty token before login, got %q", got)
	}
	src.Update("tok-1")
	if got := src.AccessToken(); got != "tok-1" {
		t.Fatalf("token = %q, want tok-1", got)
	}
	src.Update("")
	if got := src.AccessToken(); got != "" {
		t.Fatalf("expected cleared token, got %q", got)
	}
}
