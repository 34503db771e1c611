// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tetherhq/tether/lib/config"
)

func signToken(t *testing.T, secret, subject string, expiry time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": subject}
	if expiry != 0 {
		claims["exp"] = time.Now().Add(expiry).Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func hashToken(t *testing.T, token string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func TestJWTAuthenticator(t *testing.T) {
	authenticator, err := NewAuthenticator(config.AuthConfig{JWTSecret: "hush"})
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}

	clientID, err := authenticator.Verify(signToken(t, "hush", "dana", time.Hour))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if clientID != "dana" {
		t.Fatalf("clientID = %q, want %q", clientID, "dana")
	}

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signToken(t, "other", "dana", time.Hour)},
		{"expired", signToken(t, "hush", "dana", -time.Hour)},
		{"empty subject", signToken(t, "hush", "", time.Hour)},
		{"garbage", "not-a-token"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := authenticator.Verify(test.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("Verify error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestStaticAuthenticator(t *testing.T) {
	authenticator, err := NewAuthenticator(config.AuthConfig{TokenHash: hashToken(t, "shared-token")})
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}

	first, err := authenticator.Verify("shared-token")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	second, err := authenticator.Verify("shared-token")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !strings.HasPrefix(first, "client-") || first == second {
		t.Fatalf("identities = %q, %q; want distinct generated ids", first, second)
	}

	if _, err := authenticator.Verify("wrong"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify error = %v, want ErrInvalidToken", err)
	}
}

func TestChainedAuthenticator(t *testing.T) {
	authenticator, err := NewAuthenticator(config.AuthConfig{
		JWTSecret: "hush",
		TokenHash: hashToken(t, "shared-token"),
	})
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}

	if _, err := authenticator.Verify(signToken(t, "hush", "dana", time.Hour)); err != nil {
		t.Fatalf("JWT through chain: %v", err)
	}
	if _, err := authenticator.Verify("shared-token"); err != nil {
		t.Fatalf("static token through chain: %v", err)
	}
	if _, err := authenticator.Verify("wrong"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Verify error = %v, want ErrInvalidToken", err)
	}
}

func TestNoMechanismConfigured(t *testing.T) {
	if _, err := NewAuthenticator(config.AuthConfig{}); err == nil {
		t.Fatalf("NewAuthenticator with empty config succeeded")
	}
}
