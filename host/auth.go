// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

package host

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tetherhq/tether/lib/config"
)

// ErrInvalidToken is returned for any token that no configured
// mechanism accepts. The cause is deliberately not detailed to the
// client.
var ErrInvalidToken = errors.New("host: invalid token")

// Authenticator verifies client tokens and assigns client identities.
type Authenticator interface {
	// Verify returns the client identity for a valid token.
	Verify(token string) (clientID string, err error)
}

// NewAuthenticator builds the verifier the config asks for: JWT,
// static token, or both chained.
func NewAuthenticator(cfg config.AuthConfig) (Authenticator, error) {
	var chain []Authenticator
	if cfg.JWTSecret != "" {
		chain = append(chain, &jwtAuthenticator{secret: []byte(cfg.JWTSecret)})
	}
	if cfg.TokenHash != "" {
		chain = append(chain, &staticAuthenticator{hash: []byte(cfg.TokenHash)})
	}
	if len(chain) == 0 {
		return nil, errors.New("host: no auth mechanism configured")
	}
	if len(chain) == 1 {
		return chain[0], nil
	}
	return authChain(chain), nil
}

// authChain accepts a token any member accepts.
type authChain []Authenticator

func (c authChain) Verify(token string) (string, error) {
	for _, authenticator := range c {
		clientID, err := authenticator.Verify(token)
		if err == nil {
			return clientID, nil
		}
	}
	return "", ErrInvalidToken
}

// jwtAuthenticator verifies HS256-signed bearer tokens. The subject
// claim is the client identity.
type jwtAuthenticator struct {
	secret []byte
}

func (a *jwtAuthenticator) Verify(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}

// staticAuthenticator compares the presented token against a bcrypt
// hash of the shared token. Identities are generated, not claimed.
type staticAuthenticator struct {
	hash    []byte
	counter atomic.Uint64
}

func (a *staticAuthenticator) Verify(token string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(token)); err != nil {
		return "", ErrInvalidToken
	}
	return fmt.Sprintf("client-%d", a.counter.Add(1)), nil
}
