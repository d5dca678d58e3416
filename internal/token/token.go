// Package token issues and verifies the bearer tokens that authenticate
// API requests. Tokens are HS256 JWTs; an optional Valkey-backed
// revocation list invalidates tokens on logout before their natural
// expiry. TOTP helpers for the optional two-factor login flow live here
// as well.
package token

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ScopePending marks a token issued after password login for an account
// with 2FA enabled. It grants access to the 2FA verification endpoint only.
const ScopePending = "2fa"

// pendingTTL bounds how long a half-completed 2FA login stays valid.
const pendingTTL = 5 * time.Minute

// Claims is the JWT payload: subject is the user id, plus username and
// an optional scope restriction.
type Claims struct {
	Username string `json:"username"`
	Scope    string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the numeric user id from the subject claim.
func (c *Claims) UserID() (int, error) {
	id, err := strconv.Atoi(c.Subject)
	if err != nil {
		return 0, fmt.Errorf("invalid subject claim %q: %w", c.Subject, err)
	}
	return id, nil
}

// Manager signs and verifies tokens. revoked may be nil, in which case
// logout revocation is disabled.
type Manager struct {
	secret  []byte
	ttl     time.Duration
	revoked *RevocationList
}

// NewManager creates a token manager with the given signing secret and
// access-token lifetime.
func NewManager(secret string, ttl time.Duration, revoked *RevocationList) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, revoked: revoked}
}

// Issue signs a full access token for the user.
func (m *Manager) Issue(userID int, username string) (string, error) {
	return m.sign(userID, username, "", m.ttl)
}

// IssuePending signs a short-lived token restricted to 2FA verification.
func (m *Manager) IssuePending(userID int, username string) (string, error) {
	return m.sign(userID, username, ScopePending, pendingTTL)
}

func (m *Manager) sign(userID int, username, scope string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		Scope:    scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a full access token. Pending 2FA tokens
// and revoked tokens are rejected.
func (m *Manager) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := m.parse(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Scope != "" {
		return nil, fmt.Errorf("token scope %q not valid for API access", claims.Scope)
	}
	return claims, nil
}

// VerifyPending parses and validates a 2FA pending token.
func (m *Manager) VerifyPending(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := m.parse(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Scope != ScopePending {
		return nil, fmt.Errorf("not a pending 2fa token")
	}
	return claims, nil
}

func (m *Manager) parse(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if m.revoked != nil {
		revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("token has been revoked")
		}
	}
	return claims, nil
}

// Revoke invalidates a verified token until its natural expiry. No-op
// when no revocation list is configured.
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	if m.revoked == nil {
		return nil
	}
	var until time.Time
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	} else {
		until = time.Now().Add(m.ttl)
	}
	return m.revoked.Revoke(ctx, claims.ID, until)
}

// CanRevoke reports whether logout revocation is available.
func (m *Manager) CanRevoke() bool {
	return m.revoked != nil
}
