package domain

import "time"

// TokenType discriminates access tokens from refresh tokens so one can never be
// presented in place of the other.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims is the value object embedded (signed) inside a token string.
// It is never persisted independently.
type TokenClaims struct {
	Subject   string
	Email     string
	Role      string
	TokenType TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the claims have elapsed their validity window.
// Expiry is exclusive: the token is invalid strictly after IssuedAt+TTL.
func (c TokenClaims) IsExpired(at time.Time) bool {
	return at.After(c.ExpiresAt)
}
