package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kstash/work-better/internal/core/domain"
)

var (
	// ErrTokenMalformed indicates the token could not be parsed or its
	// signature did not verify.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired indicates the token's validity window has elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenTypeMismatch indicates an access token was presented where a
	// refresh token was expected, or the other way around.
	ErrTokenTypeMismatch = errors.New("token type mismatch")
)

// tokenClaims is the wire representation signed into every token.
type tokenClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens with a shared secret. Access and
// refresh tokens carry distinct `type` claims and TTLs.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// TokenIssuerOption configures optional TokenIssuer behaviour.
type TokenIssuerOption func(*TokenIssuer)

// WithClock overrides the time source, used by tests to pin issuance time.
func WithClock(now func() time.Time) TokenIssuerOption {
	return func(t *TokenIssuer) {
		t.now = now
	}
}

// NewTokenIssuer constructs a TokenIssuer from the shared secret and TTLs.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration, opts ...TokenIssuerOption) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 24 * time.Hour
	}

	issuer := &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(issuer)
		}
	}

	return issuer, nil
}

// AccessTTL returns the configured access-token lifetime.
func (t *TokenIssuer) AccessTTL() time.Duration {
	return t.accessTTL
}

// RefreshTTL returns the configured refresh-token lifetime.
func (t *TokenIssuer) RefreshTTL() time.Duration {
	return t.refreshTTL
}

// IssueAccess signs a short-lived access token for the identity.
func (t *TokenIssuer) IssueAccess(identity domain.Identity) (string, error) {
	return t.issue(identity, domain.TokenTypeAccess, t.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the identity.
func (t *TokenIssuer) IssueRefresh(identity domain.Identity) (string, error) {
	return t.issue(identity, domain.TokenTypeRefresh, t.refreshTTL)
}

func (t *TokenIssuer) issue(identity domain.Identity, tokenType domain.TokenType, ttl time.Duration) (string, error) {
	if identity.ID == "" {
		return "", fmt.Errorf("identity id is required")
	}

	now := t.now().UTC()

	claims := tokenClaims{
		Email: identity.Email,
		Role:  identity.Role,
		Type:  string(tokenType),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}

	return signed, nil
}

// Verify parses the token, validates its signature and expiry, and checks the
// embedded type claim against the expected one.
func (t *TokenIssuer) Verify(token string, expected domain.TokenType) (domain.TokenClaims, error) {
	claims := &tokenClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.TokenClaims{}, ErrTokenExpired
		}
		return domain.TokenClaims{}, ErrTokenMalformed
	}

	if !parsed.Valid {
		return domain.TokenClaims{}, ErrTokenMalformed
	}

	if claims.Type != string(expected) {
		return domain.TokenClaims{}, ErrTokenTypeMismatch
	}

	result := domain.TokenClaims{
		Subject:   claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		TokenType: domain.TokenType(claims.Type),
	}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}

	return result, nil
}
