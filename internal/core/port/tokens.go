package port

import "github.com/kstash/work-better/internal/core/domain"

// TokenIssuer produces signed access and refresh tokens for a verified
// identity. Issuance is pure signing; it has no side effects.
type TokenIssuer interface {
	IssueAccess(identity domain.Identity) (string, error)
	IssueRefresh(identity domain.Identity) (string, error)
}

// TokenVerifier parses a signed token and returns its claims after checking
// the signature, expiry, and that the embedded type matches the expected one.
type TokenVerifier interface {
	Verify(token string, expected domain.TokenType) (domain.TokenClaims, error)
}
