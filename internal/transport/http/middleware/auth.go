package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kstash/work-better/internal/usecase"
)

// PrincipalIDKey is the gin context key holding the authenticated principal id.
const PrincipalIDKey = "principal_id"

// ClaimsKey is the gin context key holding the verified access-token claims.
const ClaimsKey = "claims"

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: GetRequestID(c),
	}
}

// RequireAuth validates the Authorization header and stores the verified
// claims in the request context. Every verification failure is reported as a
// uniform unauthorized response.
func RequireAuth(auth *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing access token"))
			return
		}

		claims, err := auth.VerifyAccess(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication failed"))
			return
		}

		c.Set(PrincipalIDKey, claims.Subject)
		c.Set(ClaimsKey, claims)

		c.Next()
	}
}
