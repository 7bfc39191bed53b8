package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kstash/work-better/internal/transport/http/middleware"
	"github.com/kstash/work-better/internal/usecase"
)

// AuthHandler exposes the login, refresh, and logout endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds authentication routes. Logout requires a valid access
// token; login and refresh are anonymous.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/login", h.login)
	r.POST("/refresh", h.refresh)
	r.POST("/logout", middleware.RequireAuth(h.auth), h.logout)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	input := usecase.LoginInput{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		SourceIP:  strings.TrimSpace(c.ClientIP()),
		UserAgent: strings.TrimSpace(c.Request.UserAgent()),
	}

	pair, err := h.auth.Login(c.Request.Context(), input)
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
	})
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid refresh payload"))
		return
	}

	access, err := h.auth.Refresh(c.Request.Context(), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		h.respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, RefreshResponse{
		AccessToken: access.Token,
		TokenType:   "Bearer",
		ExpiresIn:   access.ExpiresIn,
	})
}

func (h *AuthHandler) logout(c *gin.Context) {
	principalID := c.GetString(middleware.PrincipalIDKey)
	if principalID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication failed"))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), principalID); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "logout failed"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// respondAuthError collapses every refusal to a uniform unauthorized response
// so the cause (bad password, lockout, disabled account, directory outage)
// cannot be probed from the outside.
func (h *AuthHandler) respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials),
		errors.Is(err, usecase.ErrAccountLocked),
		errors.Is(err, usecase.ErrInvalidRefreshToken):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication failed"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal error"))
	}
}
