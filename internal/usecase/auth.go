package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kstash/work-better/internal/core/domain"
	"github.com/kstash/work-better/internal/core/port"
	"github.com/kstash/work-better/internal/infra/logger"
)

var (
	// ErrInvalidCredentials covers every refused login whose cause must stay
	// hidden from the caller: bad password, unknown account, disabled account,
	// directory outage.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountLocked indicates the rolling failure window reached the
	// lockout threshold. Collapsed to the same response as ErrInvalidCredentials
	// at the HTTP boundary.
	ErrAccountLocked = errors.New("auth: account locked")
	// ErrInvalidRefreshToken covers every refused refresh: bad signature,
	// expiry, wrong token type, absent session, or a token superseded by a
	// newer login.
	ErrInvalidRefreshToken = errors.New("auth: invalid refresh token")
)

// AuthConfig carries the tunables of the authentication flow.
type AuthConfig struct {
	MaxAttempts     int
	Window          time.Duration
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// AuthService orchestrates login, refresh, and logout across the directory,
// the attempt ledger, the session store, and the token issuer.
type AuthService struct {
	validator port.CredentialValidator
	ledger    port.AttemptLedger
	sessions  port.SessionStore
	issuer    port.TokenIssuer
	verifier  port.TokenVerifier
	events    port.EventPublisher
	logger    *zap.Logger
	cfg       AuthConfig
	now       func() time.Time
}

// AuthOption configures optional AuthService behavior.
type AuthOption func(*AuthService)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		s.now = now
	}
}

// NewAuthService wires the authentication orchestrator.
func NewAuthService(
	validator port.CredentialValidator,
	ledger port.AttemptLedger,
	sessions port.SessionStore,
	issuer port.TokenIssuer,
	verifier port.TokenVerifier,
	events port.EventPublisher,
	cfg AuthConfig,
	log *zap.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		validator: validator,
		ledger:    ledger,
		sessions:  sessions,
		issuer:    issuer,
		verifier:  verifier,
		events:    events,
		logger:    log,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// LoginInput is the request context of a login attempt.
type LoginInput struct {
	Email     string
	Password  string
	SourceIP  string
	UserAgent string
}

// TokenPair is the successful login result. ExpiresIn is the access-token
// lifetime in whole seconds.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// AccessToken is the successful refresh result. The refresh token is not
// rotated; the caller keeps presenting the one issued at login.
type AccessToken struct {
	Token     string
	ExpiresIn int
}

// Login validates credentials with the directory, enforces the lockout
// window, issues both tokens, and takes custody of the refresh token. A new
// login unconditionally replaces any existing session for the principal.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (TokenPair, error) {
	now := s.now()

	identity, err := s.validator.Validate(ctx, in.Email, in.Password)
	if err != nil {
		status := domain.LoginStatusInvalidCredentials
		if errors.Is(err, port.ErrAccountDisabled) {
			status = domain.LoginStatusAccountDisabled
		}

		s.recordAttempt(ctx, domain.LoginAttempt{
			ID:         uuid.NewString(),
			Username:   in.Email,
			Succeeded:  false,
			Status:     status,
			SourceIP:   in.SourceIP,
			UserAgent:  in.UserAgent,
			OccurredAt: now,
		})
		s.publishLoginFailed(ctx, in, status, now)

		if errors.Is(err, port.ErrDirectoryUnavailable) {
			s.logger.Warn("login refused, directory unavailable",
				zap.String("email", logger.MaskEmail(in.Email)),
			)
		}
		return TokenPair{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}

	failures, err := s.ledger.CountRecentFailures(ctx, in.Email, s.cfg.Window, now)
	if err != nil {
		// Fail closed: without a trustworthy count the lockout guarantee
		// cannot be enforced.
		return TokenPair{}, fmt.Errorf("count recent failures: %w", err)
	}

	if failures >= s.cfg.MaxAttempts {
		s.recordAttempt(ctx, domain.LoginAttempt{
			ID:          uuid.NewString(),
			PrincipalID: &identity.ID,
			Username:    in.Email,
			Succeeded:   false,
			Status:      domain.LoginStatusAccountLocked,
			SourceIP:    in.SourceIP,
			UserAgent:   in.UserAgent,
			OccurredAt:  now,
		})
		s.publishLoginFailed(ctx, in, domain.LoginStatusAccountLocked, now)

		s.logger.Warn("login refused, account locked",
			zap.String("email", logger.MaskEmail(in.Email)),
			zap.Int("recent_failures", failures),
		)
		return TokenPair{}, ErrAccountLocked
	}

	accessToken, err := s.issuer.IssueAccess(identity)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := s.issuer.IssueRefresh(identity)
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	// Custody must be established before the tokens leave the service. A
	// session-store failure therefore fails the whole login.
	if err := s.sessions.Set(ctx, identity.ID, refreshToken, s.cfg.RefreshTokenTTL); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	s.recordAttempt(ctx, domain.LoginAttempt{
		ID:          uuid.NewString(),
		PrincipalID: &identity.ID,
		Username:    in.Email,
		Succeeded:   true,
		Status:      domain.LoginStatusSuccess,
		SourceIP:    in.SourceIP,
		UserAgent:   in.UserAgent,
		OccurredAt:  now,
	})

	if err := s.events.PublishLoginSucceeded(ctx, domain.LoginSucceededEvent{
		EventID:     uuid.NewString(),
		PrincipalID: identity.ID,
		Username:    identity.Email,
		SourceIP:    in.SourceIP,
		UserAgent:   in.UserAgent,
		OccurredAt:  now,
	}); err != nil {
		s.logger.Warn("publish login succeeded event failed", zap.Error(err))
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// presented token must be exactly the one in custody for its subject; the
// refresh token itself is left in place.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AccessToken, error) {
	claims, err := s.verifier.Verify(refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		return AccessToken{}, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}

	stored, err := s.sessions.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, port.ErrSessionNotFound) {
			return AccessToken{}, fmt.Errorf("%w: no session in custody", ErrInvalidRefreshToken)
		}
		return AccessToken{}, fmt.Errorf("load session: %w", err)
	}

	session := domain.Session{PrincipalID: claims.Subject, RefreshToken: stored}
	if !session.Matches(refreshToken) {
		return AccessToken{}, fmt.Errorf("%w: superseded by a newer login", ErrInvalidRefreshToken)
	}

	accessToken, err := s.issuer.IssueAccess(domain.Identity{
		ID:    claims.Subject,
		Email: claims.Email,
		Role:  claims.Role,
	})
	if err != nil {
		return AccessToken{}, fmt.Errorf("issue access token: %w", err)
	}

	return AccessToken{
		Token:     accessToken,
		ExpiresIn: int(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// Logout releases refresh-token custody for the principal. Logging out
// without an active session is not an error.
func (s *AuthService) Logout(ctx context.Context, principalID string) error {
	if principalID == "" {
		return fmt.Errorf("principal id is empty")
	}

	if err := s.sessions.Delete(ctx, principalID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if err := s.events.PublishSessionRevoked(ctx, domain.SessionRevokedEvent{
		EventID:     uuid.NewString(),
		PrincipalID: principalID,
		Reason:      "logout",
		OccurredAt:  s.now(),
	}); err != nil {
		s.logger.Warn("publish session revoked event failed", zap.Error(err))
	}

	return nil
}

// VerifyAccess parses and checks an access token for request authentication.
func (s *AuthService) VerifyAccess(token string) (domain.TokenClaims, error) {
	claims, err := s.verifier.Verify(token, domain.TokenTypeAccess)
	if err != nil {
		return domain.TokenClaims{}, fmt.Errorf("verify access token: %w", err)
	}
	return claims, nil
}

// recordAttempt appends to the ledger best-effort. A ledger outage must not
// change the outcome of the auth flow.
func (s *AuthService) recordAttempt(ctx context.Context, attempt domain.LoginAttempt) {
	if err := s.ledger.Record(ctx, attempt); err != nil {
		s.logger.Error("record login attempt failed",
			zap.String("username", logger.MaskEmail(attempt.Username)),
			zap.String("status", string(attempt.Status)),
			zap.Error(err),
		)
	}
}

func (s *AuthService) publishLoginFailed(ctx context.Context, in LoginInput, status domain.LoginStatus, at time.Time) {
	if err := s.events.PublishLoginFailed(ctx, domain.LoginFailedEvent{
		EventID:    uuid.NewString(),
		Username:   in.Email,
		Status:     status,
		SourceIP:   in.SourceIP,
		UserAgent:  in.UserAgent,
		OccurredAt: at,
	}); err != nil {
		s.logger.Warn("publish login failed event failed", zap.Error(err))
	}
}
