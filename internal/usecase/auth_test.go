package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kstash/work-better/internal/core/domain"
	"github.com/kstash/work-better/internal/core/port"
	"github.com/kstash/work-better/internal/infra/security"
)

type directoryAccount struct {
	identity domain.Identity
	password string
}

type stubValidator struct {
	accounts map[string]directoryAccount
	err      error
}

func (v *stubValidator) Validate(_ context.Context, email, password string) (domain.Identity, error) {
	if v.err != nil {
		return domain.Identity{}, v.err
	}
	account, ok := v.accounts[email]
	if !ok || account.password != password {
		return domain.Identity{}, port.ErrCredentialMismatch
	}
	return account.identity, nil
}

type memoryLedger struct {
	attempts  []domain.LoginAttempt
	recordErr error
	countErr  error
}

func (l *memoryLedger) Record(_ context.Context, attempt domain.LoginAttempt) error {
	if l.recordErr != nil {
		return l.recordErr
	}
	l.attempts = append(l.attempts, attempt)
	return nil
}

func (l *memoryLedger) CountRecentFailures(_ context.Context, username string, window time.Duration, reference time.Time) (int, error) {
	if l.countErr != nil {
		return 0, l.countErr
	}
	cutoff := reference.Add(-window)
	count := 0
	for _, attempt := range l.attempts {
		if attempt.Username != username || !attempt.CountsTowardLockout() {
			continue
		}
		if !attempt.OccurredAt.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

func (l *memoryLedger) lastStatus() domain.LoginStatus {
	if len(l.attempts) == 0 {
		return ""
	}
	return l.attempts[len(l.attempts)-1].Status
}

type memorySessions struct {
	tokens map[string]string
	setErr error
}

func (s *memorySessions) Set(_ context.Context, principalID, refreshToken string, _ time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.tokens[principalID] = refreshToken
	return nil
}

func (s *memorySessions) Get(_ context.Context, principalID string) (string, error) {
	token, ok := s.tokens[principalID]
	if !ok {
		return "", port.ErrSessionNotFound
	}
	return token, nil
}

func (s *memorySessions) Delete(_ context.Context, principalID string) error {
	delete(s.tokens, principalID)
	return nil
}

type captureEvents struct {
	succeeded []domain.LoginSucceededEvent
	failed    []domain.LoginFailedEvent
	revoked   []domain.SessionRevokedEvent
	err       error
}

func (e *captureEvents) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	if e.err != nil {
		return e.err
	}
	e.succeeded = append(e.succeeded, event)
	return nil
}

func (e *captureEvents) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	if e.err != nil {
		return e.err
	}
	e.failed = append(e.failed, event)
	return nil
}

func (e *captureEvents) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	if e.err != nil {
		return e.err
	}
	e.revoked = append(e.revoked, event)
	return nil
}

type authFixture struct {
	service   *AuthService
	validator *stubValidator
	ledger    *memoryLedger
	sessions  *memorySessions
	events    *captureEvents
	clock     *time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	nowFn := func() time.Time { return *clock }

	issuer, err := security.NewTokenIssuer("test-secret", time.Hour, 24*time.Hour, security.WithClock(nowFn))
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	validator := &stubValidator{accounts: map[string]directoryAccount{
		"a@x.com": {
			identity: domain.Identity{ID: "user-1", Email: "a@x.com", Role: "EMPLOYEE"},
			password: "correct-password",
		},
	}}
	ledger := &memoryLedger{}
	sessions := &memorySessions{tokens: map[string]string{}}
	events := &captureEvents{}

	service := NewAuthService(validator, ledger, sessions, issuer, issuer, events,
		AuthConfig{
			MaxAttempts:     5,
			Window:          15 * time.Minute,
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 24 * time.Hour,
		},
		zap.NewNop(),
		WithClock(nowFn),
	)

	return &authFixture{
		service:   service,
		validator: validator,
		ledger:    ledger,
		sessions:  sessions,
		events:    events,
		clock:     clock,
	}
}

func (f *authFixture) login(t *testing.T, password string) (TokenPair, error) {
	t.Helper()
	return f.service.Login(context.Background(), LoginInput{
		Email:     "a@x.com",
		Password:  password,
		SourceIP:  "198.51.100.10",
		UserAgent: "UA",
	})
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.login(t, "correct-password")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if pair.ExpiresIn != 3600 {
		t.Errorf("ExpiresIn = %d, want 3600", pair.ExpiresIn)
	}

	if f.sessions.tokens["user-1"] != pair.RefreshToken {
		t.Error("session store does not hold the issued refresh token")
	}

	if status := f.ledger.lastStatus(); status != domain.LoginStatusSuccess {
		t.Errorf("last ledger status = %s, want SUCCESS", status)
	}
	last := f.ledger.attempts[len(f.ledger.attempts)-1]
	if last.PrincipalID == nil || *last.PrincipalID != "user-1" {
		t.Error("successful attempt should carry the resolved principal id")
	}

	if len(f.events.succeeded) != 1 {
		t.Errorf("expected 1 login succeeded event, got %d", len(f.events.succeeded))
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.login(t, "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if status := f.ledger.lastStatus(); status != domain.LoginStatusInvalidCredentials {
		t.Errorf("last ledger status = %s, want INVALID_CREDENTIALS", status)
	}
	if f.ledger.attempts[0].PrincipalID != nil {
		t.Error("failed attempt must not carry a principal id")
	}

	if len(f.events.failed) != 1 || f.events.failed[0].Status != domain.LoginStatusInvalidCredentials {
		t.Error("expected a login failed event with INVALID_CREDENTIALS status")
	}
}

func TestLogin_DisabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.validator.err = port.ErrAccountDisabled

	_, err := f.login(t, "correct-password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if status := f.ledger.lastStatus(); status != domain.LoginStatusAccountDisabled {
		t.Errorf("last ledger status = %s, want ACCOUNT_DISABLED", status)
	}
}

func TestLogin_DirectoryUnavailableFailsClosed(t *testing.T) {
	f := newAuthFixture(t)
	f.validator.err = port.ErrDirectoryUnavailable

	_, err := f.login(t, "correct-password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if status := f.ledger.lastStatus(); status != domain.LoginStatusInvalidCredentials {
		t.Errorf("last ledger status = %s, want INVALID_CREDENTIALS", status)
	}
}

func TestLogin_LockoutAtThresholdDespiteCorrectPassword(t *testing.T) {
	f := newAuthFixture(t)

	for i := 0; i < 5; i++ {
		if _, err := f.login(t, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	_, err := f.login(t, "correct-password")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	if status := f.ledger.lastStatus(); status != domain.LoginStatusAccountLocked {
		t.Errorf("last ledger status = %s, want ACCOUNT_LOCKED", status)
	}
	last := f.ledger.attempts[len(f.ledger.attempts)-1]
	if last.PrincipalID == nil || *last.PrincipalID != "user-1" {
		t.Error("lockout attempt should carry the resolved principal id")
	}

	if len(f.sessions.tokens) != 0 {
		t.Error("no session may be created for a locked-out login")
	}
}

func TestLogin_LockoutRefusalsDoNotExtendTheWindow(t *testing.T) {
	f := newAuthFixture(t)

	for i := 0; i < 5; i++ {
		_, _ = f.login(t, "wrong")
	}
	if _, err := f.login(t, "correct-password"); !errors.Is(err, ErrAccountLocked) {
		t.Fatal("expected lockout")
	}

	// ACCOUNT_LOCKED records do not count toward the window, so repeated
	// correct-password retries cannot keep the account locked forever.
	for _, attempt := range f.ledger.attempts {
		if attempt.Status == domain.LoginStatusAccountLocked && attempt.CountsTowardLockout() {
			t.Fatal("ACCOUNT_LOCKED attempts must not count toward lockout")
		}
	}
}

func TestLogin_FailuresAgePastWindow(t *testing.T) {
	f := newAuthFixture(t)

	for i := 0; i < 5; i++ {
		_, _ = f.login(t, "wrong")
	}
	if _, err := f.login(t, "correct-password"); !errors.Is(err, ErrAccountLocked) {
		t.Fatal("expected lockout before window elapses")
	}

	*f.clock = f.clock.Add(16 * time.Minute)

	pair, err := f.login(t, "correct-password")
	if err != nil {
		t.Fatalf("expected login to succeed after window elapsed, got %v", err)
	}
	if pair.AccessToken == "" {
		t.Fatal("expected access token")
	}
}

func TestLogin_LedgerWriteFailureIsSwallowed(t *testing.T) {
	f := newAuthFixture(t)
	f.ledger.recordErr = errors.New("ledger down")

	pair, err := f.login(t, "correct-password")
	if err != nil {
		t.Fatalf("login must survive a ledger write failure, got %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
}

func TestLogin_LockoutCountFailureFailsClosed(t *testing.T) {
	f := newAuthFixture(t)
	f.ledger.countErr = errors.New("ledger down")

	if _, err := f.login(t, "correct-password"); err == nil {
		t.Fatal("expected login to fail when the failure count is unavailable")
	}
	if len(f.sessions.tokens) != 0 {
		t.Error("no session may be created without a lockout decision")
	}
}

func TestLogin_SessionWriteFailureFailsLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.sessions.setErr = errors.New("redis down")

	if _, err := f.login(t, "correct-password"); err == nil {
		t.Fatal("expected login to fail when custody cannot be established")
	}
	if status := f.ledger.lastStatus(); status == domain.LoginStatusSuccess {
		t.Error("no SUCCESS record may be written when the login fails")
	}
}

func TestLogin_EventPublishFailureIsSwallowed(t *testing.T) {
	f := newAuthFixture(t)
	f.events.err = errors.New("broker down")

	if _, err := f.login(t, "correct-password"); err != nil {
		t.Fatalf("login must survive an event publish failure, got %v", err)
	}
}

func TestRefresh_HappyPathWithoutRotation(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.login(t, "correct-password")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	access, err := f.service.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if access.Token == "" {
		t.Fatal("expected new access token")
	}
	if access.ExpiresIn != 3600 {
		t.Errorf("ExpiresIn = %d, want 3600", access.ExpiresIn)
	}

	// Custody is untouched; the same refresh token keeps working.
	if f.sessions.tokens["user-1"] != pair.RefreshToken {
		t.Error("refresh must not rotate the stored refresh token")
	}
	if _, err := f.service.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Errorf("second refresh with the same token failed: %v", err)
	}

	claims, err := f.service.VerifyAccess(access.Token)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "a@x.com" || claims.Role != "EMPLOYEE" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestRefresh_SupersededBySecondLogin(t *testing.T) {
	f := newAuthFixture(t)

	first, err := f.login(t, "correct-password")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}

	// Distinct issuance time so the second refresh token differs.
	*f.clock = f.clock.Add(time.Second)

	second, err := f.login(t, "correct-password")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if first.RefreshToken == second.RefreshToken {
		t.Fatal("expected distinct refresh tokens")
	}

	if _, err := f.service.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("superseded token: expected ErrInvalidRefreshToken, got %v", err)
	}
	if _, err := f.service.Refresh(context.Background(), second.RefreshToken); err != nil {
		t.Fatalf("current token: expected success, got %v", err)
	}
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.login(t, "correct-password")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := f.service.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for an access token, got %v", err)
	}
}

func TestRefresh_GarbageToken(t *testing.T) {
	f := newAuthFixture(t)

	if _, err := f.service.Refresh(context.Background(), "not-a-token"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefresh_ExpiredRefreshToken(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.login(t, "correct-password")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	*f.clock = f.clock.Add(24*time.Hour + time.Minute)

	if _, err := f.service.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for an expired token, got %v", err)
	}
}

func TestLogout_ThenRefreshFails(t *testing.T) {
	f := newAuthFixture(t)

	pair, err := f.login(t, "correct-password")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := f.service.Logout(context.Background(), "user-1"); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, err := f.service.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken after logout, got %v", err)
	}

	if len(f.events.revoked) != 1 || f.events.revoked[0].Reason != "logout" {
		t.Error("expected a session revoked event with reason logout")
	}
}

func TestLogout_Idempotent(t *testing.T) {
	f := newAuthFixture(t)

	if err := f.service.Logout(context.Background(), "user-1"); err != nil {
		t.Fatalf("logout without a session must succeed, got %v", err)
	}
	if err := f.service.Logout(context.Background(), "user-1"); err != nil {
		t.Fatalf("repeated logout must succeed, got %v", err)
	}
}
