package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kstash/work-better/internal/core/domain"
	"github.com/kstash/work-better/internal/core/port"
	"github.com/kstash/work-better/internal/infra/config"
	"github.com/kstash/work-better/internal/infra/logger"
)

// Aliases of the port sentinels so call sites in this package and its tests
// do not need to import port for error comparison.
var (
	ErrCredentialMismatch = port.ErrCredentialMismatch
	ErrAccountDisabled    = port.ErrAccountDisabled
	ErrUnavailable        = port.ErrDirectoryUnavailable
)

// Client validates credentials against the user-directory service over HTTP.
// Every call carries the configured timeout; no retries are performed here.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient constructs a directory client from configuration.
func NewClient(cfg config.DirectorySettings, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  log,
	}
}

type validateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type validateResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Validate posts the credentials to the directory and decodes the verified
// identity. A timeout or transport failure is reported as ErrUnavailable.
func (c *Client) Validate(ctx context.Context, email, password string) (domain.Identity, error) {
	if email == "" {
		return domain.Identity{}, ErrCredentialMismatch
	}

	body, err := json.Marshal(validateRequest{Email: email, Password: password})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("marshal validate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users/validate", bytes.NewReader(body))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("build validate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("directory call failed",
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
		return domain.Identity{}, ErrUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound:
		return domain.Identity{}, ErrCredentialMismatch
	case resp.StatusCode == http.StatusForbidden:
		return domain.Identity{}, ErrAccountDisabled
	default:
		c.logger.Warn("directory returned unexpected status",
			zap.String("email", logger.MaskEmail(email)),
			zap.Int("status", resp.StatusCode),
		)
		return domain.Identity{}, ErrUnavailable
	}

	var payload validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Identity{}, fmt.Errorf("decode validate response: %w", err)
	}
	if payload.ID == "" {
		return domain.Identity{}, fmt.Errorf("directory returned identity without id")
	}

	return domain.Identity{
		ID:    payload.ID,
		Email: payload.Email,
		Role:  payload.Role,
	}, nil
}

// HealthCheck reports whether the directory is reachable. Any HTTP answer
// below 500 counts as reachable; only transport failures and server errors
// mark the dependency unready.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("directory unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("directory unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

var _ port.CredentialValidator = (*Client)(nil)
