package port

import (
	"context"
	"errors"

	"github.com/kstash/work-better/internal/core/domain"
)

var (
	// ErrCredentialMismatch indicates the directory rejected the email/password pair.
	ErrCredentialMismatch = errors.New("directory: credential mismatch")
	// ErrAccountDisabled indicates the directory refused the login for a disabled account.
	ErrAccountDisabled = errors.New("directory: account disabled")
	// ErrDirectoryUnavailable indicates the directory could not be reached or
	// answered with a server error. Callers fail closed on this condition.
	ErrDirectoryUnavailable = errors.New("directory: unavailable")
)

// CredentialValidator delegates credential checking to the external
// user-directory service. Implementations must carry a bounded timeout and
// fail closed when the directory is unreachable.
//
// Failure kinds are reported through the sentinel errors above; callers
// collapse all of them to a uniform unauthorized outcome at the boundary.
type CredentialValidator interface {
	Validate(ctx context.Context, email, password string) (domain.Identity, error)
}
