package domain

import "time"

// LoginStatus classifies the outcome of a login attempt as recorded in the ledger.
type LoginStatus string

const (
	LoginStatusSuccess            LoginStatus = "SUCCESS"
	LoginStatusInvalidCredentials LoginStatus = "INVALID_CREDENTIALS"
	LoginStatusAccountLocked      LoginStatus = "ACCOUNT_LOCKED"
	LoginStatusAccountDisabled    LoginStatus = "ACCOUNT_DISABLED"
)

// LoginAttempt is an immutable audit record appended after every login attempt.
// PrincipalID is nil when the identity could not be resolved (failed credential check).
type LoginAttempt struct {
	ID          string
	PrincipalID *string
	Username    string
	Succeeded   bool
	Status      LoginStatus
	SourceIP    string
	UserAgent   string
	OccurredAt  time.Time
}

// CountsTowardLockout reports whether the attempt contributes to the failure
// window used by the lockout decision.
func (a LoginAttempt) CountsTowardLockout() bool {
	return a.Status == LoginStatusInvalidCredentials
}
