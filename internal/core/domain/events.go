package domain

import "time"

// LoginSucceededEvent is emitted after a successful login has been fully
// committed (tokens issued, session written, attempt recorded).
type LoginSucceededEvent struct {
	EventID     string
	PrincipalID string
	Username    string
	SourceIP    string
	UserAgent   string
	OccurredAt  time.Time
}

// LoginFailedEvent is emitted for every refused login attempt, carrying the
// internal status that is never exposed to the caller.
type LoginFailedEvent struct {
	EventID    string
	Username   string
	Status     LoginStatus
	SourceIP   string
	UserAgent  string
	OccurredAt time.Time
}

// SessionRevokedEvent is emitted when a principal's refresh-token custody is
// released, either by logout or by supersession from a newer login.
type SessionRevokedEvent struct {
	EventID     string
	PrincipalID string
	Reason      string
	OccurredAt  time.Time
}
