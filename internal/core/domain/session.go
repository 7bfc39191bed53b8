package domain

import "time"

// Session is the single live refresh-token record for a principal. A new login
// overwrites the previous session (latest login wins, no multi-device support).
type Session struct {
	PrincipalID  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Matches reports whether the presented refresh token is exactly the one in
// custody. String equality is intentional: the session store is the single
// source of truth for refresh-token validity, independent of signature expiry.
func (s Session) Matches(presented string) bool {
	return s.RefreshToken != "" && s.RefreshToken == presented
}
