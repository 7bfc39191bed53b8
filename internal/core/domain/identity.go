package domain

// Identity is the verified principal returned by the user-directory collaborator.
// The directory owns credential storage and hashing; this service only ever sees
// the post-verification view.
type Identity struct {
	ID    string
	Email string
	Role  string
}
