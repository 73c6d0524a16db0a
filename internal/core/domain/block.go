package domain

import "time"

// Block suspends a user's movement commands. A nil expiry is indefinite.
// At most one block exists per handle.
type Block struct {
	Handle    string     `json:"handle"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Active reports whether the block still applies at the given instant.
func (b Block) Active(now time.Time) bool {
	return b.ExpiresAt == nil || b.ExpiresAt.After(now)
}
