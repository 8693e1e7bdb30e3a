package models

import "time"

// Identity is the verified caller attached to a request.
type Identity struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Name string `json:"name"`
}

type RevocationEntry struct {
	TokenID   string
	ExpiresAt time.Time
}

func (e RevocationEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
