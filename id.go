package hica

import "github.com/google/uuid"

// NewID generates a random UUIDv4 string. Used for thread ids so snapshots
// sort and dedupe by a stable, collision-free key.
func NewID() string {
	return uuid.NewString()
}
