package stomp

import "github.com/google/uuid"

// newUUID returns a random (v4) identifier for subscription tokens
// and transaction ids the caller leaves unspecified. Receipt ids are
// never generated: an empty receipt means no receipt header.
// Replaces the teacher's hand-rolled crypto/rand construction with
// the ecosystem library that does the same thing.
func newUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
