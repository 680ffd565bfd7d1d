package app

import (
	"errors"
	"fmt"
	"math/rand"
)

const allocationAttempts = 5

// ErrAllocationExhausted reports that no free 6-digit id was found within
// the retry bound. With a million-id space this is a safety bound, not an
// expected path.
var ErrAllocationExhausted = errors.New("chat id allocation exhausted")

// ChatExistence is the slice of the conversation store the registry needs.
type ChatExistence interface {
	Exists(id string) (bool, error)
}

// SessionRegistry draws candidate chat ids uniformly from 100000-999999.
// Ids are not reserved here; the store's unique constraint on insert is the
// authoritative check, so a raced id surfaces as a duplicate at create time.
type SessionRegistry struct {
	existence ChatExistence
	intn      func(n int) int
}

func NewSessionRegistry(existence ChatExistence) *SessionRegistry {
	return &SessionRegistry{
		existence: existence,
		intn:      rand.Intn,
	}
}

// Allocate returns a 6-digit id not present in the store at call time.
func (r *SessionRegistry) Allocate() (string, error) {
	for attempt := 0; attempt < allocationAttempts; attempt++ {
		id := fmt.Sprintf("%d", 100000+r.intn(900000))
		exists, err := r.existence.Exists(id)
		if err != nil {
			return "", fmt.Errorf("check id existence failed: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", ErrAllocationExhausted
}
