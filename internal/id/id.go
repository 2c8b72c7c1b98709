package id

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "req-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Sequence hands out node ids that are unique within one editing session.
// Ids are decimal strings seeded from the wall clock and strictly increasing.
type Sequence struct {
	mu   sync.Mutex
	last int64
}

// NewSequence returns a sequence whose first id is greater than seed.
// A zero seed uses the current time in milliseconds.
func NewSequence(seed int64) *Sequence {
	if seed == 0 {
		seed = time.Now().UnixMilli()
	}
	return &Sequence{last: seed}
}

// Next returns the next id. It never repeats, even when called
// faster than the clock advances.
func (s *Sequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if now <= s.last {
		now = s.last + 1
	}
	s.last = now
	return strconv.FormatInt(now, 10)
}

// Observe advances the sequence past an id already in use, so ids
// loaded from a saved document are never handed out again.
func (s *Sequence) Observe(existing string) {
	n, err := strconv.ParseInt(existing, 10, 64)
	if err != nil {
		return
	}
	s.mu.Lock()
	if n > s.last {
		s.last = n
	}
	s.mu.Unlock()
}
