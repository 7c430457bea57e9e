// Package ids generates sortable identifiers for refresh tokens.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a 26-character ULID. Identifiers minted in the same millisecond stay ordered.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns a ULID stamped with the given instant.
func NewAt(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
