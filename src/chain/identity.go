package chain

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/google/uuid"
)

// sessionNamespace is the fixed namespace UUID every minted session id
// is derived from. Changing it would change every id this process has
// ever minted; it is a constant, not configuration.
var sessionNamespace = uuid.MustParse("4f6f9c2e-2b8f-4e9a-8f1d-6a6c2d9b7a31")

// IdentityMinter produces stable, collision-free session identifiers:
// UUIDv5 values over a namespace and a monotonically increasing
// counter, the way google/uuid is used throughout the teacher's
// backtester session/order ids, generalized here to a deterministic
// namespaced sequence instead of the teacher's random v4 ids so that
// identity generation is itself reproducible across restarts given the
// same counter seed.
type IdentityMinter struct {
	counter atomic.Uint64
}

// NewIdentityMinter seeds the counter at 1, per the in-memory default.
func NewIdentityMinter() *IdentityMinter {
	m := &IdentityMinter{}
	m.counter.Store(1)
	return m
}

// Next returns the next identifier. Safe for concurrent use.
func (m *IdentityMinter) Next() uuid.UUID {
	n := m.counter.Add(1) - 1

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)

	return uuid.NewSHA1(sessionNamespace, buf[:])
}
