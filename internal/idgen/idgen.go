// Package idgen generates the numeric-counter transaction ids Janode
// correlates Janus replies with. A single counter is seeded from a random
// value in [0, 2^53) and incremented per call, wrapping back to 0 at the
// JS safe-integer ceiling so ids stay representable on either side of the
// wire. Uniqueness is statistical, not guaranteed: the table is expected to
// stay far below 2^53 live entries.
package idgen

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"sync"
	"time"
)

// maxSafeInteger mirrors Number.MAX_SAFE_INTEGER (2^53 - 1) from the source
// project, so ids generated here remain safe integers if ever parsed by a
// JS-based Janus tooling counterpart.
const maxSafeInteger uint64 = 1<<53 - 1

// Generator produces a monotonically increasing sequence of decimal-string
// ids, wrapping at maxSafeInteger. One Generator is meant to be shared by a
// single TransactionManager (or any other owner needing process-unique ids).
type Generator struct {
	mu      sync.Mutex
	counter uint64
}

// New creates a Generator seeded from a cryptographically random value.
// Uniqueness of generated ids is not security-critical; crypto/rand is used
// only so two Generators never start at the same offset.
func New() *Generator {
	seed, err := rand.Int(rand.Reader, new(big.Int).SetUint64(maxSafeInteger+1))
	var s uint64
	if err != nil {
		// crypto/rand failing is effectively unreachable on supported
		// platforms; fall back to a process-unique, merely unpredictable seed.
		s = uint64(time.Now().UnixNano()) % (maxSafeInteger + 1)
	} else {
		s = seed.Uint64()
	}
	return &Generator{counter: s}
}

// Next returns the next id in the sequence as a decimal string.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.counter++
	if g.counter > maxSafeInteger {
		g.counter = 0
	}
	return strconv.FormatUint(g.counter, 10)
}
