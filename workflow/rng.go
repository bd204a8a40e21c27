package workflow

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"sync"
)

// lockedSource wraps a math/rand.Source64 with a mutex so the *rand.Rand
// built on top of it is safe to share across the concurrent per-recipient
// handler invocations within a superstep (spec §4.3: "deliveries to
// different recipients... run concurrently").
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// newRunRNG derives a deterministic seed from runID so that replaying a
// run from its start under the same runID reaches the same pseudo-random
// decisions at every step (spec §9: handlers that draw on BoundContext.RNG
// stay replay-deterministic). A checkpoint does not record the generator's
// position: a run restored from one draws from the start of the runID's
// sequence again.
func newRunRNG(runID string) *rand.Rand {
	sum := sha256.Sum256([]byte(runID))
	seed := int64(binary.BigEndian.Uint64(sum[:8]))
	src := &lockedSource{src: rand.NewSource(seed).(rand.Source64)}
	return rand.New(src)
}
