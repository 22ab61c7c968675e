// Package rng provides the seedable pseudo-random source the coverage
// instrumenter uses to pick per-block location IDs. The original pass
// calls AFL_R, a thin wrapper over libc random() reseeded once at process
// start; here that same "one seed, many draws" shape is expressed as a
// small interface so tests can supply a deterministic Source instead of
// the real one.
package rng

import "math/rand"

// Source draws uniform integers in [0, n). It is the minimal surface the
// instrumenter needs, matching *rand.Rand's Intn method so the stdlib
// generator satisfies it without a wrapper.
type Source interface {
	Intn(n int) int
}

// New returns a Source seeded with seed. Using math/rand (not math/rand/v2)
// keeps the seeding deterministic and reproducible across Go versions,
// which matters here: AFL_R's whole job is "the same seed draws the same
// sequence of block locations," and math/rand/v2 intentionally drops that
// cross-version guarantee for its global functions.
func New(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}
