// Package random provides the injectable random-number source used by every
// simulation and scoring formula, so runs can be reproduced from a seed.
package random

import (
	"math/rand"
	"sync"
	"time"
)

// Source is the random stream consumed by the simulation formulas.
type Source interface {
	// Float64 returns a pseudo-random number in [0.0, 1.0).
	Float64() float64
	// Intn returns a pseudo-random number in [0, n). It panics if n <= 0.
	Intn(n int) int
}

// Locked is a seeded Source safe for concurrent use.
type Locked struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Source seeded with seed. A zero seed draws one from the clock.
func New(seed int64) *Locked {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Locked{rnd: rand.New(rand.NewSource(seed))}
}

func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Float64()
}

func (l *Locked) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Intn(n)
}

// Uniform draws from [min, max).
func Uniform(r Source, min, max float64) float64 {
	return min + r.Float64()*(max-min)
}

// IntBetween draws an integer from [min, max] inclusive.
func IntBetween(r Source, min, max int) int {
	if max <= min {
		return min
	}
	return min + r.Intn(max-min+1)
}

// Duration draws a duration from [min, max).
func Duration(r Source, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(r.Float64()*float64(max-min))
}

// Chance returns true with probability p.
func Chance(r Source, p float64) bool {
	return r.Float64() < p
}

// Sample returns k distinct indexes from [0, n) in draw order.
// k is capped at n.
func Sample(r Source, n, k int) []int {
	if k > n {
		k = n
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	// partial Fisher-Yates
	for i := 0; i < k; i++ {
		j := i + r.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
