package ratex

import (
	"sync"
	"time"
)

// Bandwidth describes a token bucket shape: how many tokens it holds and how
// it refills. Refill is greedy: once a whole RefillPeriod has elapsed the
// bucket gains RefillAmount tokens (capped at Capacity) in one step, rather
// than trickling fractions of a token continuously.
type Bandwidth struct {
	// Capacity is the maximum number of tokens the bucket can hold.
	Capacity int
	// RefillAmount is how many tokens are added per elapsed RefillPeriod.
	RefillAmount int
	// RefillPeriod is how long the bucket must sit before it refills.
	RefillPeriod time.Duration
}

// bucket is the per-key mutable state. All fields are guarded by mu so two
// concurrent TryConsume calls for the same key can't both decrement from a
// stale count. Each bucket remembers the Bandwidth it was last used with;
// the sweep judges idleness against that shape, not the caller's.
type bucket struct {
	mu         sync.Mutex
	bw         Bandwidth
	tokens     int
	lastRefill time.Time
}

func (b *bucket) tryConsume(bw Bandwidth, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bw = bw

	// Greedy refill: a single whole period restores RefillAmount tokens.
	// We deliberately do not accrue multiple missed periods; one refill per
	// observation is enough since the amount equals the capacity in practice.
	if now.Sub(b.lastRefill) >= bw.RefillPeriod {
		b.tokens = min(bw.Capacity, b.tokens+bw.RefillAmount)
		b.lastRefill = now
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Limiter manages buckets for arbitrary string keys. Buckets are created
// lazily on first use and swept opportunistically so the table doesn't grow
// without bound for ephemeral keys (one bucket per client identifier ever
// seen).
type Limiter struct {
	buckets sync.Map // map[string]*bucket

	mu        sync.Mutex
	lastSweep time.Time

	// SweepInterval controls how often idle buckets are evicted during
	// lookups. Zero means the default of 5 minutes.
	SweepInterval time.Duration
}

const defaultSweepInterval = 5 * time.Minute

// TryConsume takes one token from the bucket identified by key, creating the
// bucket at full capacity on first use. It reports whether a token was
// available; on false the bucket state is unchanged. Capacity, RefillAmount
// and RefillPeriod must be positive; that is the caller's contract.
func (l *Limiter) TryConsume(key string, bw Bandwidth, now time.Time) bool {
	l.maybeSweep(now)
	b := l.getBucket(key, bw, now)
	return b.tryConsume(bw, now)
}

// Tokens reports the current token count for a key without consuming.
// Mostly useful for tests and introspection; a missing bucket reports the
// full capacity since it would be created full.
func (l *Limiter) Tokens(key string, bw Bandwidth) int {
	v, ok := l.buckets.Load(key)
	if !ok {
		return bw.Capacity
	}
	b := v.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

func (l *Limiter) getBucket(key string, bw Bandwidth, now time.Time) *bucket {
	// Fast path: bucket already exists.
	if v, ok := l.buckets.Load(key); ok {
		return v.(*bucket)
	}

	// Slow path: create a fresh full bucket. LoadOrStore keeps the race
	// between two first-time callers benign.
	fresh := &bucket{bw: bw, tokens: bw.Capacity, lastRefill: now}
	actual, _ := l.buckets.LoadOrStore(key, fresh)
	return actual.(*bucket)
}

// maybeSweep evicts idle buckets. A bucket at full capacity, or one whose
// whole refill period has already elapsed, would refill to full on its next
// touch anyway, so dropping it is safe: it is recreated full on demand.
// Idleness is measured per bucket against its own Bandwidth; a single
// Limiter can hold buckets of different shapes.
func (l *Limiter) maybeSweep(now time.Time) {
	interval := l.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	l.mu.Lock()
	if now.Sub(l.lastSweep) < interval {
		l.mu.Unlock()
		return
	}
	l.lastSweep = now
	l.mu.Unlock()

	l.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		idle := b.tokens >= b.bw.Capacity || now.Sub(b.lastRefill) >= b.bw.RefillPeriod
		b.mu.Unlock()
		if idle {
			l.buckets.Delete(key)
		}
		return true
	})
}
