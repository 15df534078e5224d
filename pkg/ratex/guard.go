package ratex

import "time"

// Decision is the outcome of asking the login guard whether an attempt from
// a given client may proceed.
type Decision int

const (
	// Allowed means the attempt may proceed to credential checking.
	Allowed Decision = iota
	// BlockedSuspicious means the coarse per-client ceiling is exhausted.
	// This is the stronger signal: the client has been hammering the
	// endpoint well beyond ordinary retry behaviour.
	BlockedSuspicious
	// BlockedAttempts means the tighter login-attempt ceiling is exhausted.
	BlockedAttempts
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case BlockedSuspicious:
		return "blocked_suspicious_activity"
	case BlockedAttempts:
		return "blocked_attempt_limit"
	default:
		return "unknown"
	}
}

// Default bandwidths for the two login buckets. The block bucket is the
// coarse anti-abuse ceiling, the attempt bucket the login-specific one.
var (
	BlockBandwidth   = Bandwidth{Capacity: 10, RefillAmount: 10, RefillPeriod: time.Hour}
	AttemptBandwidth = Bandwidth{Capacity: 5, RefillAmount: 5, RefillPeriod: 15 * time.Minute}
)

// LoginGuard throttles the login entry point per client identifier using two
// independent buckets. State is process-local; a multi-instance deployment
// throttles per instance, which is acceptable for this threat model.
type LoginGuard struct {
	limiter Limiter
	block   Bandwidth
	attempt Bandwidth

	// Now is the clock used for refill decisions; defaults to time.Now.
	Now func() time.Time
}

// NewLoginGuard builds a guard with the default bandwidths.
func NewLoginGuard() *LoginGuard {
	return NewLoginGuardWith(BlockBandwidth, AttemptBandwidth)
}

// NewLoginGuardWith builds a guard with explicit bandwidths, mainly for tests.
func NewLoginGuardWith(block, attempt Bandwidth) *LoginGuard {
	return &LoginGuard{block: block, attempt: attempt}
}

// Admit decides whether a login attempt from clientKey may proceed. The
// block bucket is evaluated first so the coarser signal wins; the attempt
// bucket is only consulted (and consumed) when the block bucket admitted the
// call. Consumed tokens are not refunded if the login later fails.
func (g *LoginGuard) Admit(clientKey string) Decision {
	now := g.now()

	if !g.limiter.TryConsume(clientKey+":block", g.block, now) {
		return BlockedSuspicious
	}
	if !g.limiter.TryConsume(clientKey+":attempts", g.attempt, now) {
		return BlockedAttempts
	}
	return Allowed
}

func (g *LoginGuard) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}
