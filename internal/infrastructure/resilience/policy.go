package resilience

import (
	"strings"
	"time"
)

// RetryPolicy bounds the attempts and backoff of one family of operations.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// MaxRetryAfter caps how long a server may ask us to wait between attempts.
	MaxRetryAfter time.Duration
}

type BreakerPolicy struct {
	Enabled          bool
	MinRequests      uint32
	FailureRatio     float64
	OpenTimeout      time.Duration
	HalfOpenMaxCalls uint32
}

// Config is the executor setup. Overrides replace the retry policy for every
// operation named "<key>.<anything>", so "fetch" covers "fetch.document".
type Config struct {
	Retry     RetryPolicy
	Breaker   BreakerPolicy
	Overrides map[string]RetryPolicy

	// OnStateChange observes breaker transitions, e.g. to export them as metrics.
	OnStateChange func(operation string, from, to string)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     400 * time.Millisecond,
		Multiplier:     2.0,
		MaxRetryAfter:  5 * time.Second,
	}
}

// PortalRetryPolicy is for court e-filing portals, which throttle bulk
// downloads and recover within seconds rather than milliseconds.
func PortalRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    4,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     4 * time.Second,
		Multiplier:     2.0,
		MaxRetryAfter:  30 * time.Second,
	}
}

func DefaultConfig() Config {
	return Config{
		Retry: DefaultRetryPolicy(),
		Breaker: BreakerPolicy{
			Enabled:          true,
			MinRequests:      10,
			FailureRatio:     0.5,
			OpenTimeout:      30 * time.Second,
			HalfOpenMaxCalls: 2,
		},
		Overrides: map[string]RetryPolicy{
			"fetch": PortalRetryPolicy(),
		},
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	out.Retry = out.Retry.normalize(def.Retry)
	if len(c.Overrides) > 0 {
		out.Overrides = make(map[string]RetryPolicy, len(c.Overrides))
		for family, policy := range c.Overrides {
			out.Overrides[strings.TrimSpace(family)] = policy.normalize(out.Retry)
		}
	}

	if out.Breaker.MinRequests == 0 {
		out.Breaker.MinRequests = def.Breaker.MinRequests
	}
	if out.Breaker.FailureRatio <= 0 || out.Breaker.FailureRatio > 1 {
		out.Breaker.FailureRatio = def.Breaker.FailureRatio
	}
	if out.Breaker.OpenTimeout <= 0 {
		out.Breaker.OpenTimeout = def.Breaker.OpenTimeout
	}
	if out.Breaker.HalfOpenMaxCalls == 0 {
		out.Breaker.HalfOpenMaxCalls = def.Breaker.HalfOpenMaxCalls
	}
	return out
}

// normalize fills unset fields from base.
func (p RetryPolicy) normalize(base RetryPolicy) RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = base.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = base.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = base.MaxBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = base.Multiplier
	}
	if p.MaxRetryAfter <= 0 {
		p.MaxRetryAfter = base.MaxRetryAfter
	}
	return p
}

// policyFor picks the override of the operation's family, if any.
func (c Config) policyFor(operation string) RetryPolicy {
	family, _, _ := strings.Cut(operation, ".")
	if policy, ok := c.Overrides[family]; ok {
		return policy
	}
	return c.Retry
}
