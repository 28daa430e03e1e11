// Package ratelimit implements token-bucket admission control for outbound
// Deribit requests. The bucket holds fractional tokens refilled continuously
// from a monotonic clock, so short bursts up to the capacity are admitted and
// sustained traffic converges to the refill rate.
package ratelimit

import (
	"sync"
	"time"
)

// Defaults match Deribit's non-matching-engine request budget: a burst of 20
// with 5 tokens per second of refill.
const (
	DefaultBurst = 20
	DefaultRate  = 5
)

// Bucket is a token bucket with continuous refill. The zero value is not
// usable; construct with New. The bucket is constructed full and never owes
// tokens: elapsed time beyond capacity/rate is clamped.
type Bucket struct {
	mu       sync.Mutex
	tokens   float64   // current available tokens (fractional allowed)
	capacity float64   // maximum burst size
	rate     float64   // tokens refilled per second
	last     time.Time // last time tokens were recalculated
}

// New creates a full bucket with the given burst capacity and refill rate.
func New(capacity, perSecond float64) *Bucket {
	return &Bucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     perSecond,
		last:     time.Now(),
	}
}

// NewDefault creates a bucket with the Deribit default parameters.
func NewDefault() *Bucket {
	return New(DefaultBurst, DefaultRate)
}

// Allow consumes one token and admits the request, or denies it when fewer
// than one token is available. time.Time carries a monotonic reading, so
// wall-clock adjustments do not distort the refill.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.last).Seconds()
	b.last = now

	b.tokens += elapsed * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Tokens returns the token count as of the last refill, for tests and
// diagnostics.
func (b *Bucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}
