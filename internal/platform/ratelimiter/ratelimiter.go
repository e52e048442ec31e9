// Package ratelimiter throttles document ingest per author address.
package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AuthorLimiter hands out one token bucket per author address. Authors that
// stay quiet for a full idle TTL are dropped during the next sweep, so
// one-shot authors do not pin memory for the life of the replica.
type AuthorLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a per-author limiter; invalid arguments yield nil, and a nil
// limiter allows everything.
func New(rps float64, burst int, idleTTL time.Duration) *AuthorLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &AuthorLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether the author may ingest one document at now. An empty
// author bypasses limiting.
func (l *AuthorLimiter) Allow(author string, now time.Time) bool {
	if l == nil || author == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweepLocked(now)
	}

	b, ok := l.buckets[author]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[author] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Size returns the number of authors currently tracked.
func (l *AuthorLimiter) Size() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *AuthorLimiter) sweepLocked(now time.Time) {
	cutoff := now.Add(-l.idleTTL)
	for author, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, author)
		}
	}
	l.lastSweep = now
}
