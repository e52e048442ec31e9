package ratelimiter

import (
	"testing"
	"time"
)

func TestAllowRespectsBurstPerAuthor(t *testing.T) {
	l := New(1, 2, time.Minute)
	now := time.Now()

	if !l.Allow("@bob.bAAA", now) || !l.Allow("@bob.bAAA", now) {
		t.Fatal("burst of 2 must allow two immediate requests")
	}
	if l.Allow("@bob.bAAA", now) {
		t.Fatal("third immediate request must be throttled")
	}
	if !l.Allow("@carol.bBBB", now) {
		t.Fatal("other authors must not be affected")
	}
	if !l.Allow("@bob.bAAA", now.Add(time.Second)) {
		t.Fatal("token must refill after a second at 1 rps")
	}
}

func TestNilAndEmptyAuthorAllowEverything(t *testing.T) {
	var l *AuthorLimiter
	if !l.Allow("any", time.Now()) {
		t.Fatal("nil limiter must allow")
	}
	if l.Size() != 0 {
		t.Fatal("nil limiter tracks nothing")
	}
	if New(0, 1, time.Minute) != nil {
		t.Fatal("invalid rps must yield nil limiter")
	}
	limited := New(1, 1, time.Minute)
	if !limited.Allow("", time.Now()) {
		t.Fatal("empty author must bypass limiting")
	}
	if limited.Size() != 0 {
		t.Fatal("bypassed authors must not be tracked")
	}
}

func TestIdleAuthorsAreSweptOut(t *testing.T) {
	l := New(1, 1, time.Minute)
	now := time.Now()

	if !l.Allow("@bob.bAAA", now) {
		t.Fatal("first request must pass")
	}
	if l.Size() != 1 {
		t.Fatalf("expected 1 tracked author, got %d", l.Size())
	}

	// bob has been idle past the TTL when the next author arrives
	if !l.Allow("@carol.bBBB", now.Add(2*time.Minute)) {
		t.Fatal("new author must pass")
	}
	if l.Size() != 1 {
		t.Fatalf("idle author must be evicted, tracking %d", l.Size())
	}

	// an evicted author starts over with a fresh bucket
	if !l.Allow("@bob.bAAA", now.Add(2*time.Minute)) {
		t.Fatal("returning author must get a fresh bucket")
	}
	if l.Size() != 2 {
		t.Fatalf("expected 2 tracked authors, got %d", l.Size())
	}
}
