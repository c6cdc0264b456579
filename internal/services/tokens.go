package services

import (
	"sync"
	"sync/atomic"
	"time"
)

// Tokens issues monotonically increasing request tokens. Tokens are based on
// the wall clock in nanoseconds, so a restarted process or a second replica
// keeps issuing tokens above the ones a long-running worker has already seen.
type Tokens struct {
	n   atomic.Uint64
	now func() time.Time
}

// NewTokens returns a token source reading the given clock. A nil clock means
// time.Now; the zero Tokens is ready to use as well.
func NewTokens(now func() time.Time) *Tokens {
	return &Tokens{now: now}
}

// Next returns a token greater than every token issued before it and no
// smaller than the current clock reading.
func (t *Tokens) Next() uint64 {
	now := t.now
	if now == nil {
		now = time.Now
	}
	base := uint64(now().UnixNano())
	for {
		cur := t.n.Load()
		next := max(cur+1, base)
		if t.n.CompareAndSwap(cur, next) {
			return next
		}
	}
}

// Latest holds the most recent result per key. A result is accepted only if
// no newer request for the same key has been observed.
type Latest[T any] struct {
	mu      sync.Mutex
	entries map[string]*latestEntry[T]
}

type latestEntry[T any] struct {
	wanted    uint64
	published uint64
	value     T
}

func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{entries: make(map[string]*latestEntry[T])}
}

func (l *Latest[T]) entry(key string) *latestEntry[T] {
	e, ok := l.entries[key]
	if !ok {
		e = &latestEntry[T]{}
		l.entries[key] = e
	}
	return e
}

// Observe records that a request with token was issued for key. It reports
// false when token is already superseded.
func (l *Latest[T]) Observe(key string, token uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entry(key)
	if token < e.wanted {
		return false
	}
	e.wanted = token
	return true
}

// Offer stores value computed for token. Stale results are discarded and
// Offer reports false.
func (l *Latest[T]) Offer(key string, token uint64, value T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entry(key)
	if token < e.wanted || (e.published != 0 && token <= e.published) {
		return false
	}
	e.published = token
	e.value = value
	return true
}

// Load returns the last accepted value for key.
func (l *Latest[T]) Load(key string) (T, uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok || e.published == 0 {
		var zero T
		return zero, 0, false
	}
	return e.value, e.published, true
}
