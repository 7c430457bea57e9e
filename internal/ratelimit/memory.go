package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps a timestamp log per key. Suitable for single-process deployments.
type MemoryStore struct {
	mu   sync.Mutex
	hits map[string]*window
	now  func() time.Time
}

type window struct {
	stamps []time.Time
	span   time.Duration
}

// NewMemoryStore constructs an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hits: make(map[string]*window), now: time.Now}
}

// WithClock overrides the time source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Hit implements Store.
func (s *MemoryStore) Hit(_ context.Context, key string, limit int, span time.Duration) (Result, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.hits[key]
	if !ok {
		w = &window{}
		s.hits[key] = w
	}
	w.span = span
	w.prune(now)

	if len(w.stamps) >= limit {
		return denied(limit, w.stamps[0], span, now), nil
	}

	w.stamps = append(w.stamps, now)
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(w.stamps),
		ResetAt:   w.stamps[0].Add(span),
	}, nil
}

// Sweep implements Store.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for key, w := range s.hits {
		w.prune(now)
		if len(w.stamps) == 0 {
			delete(s.hits, key)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hits)
}

func (w *window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	idx := 0
	for idx < len(w.stamps) && !w.stamps[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[idx:]...)
	}
}
