// Package dedupe tracks listing keys so a merged refresh (multiple cities,
// multiple adapters) emits each listing at most once.
package dedupe

import "sync"

// KeySet records seen listing keys. Safe for concurrent use.
type KeySet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewKeySet creates an empty key set.
func NewKeySet() *KeySet {
	return &KeySet{seen: make(map[string]struct{})}
}

// SeenAndRecord atomically checks whether key was seen and records it if
// not. Returns true if key was already seen, false if it was newly recorded.
func (s *KeySet) SeenAndRecord(key string) bool {
	if key == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return true
	}
	s.seen[key] = struct{}{}
	return false
}

// Size returns the number of recorded keys.
func (s *KeySet) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
