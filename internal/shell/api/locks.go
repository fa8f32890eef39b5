package api

import "sync"

// nameLocks serializes deployments per container name. The deploy flow never
// interleaves two deploys for the same name: a second request for a busy name
// is rejected rather than queued, so callers get an immediate conflict
// instead of an unbounded wait on someone else's health poll.
type nameLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newNameLocks() *nameLocks {
	return &nameLocks{held: make(map[string]struct{})}
}

// tryAcquire claims the name. It returns false when a deployment for the
// name is already in flight.
func (l *nameLocks) tryAcquire(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[name]; busy {
		return false
	}
	l.held[name] = struct{}{}
	return true
}

func (l *nameLocks) release(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
}
