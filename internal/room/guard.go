package room

import "sync"

// Guard stops a client from re-submitting an action while its previous call is outstanding.
type Guard struct {
	mu      sync.Mutex
	pending map[string]bool
}

// NewGuard returns an empty guard.
func NewGuard() *Guard {
	return &Guard{pending: make(map[string]bool)}
}

// Do runs fn unless action is already running, in which case it returns ErrActionPending.
func (g *Guard) Do(action string, fn func() error) error {
	g.mu.Lock()
	if g.pending[action] {
		g.mu.Unlock()
		return ErrActionPending
	}
	g.pending[action] = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.pending, action)
		g.mu.Unlock()
	}()
	return fn()
}

// Pending reports whether action is in flight. UIs use it to disable buttons.
func (g *Guard) Pending(action string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending[action]
}
