package store

import (
	"sync"

	"github.com/jason-s-yu/imposter/internal/models"
)

// latest is a single-slot mailbox: a newer snapshot replaces one not yet consumed, so a
// slow consumer only ever sees the most recent record.
type latest struct {
	mu     sync.Mutex
	room   *models.Room
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newLatest() *latest {
	return &latest{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (l *latest) put(room *models.Room) {
	l.mu.Lock()
	l.room = room
	l.mu.Unlock()
	select {
	case l.signal <- struct{}{}:
	default:
	}
}

func (l *latest) take() *models.Room {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.room
	l.room = nil
	return r
}

func (l *latest) close() {
	l.once.Do(func() { close(l.done) })
}

// run delivers snapshots to fn until close is called.
func (l *latest) run(fn func(*models.Room)) {
	for {
		select {
		case <-l.done:
			return
		case <-l.signal:
			if r := l.take(); r != nil {
				fn(r)
			}
		}
	}
}
