package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jason-s-yu/imposter/internal/models"
)

// Memory is an in-process Client. It backs tests and single-binary deployments of the gateway.
type Memory struct {
	mu    sync.Mutex
	rooms map[string]*models.Room
	subs  map[string]map[*latest]struct{}
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		rooms: make(map[string]*models.Room),
		subs:  make(map[string]map[*latest]struct{}),
	}
}

// CreateRoom implements Client.
func (m *Memory) CreateRoom(ctx context.Context, room *models.Room) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", connErr("create room", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[room.RoomCode]; ok {
		return "", fmt.Errorf("%w: %s", ErrRoomExists, room.RoomCode)
	}
	stored := room.Clone()
	stored.Normalize()
	m.rooms[room.RoomCode] = stored
	m.notifyLocked(room.RoomCode)
	return room.RoomCode, nil
}

// FetchRoom implements Client.
func (m *Memory) FetchRoom(ctx context.Context, code string) (*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, connErr("fetch room", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	return r.Clone(), nil
}

// FetchField implements Client.
func (m *Memory) FetchField(ctx context.Context, code string, field models.Field) (json.RawMessage, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	r, err := m.FetchRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	v, _ := r.FieldValue(field)
	return json.Marshal(v)
}

// UpdateRoom implements Client.
func (m *Memory) UpdateRoom(ctx context.Context, code string, patch models.RoomPatch) error {
	if err := ctx.Err(); err != nil {
		return connErr("update room", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[code]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	if patch.Empty() {
		return nil
	}
	r.Apply(patch)
	m.notifyLocked(code)
	return nil
}

// Subscribe implements Client.
func (m *Memory) Subscribe(ctx context.Context, code string, onUpdate func(*models.Room)) (Unsubscribe, error) {
	m.mu.Lock()
	if _, ok := m.rooms[code]; !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	box := newLatest()
	if m.subs[code] == nil {
		m.subs[code] = make(map[*latest]struct{})
	}
	m.subs[code][box] = struct{}{}
	m.mu.Unlock()

	go box.run(onUpdate)

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[code], box)
			if len(m.subs[code]) == 0 {
				delete(m.subs, code)
			}
			m.mu.Unlock()
			box.close()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsub()
		case <-box.done:
		}
	}()
	return unsub, nil
}

// notifyLocked pushes the current snapshot to every subscriber. m.mu must be held.
func (m *Memory) notifyLocked(code string) {
	r, ok := m.rooms[code]
	if !ok {
		return
	}
	for box := range m.subs[code] {
		box.put(r.Clone())
	}
}
