// Package store is the boundary to the shared room record: create, point reads, merge
// patches and change subscriptions. Every backend honours the same contract.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jason-s-yu/imposter/internal/models"
)

var (
	// ErrNotConfigured means the store credentials are missing. Nothing is attempted.
	ErrNotConfigured = errors.New("store not configured")
	// ErrRoomNotFound means no record matches the room code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomExists means a record already uses the room code.
	ErrRoomExists = errors.New("room already exists")
	// ErrConnection wraps every failed network or driver call.
	ErrConnection = errors.New("connection failed")
	// ErrUnknownField means a field name is not a room column.
	ErrUnknownField = errors.New("unknown room field")
)

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

// Client is the contract the room lifecycle relies on.
//
// Updates are merge patches: fields absent from the patch are untouched and the last write
// to a field wins. Subscriptions deliver the latest full record after a change; rapid
// changes may be coalesced, so intermediate states can be skipped.
type Client interface {
	// CreateRoom inserts room if no record has its code.
	CreateRoom(ctx context.Context, room *models.Room) (string, error)
	// FetchRoom reads the full record.
	FetchRoom(ctx context.Context, code string) (*models.Room, error)
	// FetchField reads a single column as JSON.
	FetchField(ctx context.Context, code string, field models.Field) (json.RawMessage, error)
	// UpdateRoom applies a merge patch to an existing record.
	UpdateRoom(ctx context.Context, code string, patch models.RoomPatch) error
	// Subscribe calls onUpdate with the full record after every change until the returned
	// Unsubscribe is called or ctx is done.
	Subscribe(ctx context.Context, code string, onUpdate func(*models.Room)) (Unsubscribe, error)
}

// FetchFieldAs reads a single column and decodes it into T.
func FetchFieldAs[T any](ctx context.Context, c Client, code string, field models.Field) (T, error) {
	var v T
	raw, err := c.FetchField(ctx, code, field)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("failed to decode %s: %w", field, err)
	}
	return v, nil
}

// connErr tags a backend failure as a ConnectionFailure while keeping the cause.
func connErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrConnection, err)
}

func checkField(field models.Field) error {
	if !field.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}
