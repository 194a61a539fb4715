// Package repository defines the session store interface and its
// in-memory and Redis implementations.
package repository

import (
	"context"
	"time"

	"github.com/okian/duel/internal/domain/model"
)

// Store persists whole session records keyed by session id.
//
// Implementations hand out private copies: mutating a loaded session has
// no effect until it is saved, and readers never observe a half-applied
// change.
type Store interface {
	// Create stores a new session. Returns ErrExists if the id is taken.
	Create(ctx context.Context, s *model.Session) error

	// Load returns a copy of the session.
	// Returns ErrNotFound if the id is unknown.
	Load(ctx context.Context, id string) (*model.Session, error)

	// Save replaces an existing session.
	// Returns ErrNotFound if it was deleted in the meantime.
	Save(ctx context.Context, s *model.Session) error

	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// IdleSince lists sessions whose last update is before cutoff.
	IdleSince(ctx context.Context, cutoff time.Time) ([]string, error)

	// Count returns the number of stored sessions.
	Count(ctx context.Context) int
}
