package interfaces

import (
	"context"

	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

// SessionStore is the persistence contract for session aggregates.
// Sessions are stored as whole documents keyed by code; Update performs a
// compare-and-swap on Session.Version and fails with ErrVersionConflict
// when another writer got there first.
type SessionStore interface {
	// Create persists a new session. Fails with ErrCodeTaken when the
	// code is already in use.
	Create(ctx context.Context, session *types.Session) error

	// Get retrieves a session by normalized code. Fails with
	// ErrSessionNotFound when absent.
	Get(ctx context.Context, code string) (*types.Session, error)

	// Update replaces the stored document if the stored version still
	// matches session.Version, then bumps the version. Fails with
	// ErrVersionConflict on mismatch.
	Update(ctx context.Context, session *types.Session) error

	// Delete removes a session document.
	Delete(ctx context.Context, code string) error

	// SessionsByUser returns every session the user belongs to, as
	// creator or partner.
	SessionsByUser(ctx context.Context, userID string) ([]*types.Session, error)

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases store resources.
	Close() error
}

// Notifier receives the full session snapshot after every successful
// mutation. Implementations fan the snapshot out to subscribed observers.
type Notifier interface {
	Publish(session *types.Session)
}

// MediaCleaner is the external cleanup collaborator triggered when a
// session terminates. Media deletion itself is out of scope for the core.
type MediaCleaner interface {
	CleanupSession(ctx context.Context, code string) error
}
