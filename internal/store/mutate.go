package store

import (
	"context"
	"errors"

	"github.com/Emixee/intimacy-play-sub001/pkg/interfaces"
	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

// maxMutateRetries bounds the optimistic-concurrency retry loop. Two
// writers share a session, so a handful of retries is plenty.
const maxMutateRetries = 5

// Mutate applies fn to a fresh copy of the session and writes it back with
// a compare-and-swap on the version field. On a version conflict it
// re-reads and retries, so a simultaneous write from the other player can
// no longer silently drop this one. Errors returned by fn abort the write
// and propagate unchanged.
func Mutate(ctx context.Context, s interfaces.SessionStore, code string, fn func(*types.Session) error) (*types.Session, error) {
	var lastErr error

	for attempt := 0; attempt < maxMutateRetries; attempt++ {
		current, err := s.Get(ctx, code)
		if err != nil {
			if errors.Is(err, interfaces.ErrSessionNotFound) {
				return nil, types.NewError(types.CodeSessionNotFound, "session not found")
			}
			return nil, types.WrapError(types.CodeStoreUnavailable, "failed to read session", err)
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}

		if err := s.Update(ctx, next); err != nil {
			if errors.Is(err, interfaces.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, types.WrapError(types.CodeStoreUnavailable, "failed to write session", err)
		}
		return next, nil
	}

	return nil, types.WrapError(types.CodeStoreUnavailable, "session update kept conflicting", lastErr)
}
