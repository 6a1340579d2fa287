package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Emixee/intimacy-play-sub001/pkg/interfaces"
	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

func newSession(code string) *types.Session {
	return &types.Session{
		Code:         code,
		CreatorID:    "alice",
		Status:       types.StatusWaiting,
		ChangesUsed:  map[types.Role]int{},
		BonusChanges: map[types.Role]int{},
	}
}

func TestMemory_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	s := newSession("AAABBB")
	require.NoError(t, m.Create(ctx, s))
	assert.Equal(t, int64(1), s.Version)

	got, err := m.Get(ctx, "AAABBB")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.CreatorID)

	// Reads return copies, not the stored session.
	got.CreatorID = "mallory"
	again, err := m.Get(ctx, "AAABBB")
	require.NoError(t, err)
	assert.Equal(t, "alice", again.CreatorID)
}

func TestMemory_CreateDuplicateCode(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Create(ctx, newSession("AAABBB")))
	err := m.Create(ctx, newSession("AAABBB"))
	assert.ErrorIs(t, err, interfaces.ErrCodeTaken)
}

func TestMemory_GetMissing(t *testing.T) {
	m := NewMemory()
	_, err := m.Get(context.Background(), "NOPE22")
	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)
}

func TestMemory_UpdateBumpsVersion(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, newSession("AAABBB")))

	got, err := m.Get(ctx, "AAABBB")
	require.NoError(t, err)
	got.PartnerID = "bob"
	require.NoError(t, m.Update(ctx, got))
	assert.Equal(t, int64(2), got.Version)

	stored, err := m.Get(ctx, "AAABBB")
	require.NoError(t, err)
	assert.Equal(t, "bob", stored.PartnerID)
	assert.Equal(t, int64(2), stored.Version)
}

func TestMemory_UpdateVersionConflict(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, newSession("AAABBB")))

	first, err := m.Get(ctx, "AAABBB")
	require.NoError(t, err)
	second, err := m.Get(ctx, "AAABBB")
	require.NoError(t, err)

	require.NoError(t, m.Update(ctx, first))
	err = m.Update(ctx, second)
	assert.ErrorIs(t, err, interfaces.ErrVersionConflict)
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, newSession("AAABBB")))

	require.NoError(t, m.Delete(ctx, "AAABBB"))
	_, err := m.Get(ctx, "AAABBB")
	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)

	assert.ErrorIs(t, m.Delete(ctx, "AAABBB"), interfaces.ErrSessionNotFound)
}

func TestMemory_SessionsByUser(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	a := newSession("AAAAAA")
	b := newSession("BBBBBB")
	b.PartnerID = "bob"
	c := newSession("CCCCCC")
	c.CreatorID = "carol"
	for _, s := range []*types.Session{a, b, c} {
		require.NoError(t, m.Create(ctx, s))
	}

	mine, err := m.SessionsByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	asPartner, err := m.SessionsByUser(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, asPartner, 1)

	none, err := m.SessionsByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

type captureNotifier struct {
	published []*types.Session
}

func (c *captureNotifier) Publish(s *types.Session) {
	c.published = append(c.published, s)
}

func TestMemory_PublishesOnWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	notifier := &captureNotifier{}
	m.SetNotifier(notifier)

	require.NoError(t, m.Create(ctx, newSession("AAABBB")))
	got, err := m.Get(ctx, "AAABBB")
	require.NoError(t, err)
	require.NoError(t, m.Update(ctx, got))

	require.Len(t, notifier.published, 2)
	assert.Equal(t, "AAABBB", notifier.published[0].Code)
}

func TestMutate_AppliesAndPersists(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, newSession("AAABBB")))

	updated, err := Mutate(ctx, m, "AAABBB", func(s *types.Session) error {
		s.Status = types.StatusAbandoned
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusAbandoned, updated.Status)

	stored, err := m.Get(ctx, "AAABBB")
	require.NoError(t, err)
	assert.Equal(t, types.StatusAbandoned, stored.Status)
}

func TestMutate_FnErrorAbortsWrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, newSession("AAABBB")))

	wantErr := types.NewError(types.CodeNotYourTurn, "nope")
	_, err := Mutate(ctx, m, "AAABBB", func(s *types.Session) error {
		s.Status = types.StatusAbandoned
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	stored, err := m.Get(ctx, "AAABBB")
	require.NoError(t, err)
	assert.Equal(t, types.StatusWaiting, stored.Status, "aborted mutation must not persist")
}

func TestMutate_MissingSession(t *testing.T) {
	_, err := Mutate(context.Background(), NewMemory(), "NOPE22", func(s *types.Session) error { return nil })
	assert.True(t, types.IsCode(err, types.CodeSessionNotFound))
}

// conflictingStore wraps Memory and forces version conflicts on the first
// n updates to exercise the retry loop.
type conflictingStore struct {
	*Memory
	conflicts int
}

func (c *conflictingStore) Update(ctx context.Context, s *types.Session) error {
	if c.conflicts > 0 {
		c.conflicts--
		return interfaces.ErrVersionConflict
	}
	return c.Memory.Update(ctx, s)
}

func TestMutate_RetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, newSession("AAABBB")))
	cs := &conflictingStore{Memory: m, conflicts: 2}

	calls := 0
	updated, err := Mutate(ctx, cs, "AAABBB", func(s *types.Session) error {
		calls++
		s.PartnerID = "bob"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "fn re-runs against a fresh read per attempt")
	assert.Equal(t, "bob", updated.PartnerID)
}

func TestMutate_GivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Create(ctx, newSession("AAABBB")))
	cs := &conflictingStore{Memory: m, conflicts: 100}

	_, err := Mutate(ctx, cs, "AAABBB", func(s *types.Session) error { return nil })
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeStoreUnavailable))
	assert.True(t, errors.Is(err, interfaces.ErrVersionConflict))
}
