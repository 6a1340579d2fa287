package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/Emixee/intimacy-play-sub001/pkg/database"
	"github.com/Emixee/intimacy-play-sub001/pkg/interfaces"
	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	cfg := dbconfig.DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "test.db")

	store, err := NewStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSession(code string) *types.Session {
	return &types.Session{
		Code:           code,
		CreatorID:      "alice",
		CreatorGender:  types.GenderFemale,
		Status:         types.StatusWaiting,
		ChallengeCount: 2,
		StartIntensity: 1,
		CurrentPlayer:  types.RoleCreator,
		Challenges: []types.SessionChallenge{
			{Prompt: "first", Level: 1, Media: types.MediaText, ForPlayer: types.RoleCreator, ForGender: types.GenderFemale},
			{Prompt: "second", Level: 1, Media: types.MediaText, ForPlayer: types.RolePartner, ForGender: types.GenderMale},
		},
		ChangesUsed:  map[types.Role]int{},
		BonusChanges: map[types.Role]int{},
		CreatedAt:    time.Now().UTC(),
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	session := sampleSession("ABCDEF")
	require.NoError(t, store.Create(ctx, session))
	assert.Equal(t, int64(1), session.Version)

	got, err := store.Get(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.CreatorID)
	assert.Equal(t, int64(1), got.Version)
	assert.Len(t, got.Challenges, 2)
	assert.NotNil(t, got.ChangesUsed)
	assert.NotNil(t, got.BonusChanges)
}

func TestStore_CreateDuplicateCode(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	require.NoError(t, store.Create(ctx, sampleSession("ABCDEF")))
	err := store.Create(ctx, sampleSession("ABCDEF"))
	assert.ErrorIs(t, err, interfaces.ErrCodeTaken)
}

func TestStore_GetMissing(t *testing.T) {
	store := testStore(t)
	_, err := store.Get(context.Background(), "NOPE22")
	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)
}

func TestStore_UpdateBumpsVersion(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	require.NoError(t, store.Create(ctx, sampleSession("ABCDEF")))

	got, err := store.Get(ctx, "ABCDEF")
	require.NoError(t, err)
	got.PartnerID = "bob"
	got.Status = types.StatusActive
	require.NoError(t, store.Update(ctx, got))
	assert.Equal(t, int64(2), got.Version)

	stored, err := store.Get(ctx, "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, "bob", stored.PartnerID)
	assert.Equal(t, types.StatusActive, stored.Status)
	assert.Equal(t, int64(2), stored.Version)
}

func TestStore_UpdateVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	require.NoError(t, store.Create(ctx, sampleSession("ABCDEF")))

	first, err := store.Get(ctx, "ABCDEF")
	require.NoError(t, err)
	second, err := store.Get(ctx, "ABCDEF")
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, first))

	err = store.Update(ctx, second)
	assert.ErrorIs(t, err, interfaces.ErrVersionConflict)
	assert.Equal(t, int64(1), second.Version, "failed update restores the version")
}

func TestStore_UpdateMissing(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	ghost := sampleSession("GHOST2")
	ghost.Version = 1
	err := store.Update(ctx, ghost)
	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	require.NoError(t, store.Create(ctx, sampleSession("ABCDEF")))

	require.NoError(t, store.Delete(ctx, "ABCDEF"))
	_, err := store.Get(ctx, "ABCDEF")
	assert.ErrorIs(t, err, interfaces.ErrSessionNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "ABCDEF"), interfaces.ErrSessionNotFound)
}

func TestStore_SessionsByUser(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	created := sampleSession("AAAAAA")
	joined := sampleSession("BBBBBB")
	joined.CreatorID = "carol"
	joined.PartnerID = "alice"
	other := sampleSession("CCCCCC")
	other.CreatorID = "carol"

	for _, s := range []*types.Session{created, joined, other} {
		require.NoError(t, store.Create(ctx, s))
	}

	sessions, err := store.SessionsByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestStore_PublishesOnWrites(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	notifier := &captureNotifier{}
	store.SetNotifier(notifier)

	session := sampleSession("ABCDEF")
	require.NoError(t, store.Create(ctx, session))
	got, err := store.Get(ctx, "ABCDEF")
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, got))

	require.Len(t, notifier.published, 2)
	assert.Equal(t, "ABCDEF", notifier.published[1].Code)
	assert.Equal(t, int64(2), notifier.published[1].Version)
}

type captureNotifier struct {
	published []*types.Session
}

func (c *captureNotifier) Publish(s *types.Session) {
	c.published = append(c.published, s)
}

func TestStore_HealthCheck(t *testing.T) {
	store := testStore(t)
	assert.NoError(t, store.HealthCheck(context.Background()))
}

func TestStore_CloseIsIdempotent(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
