package lifecycle

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Emixee/intimacy-play-sub001/internal/selection"
	"github.com/Emixee/intimacy-play-sub001/internal/store"
	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

func testPool() []types.ChallengeTemplate {
	var pool []types.ChallengeTemplate
	for level := 1; level <= 4; level++ {
		for i := 0; i < 40; i++ {
			pool = append(pool, types.ChallengeTemplate{
				ID:     fmt.Sprintf("classic-%d-%d", level, i),
				Gender: types.GenderAny,
				Level:  level,
				Theme:  types.ThemeClassic,
				Media:  types.MediaText,
				Prompt: fmt.Sprintf("classic prompt %d at level %d", i, level),
			})
		}
	}
	// one toy template so toy gating has content to gate
	pool = append(pool, types.ChallengeTemplate{
		ID: "toy-1", Gender: types.GenderAny, Level: 2, Theme: types.ThemeClassic,
		Media: types.MediaText, HasToy: true, Toy: "blindfold", Prompt: "bring out the blindfold",
	})
	return pool
}

func testService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	engine := selection.NewWithRand(testPool(), rand.New(rand.NewSource(7)))
	return NewService(mem, engine), mem
}

func creator() types.UserContext {
	return types.UserContext{ID: "alice", Gender: types.GenderFemale}
}

func partner() types.UserContext {
	return types.UserContext{ID: "bob", Gender: types.GenderMale}
}

func defaultConfig() types.SelectionConfig {
	return types.SelectionConfig{
		CreatorGender:  types.GenderFemale,
		PartnerGender:  types.GenderMale,
		Count:          10,
		StartIntensity: 1,
	}
}

func TestCreateSession(t *testing.T) {
	ctx := context.Background()
	svc, mem := testService(t)

	result, err := svc.CreateSession(ctx, creator(), defaultConfig())
	require.NoError(t, err)

	session := result.Session
	assert.True(t, types.IsValidCode(session.Code), "code %q is malformed", session.Code)
	assert.Equal(t, "alice", session.CreatorID)
	assert.Equal(t, types.StatusWaiting, session.Status)
	assert.Equal(t, 10, session.ChallengeCount)
	assert.Len(t, session.Challenges, 10)
	assert.Zero(t, session.CurrentIndex)
	assert.Equal(t, session.Challenges[0].ForPlayer, session.CurrentPlayer)
	assert.Empty(t, result.Warnings)

	stored, err := mem.Get(ctx, session.Code)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
}

func TestCreateSession_InvalidCreator(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.CreateSession(context.Background(), types.UserContext{ID: "bad id", Gender: types.GenderMale}, defaultConfig())
	assert.True(t, types.IsCode(err, types.CodeInvalidConfig))
}

func TestCreateSession_FreeTierLimits(t *testing.T) {
	ctx := context.Background()

	t.Run("thirty total is free", func(t *testing.T) {
		svc, _ := testService(t)
		cfg := defaultConfig()
		cfg.Count = 30
		_, err := svc.CreateSession(ctx, creator(), cfg)
		assert.NoError(t, err)
	})

	t.Run("thirty-one total needs premium", func(t *testing.T) {
		// 31 rounds up to 16 per player, past the free 15.
		svc, _ := testService(t)
		cfg := defaultConfig()
		cfg.Count = 31
		_, err := svc.CreateSession(ctx, creator(), cfg)
		assert.True(t, types.IsCode(err, types.CodePremiumRequired))
	})

	t.Run("premium lifts the count gate", func(t *testing.T) {
		svc, _ := testService(t)
		cfg := defaultConfig()
		cfg.Count = 40
		premium := creator()
		premium.Premium = true
		_, err := svc.CreateSession(ctx, premium, cfg)
		assert.NoError(t, err)
	})

	t.Run("start intensity four needs premium", func(t *testing.T) {
		svc, _ := testService(t)
		cfg := defaultConfig()
		cfg.StartIntensity = 4
		_, err := svc.CreateSession(ctx, creator(), cfg)
		assert.True(t, types.IsCode(err, types.CodePremiumRequired))
	})

	t.Run("toys need premium", func(t *testing.T) {
		svc, _ := testService(t)
		cfg := defaultConfig()
		cfg.Partner.IncludeToys = true
		cfg.Partner.Toys = []string{"blindfold"}
		_, err := svc.CreateSession(ctx, creator(), cfg)
		assert.True(t, types.IsCode(err, types.CodePremiumRequired))
	})
}

func TestCreateSession_PremiumFlagComesFromCaller(t *testing.T) {
	// A client claiming premium in the config must not bypass the gates.
	svc, _ := testService(t)
	cfg := defaultConfig()
	cfg.Premium = true
	cfg.StartIntensity = 4

	_, err := svc.CreateSession(context.Background(), creator(), cfg)
	assert.True(t, types.IsCode(err, types.CodePremiumRequired))
}

func TestCreateSession_EmptySelection(t *testing.T) {
	mem := store.NewMemory()
	engine := selection.NewWithRand(nil, rand.New(rand.NewSource(7)))
	svc := NewService(mem, engine)

	_, err := svc.CreateSession(context.Background(), creator(), defaultConfig())
	assert.True(t, types.IsCode(err, types.CodeNoChallengesAvailable))
}

func TestJoinSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService(t)

	created, err := svc.CreateSession(ctx, creator(), defaultConfig())
	require.NoError(t, err)

	joined, err := svc.JoinSession(ctx, created.Session.Code, partner())
	require.NoError(t, err)
	assert.Equal(t, types.StatusActive, joined.Status)
	assert.Equal(t, "bob", joined.PartnerID)
	assert.Equal(t, types.GenderMale, joined.PartnerGender)
	require.NotNil(t, joined.StartedAt)
}

func TestJoinSession_AcceptsDisplayFormat(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService(t)

	created, err := svc.CreateSession(ctx, creator(), defaultConfig())
	require.NoError(t, err)

	_, err = svc.JoinSession(ctx, types.FormatCode(created.Session.Code), partner())
	assert.NoError(t, err)
}

func TestJoinSession_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService(t)

	created, err := svc.CreateSession(ctx, creator(), defaultConfig())
	require.NoError(t, err)
	code := created.Session.Code

	t.Run("unknown code", func(t *testing.T) {
		_, err := svc.JoinSession(ctx, "ZZZZZZ", partner())
		assert.True(t, types.IsCode(err, types.CodeSessionNotFound))
	})

	t.Run("own session", func(t *testing.T) {
		_, err := svc.JoinSession(ctx, code, creator())
		assert.True(t, types.IsCode(err, types.CodeCannotJoinOwn))
	})

	t.Run("invalid gender", func(t *testing.T) {
		_, err := svc.JoinSession(ctx, code, types.UserContext{ID: "bob"})
		assert.True(t, types.IsCode(err, types.CodeInvalidConfig))
	})

	t.Run("already joined", func(t *testing.T) {
		_, err := svc.JoinSession(ctx, code, partner())
		require.NoError(t, err)
		_, err = svc.JoinSession(ctx, code, types.UserContext{ID: "carol", Gender: types.GenderFemale})
		assert.True(t, types.IsCode(err, types.CodeSessionNotJoinable))
	})
}

func TestJoinSession_Expired(t *testing.T) {
	ctx := context.Background()
	svc, mem := testService(t)

	created, err := svc.CreateSession(ctx, creator(), defaultConfig())
	require.NoError(t, err)
	code := created.Session.Code

	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	_, err = svc.JoinSession(ctx, code, partner())
	assert.True(t, types.IsCode(err, types.CodeSessionExpired))

	// Expiration is lazy: the failed join flips the session to abandoned.
	stored, err := mem.Get(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, types.StatusAbandoned, stored.Status)
}

func TestJoinSession_JustInsideWindow(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService(t)

	created, err := svc.CreateSession(ctx, creator(), defaultConfig())
	require.NoError(t, err)

	svc.now = func() time.Time { return created.Session.CreatedAt.Add(23 * time.Hour) }

	_, err = svc.JoinSession(ctx, created.Session.Code, partner())
	assert.NoError(t, err)
}

func TestGetSession_MembershipGate(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService(t)

	created, err := svc.CreateSession(ctx, creator(), defaultConfig())
	require.NoError(t, err)
	code := created.Session.Code

	_, err = svc.GetSession(ctx, code, "alice")
	assert.NoError(t, err)

	_, err = svc.GetSession(ctx, code, "mallory")
	assert.True(t, types.IsCode(err, types.CodeNotAMember))

	_, err = svc.GetSession(ctx, "ZZZZZZ", "alice")
	assert.True(t, types.IsCode(err, types.CodeSessionNotFound))
}

func TestAbandonSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService(t)

	created, err := svc.CreateSession(ctx, creator(), defaultConfig())
	require.NoError(t, err)
	code := created.Session.Code

	session, err := svc.AbandonSession(ctx, code, "alice")
	require.NoError(t, err)
	assert.Equal(t, types.StatusAbandoned, session.Status)

	_, err = svc.AbandonSession(ctx, code, "alice")
	assert.True(t, types.IsCode(err, types.CodeSessionNotActive))
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService(t)

	created, err := svc.CreateSession(ctx, creator(), defaultConfig())
	require.NoError(t, err)
	code := created.Session.Code

	t.Run("partner cannot delete", func(t *testing.T) {
		err := svc.DeleteSession(ctx, code, "bob")
		assert.True(t, types.IsCode(err, types.CodeCreatorOnly))
	})

	t.Run("active session is protected", func(t *testing.T) {
		_, err := svc.JoinSession(ctx, code, partner())
		require.NoError(t, err)
		err = svc.DeleteSession(ctx, code, "alice")
		assert.True(t, types.IsCode(err, types.CodeSessionActive))
	})

	t.Run("creator deletes after it ends", func(t *testing.T) {
		_, err := svc.AbandonSession(ctx, code, "alice")
		require.NoError(t, err)
		require.NoError(t, svc.DeleteSession(ctx, code, "alice"))

		_, err = svc.GetSession(ctx, code, "alice")
		assert.True(t, types.IsCode(err, types.CodeSessionNotFound))
	})
}

func TestActiveSessionsAndHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService(t)

	first, err := svc.CreateSession(ctx, creator(), defaultConfig())
	require.NoError(t, err)
	second, err := svc.CreateSession(ctx, creator(), defaultConfig())
	require.NoError(t, err)

	_, err = svc.AbandonSession(ctx, second.Session.Code, "alice")
	require.NoError(t, err)

	active, err := svc.ActiveSessions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.Session.Code, active[0].Code)

	history, err := svc.SessionHistory(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, second.Session.Code, history[0].Code)
}
