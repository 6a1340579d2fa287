package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

func startedHub(t *testing.T) *Hub {
	t.Helper()
	h := New()
	require.NoError(t, h.Start(context.Background()))
	t.Cleanup(func() { _ = h.Stop() })
	return h
}

func waitForSubscribers(t *testing.T, h *Hub, code string, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if h.SubscriberCount(code) == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("subscriber count for %s never reached %d", code, want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func receiveUpdate(t *testing.T, sub *Subscription) *types.Session {
	t.Helper()
	select {
	case s := <-sub.Updates:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no update arrived")
		return nil
	}
}

func TestHub_StartStop(t *testing.T) {
	h := New()
	require.NoError(t, h.Start(context.Background()))
	assert.ErrorIs(t, h.Start(context.Background()), ErrHubAlreadyRunning)

	require.NoError(t, h.Stop())
	assert.ErrorIs(t, h.Stop(), ErrHubNotRunning)
}

func TestHub_PublishReachesSubscriber(t *testing.T) {
	h := startedHub(t)

	sub, err := h.Subscribe("AAABBB")
	require.NoError(t, err)
	waitForSubscribers(t, h, "AAABBB", 1)

	h.Publish(&types.Session{Code: "AAABBB", Version: 2})

	got := receiveUpdate(t, sub)
	assert.Equal(t, "AAABBB", got.Code)
	assert.Equal(t, int64(2), got.Version)
}

func TestHub_SubscribeNormalizesCode(t *testing.T) {
	h := startedHub(t)

	sub, err := h.Subscribe("aaa bbb")
	require.NoError(t, err)
	assert.Equal(t, "AAABBB", sub.Code)
	waitForSubscribers(t, h, "AAABBB", 1)

	h.Publish(&types.Session{Code: "AAABBB"})
	receiveUpdate(t, sub)
}

func TestHub_PublishIsScopedByCode(t *testing.T) {
	h := startedHub(t)

	mine, err := h.Subscribe("AAABBB")
	require.NoError(t, err)
	other, err := h.Subscribe("CCCDDD")
	require.NoError(t, err)
	waitForSubscribers(t, h, "AAABBB", 1)
	waitForSubscribers(t, h, "CCCDDD", 1)

	h.Publish(&types.Session{Code: "AAABBB"})

	receiveUpdate(t, mine)
	select {
	case s := <-other.Updates:
		t.Fatalf("subscriber of another session received %v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_MultipleSubscribersSameCode(t *testing.T) {
	h := startedHub(t)

	first, err := h.Subscribe("AAABBB")
	require.NoError(t, err)
	second, err := h.Subscribe("AAABBB")
	require.NoError(t, err)
	waitForSubscribers(t, h, "AAABBB", 2)

	h.Publish(&types.Session{Code: "AAABBB"})
	receiveUpdate(t, first)
	receiveUpdate(t, second)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := startedHub(t)

	sub, err := h.Subscribe("AAABBB")
	require.NoError(t, err)
	waitForSubscribers(t, h, "AAABBB", 1)

	h.Unsubscribe(sub)
	waitForSubscribers(t, h, "AAABBB", 0)

	// The updates channel closes so a streaming loop can exit.
	select {
	case _, open := <-sub.Updates:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("updates channel never closed")
	}
}

func TestHub_StopClosesSubscribers(t *testing.T) {
	h := New()
	require.NoError(t, h.Start(context.Background()))

	sub, err := h.Subscribe("AAABBB")
	require.NoError(t, err)
	waitForSubscribers(t, h, "AAABBB", 1)

	require.NoError(t, h.Stop())

	select {
	case _, open := <-sub.Updates:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("updates channel never closed on shutdown")
	}
}

func TestHub_OperationsWhenNotRunning(t *testing.T) {
	h := New()

	_, err := h.Subscribe("AAABBB")
	assert.ErrorIs(t, err, ErrHubNotRunning)

	// Publish before Start must be a silent no-op.
	h.Publish(&types.Session{Code: "AAABBB"})
}
