package hub

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

// Hub fans full session snapshots out to observers keyed by session code.
// The store publishes after every successful write; subscribers (session
// UIs, notification hooks) receive whole documents, never deltas. A single
// processing goroutine owns the subscriber map, so fan-out never races
// with subscription changes.
type Hub struct {
	publishChannel     chan *types.Session
	subscribeChannel   chan *Subscription
	unsubscribeChannel chan *Subscription
	shutdownChannel    chan struct{}

	subscribers map[string]map[string]*Subscription // code -> subscription ID -> subscription

	running bool
	mu      sync.RWMutex
}

// Subscription is one observer of one session code. Updates arrive on a
// buffered channel; a subscriber too slow to drain its buffer misses
// intermediate snapshots but always receives the latest eventually.
type Subscription struct {
	ID      string
	Code    string
	Updates chan *types.Session
}

// New creates a hub.
func New() *Hub {
	return &Hub{
		publishChannel:     make(chan *types.Session, 256),
		subscribeChannel:   make(chan *Subscription, 64),
		unsubscribeChannel: make(chan *Subscription, 64),
		shutdownChannel:    make(chan struct{}),
		subscribers:        make(map[string]map[string]*Subscription),
	}
}

// Start begins hub processing.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.mu.Unlock()

	log.Println("Starting session watch hub...")
	go h.run(ctx)
	return nil
}

// Stop shuts down the hub and closes all subscriber channels.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return ErrHubNotRunning
	}
	h.running = false

	select {
	case <-h.shutdownChannel:
	default:
		close(h.shutdownChannel)
	}
	return nil
}

// Publish queues a session snapshot for fan-out. Implements
// interfaces.Notifier. Dropping on backpressure is acceptable: the next
// write publishes a fresher snapshot anyway.
func (h *Hub) Publish(session *types.Session) {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		return
	}

	select {
	case h.publishChannel <- session:
	default:
		log.Printf("Hub publish channel full, dropping snapshot for session %s", session.Code)
	}
}

// Subscribe registers an observer for a session code.
func (h *Hub) Subscribe(code string) (*Subscription, error) {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		return nil, ErrHubNotRunning
	}

	sub := &Subscription{
		ID:      uuid.NewString(),
		Code:    types.NormalizeCode(code),
		Updates: make(chan *types.Session, 16),
	}

	select {
	case h.subscribeChannel <- sub:
		return sub, nil
	default:
		return nil, ErrPublishFull
	}
}

// Unsubscribe removes an observer. Safe to call after Stop.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		return
	}

	select {
	case h.unsubscribeChannel <- sub:
	default:
	}
}

// SubscriberCount reports the observers registered for a code.
// Test and stats helper; the count is read outside the run loop so it can
// lag a queued subscribe by a moment.
func (h *Hub) SubscriberCount(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[types.NormalizeCode(code)])
}

func (h *Hub) run(ctx context.Context) {
	defer log.Println("Session watch hub stopped")

	for {
		select {
		case session := <-h.publishChannel:
			h.fanOut(session)

		case sub := <-h.subscribeChannel:
			h.mu.Lock()
			if h.subscribers[sub.Code] == nil {
				h.subscribers[sub.Code] = make(map[string]*Subscription)
			}
			h.subscribers[sub.Code][sub.ID] = sub
			h.mu.Unlock()

		case sub := <-h.unsubscribeChannel:
			h.mu.Lock()
			if subs, ok := h.subscribers[sub.Code]; ok {
				if _, present := subs[sub.ID]; present {
					delete(subs, sub.ID)
					close(sub.Updates)
					if len(subs) == 0 {
						delete(h.subscribers, sub.Code)
					}
				}
			}
			h.mu.Unlock()

		case <-h.shutdownChannel:
			h.closeAll()
			return

		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) fanOut(session *types.Session) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers[session.Code] {
		select {
		case sub.Updates <- session:
		default:
			// Subscriber buffer full; it will catch up on the next write.
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for code, subs := range h.subscribers {
		for id, sub := range subs {
			close(sub.Updates)
			delete(subs, id)
		}
		delete(h.subscribers, code)
	}
}
