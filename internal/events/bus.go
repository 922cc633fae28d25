package events

import (
	"context"
	"sync"

	"github.com/usdtgate/usdtgate/internal/pkg/logger"
)

// subscriberBufferSize bounds how far a slow subscriber may lag before
// events addressed to it are dropped.
const subscriberBufferSize = 16

// Bus is a minimal in-process publish/subscribe dispatcher. Publishing never
// blocks on slow subscribers: events beyond a subscriber's buffer are dropped
// and logged, keeping the indexing loops isolated from consumer stalls.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Kind]map[int]chan Event
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[Kind]map[int]chan Event),
	}
}

// Publish delivers e to every subscriber of its kind.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[e.Kind()] {
		select {
		case ch <- e:
		default:
			logger.Warn(ctx, "dropping event for slow subscriber", "event.kind", e.Kind())
		}
	}
}

// Subscribe registers interest in the given kinds. It returns a receive
// channel and an unsubscribe function that removes the registration and
// closes the channel. Unsubscribe is idempotent.
func (b *Bus) Subscribe(kinds ...Kind) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBufferSize)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	for _, kind := range kinds {
		if b.subs[kind] == nil {
			b.subs[kind] = make(map[int]chan Event)
		}
		b.subs[kind][id] = ch
	}
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			for _, kind := range kinds {
				delete(b.subs[kind], id)
			}
			b.mu.Unlock()
			close(ch)
		})
	}

	return ch, unsubscribe
}
