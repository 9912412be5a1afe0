// Package broadcast fans settlement events out to an arbitrary number of
// subscribers without ever blocking the producer. Each subscriber owns a
// bounded queue; when a slow consumer fills it, the oldest queued event is
// dropped to make room for the newest.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"

	"github.com/rollupmon/rollupmon/types"
)

const DefaultCapacity = 1000

type Broadcaster struct {
	log      log.Logger
	capacity int

	mu   sync.Mutex
	subs map[*Subscription]struct{}

	dropped atomic.Uint64
}

// Subscription is one consumer's bounded view of the event stream.
// Events created before Subscribe returned are never delivered.
type Subscription struct {
	b  *Broadcaster
	ch chan types.RollupEvent

	once sync.Once
}

func New(logger log.Logger, capacity int) *Broadcaster {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Broadcaster{
		log:      logger,
		capacity: capacity,
		subs:     make(map[*Subscription]struct{}),
	}
}

func (b *Broadcaster) Subscribe() *Subscription {
	sub := &Subscription{
		b:  b,
		ch: make(chan types.RollupEvent, b.capacity),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish delivers ev to every current subscriber. It never blocks: a full
// subscriber queue sheds its oldest event first. Publishing with zero
// subscribers is a no-op.
func (b *Broadcaster) Publish(ev types.RollupEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
			continue
		default:
		}
		// Queue full: evict the oldest, then retry once. The second send
		// can still lose a race with a concurrent receiver, in which case
		// the queue has room next time around and losing ev is fine too.
		select {
		case <-sub.ch:
			b.dropped.Add(1)
		default:
		}
		select {
		case sub.ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns the total number of events shed across all subscribers.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcaster) remove(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// Events is the receive side of the subscription queue. It is never closed;
// consumers select on it together with their own shutdown signal.
func (s *Subscription) Events() <-chan types.RollupEvent {
	return s.ch
}

// Unsubscribe detaches the subscription. Safe to call more than once.
// Events already queued remain readable from Events().
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.b.remove(s)
	})
}
