package notify

import (
	"context"
	"sync"

	"fleetonboard/pkg/domain"
)

// Publisher emits change events after table mutations.
type Publisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

// Subscriber yields a stream of change events. The channel closes when
// the context is cancelled; anything arriving later is discarded.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error)
}

// Notifier combines both sides of the change feed.
type Notifier interface {
	Publisher
	Subscriber
}

// MemoryNotifier fans events out to in-process subscribers. It backs
// tests and single-node deployments without a broker.
type MemoryNotifier struct {
	mu   sync.Mutex
	subs map[chan domain.ChangeEvent]struct{}
}

// NewMemoryNotifier initializes an empty notifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{subs: make(map[chan domain.ChangeEvent]struct{})}
}

// Publish delivers the event to every live subscriber. Slow subscribers
// miss events rather than block the publisher; a missed event is safe
// because consumers re-fetch on any event.
func (n *MemoryNotifier) Publish(_ context.Context, event domain.ChangeEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is cancelled.
func (n *MemoryNotifier) Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error) {
	ch := make(chan domain.ChangeEvent, 16)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.subs, ch)
		n.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
