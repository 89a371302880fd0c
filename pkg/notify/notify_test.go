package notify

import (
	"context"
	"testing"
	"time"

	"fleetonboard/pkg/domain"
)

func TestMemoryNotifierFanOut(t *testing.T) {
	n := NewMemoryNotifier()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub1, err := n.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	sub2, err := n.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	event := domain.ChangeEvent{Table: domain.TableApplications, Op: domain.OpInsert, RecordID: "a1"}
	if err := n.Publish(ctx, event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for i, sub := range []<-chan domain.ChangeEvent{sub1, sub2} {
		select {
		case got := <-sub:
			if got.RecordID != "a1" || got.Op != domain.OpInsert {
				t.Fatalf("subscriber %d got %+v", i, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d received nothing", i)
		}
	}
}

func TestMemoryNotifierClosesOnCancel(t *testing.T) {
	n := NewMemoryNotifier()
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := n.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cancel()

	select {
	case _, open := <-sub:
		if open {
			t.Fatal("expected closed channel, got an event")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Publishing after unsubscribe must not panic or block.
	if err := n.Publish(context.Background(), domain.ChangeEvent{Table: domain.TableApplications}); err != nil {
		t.Fatalf("Publish after cancel: %v", err)
	}
}

func TestMemoryNotifierDropsForSlowSubscriber(t *testing.T) {
	n := NewMemoryNotifier()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := n.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// Overfill the buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			_ = n.Publish(ctx, domain.ChangeEvent{Table: domain.TableApplications})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	// The buffered portion is still deliverable.
	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("no buffered event delivered")
	}
}
