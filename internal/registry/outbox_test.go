package registry

import (
	"fmt"
	"testing"

	"github.com/petrolink/marketstream/internal/model"
)

func TestOutbox_FIFO(t *testing.T) {
	b := NewOutbox(8)

	for i := 0; i < 5; i++ {
		if _, err := b.Push([]byte(fmt.Sprintf("m%d", i)), model.TypeMarketUpdate, true); err != nil {
			t.Fatalf("Push(%d) failed: %v", i, err)
		}
	}

	for i := 0; i < 5; i++ {
		data, msgType, ok := b.TryPop()
		if !ok {
			t.Fatalf("TryPop(%d) returned no frame", i)
		}
		if string(data) != fmt.Sprintf("m%d", i) {
			t.Errorf("TryPop(%d) = %q, want m%d", i, data, i)
		}
		if msgType != model.TypeMarketUpdate {
			t.Errorf("TryPop(%d) type = %q, want MARKET_UPDATE", i, msgType)
		}
	}

	if _, _, ok := b.TryPop(); ok {
		t.Error("TryPop on empty outbox returned a frame")
	}
}

func TestOutbox_ShedsOldestDroppable(t *testing.T) {
	b := NewOutbox(3)

	for i := 0; i < 3; i++ {
		if _, err := b.Push([]byte(fmt.Sprintf("tick%d", i)), model.TypeMarketUpdate, true); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	dropped, err := b.Push([]byte("tick3"), model.TypeMarketUpdate, true)
	if err != nil {
		t.Fatalf("Push on full outbox failed: %v", err)
	}
	if dropped != model.TypeMarketUpdate {
		t.Errorf("dropped = %q, want MARKET_UPDATE", dropped)
	}
	if b.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", b.Dropped())
	}

	// Oldest frame is gone; order of the rest preserved
	data, _, _ := b.TryPop()
	if string(data) != "tick1" {
		t.Errorf("first frame after shed = %q, want tick1", data)
	}
}

func TestOutbox_NeverShedsAlerts(t *testing.T) {
	b := NewOutbox(2)

	// Fill with non-droppable frames
	for i := 0; i < 2; i++ {
		if _, err := b.Push([]byte("alert"), model.TypePriceAlert, false); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	// Nothing can be shed: even a droppable push must fail rather than
	// evict an alert.
	if _, err := b.Push([]byte("tick"), model.TypeMarketUpdate, true); err != ErrQueueFull {
		t.Errorf("Push = %v, want ErrQueueFull", err)
	}
	if _, err := b.Push([]byte("alert2"), model.TypePriceAlert, false); err != ErrQueueFull {
		t.Errorf("Push non-droppable = %v, want ErrQueueFull", err)
	}
	if b.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", b.Dropped())
	}
}

func TestOutbox_Close(t *testing.T) {
	b := NewOutbox(4)

	if _, err := b.Push([]byte("before"), model.TypePong, false); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	b.Close()

	if _, err := b.Push([]byte("after"), model.TypePong, false); err != ErrClosed {
		t.Errorf("Push after Close = %v, want ErrClosed", err)
	}

	// Queued frames remain poppable
	data, _, ok := b.TryPop()
	if !ok || string(data) != "before" {
		t.Errorf("TryPop after Close = %q/%v, want before/true", data, ok)
	}
}

func TestOutbox_ReadySignal(t *testing.T) {
	b := NewOutbox(4)

	select {
	case <-b.Ready():
		t.Fatal("Ready signaled on empty outbox")
	default:
	}

	b.Push([]byte("x"), model.TypePong, false)

	select {
	case <-b.Ready():
	default:
		t.Fatal("Ready not signaled after Push")
	}
}
