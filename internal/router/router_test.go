package router

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/petrolink/marketstream/internal/metrics"
	"github.com/petrolink/marketstream/internal/model"
	"github.com/petrolink/marketstream/internal/registry"
)

type fakeTransport struct {
	mu         sync.Mutex
	frames     [][]byte
	failWrites bool
}

func (f *fakeTransport) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("broken pipe")
	}
	if messageType == websocket.TextMessage {
		f.frames = append(f.frames, append([]byte(nil), data...))
	}
	return nil
}

func (f *fakeTransport) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return nil
}

func (f *fakeTransport) SetWriteDeadline(t time.Time) error { return nil }
func (f *fakeTransport) Close() error                       { return nil }

func (f *fakeTransport) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeTransport) frame(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames[i]
}

func newTestRegistry(t *testing.T) registry.Registry {
	t.Helper()
	reg := registry.NewRegistry(registry.DefaultConfig(), metrics.New("test"), nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		reg.Stop(ctx)
	})
	return reg
}

func waitFrames(t *testing.T, ft *fakeTransport, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for ft.frameCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d frames, have %d", n, ft.frameCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRouter_PublishReachesOnlySubscribers(t *testing.T) {
	reg := newTestRegistry(t)
	rtr := NewRouter(reg, nil)

	subbed := &fakeTransport{}
	bystander := &fakeTransport{}
	subID := reg.Register(subbed, "")
	reg.Register(bystander, "")
	reg.Subscribe(subID, "market_data_crude_oil")

	n := rtr.Publish("market_data_crude_oil", model.NewError("x"))
	if n != 1 {
		t.Errorf("Publish returned %d, want 1", n)
	}

	waitFrames(t, subbed, 1)

	time.Sleep(20 * time.Millisecond)
	if bystander.frameCount() != 0 {
		t.Errorf("bystander received %d frames, want 0", bystander.frameCount())
	}
}

func TestRouter_FIFOPerConnection(t *testing.T) {
	reg := newTestRegistry(t)
	rtr := NewRouter(reg, nil)

	ft := &fakeTransport{}
	id := reg.Register(ft, "")
	reg.Subscribe(id, "trading_activity")

	const total = 20
	for i := 0; i < total; i++ {
		rtr.Publish("trading_activity", model.NewError(string(rune('a'+i))))
	}

	waitFrames(t, ft, total)

	for i := 0; i < total; i++ {
		var env model.ErrorMessage
		if err := json.Unmarshal(ft.frame(i), &env); err != nil {
			t.Fatalf("unmarshal frame %d: %v", i, err)
		}
		if env.Message != string(rune('a'+i)) {
			t.Fatalf("frame %d = %q, want %q (out of order)", i, env.Message, string(rune('a'+i)))
		}
	}
}

func TestRouter_BrokenSubscriberDoesNotBlockOthers(t *testing.T) {
	reg := newTestRegistry(t)
	rtr := NewRouter(reg, nil)

	broken := &fakeTransport{failWrites: true}
	healthy := &fakeTransport{}
	brokenID := reg.Register(broken, "")
	healthyID := reg.Register(healthy, "")
	reg.Subscribe(brokenID, "market_data_all")
	reg.Subscribe(healthyID, "market_data_all")

	// First publish surfaces the broken transport; subsequent publishes
	// must keep flowing to the healthy one.
	for i := 0; i < 3; i++ {
		rtr.Publish("market_data_all", model.NewError("tick"))
		time.Sleep(10 * time.Millisecond)
	}

	waitFrames(t, healthy, 3)
}

func TestRouter_PublishToEmptyTopic(t *testing.T) {
	reg := newTestRegistry(t)
	rtr := NewRouter(reg, nil)

	if n := rtr.Publish("nobody_home", model.NewPong()); n != 0 {
		t.Errorf("Publish to empty topic returned %d, want 0", n)
	}

	stats := rtr.Stats()
	if stats.Published != 1 || stats.Delivered != 0 {
		t.Errorf("Stats() = %+v, want Published=1 Delivered=0", stats)
	}
}
