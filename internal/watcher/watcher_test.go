package watcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeEvents struct {
	mu         sync.Mutex
	fn         func(string)
	err        error
	unregister atomic.Int32
}

func (f *fakeEvents) OnTabsChanged(_ context.Context, fn func(string)) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
	// Deliver synchronously, as the CDP client does for events that race
	// with target discovery.
	fn("https://www.youtube.com/")
	return func() { f.unregister.Add(1) }, nil
}

func (f *fakeEvents) emit(url string) {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	fn(url)
}

func TestWatcherDebouncesBursts(t *testing.T) {
	ev := &fakeEvents{}
	var refreshes atomic.Int32
	done := make(chan struct{}, 4)
	w := New(ev, RefresherFunc(func(context.Context) {
		refreshes.Add(1)
		done <- struct{}{}
	}), 50*time.Millisecond)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		ev.emit("https://www.youtube.com/watch?v=1")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh after tab change")
	}
	time.Sleep(150 * time.Millisecond)
	if got := refreshes.Load(); got != 1 {
		t.Fatalf("refreshes = %d; want 1", got)
	}

	ev.emit("https://example.com/")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh after second change")
	}
}

func TestWatcherStopCancelsPending(t *testing.T) {
	ev := &fakeEvents{}
	var refreshes atomic.Int32
	w := New(ev, RefresherFunc(func(context.Context) { refreshes.Add(1) }), 100*time.Millisecond)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	w.Stop()
	ev.emit("https://www.youtube.com/")
	time.Sleep(250 * time.Millisecond)

	if got := refreshes.Load(); got != 0 {
		t.Fatalf("refreshes = %d; want 0 after Stop", got)
	}
	if ev.unregister.Load() != 1 {
		t.Fatalf("unregister calls = %d; want 1", ev.unregister.Load())
	}
	w.Stop()
}

func TestWatcherStartError(t *testing.T) {
	ev := &fakeEvents{err: errors.New("cdp down")}
	w := New(ev, RefresherFunc(func(context.Context) {}), 0)
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("Start() = nil; want error")
	}
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("second Start() = nil; want error from events source")
	}
}
