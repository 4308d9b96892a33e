package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// TabEvents delivers tab navigation events. The returned function stops
// delivery.
type TabEvents interface {
	OnTabsChanged(ctx context.Context, fn func(url string)) (func(), error)
}

// Refresher recomputes the view for the active tab.
type Refresher interface {
	Refresh(ctx context.Context)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context)

func (f RefresherFunc) Refresh(ctx context.Context) { f(ctx) }

// Watcher refreshes the view whenever the browser's tabs change. Bursts of
// events within the debounce window collapse into one refresh.
type Watcher struct {
	events   TabEvents
	target   Refresher
	debounce time.Duration

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	timer      *time.Timer
	unregister func()
}

func New(events TabEvents, target Refresher, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 150 * time.Millisecond
	}
	return &Watcher{events: events, target: target, debounce: debounce}
}

// Start subscribes to tab events. Refreshes run with a context derived from
// ctx and stop when Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.ctx != nil {
		w.mu.Unlock()
		return errors.New("watcher already started")
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	runCtx := w.ctx
	w.mu.Unlock()

	// Events may arrive before OnTabsChanged returns, so w.mu is not held here.
	unreg, err := w.events.OnTabsChanged(runCtx, w.onChange)
	if err != nil {
		w.Stop()
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if runCtx.Err() != nil {
		unreg()
		return runCtx.Err()
	}
	w.unregister = unreg
	slog.Info("tab watcher started", "debounce", w.debounce)
	return nil
}

// Stop unsubscribes and cancels any pending refresh.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil {
		return
	}
	if w.unregister != nil {
		w.unregister()
		w.unregister = nil
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.cancel()
	w.ctx = nil
	slog.Info("tab watcher stopped")
}

func (w *Watcher) onChange(url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil || w.ctx.Err() != nil {
		return
	}
	slog.Debug("tab change", "url", url)
	if w.timer != nil {
		w.timer.Reset(w.debounce)
		return
	}
	ctx := w.ctx
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.target.Refresh(ctx)
	})
}
