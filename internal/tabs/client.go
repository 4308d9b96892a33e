package tabs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/target"
	"github.com/dgnsrekt/yt_agent/internal/types"
)

var errNotConnected = errors.New("rawcdp: not connected")

// ErrNoActiveTab is returned by ActiveTab when no page is visible.
var ErrNoActiveTab = errors.New("no active tab")

// visibilityJS reports whether the page is the one the user is looking at.
const visibilityJS = `JSON.stringify({visible: document.visibilityState === "visible", focused: document.hasFocus()})`

// Client controls browser tabs over the Chrome DevTools Protocol.
type Client struct {
	cdpURL      string
	evalTimeout time.Duration

	mu  sync.Mutex
	cdp *rawCDP
}

// NewClient returns a tab client for the CDP endpoint at cdpURL
// (e.g. "http://127.0.0.1:9222"). A nil httpClient uses http.DefaultClient.
func NewClient(cdpURL string, evalTimeout time.Duration, httpClient *http.Client) *Client {
	if evalTimeout <= 0 {
		evalTimeout = 2 * time.Second
	}
	return &Client{
		cdpURL:      cdpURL,
		evalTimeout: evalTimeout,
		cdp:         newRawCDP(cdpURL, httpClient),
	}
}

// Connect dials the browser. Later calls reconnect on demand when the
// connection drops.
func (c *Client) Connect(ctx context.Context) error {
	if c.cdpURL == "" {
		return errors.New("missing CDP URL")
	}
	slog.Info("tabs connect start", "cdp_url", c.cdpURL)
	if err := c.cdp.connect(ctx); err != nil {
		return fmt.Errorf("connect to CDP failed: %w", err)
	}
	slog.Info("tabs connect ok", "cdp_url", c.cdpURL)
	return nil
}

func (c *Client) Close() error {
	c.cdp.close()
	return nil
}

func (c *Client) ensureConnected(ctx context.Context) (*rawCDP, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cdp.connected() {
		slog.Warn("tabs reconnecting to CDP", "cdp_url", c.cdpURL)
		if err := c.cdp.connect(ctx); err != nil {
			return nil, fmt.Errorf("connect to CDP failed: %w", err)
		}
	}
	return c.cdp, nil
}

// QueryTabs lists page tabs whose URL matches q.URLPattern, in the browser's
// most-recently-used order.
func (c *Client) QueryTabs(ctx context.Context, q types.TabQuery) ([]types.Tab, error) {
	cdp, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}
	targets, err := cdp.listTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}

	out := make([]types.Tab, 0, len(targets))
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if q.URLPattern != "" && !MatchPattern(q.URLPattern, t.URL) {
			continue
		}
		tab := types.Tab{ID: string(t.TargetID), URL: t.URL, Title: t.Title}
		if wid, err := cdp.windowForTarget(ctx, t.TargetID); err == nil {
			tab.WindowID = int(wid)
		} else {
			slog.Debug("tabs window lookup failed", "target_id", t.TargetID, "error", err)
		}
		out = append(out, tab)
	}
	slog.Debug("tabs query", "pattern", q.URLPattern, "targets", len(targets), "matched", len(out))
	return out, nil
}

// ActiveTab returns the page the user is looking at: a visible page holding
// focus, else the first visible page.
func (c *Client) ActiveTab(ctx context.Context) (types.Tab, error) {
	all, err := c.QueryTabs(ctx, types.TabQuery{})
	if err != nil {
		return types.Tab{}, err
	}

	var fallback *types.Tab
	for i := range all {
		visible, focused, err := c.visibility(ctx, target.ID(all[i].ID))
		if err != nil {
			slog.Debug("tabs visibility check failed", "target_id", all[i].ID, "error", err)
			continue
		}
		if visible && focused {
			return all[i], nil
		}
		if visible && fallback == nil {
			fallback = &all[i]
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return types.Tab{}, ErrNoActiveTab
}

func (c *Client) visibility(ctx context.Context, targetID target.ID) (bool, bool, error) {
	cdp, err := c.ensureConnected(ctx)
	if err != nil {
		return false, false, err
	}

	evalCtx, cancel := context.WithTimeout(ctx, c.evalTimeout)
	defer cancel()

	sessionID, err := cdp.attachToTarget(evalCtx, targetID)
	if err != nil {
		return false, false, err
	}
	defer func() {
		detachCtx, detachCancel := context.WithTimeout(context.Background(), time.Second)
		defer detachCancel()
		if err := cdp.detachFromTarget(detachCtx, sessionID); err != nil {
			slog.Debug("tabs detach failed", "target_id", targetID, "error", err)
		}
	}()

	raw, err := cdp.evaluate(evalCtx, sessionID, visibilityJS)
	if err != nil {
		return false, false, err
	}
	var out struct {
		Visible bool `json:"visible"`
		Focused bool `json:"focused"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return false, false, fmt.Errorf("invalid visibility result: %w", err)
	}
	return out.Visible, out.Focused, nil
}

// ActivateTab makes the tab the selected one in its window.
func (c *Client) ActivateTab(ctx context.Context, tabID string) error {
	cdp, err := c.ensureConnected(ctx)
	if err != nil {
		return err
	}
	if err := cdp.activateTarget(ctx, target.ID(tabID)); err != nil {
		return fmt.Errorf("activate tab %s: %w", tabID, err)
	}
	return nil
}

// FocusWindow restores the window if it is minimized and leaves maximized or
// fullscreen windows alone. Raising it above other applications happens
// through ActivateTab.
func (c *Client) FocusWindow(ctx context.Context, windowID int) error {
	cdp, err := c.ensureConnected(ctx)
	if err != nil {
		return err
	}
	wid := browser.WindowID(windowID)
	state, err := cdp.windowState(ctx, wid)
	if err != nil {
		return fmt.Errorf("focus window %d: %w", windowID, err)
	}
	if state != browser.WindowStateMinimized {
		return nil
	}
	if err := cdp.restoreWindow(ctx, wid); err != nil {
		return fmt.Errorf("focus window %d: %w", windowID, err)
	}
	return nil
}

// CreateTab opens url in a new foreground tab.
func (c *Client) CreateTab(ctx context.Context, url string) (types.Tab, error) {
	cdp, err := c.ensureConnected(ctx)
	if err != nil {
		return types.Tab{}, err
	}
	id, err := cdp.createTarget(ctx, url)
	if err != nil {
		return types.Tab{}, fmt.Errorf("create tab: %w", err)
	}
	tab := types.Tab{ID: string(id), URL: url}
	if wid, err := cdp.windowForTarget(ctx, id); err == nil {
		tab.WindowID = int(wid)
	}
	slog.Info("tabs created", "target_id", id, "url", url)
	return tab, nil
}

// OnTabsChanged enables target discovery and calls fn whenever a page target
// is created, navigated or closed. Info changes that leave the URL as it was,
// such as a debugger attaching, are dropped. The returned function removes
// the handlers.
func (c *Client) OnTabsChanged(ctx context.Context, fn func(url string)) (func(), error) {
	cdp, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	pages := make(map[target.ID]string)

	onInfo := func(_ string, params json.RawMessage) {
		var evt struct {
			TargetInfo *target.Info `json:"targetInfo"`
		}
		if err := json.Unmarshal(params, &evt); err != nil || evt.TargetInfo == nil {
			return
		}
		info := evt.TargetInfo
		if info.Type != "page" {
			return
		}
		mu.Lock()
		prev, known := pages[info.TargetID]
		pages[info.TargetID] = info.URL
		mu.Unlock()
		if known && prev == info.URL {
			return
		}
		fn(info.URL)
	}
	onDestroyed := func(_ string, params json.RawMessage) {
		var evt struct {
			TargetID target.ID `json:"targetId"`
		}
		if err := json.Unmarshal(params, &evt); err != nil {
			return
		}
		mu.Lock()
		_, known := pages[evt.TargetID]
		delete(pages, evt.TargetID)
		mu.Unlock()
		if known {
			fn("")
		}
	}

	unregs := []func(){
		cdp.registerEventHandler("Target.targetCreated", onInfo),
		cdp.registerEventHandler("Target.targetInfoChanged", onInfo),
		cdp.registerEventHandler("Target.targetDestroyed", onDestroyed),
	}
	unregister := func() {
		for _, u := range unregs {
			u()
		}
	}

	if err := cdp.setDiscoverTargets(ctx, true); err != nil {
		unregister()
		return nil, fmt.Errorf("enable target discovery: %w", err)
	}
	return unregister, nil
}
