package tabs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/target"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// rawCDP is a minimal browser-level CDP client. Tab control only needs a
// handful of Target/Browser commands plus short-lived page sessions, so it
// talks to the browser websocket directly instead of using chromedp's
// per-target contexts.
type rawCDP struct {
	httpBase string // e.g. "http://127.0.0.1:9222"
	client   *http.Client

	mu   sync.Mutex
	conn net.Conn
	seq  atomic.Int64

	pending   map[int64]chan json.RawMessage
	pendingMu sync.Mutex

	eventMu       sync.RWMutex
	eventHandlers map[string][]eventHandler

	// discover is re-sent on every new socket so event handlers keep firing
	// across reconnects.
	discover atomic.Bool
}

type eventHandler struct {
	id int64
	fn func(sessionID string, params json.RawMessage)
}

func newRawCDP(httpBase string, client *http.Client) *rawCDP {
	if client == nil {
		client = http.DefaultClient
	}
	return &rawCDP{
		httpBase:      strings.TrimRight(httpBase, "/"),
		client:        client,
		pending:       make(map[int64]chan json.RawMessage),
		eventHandlers: make(map[string][]eventHandler),
	}
}

// connect dials the browser-level WebSocket endpoint and restores target
// discovery on the new socket when it was enabled before.
func (r *rawCDP) connect(ctx context.Context) error {
	dialed, err := r.dial(ctx)
	if err != nil || !dialed || !r.discover.Load() {
		return err
	}
	if err := r.setDiscoverTargets(ctx, true); err != nil {
		return fmt.Errorf("rawcdp: restore target discovery: %w", err)
	}
	slog.Info("rawcdp target discovery restored after reconnect")
	return nil
}

func (r *rawCDP) dial(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return false, nil
	}

	wsURL, err := r.browserWSURL(ctx)
	if err != nil {
		return false, fmt.Errorf("rawcdp: browser ws url: %w", err)
	}

	slog.Debug("rawcdp connecting", "ws_url", wsURL)
	conn, _, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		return false, fmt.Errorf("rawcdp: dial: %w", err)
	}

	r.conn = conn
	r.pendingMu.Lock()
	r.pending = make(map[int64]chan json.RawMessage)
	r.pendingMu.Unlock()
	go r.readLoop(conn)
	return true, nil
}

func (r *rawCDP) connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

func (r *rawCDP) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
}

// readLoop dispatches responses to waiters and events to handlers until the
// connection drops. A dropped connection is forgotten so the next call can
// reconnect.
func (r *rawCDP) readLoop(conn net.Conn) {
	for {
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			slog.Warn("rawcdp connection lost", "error", err)
			r.mu.Lock()
			if r.conn == conn {
				_ = r.conn.Close()
				r.conn = nil
			}
			r.mu.Unlock()
			r.closeAllPending()
			return
		}

		var msg struct {
			ID        int64           `json:"id"`
			Method    string          `json:"method"`
			SessionID string          `json:"sessionId"`
			Params    json.RawMessage `json:"params"`
		}
		if json.Unmarshal(data, &msg) != nil {
			continue
		}
		if msg.ID > 0 {
			r.pendingMu.Lock()
			ch, ok := r.pending[msg.ID]
			if ok {
				delete(r.pending, msg.ID)
			}
			r.pendingMu.Unlock()
			if ok {
				ch <- json.RawMessage(data)
			}
		} else if msg.Method != "" {
			r.dispatchEvent(msg.Method, msg.SessionID, msg.Params)
		}
	}
}

func (r *rawCDP) closeAllPending() {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	for id, ch := range r.pending {
		close(ch)
		delete(r.pending, id)
	}
}

func (r *rawCDP) deletePending(id int64) {
	r.pendingMu.Lock()
	delete(r.pending, id)
	r.pendingMu.Unlock()
}

// sendRaw marshals an envelope, sends it over the WebSocket, and waits for
// the response keyed by the given id.
func (r *rawCDP) sendRaw(ctx context.Context, id int64, envelope any) (json.RawMessage, error) {
	r.mu.Lock()
	conn := r.conn
	r.mu.Unlock()
	if conn == nil {
		return nil, errNotConnected
	}

	ch := make(chan json.RawMessage, 1)
	r.pendingMu.Lock()
	r.pending[id] = ch
	r.pendingMu.Unlock()

	data, err := json.Marshal(envelope)
	if err != nil {
		r.deletePending(id)
		return nil, fmt.Errorf("rawcdp: marshal: %w", err)
	}

	r.mu.Lock()
	err = wsutil.WriteClientText(conn, data)
	r.mu.Unlock()
	if err != nil {
		r.deletePending(id)
		return nil, fmt.Errorf("rawcdp: send: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("rawcdp: connection closed")
		}
		return resp, nil
	case <-ctx.Done():
		r.deletePending(id)
		return nil, ctx.Err()
	}
}

// call sends a command, on a flattened page session when sessionID is set,
// and decodes the inner "result" into out when out is non-nil.
func (r *rawCDP) call(ctx context.Context, sessionID, method string, params, out any) error {
	id := r.seq.Add(1)
	req := struct {
		ID        int64  `json:"id"`
		Method    string `json:"method"`
		SessionID string `json:"sessionId,omitempty"`
		Params    any    `json:"params,omitempty"`
	}{ID: id, Method: method, SessionID: sessionID, Params: params}

	resp, err := r.sendRaw(ctx, id, req)
	if err != nil {
		return err
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp, &envelope); err != nil {
		return fmt.Errorf("rawcdp: %s: unmarshal: %w", method, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("rawcdp: %s: %s", method, envelope.Error.Message)
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("rawcdp: %s: decode result: %w", method, err)
	}
	return nil
}

func (r *rawCDP) attachToTarget(ctx context.Context, targetID target.ID) (string, error) {
	var out target.AttachToTargetReturns
	if err := r.call(ctx, "", target.CommandAttachToTarget, target.AttachToTarget(targetID).WithFlatten(true), &out); err != nil {
		return "", err
	}
	return string(out.SessionID), nil
}

func (r *rawCDP) detachFromTarget(ctx context.Context, sessionID string) error {
	return r.call(ctx, "", target.CommandDetachFromTarget, target.DetachFromTarget().WithSessionID(target.SessionID(sessionID)), nil)
}

func (r *rawCDP) createTarget(ctx context.Context, url string) (target.ID, error) {
	var out target.CreateTargetReturns
	if err := r.call(ctx, "", target.CommandCreateTarget, target.CreateTarget(url), &out); err != nil {
		return "", err
	}
	if out.TargetID == "" {
		return "", fmt.Errorf("rawcdp: %s: empty target id", target.CommandCreateTarget)
	}
	return out.TargetID, nil
}

func (r *rawCDP) activateTarget(ctx context.Context, targetID target.ID) error {
	return r.call(ctx, "", target.CommandActivateTarget, target.ActivateTarget(targetID), nil)
}

func (r *rawCDP) windowForTarget(ctx context.Context, targetID target.ID) (browser.WindowID, error) {
	var out struct {
		WindowID browser.WindowID `json:"windowId"`
	}
	if err := r.call(ctx, "", browser.CommandGetWindowForTarget, browser.GetWindowForTarget().WithTargetID(targetID), &out); err != nil {
		return 0, err
	}
	return out.WindowID, nil
}

func (r *rawCDP) windowState(ctx context.Context, windowID browser.WindowID) (browser.WindowState, error) {
	var out browser.GetWindowBoundsReturns
	if err := r.call(ctx, "", browser.CommandGetWindowBounds, browser.GetWindowBounds(windowID), &out); err != nil {
		return "", err
	}
	if out.Bounds == nil {
		return "", nil
	}
	return out.Bounds.WindowState, nil
}

// restoreWindow brings a minimized window back to the normal state.
func (r *rawCDP) restoreWindow(ctx context.Context, windowID browser.WindowID) error {
	bounds := &browser.Bounds{WindowState: browser.WindowStateNormal}
	return r.call(ctx, "", browser.CommandSetWindowBounds, browser.SetWindowBounds(windowID, bounds), nil)
}

func (r *rawCDP) setDiscoverTargets(ctx context.Context, discover bool) error {
	if err := r.call(ctx, "", target.CommandSetDiscoverTargets, target.SetDiscoverTargets(discover), nil); err != nil {
		return err
	}
	r.discover.Store(discover)
	return nil
}

// evaluate runs JS on the given session and returns the string result.
func (r *rawCDP) evaluate(ctx context.Context, sessionID, js string) (string, error) {
	params := struct {
		Expression    string `json:"expression"`
		ReturnByValue bool   `json:"returnByValue"`
		AwaitPromise  bool   `json:"awaitPromise"`
	}{Expression: js, ReturnByValue: true, AwaitPromise: true}

	var resp struct {
		Result struct {
			Value json.RawMessage `json:"value"`
			Type  string          `json:"type"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	if err := r.call(ctx, sessionID, "Runtime.evaluate", params, &resp); err != nil {
		return "", err
	}
	if resp.ExceptionDetails != nil {
		return "", fmt.Errorf("rawcdp: eval exception: %s", resp.ExceptionDetails.Text)
	}

	var s string
	if err := json.Unmarshal(resp.Result.Value, &s); err != nil {
		return string(resp.Result.Value), nil
	}
	return s, nil
}

// listTargets fetches open targets via the HTTP /json/list endpoint.
func (r *rawCDP) listTargets(ctx context.Context) ([]*target.Info, error) {
	listCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(listCtx, http.MethodGet, r.httpBase+"/json/list", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rawcdp: /json/list: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var entries []struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, err
	}

	out := make([]*target.Info, 0, len(entries))
	for _, e := range entries {
		out = append(out, &target.Info{
			TargetID: target.ID(e.ID),
			Type:     e.Type,
			Title:    e.Title,
			URL:      e.URL,
		})
	}
	return out, nil
}

// registerEventHandler registers a handler for a CDP event method and returns
// the function removing it.
func (r *rawCDP) registerEventHandler(method string, fn func(sessionID string, params json.RawMessage)) func() {
	id := r.seq.Add(1)
	r.eventMu.Lock()
	r.eventHandlers[method] = append(r.eventHandlers[method], eventHandler{id: id, fn: fn})
	r.eventMu.Unlock()
	return func() {
		r.eventMu.Lock()
		defer r.eventMu.Unlock()
		handlers := r.eventHandlers[method]
		for i, h := range handlers {
			if h.id == id {
				r.eventHandlers[method] = append(handlers[:i], handlers[i+1:]...)
				break
			}
		}
	}
}

func (r *rawCDP) dispatchEvent(method, sessionID string, params json.RawMessage) {
	r.eventMu.RLock()
	handlers := make([]eventHandler, len(r.eventHandlers[method]))
	copy(handlers, r.eventHandlers[method])
	r.eventMu.RUnlock()
	for _, h := range handlers {
		h.fn(sessionID, params)
	}
}

// browserWSURL fetches the WebSocket debugger URL from /json/version.
func (r *rawCDP) browserWSURL(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.httpBase+"/json/version", nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("rawcdp: /json/version: HTTP %d", resp.StatusCode)
	}

	var info struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("empty webSocketDebuggerUrl")
	}
	return info.WebSocketDebuggerURL, nil
}
