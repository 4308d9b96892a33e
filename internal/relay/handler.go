package relay

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SSEHandler returns an http.HandlerFunc that streams broker events as SSE.
// Clients may filter event types via ?types=name1,name2. A comment line is
// sent every keepAlive to hold idle connections open; zero disables it.
func SSEHandler(broker *Broker, keepAlive time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		var typeFilter map[string]bool
		if q := r.URL.Query().Get("types"); q != "" {
			typeFilter = make(map[string]bool)
			for _, f := range strings.Split(q, ",") {
				if f = strings.TrimSpace(f); f != "" {
					typeFilter[f] = true
				}
			}
		}

		id, ch := broker.Subscribe()
		defer broker.Unsubscribe(id)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		var tick <-chan time.Time
		if keepAlive > 0 {
			ticker := time.NewTicker(keepAlive)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-r.Context().Done():
				return
			case <-tick:
				fmt.Fprint(w, ": keep-alive\n\n")
				flusher.Flush()
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if typeFilter != nil && !typeFilter[evt.Type] {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, evt.Data)
				flusher.Flush()
			}
		}
	}
}
