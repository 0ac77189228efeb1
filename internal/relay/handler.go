package relay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// SnapshotFunc returns the current log contents, sent to a client once when
// it connects.
type SnapshotFunc func() any

// SSEHandler returns an http.HandlerFunc that streams request log changes as
// SSE. Clients may filter change kinds via ?kinds=append,update.
func SSEHandler(broker *Broker, snapshot SnapshotFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		kindFilter := parseKinds(r.URL.Query().Get("kinds"))

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		// Subscribe before the snapshot so no change falls between the two.
		id, ch := broker.Subscribe()
		defer broker.Unsubscribe(id)

		if snapshot != nil {
			data, err := json.Marshal(snapshot())
			if err != nil {
				slog.Error("Failed to encode snapshot", "error", err)
				return
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
		}
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if kindFilter != nil && !kindFilter[evt.Kind] {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Kind, evt.Data)
				flusher.Flush()
			}
		}
	}
}

// parseKinds returns nil, meaning accept all, for an empty list.
func parseKinds(q string) map[string]bool {
	if q == "" {
		return nil
	}
	filter := make(map[string]bool)
	for _, k := range strings.Split(q, ",") {
		if k = strings.TrimSpace(k); k != "" {
			filter[k] = true
		}
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}
