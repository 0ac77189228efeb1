package relay

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// wsMessage is the frame format of the WebSocket feed.
type wsMessage struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// WebSocketHandler streams the same events as SSEHandler over a WebSocket,
// one JSON text frame per event. Client frames are read only to notice when
// the peer goes away.
func WebSocketHandler(broker *Broker, snapshot SnapshotFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kindFilter := parseKinds(r.URL.Query().Get("kinds"))

		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Debug("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		id, ch := broker.Subscribe()
		defer broker.Unsubscribe(id)

		if snapshot != nil {
			data, err := json.Marshal(snapshot())
			if err != nil {
				slog.Error("Failed to encode snapshot", "error", err)
				return
			}
			if err := writeFrame(conn, "snapshot", data); err != nil {
				return
			}
		}

		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := wsutil.ReadClientData(conn); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-gone:
				return
			case <-r.Context().Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if kindFilter != nil && !kindFilter[evt.Kind] {
					continue
				}
				if err := writeFrame(conn, evt.Kind, evt.Data); err != nil {
					slog.Debug("websocket write failed", "subscriber", id, "error", err)
					return
				}
			}
		}
	}
}

func writeFrame(conn net.Conn, kind string, data []byte) error {
	msg, err := json.Marshal(wsMessage{Kind: kind, Data: data})
	if err != nil {
		return err
	}
	return wsutil.WriteServerText(conn, msg)
}
