package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/net/websocket"
)

// progressWebSocket streams the caller's progress events over a WebSocket.
// Events emitted while no socket is attached are not replayed; clients poll
// GET /v1/runs/{id} after connecting to catch up.
func (rt *Router) progressWebSocket() http.Handler {
	server := websocket.Server{
		// Origin checks belong to the gateway in front of this service.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler: func(conn *websocket.Conn) {
			rt.serveProgress(conn)
		},
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID(r) == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing " + userIDHeader + " header"})
			return
		}
		server.ServeHTTP(w, r)
	})
}

func (rt *Router) serveProgress(conn *websocket.Conn) {
	defer conn.Close()

	uid := userID(conn.Request())
	events, detach := rt.relay.Attach(uid)
	defer detach()

	rt.metrics.ListenerAttached()
	defer rt.metrics.ListenerDetached()

	// Reader goroutine notices the peer going away; we never expect client
	// frames beyond close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		var discard string
		for {
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				slog.Error("marshal progress event", "error", err)
				continue
			}
			if err := websocket.Message.Send(conn, string(payload)); err != nil {
				return
			}
		}
	}
}
