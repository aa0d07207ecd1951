package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleBrowse upgrades the request and runs a live browse session on it.
func HandleBrowse(hub *Hub, cfg SessionConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, nil)
		if err != nil {
			hub.logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		client := NewClient(hub, conn, cfg)
		client.Run(r.Context())
		conn.Close(ws.StatusNormalClosure, "")
	}
}
