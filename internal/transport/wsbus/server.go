package wsbus

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// upgrader accepts any origin: this transport expects to sit behind a
// loopback or VPN boundary between the mobile client and its own backend
// process, not a public multi-tenant deployment.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades each incoming HTTP request to a WebSocket and hands the
// wrapped connection to onConnect, which is expected to run a dispatcher
// against it and block until the connection closes.
func Handler(log zerolog.Logger, onConnect func(*Bus)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		onConnect(New(conn, log))
	}
}
