// Package ws is the websocket edge: it accepts sockets, frames JSON both
// ways, and hands decoded payloads to the session coordinator. It knows
// nothing about rooms or rules.
package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/kapu/gridlock/internal/obslog"
	"github.com/kapu/gridlock/internal/session"
)

const (
	sendBuffer   = 64
	pingInterval = 15 * time.Second
	maxFrameSize = 4 << 10
)

// Hub accepts websocket upgrades and runs one reader per connection.
type Hub struct {
	coord        *session.Coordinator
	allowOrigins map[string]bool
}

func NewHub(coord *session.Coordinator, allowOrigins []string) *Hub {
	m := map[string]bool{}
	for _, a := range allowOrigins {
		if a != "" {
			m[a] = true
		}
	}
	return &Hub{coord: coord, allowOrigins: m}
}

// client is one live socket. Send marshals immediately and drops on a full
// buffer rather than blocking the coordinator. The send channel is never
// closed; a dead writer just stops draining and late sends fall into the
// drop path.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func (c *client) ID() string { return c.id }

func (c *client) Send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		obslog.L().Warn("ws_marshal_failed", zap.String("conn_id", c.id), zap.Error(err))
		return
	}
	select {
	case c.send <- b:
	default:
		obslog.L().Warn("ws_send_dropped", zap.String("conn_id", c.id))
	}
}

// ServeHTTP upgrades the request and blocks until the socket dies.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if len(h.allowOrigins) > 0 && origin != "" && !h.allowOrigins[origin] {
		http.Error(w, "forbidden origin", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxFrameSize)

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.coord.Register(c)
	obslog.L().Info("ws_connect", zap.String("conn_id", c.id))

	ctx := r.Context()

	// writer
	go func() {
		ping := time.NewTicker(pingInterval)
		defer func() {
			ping.Stop()
			_ = conn.Close(websocket.StatusNormalClosure, "bye")
		}()
		for {
			select {
			case msg, ok := <-c.send:
				if !ok {
					return
				}
				if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.Ping(ctx); err != nil {
					return
				}
			}
		}
	}()

	// reader
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		h.coord.HandleIntent(ctx, c, data)
	}

	h.coord.Disconnect(ctx, c)
	obslog.L().Info("ws_disconnect", zap.String("conn_id", c.id))
}
