package simulator

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Time allowed to write a message to the peer.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// snapshotHub fans the per-tick RaceState snapshots out to every connected
// render sink. Clients that can't keep up are dropped rather than stalling
// the tick loop.
type snapshotHub struct {
	clients   map[*snapshotClient]bool
	broadcast chan RaceState
	register  chan *snapshotClient
	logger    Logger
}

func newSnapshotHub(logger Logger) *snapshotHub {
	return &snapshotHub{
		clients:   make(map[*snapshotClient]bool),
		broadcast: make(chan RaceState, 16),
		register:  make(chan *snapshotClient),
		logger:    logger,
	}
}

func (h *snapshotHub) Send(state RaceState) {
	select {
	case h.broadcast <- state:
	default:
		// hub is saturated; the next tick's snapshot supersedes this one
	}
}

func (h *snapshotHub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.receive)
				delete(h.clients, client)
			}

			return
		case client := <-h.register:
			h.clients[client] = true
		case state := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.receive <- state:
				default:
					close(client.receive)
					delete(h.clients, client)
				}
			}
		}
	}
}

func (h *snapshotHub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)

	if err != nil {
		h.logger.WithError(err).Error("Could not upgrade websocket connection")
		return
	}

	client := &snapshotClient{
		hub:     h,
		conn:    conn,
		receive: make(chan RaceState, 16),
	}

	h.register <- client

	go client.writePump()
}

type snapshotClient struct {
	hub *snapshotHub

	conn    *websocket.Conn
	receive chan RaceState
}

func (c *snapshotClient) writePump() {
	ticker := time.NewTicker(time.Second * 10)

	defer func() {
		if rvr := recover(); rvr != nil {
			c.hub.logger.Errorf("Recovered from panic in websocket write pump: %v", rvr)
		}

		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case state, ok := <-c.receive:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				// the hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(state); err != nil {
				c.hub.logger.WithError(err).Debugf("Could not send snapshot over websocket")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
