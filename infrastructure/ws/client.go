package ws

import (
	"fmt"
	"log/slog"
	"time"

	"chat-hub/contract"
	"chat-hub/domain"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// client owns one websocket connection. The read pump turns frames into
// router commands; the write pump drains the sink onto the wire. Each runs
// in its own goroutine so a stalled peer never blocks the hub.
type client struct {
	log      *slog.Logger
	conn     *websocket.Conn
	router   contract.IRouter
	sink     *Sink
	handle   domain.HandleID
	identity string // from the handshake token; the only name this channel may register
}

func newClient(log *slog.Logger, conn *websocket.Conn, router contract.IRouter,
	sink *Sink, handle domain.HandleID, identity string) *client {
	return &client{log: log, conn: conn, router: router, sink: sink,
		handle: handle, identity: identity}
}

// readPump decodes inbound frames and dispatches them. Malformed frames are
// ignored without closing the channel; a read error ends the connection and
// produces a Disconnect so the router can clean up and announce the leave.
func (c *client) readPump() {
	defer func() {
		c.router.Dispatch(domain.Disconnect{From: c.handle})
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				c.log.Warn(fmt.Sprintf("Unexpected close from %s: %v", c.handle, err))
			}
			return
		}

		cmd, err := decodeCommand(c.handle, raw)
		if err != nil {
			c.log.Debug(fmt.Sprintf("Ignoring frame from %s: %v", c.handle, err))
			continue
		}
		if !c.authorized(cmd) {
			c.log.Warn(fmt.Sprintf("Handle %s tried to act as someone else", c.handle))
			continue
		}
		c.router.Dispatch(cmd)
	}
}

// authorized rejects frames that claim an identity other than the one the
// handshake token vouched for.
func (c *client) authorized(cmd domain.Command) bool {
	switch typed := cmd.(type) {
	case domain.RegisterUser:
		return typed.Identity == c.identity
	case domain.SendMessage:
		return typed.Author == c.identity
	case domain.SendPrivate:
		return typed.Sender == c.identity
	case domain.Typing:
		return typed.Identity == c.identity
	case domain.StopTyping:
		return typed.Identity == c.identity
	case domain.Logout:
		return typed.Identity == c.identity
	default:
		return true
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.sink.Frames():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug(fmt.Sprintf("Write to %s failed: %v", c.handle, err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
