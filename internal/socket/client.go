package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/inkwell-cms/inkwell/internal/editor"
	"github.com/inkwell-cms/inkwell/internal/model"
)

const (
	pingInterval = 30 * time.Second
	opTimeout    = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The editing surface runs on a different origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one websocket connection bound to one editing session.
type Client struct {
	conn    *websocket.Conn
	session *editor.Session
	send    chan []byte
	done    chan struct{}
}

// ServeWS upgrades the connection and pumps messages between the
// surface and its session. The session must belong to the caller.
func ServeWS(manager *editor.Manager, w http.ResponseWriter, r *http.Request, userID model.UserID) {
	sessionID := model.SessionID(r.URL.Query().Get("session"))
	if sessionID == "" {
		http.Error(w, "missing session", http.StatusBadRequest)
		return
	}

	session, ok := manager.Get(sessionID)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	if session.Owner != userID {
		http.Error(w, "not your session", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		socketLogger.Error().Err(err).Msg("Websocket upgrade failed")
		return
	}

	client := &Client{
		conn:    conn,
		session: session,
		send:    make(chan []byte, 64),
		done:    make(chan struct{}),
	}

	go client.writePump()
	go client.forwardEvents()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		close(c.done)
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				socketLogger.Warn().Err(err).Msg("Websocket read error")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			socketLogger.Warn().Err(err).Msg("Malformed websocket message")
			continue
		}

		c.handle(msg)
	}
}

func (c *Client) handle(msg Message) {
	switch msg.Type {
	case MsgContent:
		c.applyUpdate(msg.Type, model.DraftUpdate{Content: msg.Content})
	case MsgTitle:
		c.applyUpdate(msg.Type, model.DraftUpdate{Title: msg.Title})
	case MsgTags:
		c.applyUpdate(msg.Type, model.DraftUpdate{Tags: msg.Tags})
	case MsgFeaturedImage:
		c.applyUpdate(msg.Type, model.DraftUpdate{FeaturedImage: msg.FeaturedImage})

	case MsgSelection:
		if msg.Selection != nil {
			c.session.OnSelectionChange(*msg.Selection)
		}

	case MsgSave:
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if _, err := c.session.Save(ctx); err != nil {
			c.pushError(msg.Type, err)
		}

	case MsgPublish:
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if _, err := c.session.Publish(ctx, model.PublishOptions{Slug: msg.Slug}); err != nil {
			c.pushError(msg.Type, err)
		}

	case MsgDiscard:
		if err := c.session.Discard(); err != nil {
			c.pushError(msg.Type, err)
		}

	case MsgRecoveryAccept:
		if _, err := c.session.AcceptRecovery(); err != nil {
			c.pushError(msg.Type, err)
		}
	case MsgRecoveryDiscard:
		c.session.DiscardRecovery()

	default:
		socketLogger.Debug().Str("type", msg.Type).Msg("Unknown websocket message type")
	}
}

func (c *Client) applyUpdate(op string, u model.DraftUpdate) {
	if _, err := c.session.ApplyUpdate(u); err != nil {
		c.pushError(op, err)
	}
}

func (c *Client) pushError(op string, err error) {
	select {
	case c.send <- errorPayload(op, err):
	default:
		socketLogger.Warn().Str("op", op).Msg("Send buffer full, dropping error message")
	}
}

// forwardEvents relays session pushes to the socket until either side
// goes away.
func (c *Client) forwardEvents() {
	for {
		select {
		case <-c.done:
			return
		case event := <-c.session.Events():
			payload, err := json.Marshal(event)
			if err != nil {
				socketLogger.Error().Err(err).Msg("Error marshalling session event")
				continue
			}
			select {
			case c.send <- payload:
			case <-c.done:
				return
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
