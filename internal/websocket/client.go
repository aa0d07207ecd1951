package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"time"

	ws "github.com/coder/websocket"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/lifecycle"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/validate"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	maxCommandSize = 4 << 10
)

// Command is a browser request on a browse session.
type Command struct {
	Type  string `json:"type"`
	Page  int    `json:"page,omitempty"`
	Size  int    `json:"size,omitempty"`
	Query string `json:"query,omitempty"`
	ID    int64  `json:"id,omitempty"`
}

// BrowseFactory builds the browse controller for one session.
type BrowseFactory func(nav lifecycle.Navigator, onChange func(lifecycle.BrowseState)) *lifecycle.Browse

// SessionConfig configures browse sessions.
type SessionConfig struct {
	Open BrowseFactory
	// PageSizes limits the sizes a session may ask for; empty allows any.
	PageSizes []int
	Logger    *slog.Logger
}

// Client is one browser tab with a live browse screen.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	cfg    SessionConfig
	logger *slog.Logger

	send   chan []byte
	reload chan struct{}
	done   chan struct{}
	screen *lifecycle.Browse
}

// NewClient creates a Client tied to the given hub and connection.
func NewClient(hub *Hub, conn *ws.Conn, cfg SessionConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		hub:    hub,
		conn:   conn,
		cfg:    cfg,
		logger: cfg.Logger,
		send:   make(chan []byte, sendBufferSize),
		reload: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Run registers the client, opens its browse screen, and serves commands
// until the connection closes. The screen is torn down on return.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.screen = c.cfg.Open(c, c.publishState)
	defer c.screen.Close()

	go c.writePump(ctx)
	go c.reloadPump(ctx)

	if err := c.screen.Mount(""); err != nil {
		c.logger.Warn("mount browse session", "error", err)
		return
	}
	c.readPump(ctx)
}

// Browse implements lifecycle.Navigator.
func (c *Client) Browse(notice string) {
	loc := "/events"
	if notice != "" {
		loc += "?notice=" + url.QueryEscape(notice)
	}
	c.pushMessage(Message{Type: TypeNavigate, Location: loc})
}

// Detail implements lifecycle.Navigator.
func (c *Client) Detail(id int64) {
	c.pushMessage(Message{Type: TypeNavigate, Location: "/events/" + strconv.FormatInt(id, 10)})
}

// publishState runs under the browse controller's lock and must not block.
func (c *Client) publishState(s lifecycle.BrowseState) {
	c.pushMessage(Message{Type: TypeState, State: &s})
}

func (c *Client) pushMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("marshal message", "type", msg.Type, "error", err)
		return
	}
	c.push(data)
}

// push queues data without blocking; a full buffer drops the message.
func (c *Client) push(data []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- data:
	default:
		c.logger.Debug("send buffer full, dropping message")
	}
}

func (c *Client) requestReload() {
	select {
	case c.reload <- struct{}{}:
	default:
	}
}

// readPump decodes commands until the connection fails.
func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxCommandSize)
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.pushMessage(Message{Type: TypeError, Error: "malformed command"})
			continue
		}
		if err := c.dispatch(cmd); err != nil {
			c.pushMessage(Message{Type: TypeError, Error: err.Error()})
		}
	}
}

func (c *Client) dispatch(cmd Command) error {
	switch cmd.Type {
	case "page":
		return c.screen.ChangePage(cmd.Page)
	case "size":
		if len(c.cfg.PageSizes) > 0 && !slices.Contains(c.cfg.PageSizes, cmd.Size) {
			return fmt.Errorf("page size %d is not offered", cmd.Size)
		}
		return c.screen.ChangePageSize(cmd.Size)
	case "reload":
		return c.screen.Reload()
	case "search":
		err := c.screen.Search(cmd.Query)
		var verr *validate.ValidationError
		if errors.As(err, &verr) {
			// already in the state's search message
			return nil
		}
		return err
	case "open":
		c.screen.Open(cmd.ID)
		return nil
	case "delete":
		return c.screen.RequestDelete(cmd.ID)
	case "cancel_delete":
		c.screen.CancelDelete()
		return nil
	case "confirm_delete":
		return c.screen.ConfirmDelete()
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
}

func (c *Client) reloadPump(ctx context.Context) {
	for {
		select {
		case <-c.reload:
			if err := c.screen.Reload(); err != nil {
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// writePump drains the send channel and writes messages to the WebSocket.
// It also sends periodic pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
