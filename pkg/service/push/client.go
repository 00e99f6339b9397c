package push

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/tidwall/gjson"
	"github.com/upawatch/upawatch/pkg/domain/interfaces"
	"github.com/upawatch/upawatch/pkg/domain/model"
	"github.com/upawatch/upawatch/pkg/domain/types"
)

const (
	DefaultReconnectDelay = 5 * time.Second
	writeTimeout          = 10 * time.Second
)

// controlTypes are backend messages that carry no queue data
var controlTypes = map[string]bool{
	"subscribed":   true,
	"unsubscribed": true,
	"ack":          true,
	"pong":         true,
	"error":        true,
}

type message struct {
	Type       string           `json:"type"`
	FacilityID types.FacilityID `json:"upaId"`
}

// Client is the push channel connection to the queue backend.
// It keeps the subscription set across reconnects.
type Client struct {
	url            string
	header         http.Header
	dialer         *websocket.Dialer
	reconnectDelay time.Duration

	mu         sync.Mutex
	conn       *websocket.Conn
	subscribed map[types.FacilityID]struct{}
	handler    interfaces.DeltaHandler
	cancel     context.CancelFunc
	done       chan struct{}

	writeMu sync.Mutex
}

var _ interfaces.PushChannel = (*Client)(nil)

// Option configures Client
type Option func(*Client)

// WithReconnectDelay sets the fixed delay between reconnect attempts
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.reconnectDelay = d
		}
	}
}

// WithHeader adds a header to the handshake request
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// New creates a push channel client for a ws:// or wss:// URL. Nothing is dialed until Connect.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:            url,
		header:         http.Header{},
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		reconnectDelay: DefaultReconnectDelay,
		subscribed:     make(map[types.FacilityID]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnDelta registers the handler receiving every queue delta
func (c *Client) OnDelta(handler interfaces.DeltaHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Connect starts the connection loop in background. It returns immediately;
// dial failures are logged and retried after the reconnect delay.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return goerr.New("push channel already connected", goerr.V("url", c.url))
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(runCtx, c.done)
	return nil
}

// Close stops the connection loop and waits for it to finish
func (c *Client) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Connected reports whether a backend connection is currently open
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Subscribe adds id to the subscription set and announces it if connected.
// While disconnected the subscription is sent on the next connect.
func (c *Client) Subscribe(ctx context.Context, id types.FacilityID) error {
	c.mu.Lock()
	c.subscribed[id] = struct{}{}
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return c.send(conn, message{Type: "subscribe", FacilityID: id})
}

// Unsubscribe removes id from the subscription set
func (c *Client) Unsubscribe(ctx context.Context, id types.FacilityID) error {
	c.mu.Lock()
	delete(c.subscribed, id)
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return c.send(conn, message{Type: "unsubscribe", FacilityID: id})
}

func (c *Client) send(conn *websocket.Conn, msg message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		return goerr.Wrap(err, "failed to write push channel message",
			goerr.V("type", msg.Type),
			goerr.V("facility_id", msg.FacilityID),
			goerr.T(model.ErrTagTransportFailure))
	}
	return nil
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	logger := ctxlog.From(ctx)

	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("Failed to connect push channel", "url", c.url, "error", err)
		} else {
			logger.Info("Push channel connected", "url", c.url)
			c.serve(ctx, conn)
			logger.Info("Push channel disconnected", "url", c.url)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectDelay):
		}
	}
}

// serve owns conn until it fails or ctx is cancelled
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	c.mu.Lock()
	c.conn = conn
	ids := make([]types.FacilityID, 0, len(c.subscribed))
	for id := range c.subscribed {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := c.send(conn, message{Type: "subscribe", FacilityID: id}); err != nil {
			ctxlog.From(ctx).Warn("Failed to resubscribe", "facility_id", id, "error", err)
			return
		}
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				ctxlog.From(ctx).Warn("Push channel read failed", "error", err)
			}
			return
		}
		c.dispatch(ctx, raw)
	}
}

func (c *Client) dispatch(ctx context.Context, raw []byte) {
	if t := gjson.GetBytes(raw, "type"); t.Exists() && controlTypes[t.String()] {
		ctxlog.From(ctx).Debug("Push channel control message", "type", t.String())
		return
	}

	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler != nil {
		handler(ctx, raw)
	}
}
