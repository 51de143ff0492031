package relay

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/nanostore/internal/errors"
	"github.com/vango-dev/nanostore/pkg/events"
)

// ErrRelay matches relay transport failures.
var ErrRelay = errors.New("N501")

// Dispatcher receives events that arrived from the hub.
type Dispatcher func(events.Event) error

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithOrigin overrides the generated origin id.
func WithOrigin(origin string) ClientOption {
	return func(c *Client) { c.origin = origin }
}

// WithDispatcher sets where received events go. The default dispatches into
// events.Default() on the read goroutine.
func WithDispatcher(d Dispatcher) ClientOption {
	return func(c *Client) { c.dispatch = d }
}

// WithChannel dispatches received events into ch.
func WithChannel(ch *events.Channel) ClientOption {
	return func(c *Client) { c.dispatch = ch.Dispatch }
}

// WithClientLogger sets the client's logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// Client is a connection to a relay hub.
type Client struct {
	conn     *websocket.Conn
	origin   string
	dispatch Dispatcher
	logger   *slog.Logger

	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// Dial connects to the hub's WebSocket endpoint, e.g. "ws://host:7070/ws",
// and starts delivering events from other clients.
func Dial(ctx context.Context, rawURL string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		origin: uuid.NewString(),
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dispatch == nil {
		c.dispatch = func(ev events.Event) error {
			return events.Default().Dispatch(ev)
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.New("N501").WithDetailf("parse %q", rawURL).Wrap(err)
	}
	q := u.Query()
	q.Set("origin", c.origin)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, errors.New("N501").WithDetailf("dial %s", rawURL).
			WithSuggestion("Check that the relay is running (nanostore relay)").Wrap(err)
	}
	c.conn = conn
	go c.readLoop()
	return c, nil
}

// Origin returns the id this client stamps on published events.
func (c *Client) Origin() string {
	return c.origin
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Publish sends ev to every other client of the hub.
func (c *Client) Publish(ev events.Event) error {
	ev.Origin = c.origin
	data, err := encodeMessage(MessageOf(ev))
	if err != nil {
		return errors.New("N501").WithDetail("encode").Wrap(err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.New("N501").WithDetailf("publish %q", ev.Key).Wrap(err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer c.once.Do(func() { close(c.done) })
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.Debug("relay read ended", "origin", c.origin, "error", err)
			}
			return
		}
		msg, err := decodeMessage(data)
		if err != nil {
			c.logger.Warn("relay dropped malformed frame", "error", err)
			continue
		}
		if msg.Origin == c.origin {
			continue
		}
		if err := c.dispatch(msg.Event()); err != nil {
			c.logger.Warn("relay event rejected", "key", msg.Key, "origin", msg.Origin, "error", err)
		}
	}
}

// Close ends the connection and waits for the read loop to stop.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}
