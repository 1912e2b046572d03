package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/mise/clients/counter/internal/device"
	"example.com/mise/clients/counter/internal/models"
)

// Config tunes the sync client. Zero values fall back to the reference
// behavior.
type Config struct {
	// URL is the websocket endpoint of the backend's real-time channel.
	URL string

	// HeartbeatInterval is how often a liveness frame is emitted while a
	// connection is established.
	HeartbeatInterval time.Duration

	// MaxRetries bounds automatic reconnection. Once exhausted the client
	// stays disconnected until Connect is called again; the application
	// layer is expected to poll REST in the meantime.
	MaxRetries int

	// BackoffMin and BackoffMax bound the doubling delay between
	// reconnect attempts.
	BackoffMin time.Duration
	BackoffMax time.Duration

	// ConnectTimeout bounds each individual connect attempt. An attempt
	// that times out counts against MaxRetries.
	ConnectTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 15 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 10
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 5 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 20 * time.Second
	}
	return c
}

// frame is the wire envelope in both directions. Inbound frames carry a
// full order snapshot; outbound frames carry the join/leave/heartbeat
// fields.
type frame struct {
	Event        string        `json:"event"`
	Order        *models.Order `json:"order,omitempty"`
	RestaurantID string        `json:"restaurantId,omitempty"`
	DeviceID     string        `json:"deviceId,omitempty"`
	DeviceType   string        `json:"deviceType,omitempty"`
}

const (
	frameJoin      = "join-restaurant"
	frameLeave     = "leave-restaurant"
	frameHeartbeat = "heartbeat"
)

type orderSubscriber struct {
	id int
	fn func(models.OrderEvent)
}

type connSubscriber struct {
	id int
	fn func(bool)
}

// Client owns one real-time connection per active restaurant selection.
// It delivers inbound order events to subscribers in registration order,
// emits a periodic heartbeat while connected, and reconnects with bounded
// backoff when the socket drops. Construct one per application session and
// pass it to whatever needs it; there is no package-level instance.
type Client struct {
	cfg      Config
	identity device.Identity
	dialer   *websocket.Dialer

	mu           sync.Mutex
	conn         *websocket.Conn
	connected    bool
	restaurantID string
	generation   int
	done         chan struct{}
	scheduler    gocron.Scheduler
	nextSubID    int
	orderSubs    []orderSubscriber
	connSubs     []connSubscriber
}

// NewClient returns a client for the given endpoint and device identity.
func NewClient(cfg Config, identity device.Identity) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:      cfg,
		identity: identity,
		dialer:   &websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout},
	}
}

// Connect establishes the connection and joins the restaurant's event
// scope. Calling it again for the same restaurant while connected is a
// no-op; a different restaurant tears down the existing connection first.
// Only one active connection per device is ever held.
func (c *Client) Connect(ctx context.Context, restaurantID string) error {
	c.mu.Lock()
	if c.connected && c.restaurantID == restaurantID {
		c.mu.Unlock()
		return nil
	}
	stale := c.teardownLocked(true)
	c.restaurantID = restaurantID
	gen := c.generation
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	shutdownScheduler(stale)

	conn, err := c.dial(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", c.cfg.URL)
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		conn.Close()
		return errors.New("connection superseded during connect")
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		c.mu.Unlock()
		conn.Close()
		return errors.Wrap(err, "failed to create heartbeat scheduler")
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(c.cfg.HeartbeatInterval),
		gocron.NewTask(c.sendHeartbeat),
	); err != nil {
		c.mu.Unlock()
		conn.Close()
		_ = scheduler.Shutdown()
		return errors.Wrap(err, "failed to schedule heartbeat")
	}
	scheduler.Start()
	c.scheduler = scheduler

	c.attachLocked(conn, gen)
	c.mu.Unlock()

	log.Info().Str("restaurant_id", restaurantID).Str("device_id", c.identity.DeviceID).
		Msg("Connected to order event stream")
	c.notifyConnection(true)
	return nil
}

// Disconnect leaves the restaurant scope (best effort), halts the
// heartbeat and any reconnect loop, and closes the socket. Safe to call
// when not connected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	wasConnected := c.connected
	stale := c.teardownLocked(true)
	c.mu.Unlock()

	shutdownScheduler(stale)
	if wasConnected {
		c.notifyConnection(false)
	}
}

// IsConnected reports point-in-time connectivity. It is false while a
// connect attempt or reconnect loop is outstanding.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// OnOrderEvent registers a subscriber for inbound order events and returns
// its unsubscribe function. Subscribers fire synchronously in registration
// order; a panicking subscriber is isolated and logged.
func (c *Client) OnOrderEvent(fn func(models.OrderEvent)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSubID++
	id := c.nextSubID
	c.orderSubs = append(c.orderSubs, orderSubscriber{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.orderSubs {
			if s.id == id {
				c.orderSubs = append(c.orderSubs[:i], c.orderSubs[i+1:]...)
				return
			}
		}
	}
}

// OnConnectionChange registers a subscriber for connected/disconnected
// transitions. Drives the Live / Polling indicator and the polling
// fallback.
func (c *Client) OnConnectionChange(fn func(bool)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSubID++
	id := c.nextSubID
	c.connSubs = append(c.connSubs, connSubscriber{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.connSubs {
			if s.id == id {
				c.connSubs = append(c.connSubs[:i], c.connSubs[i+1:]...)
				return
			}
		}
	}
}

// attachLocked installs an open socket, sends the join frame and starts
// the read loop. Caller holds the mutex.
func (c *Client) attachLocked(conn *websocket.Conn, gen int) {
	c.conn = conn
	c.connected = true
	if err := conn.WriteJSON(frame{
		Event:        frameJoin,
		RestaurantID: c.restaurantID,
		DeviceID:     c.identity.DeviceID,
		DeviceType:   string(c.identity.DeviceType),
	}); err != nil {
		log.Warn().Err(err).Msg("Failed to send join frame")
	}
	go c.readLoop(conn, gen)
}

// teardownLocked closes everything owned by the current connection
// generation and hands the heartbeat scheduler back to the caller, who
// must shut it down after releasing the mutex: the heartbeat task takes
// the same mutex, and Shutdown waits for running tasks.
func (c *Client) teardownLocked(sendLeave bool) gocron.Scheduler {
	if c.conn != nil {
		if sendLeave && c.connected {
			// Best effort; correctness does not depend on the backend
			// seeing the leave.
			_ = c.conn.WriteJSON(frame{
				Event:        frameLeave,
				RestaurantID: c.restaurantID,
				DeviceID:     c.identity.DeviceID,
			})
		}
		c.conn.Close()
		c.conn = nil
	}
	scheduler := c.scheduler
	c.scheduler = nil
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	c.connected = false
	c.generation++
	return scheduler
}

func shutdownScheduler(scheduler gocron.Scheduler) {
	if scheduler == nil {
		return
	}
	if err := scheduler.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down heartbeat scheduler")
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, resp, err := c.dialer.DialContext(dialCtx, c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

func (c *Client) sendHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.conn == nil {
		return
	}
	if err := c.conn.WriteJSON(frame{Event: frameHeartbeat, DeviceID: c.identity.DeviceID}); err != nil {
		log.Debug().Err(err).Msg("Heartbeat write failed")
	}
}

func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			c.handleReadFailure(gen, err)
			return
		}
		c.dispatch(f)
	}
}

func (c *Client) dispatch(f frame) {
	var kind models.EventKind
	switch f.Event {
	case string(models.EventOrderNew):
		kind = models.EventOrderNew
	case string(models.EventOrderUpdated):
		kind = models.EventOrderUpdated
	default:
		return
	}
	if f.Order == nil {
		log.Warn().Str("event", f.Event).Msg("Order event frame without order payload")
		return
	}

	event := models.OrderEvent{Kind: kind, Order: *f.Order}

	c.mu.Lock()
	subs := make([]orderSubscriber, len(c.orderSubs))
	copy(subs, c.orderSubs)
	c.mu.Unlock()

	for _, s := range subs {
		invokeIsolated(func() { s.fn(event) })
	}
}

func (c *Client) notifyConnection(connected bool) {
	c.mu.Lock()
	subs := make([]connSubscriber, len(c.connSubs))
	copy(subs, c.connSubs)
	c.mu.Unlock()

	for _, s := range subs {
		invokeIsolated(func() { s.fn(connected) })
	}
}

// invokeIsolated keeps one faulty subscriber from breaking delivery to the
// rest.
func invokeIsolated(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Event subscriber panicked")
		}
	}()
	fn()
}

// handleReadFailure reacts to a dropped socket. A deliberate disconnect
// bumps the generation first, so a stale read loop exits quietly here.
func (c *Client) handleReadFailure(gen int, cause error) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	log.Warn().Err(cause).Msg("Order event stream dropped, reconnecting")
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	done := c.done
	c.mu.Unlock()

	c.notifyConnection(false)
	c.reconnect(gen, done)
}

// reconnect retries with doubling backoff between BackoffMin and
// BackoffMax, at most MaxRetries times. Exhaustion leaves the client
// disconnected and quiescent.
func (c *Client) reconnect(gen int, done chan struct{}) {
	backoff := c.cfg.BackoffMin

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		select {
		case <-time.After(backoff):
		case <-done:
			return
		}

		c.mu.Lock()
		if c.generation != gen {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		conn, err := c.dial(context.Background())
		if err == nil {
			c.mu.Lock()
			if c.generation != gen {
				c.mu.Unlock()
				conn.Close()
				return
			}
			c.attachLocked(conn, gen)
			c.mu.Unlock()

			log.Info().Int("attempt", attempt).Msg("Reconnected to order event stream")
			c.notifyConnection(true)
			return
		}

		log.Warn().Err(err).Int("attempt", attempt).Int("max_retries", c.cfg.MaxRetries).
			Msg("Reconnect attempt failed")

		backoff *= 2
		if backoff > c.cfg.BackoffMax {
			backoff = c.cfg.BackoffMax
		}
	}

	log.Error().Int("max_retries", c.cfg.MaxRetries).
		Msg("Reconnect budget exhausted, staying disconnected")
}
