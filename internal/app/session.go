package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/mise/clients/counter/internal/board"
	"example.com/mise/clients/counter/internal/device"
	"example.com/mise/clients/counter/internal/lifecycle"
	"example.com/mise/clients/counter/internal/models"
	"example.com/mise/clients/counter/internal/notifications"
	"example.com/mise/clients/counter/internal/realtime"
	"example.com/mise/clients/counter/internal/rest"
)

// Version is stamped at build time.
var Version = "dev"

// Config tunes the session's degraded-mode behavior.
type Config struct {
	RestaurantID string

	// PollInterval drives the REST fallback poll while the real-time
	// channel is down. Mandatory degraded mode, not optional polish.
	PollInterval time.Duration

	// PollLimit is the page size for the fallback order fetch.
	PollLimit int

	Platform string
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.PollLimit <= 0 {
		c.PollLimit = 50
	}
	if c.Platform == "" {
		c.Platform = "linux"
	}
	return c
}

// Session wires one terminal's components together: the sync client, the
// order board, the notification reducer and the REST client. It owns the
// polling fallback that kicks in whenever the real-time channel is down.
// Sessions are constructed explicitly and handed to the command layer;
// nothing here is process-global.
type Session struct {
	cfg      Config
	identity device.Identity
	restc    *rest.Client
	syncc    *realtime.Client

	Board         *board.Board
	Notifications *notifications.Reducer

	mu      sync.Mutex
	live    bool
	poller  gocron.Scheduler
	unsubs  []func()
	stopped bool
}

// NewSession assembles a session around an already-constructed sync and
// REST client.
func NewSession(cfg Config, identity device.Identity, restc *rest.Client, syncc *realtime.Client) *Session {
	return &Session{
		cfg:           cfg.withDefaults(),
		identity:      identity,
		restc:         restc,
		syncc:         syncc,
		Board:         board.New(),
		Notifications: notifications.NewReducer(),
	}
}

// Start registers the device (best effort), loads the initial order list,
// subscribes the board and reducer to the event stream and connects. A
// failed connect is not fatal: the session starts in polling mode and the
// sync client's budgeted reconnects take over if the channel comes back.
func (s *Session) Start(ctx context.Context) error {
	if err := s.restc.RegisterDevice(ctx, s.cfg.RestaurantID, models.DeviceRegistration{
		DeviceID:   s.identity.DeviceID,
		DeviceType: string(s.identity.DeviceType),
		Platform:   s.cfg.Platform,
		AppVersion: Version,
	}); err != nil {
		log.Warn().Err(err).Msg("Device registration failed, continuing without it")
	}

	if err := s.refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial order fetch failed, board starts empty")
	}

	s.mu.Lock()
	s.unsubs = append(s.unsubs,
		s.syncc.OnOrderEvent(func(ev models.OrderEvent) {
			s.Board.Apply(ev)
			if n := s.Notifications.Apply(ev); n != nil {
				log.Info().Str("order_number", n.OrderNumber).Str("status", string(n.Status)).
					Msg(n.Message)
			}
		}),
		s.syncc.OnConnectionChange(s.setLive),
	)
	s.mu.Unlock()

	if err := s.syncc.Connect(ctx, s.cfg.RestaurantID); err != nil {
		log.Warn().Err(err).Msg("Real-time connect failed, falling back to polling")
		s.setLive(false)
	}
	return nil
}

// Stop tears the session down: disconnect, halt polling, drop
// subscriptions. Safe to call more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	s.syncc.Disconnect()
	for _, unsub := range unsubs {
		unsub()
	}
	s.stopPolling()
}

// Live reports whether the session is on the real-time channel (true) or
// degraded to polling (false). Drives the Live / Polling indicator.
func (s *Session) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// AdvanceOrder requests the single legal forward transition for an order.
// The board shows the optimistic status while the request is in flight;
// a rejection reverts to the last authoritative snapshot, an acceptance
// applies the backend's echoed order wholesale.
func (s *Session) AdvanceOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, ok := s.Board.Get(orderID)
	if !ok {
		return nil, errors.Errorf("unknown order %s", orderID)
	}

	tr, err := lifecycle.Advance(order)
	if err != nil {
		return nil, err
	}

	s.Board.MarkProvisional(orderID, tr.Next)

	changedBy := fmt.Sprintf("%s:%s", s.identity.DeviceType, s.identity.DeviceID)
	updated, err := s.restc.UpdateOrderStatus(ctx, orderID, tr.Next, changedBy)
	if err != nil {
		s.Board.ClearProvisional(orderID)
		return nil, errors.Wrap(err, "transition request rejected")
	}

	s.Board.ApplySnapshot(*updated)
	return updated, nil
}

// refresh replaces the board with a fresh REST fetch.
func (s *Session) refresh(ctx context.Context) error {
	orders, err := s.restc.ListOrders(ctx, s.cfg.PollLimit)
	if err != nil {
		return err
	}
	s.Board.ReplaceAll(orders)
	return nil
}

// setLive reacts to connectivity transitions: polling runs exactly when
// the real-time channel is down.
func (s *Session) setLive(connected bool) {
	s.mu.Lock()
	s.live = connected
	stopped := s.stopped
	s.mu.Unlock()

	if stopped {
		return
	}
	if connected {
		log.Info().Msg("Order stream live, stopping fallback polling")
		s.stopPolling()
		return
	}
	log.Warn().Dur("interval", s.cfg.PollInterval).
		Msg("Order stream down, polling order list as fallback")
	s.startPolling()
}

func (s *Session) startPolling() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poller != nil {
		return
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Error().Err(err).Msg("Failed to create polling scheduler")
		return
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(s.cfg.PollInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PollInterval)
			defer cancel()
			if err := s.refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("Fallback poll failed")
			}
		}),
	); err != nil {
		log.Error().Err(err).Msg("Failed to schedule fallback poll")
		return
	}
	scheduler.Start()
	s.poller = scheduler
}

func (s *Session) stopPolling() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poller == nil {
		return
	}
	if err := s.poller.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down polling scheduler")
	}
	s.poller = nil
}
