package cmd

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"example.com/mise/clients/counter/config"
	"example.com/mise/clients/counter/internal/app"
	"example.com/mise/clients/counter/internal/device"
	"example.com/mise/clients/counter/internal/lifecycle"
	"example.com/mise/clients/counter/internal/models"
	"example.com/mise/clients/counter/internal/realtime"
	"example.com/mise/clients/counter/internal/rest"
)

// runTerminal is the shared run loop for the pos and kds subcommands; the
// two roles differ only in device type and action labels.
func runTerminal(role models.DeviceType) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	identity := device.NewManager(cfg.Device.IDFile, role).Identity()

	restClient := rest.NewClient(cfg.Backend.RestURL, cfg.Backend.RequestTimeout)
	syncClient := realtime.NewClient(realtime.Config{
		URL:               cfg.Backend.SocketURL,
		HeartbeatInterval: cfg.Sync.HeartbeatInterval,
		MaxRetries:        cfg.Sync.MaxRetries,
		BackoffMin:        cfg.Sync.BackoffMin,
		BackoffMax:        cfg.Sync.BackoffMax,
		ConnectTimeout:    cfg.Sync.ConnectTimeout,
	}, identity)

	session := app.NewSession(app.Config{
		RestaurantID: restaurantID,
		PollInterval: cfg.Polling.Interval,
		PollLimit:    cfg.Polling.Limit,
	}, identity, restClient, syncClient)

	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Stop()

	log.Info().Str("role", string(role)).Str("restaurant_id", restaurantID).
		Str("device_id", identity.DeviceID).Msg("Terminal started")

	g, ctx := errgroup.WithContext(ctx)

	// Periodic board render. The display recomputes elapsed time on every
	// tick; only the log cadence is throttled.
	g.Go(func() error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				renderBoard(session, now)
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Terminal error")
		return err
	}

	log.Info().Msg("Terminal shutting down gracefully")
	return nil
}

// renderBoard logs a compact view of the active buckets and pending
// notifications.
func renderBoard(session *app.Session, now time.Time) {
	indicator := "Polling"
	if session.Live() {
		indicator = "Live"
	}

	buckets := session.Board.Buckets(now)
	event := log.Debug().Str("connection", indicator)

	for _, bucket := range []lifecycle.Bucket{lifecycle.BucketNew, lifecycle.BucketCooking, lifecycle.BucketReady} {
		entries := buckets[bucket]
		numbers := make([]string, 0, len(entries))
		urgent := 0
		for _, e := range entries {
			numbers = append(numbers, e.Order.OrderNumber)
			if e.Urgent {
				urgent++
			}
		}
		sort.Strings(numbers)
		event = event.Strs(string(bucket), numbers).Int(string(bucket)+"_urgent", urgent)
	}

	event.Int("notifications", len(session.Notifications.List())).Msg("Board")
}
