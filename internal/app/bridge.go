// ABOUTME: Bridge application orchestration
// ABOUTME: Coordinates device session, OSC input, pipeline, monitor and reload
package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hspbridge/hspbridge/internal/config"
	"github.com/hspbridge/hspbridge/internal/discovery"
	"github.com/hspbridge/hspbridge/internal/handy"
	"github.com/hspbridge/hspbridge/internal/monitor"
	"github.com/hspbridge/hspbridge/internal/osc"
	"github.com/hspbridge/hspbridge/internal/ui"
	"github.com/hspbridge/hspbridge/internal/version"
	"github.com/hspbridge/hspbridge/pkg/hsp"
	"golang.org/x/sync/errgroup"
)

// statusInterval is how often the TUI receives counters
const statusInterval = 500 * time.Millisecond

// Config holds bridge configuration
type Config struct {
	// File is the loaded configuration
	File *config.File

	// ConfigPath enables hot reload when set
	ConfigPath string

	// PollInterval overrides the reload poll interval
	PollInterval time.Duration

	// Level is adjusted on reload; nil disables level changes
	Level *slog.LevelVar

	// Status receives TUI updates; nil disables them
	Status func(ui.StatusMsg)

	// Observer also receives every accepted display value
	Observer hsp.PositionObserver

	// TLSConfig overrides the device API TLS settings
	TLSConfig *tls.Config

	Logger *slog.Logger
}

// Bridge streams an OSC parameter to the device
type Bridge struct {
	config    Config
	sessionID string
	client    *handy.Client
	feed      *monitor.Feed
	logger    *slog.Logger

	// Set once Run has started the session
	pipeline *hsp.Pipeline
	listener *osc.Listener
	ready    chan struct{}
}

// New creates a bridge. It does not contact the device.
func New(cfg Config) (*Bridge, error) {
	if cfg.File == nil {
		return nil, fmt.Errorf("%w: configuration is required", hsp.ErrInvalidConfig)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	sessionID := uuid.New().String()
	logger := cfg.Logger.With("session", sessionID)

	client, err := handy.NewClient(handy.Config{
		BaseURL:       cfg.File.Device.BaseURL,
		ConnectionKey: cfg.File.Device.ConnectionKey,
		ApplicationID: cfg.File.Device.ApplicationID,
		Timeout:       cfg.File.RequestTimeout(),
		TLSConfig:     cfg.TLSConfig,
		Logger:        logger.With("component", "handy"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create device client: %w", err)
	}

	b := &Bridge{
		config:    cfg,
		sessionID: sessionID,
		client:    client,
		logger:    logger,
		ready:     make(chan struct{}),
	}
	if cfg.File.Monitor.Enabled {
		b.feed = monitor.NewFeed(cfg.File.Monitor.FeedRate, logger.With("component", "feed"))
	}

	return b, nil
}

// SessionID returns the id attached to every log line of this bridge
func (b *Bridge) SessionID() string {
	return b.sessionID
}

// Run starts the device session and streams until ctx is cancelled.
// Session and configuration errors are returned before streaming starts.
func (b *Bridge) Run(ctx context.Context) error {
	file := b.config.File
	b.logger.Info("Starting bridge", "version", version.String(), "sps", file.SPS.Type, "parameter", file.OSC.Parameter)

	session, err := b.client.StartSession(ctx, handy.SessionConfig{
		SliderMin: file.Slider.Min,
		SliderMax: file.Slider.Max,
	})
	if err != nil {
		return fmt.Errorf("failed to start device session: %w", err)
	}
	b.setStatus(ui.StatusMsg{Connected: ptr(true), Device: "Handy"})

	pipeline, err := hsp.NewPipeline(file.Pipeline(), b.client,
		hsp.WithLogger(b.logger.With("component", "pipeline")),
		hsp.WithEpoch(session.Epoch))
	if err != nil {
		return err
	}
	pipeline.SetObserver(b.observe)

	listener, err := osc.NewListener(osc.Config{
		Addr:    fmt.Sprintf(":%d", file.OSC.Port),
		Pattern: file.OSC.Parameter,
		Logger:  b.logger.With("component", "osc"),
	}, func(v float64) { pipeline.Append(v) })
	if err != nil {
		return err
	}
	if err := listener.Listen(); err != nil {
		return err
	}

	b.pipeline = pipeline
	b.listener = listener
	close(b.ready)

	b.setStatus(ui.StatusMsg{
		OSCAddr:   listener.Addr().String(),
		Parameter: file.OSC.Parameter,
		Geometry:  file.Pipeline().Geometry.Kind.String(),
	})

	if file.OSC.Advertise {
		disc := discovery.NewManager(discovery.Config{
			ServiceName: version.Product,
			Port:        file.OSC.Port,
			Text:        advertiseText(file),
			Logger:      b.logger.With("component", "discovery"),
		})
		if err := disc.Advertise(); err != nil {
			b.logger.Warn("mDNS advertisement failed", "error", err)
		}
		defer disc.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := pipeline.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return listener.Run(gctx)
	})

	if file.Monitor.Enabled {
		srv := monitor.NewServer(fmt.Sprintf(":%d", file.Monitor.Port), pipeline, b.feed, b.logger.With("component", "monitor"))
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	if b.config.ConfigPath != "" {
		watcher := config.NewWatcher(b.config.ConfigPath, b.config.PollInterval, b.Reload, b.logger.With("component", "config"))
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	if b.config.Status != nil {
		g.Go(func() error {
			b.statusLoop(gctx)
			return nil
		})
	}

	err = g.Wait()
	b.logger.Info("Bridge stopped", "stats", pipeline.Stats())
	return err
}

// Ready is closed once the session is up and OSC input is accepted
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// Pipeline returns the running pipeline, or nil before Ready
func (b *Bridge) Pipeline() *hsp.Pipeline {
	return b.pipeline
}

// Listener returns the OSC listener, or nil before Ready
func (b *Bridge) Listener() *osc.Listener {
	return b.listener
}

// Reload applies a changed configuration. Streaming parameters and the log
// level change live; socket and device settings need a restart.
func (b *Bridge) Reload(f *config.File) {
	current := b.config.File

	if b.config.Level != nil {
		if level, err := config.ParseLevel(f.Log.Level); err == nil {
			b.config.Level.Set(level)
		}
	}

	if b.pipeline != nil {
		if err := b.pipeline.UpdateConfig(f.Pipeline()); err != nil {
			b.logger.Error("Rejected configuration update", "error", err)
			return
		}
	}

	if restartRequired(current, f) {
		b.logger.Warn("OSC, device and monitor settings apply after restart")
	}

	b.setStatus(ui.StatusMsg{Geometry: f.Pipeline().Geometry.Kind.String()})
	b.config.File = f
}

// restartRequired reports changes Reload cannot apply to a running bridge.
// The refresh threshold travels with the pipeline config and applies live.
func restartRequired(current, next *config.File) bool {
	cur, nxt := current.Device, next.Device
	cur.RefreshEvery, nxt.RefreshEvery = 0, 0
	return cur != nxt || current.OSC != next.OSC || current.Monitor != next.Monitor
}

// advertiseText is the TXT record published with the OSC service
func advertiseText(file *config.File) []string {
	return []string{
		"parameter=" + file.OSC.Parameter,
		"version=" + version.Version,
		"manufacturer=" + version.Manufacturer,
	}
}

// observe fans an accepted display value out to the TUI and the feed
func (b *Bridge) observe(display int) {
	if b.config.Observer != nil {
		b.config.Observer(display)
	}
	if b.feed != nil {
		b.feed.Observe(display)
	}
}

// statusLoop periodically updates the TUI with pipeline counters
func (b *Bridge) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := b.pipeline.Stats()
			state := b.pipeline.State()
			b.setStatus(ui.StatusMsg{
				State:   &state,
				Stats:   &stats,
				Pending: b.pipeline.Pending(),
			})
		case <-ctx.Done():
			return
		}
	}
}

func (b *Bridge) setStatus(msg ui.StatusMsg) {
	if b.config.Status != nil {
		b.config.Status(msg)
	}
}

func ptr[T any](v T) *T {
	return &v
}
