package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/easyremote/internal/catalog"
	"github.com/muurk/easyremote/internal/config"
	"github.com/muurk/easyremote/internal/display"
	"github.com/muurk/easyremote/internal/ecp"
	"github.com/muurk/easyremote/internal/logging"
	"github.com/muurk/easyremote/internal/metrics"
	"github.com/muurk/easyremote/internal/mqtt"
	"github.com/muurk/easyremote/internal/scheduler"
	"github.com/muurk/easyremote/internal/sequencer"
	"github.com/muurk/easyremote/internal/server"
	"github.com/muurk/easyremote/internal/state"
)

// statusInterval is how often every device state is published over MQTT.
const statusInterval = time.Minute

// app holds the wired controller. One-shot commands use the controller
// directly; run and keypad start the scheduler loop and services.
type app struct {
	cfg       *config.Config
	catalog   *catalog.Catalog
	client    *ecp.Client
	tracker   *state.Tracker
	display   *display.Manager
	ctrl      *sequencer.RemoteController
	scheduler *scheduler.Scheduler
	collector *metrics.Collector

	server *server.Server
	bridge *mqtt.Bridge
}

// appOptions select the optional services.
type appOptions struct {
	Renderers []display.Renderer
	Server    bool
	MQTT      bool
}

func newApp(cfg *config.Config, opts appOptions) (*app, error) {
	cat, err := catalog.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}

	collector := metrics.NewCollector(cfg.Devices)

	client := ecp.NewClient()
	client.SetTimeout(cfg.Transport.Timeout.D())
	client.SetRetry(cfg.Transport.MaxAttempts, cfg.Transport.RetryDelay.D())
	client.Observer = collector

	tracker := state.NewTracker(cfg.Devices, client, ecp.NewTCPProber(), cat)
	manager := display.NewManager(cat.Shows(), opts.Renderers...)
	ctrl := sequencer.New(client, tracker, cat, manager, sequencer.Options{
		GateDelay:   cfg.Transport.GateDelay.D(),
		LiveMarkers: cfg.LiveMarkers,
		Observer:    collector,
	})
	sched := scheduler.New(cfg, cat, ctrl, tracker, manager)

	collector.SetStateSource(tracker)
	collector.SetPendingFunc(sched.Pending)

	a := &app{
		cfg:       cfg,
		catalog:   cat,
		client:    client,
		tracker:   tracker,
		display:   manager,
		ctrl:      ctrl,
		scheduler: sched,
		collector: collector,
	}

	if opts.Server && cfg.Server.Listen != "" {
		srv, err := server.New(cfg.Server, server.Deps{
			States:  tracker,
			Catalog: cat,
			Events:  sched,
			Busy:    ctrl.Busy,
			Pending: sched.Pending,
			Metrics: metrics.Handler(metrics.NewRegistry(collector)),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create server: %w", err)
		}
		manager.AddRenderer(srv.Hub())
		a.server = srv
	}

	if opts.MQTT && cfg.MQTT.Enabled() {
		a.bridge = mqtt.NewBridge(cfg.MQTT, sched)
	}

	return a, nil
}

// run starts the scheduler loop and the configured services, and blocks
// until ctx is done or one of them fails.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.bridge != nil {
		if err := a.bridge.Connect(ctx); err != nil {
			logging.Error("MQTT bridge disabled", zap.Error(err))
			a.bridge = nil
		} else {
			defer a.bridge.Disconnect()
		}
	}

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errOnce.Do(func() { firstErr = fmt.Errorf("%s: %w", name, err) })
				cancel()
			}
		}()
	}

	a.display.Show(display.Loading())
	start("scheduler", a.scheduler.Run)
	if a.server != nil {
		start("server", a.server.Start)
	}
	if a.bridge != nil {
		start("mqtt", func(ctx context.Context) error {
			return a.bridge.Run(ctx, a.tracker, statusInterval)
		})
	}

	wg.Wait()
	return firstErr
}

// perform refreshes dev, then runs op on it. A new app has not queried any
// device yet, so every device starts out unreachable.
func (a *app) perform(ctx context.Context, dev config.Device, op func(context.Context, *app, config.Device) error) error {
	a.tracker.Refresh(ctx, dev.Name)
	return op(ctx, a, dev)
}

// diagnose queries dev once more and returns the transport error, if any.
func (a *app) diagnose(ctx context.Context, dev config.Device) error {
	_, err := a.client.Send(ctx, dev.Addr(), ecp.QueryMediaPlayer)
	return err
}

// device resolves an optional device name to a configured device,
// defaulting to the primary one.
func (a *app) device(name string) (config.Device, error) {
	if name == "" {
		return a.cfg.Primary(), nil
	}
	d, ok := a.cfg.Device(name)
	if !ok {
		return config.Device{}, fmt.Errorf("unknown device %q", name)
	}
	return d, nil
}
