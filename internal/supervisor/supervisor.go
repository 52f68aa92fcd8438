// Package supervisor owns the gateway's run loop: load config, open
// every configured connector, prepare and start every bridge, then hold
// the process up until a signal or reload request arrives. Modeled on
// the teacher's Application facade (cmd/main.go) — a single struct that
// owns the whole running system's lifecycle and status tracking — but
// generalized from the teacher's fixed MQTT/Modbus pair to the
// registry-driven connector/bridge set of the expanded gateway.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iotgw/iotgwd/internal/bridge"
	"github.com/iotgw/iotgwd/internal/bridgeerrors"
	"github.com/iotgw/iotgwd/internal/config"
	"github.com/iotgw/iotgwd/internal/connector"
	"github.com/iotgw/iotgwd/internal/httpapi"
	"github.com/iotgw/iotgwd/internal/logger"
	"github.com/iotgw/iotgwd/internal/metrics"
	"github.com/iotgw/iotgwd/internal/notify"
)

// Options configures a Supervisor for one run.
type Options struct {
	ConfigPath string
	ConfDir    string
}

// Supervisor owns the live set of opened connectors and started
// bridges, and the background goroutines (tick loop, watchdog) that
// keep the process alive and reporting health to systemd.
type Supervisor struct {
	opts Options

	mu         sync.Mutex
	cfg        *config.Config
	opened     map[string]connector.Runtime
	bridges    map[string]*bridge.Runtime
	metrics    metrics.Collector
	httpServer *httpapi.Server
}

// New constructs a Supervisor. Call Run to load config and block until
// shutdown.
func New(opts Options) *Supervisor {
	return &Supervisor{opts: opts}
}

// Run loads the configuration, opens every connector and bridge, and
// blocks until ctx is cancelled (by a SIGINT/SIGTERM handed to
// NotifyContext upstream). SIGHUP reload is
// driven by calling Reload from the caller's own signal loop — the
// supervisor itself does not touch os/signal, leaving that to cmd/iotgwd
// per the teacher's cmd/main.go split between signal plumbing and
// application logic.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.load(); err != nil {
		return err
	}
	defer s.teardown()

	if err := notify.Ready(); err != nil {
		logger.Warn("supervisor: sd_notify READY failed: %v", err)
	}

	tickInterval := 5 * time.Second
	watchdogPeriod, watchdogEnabled := notify.WatchdogEnabled()
	var watchdogTicker *time.Ticker
	if watchdogEnabled {
		watchdogTicker = time.NewTicker(time.Duration(float64(watchdogPeriod) * 0.6))
		defer watchdogTicker.Stop()
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = notify.Stopping()
			return nil
		case <-ticker.C:
			s.tick()
		case <-watchdogTickerC(watchdogTicker):
			if err := notify.Watchdog(); err != nil {
				logger.Warn("supervisor: sd_notify WATCHDOG failed: %v", err)
			}
			s.metrics.IncWatchdogTicks()
		}
	}
}

func watchdogTickerC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (s *Supervisor) tick() {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		srv.MarkTick(time.Now())
	}
}

// load reads config, opens connectors, installs the metrics collector
// and httpapi server, and starts every bridge it can. A bridge that
// fails to prepare or start is logged and skipped — it does not abort
// the rest (spec §9, partial-start semantics).
func (s *Supervisor) load() error {
	cfg, opened, bridges, collector, httpServer, err := s.prepareGeneration()
	if err != nil {
		return err
	}
	startBridges(context.Background(), bridges)

	s.mu.Lock()
	s.cfg = cfg
	s.opened = opened
	s.bridges = bridges
	s.metrics = collector
	s.httpServer = httpServer
	s.mu.Unlock()

	if httpServer != nil {
		if err := httpServer.Start(context.Background()); err != nil {
			return fmt.Errorf("supervisor: httpapi start: %w", err)
		}
	}

	logger.Info("supervisor: started %d/%d bridges", len(bridges), len(cfg.Bridges))
	return nil
}

// prepareGeneration builds one whole generation — config, opened
// connectors, and prepared (not yet started) bridges — without
// touching anything the Supervisor currently has installed. It does no
// teardown of a prior generation, so a caller can inspect its error
// before deciding whether to replace what is already running.
func (s *Supervisor) prepareGeneration() (*config.Config, map[string]connector.Runtime, map[string]*bridge.Runtime, metrics.Collector, *httpapi.Server, error) {
	cfg, err := config.LoadAll(s.opts.ConfigPath, s.opts.ConfDir)
	if err != nil {
		return nil, nil, nil, nil, nil, bridgeerrors.NewConfigError("load", err, "")
	}

	logger.Init(&logger.Config{Level: cfg.Gateway.LogLevel, File: cfg.Gateway.LogFile})

	var collector metrics.Collector = metrics.NewNullCollector()
	var httpServer *httpapi.Server
	if cfg.Gateway.MetricsPort > 0 {
		collector = metrics.NewPrometheusCollector()
		httpServer = httpapi.New(fmt.Sprintf(":%d", cfg.Gateway.MetricsPort), true)
	} else {
		httpServer = httpapi.New(":0", false)
	}

	opened, err := openConnectors(cfg)
	if err != nil {
		return nil, nil, nil, nil, nil, err
	}

	bridges := make(map[string]*bridge.Runtime, len(cfg.Bridges))
	for name, bcfg := range cfg.Bridges {
		driverless := ""
		for _, end := range []string{bcfg.From, bcfg.To} {
			if e, ok := connector.Lookup(cfg.Connectors[end].Type); ok && !connector.HasDriver(e.Kind) {
				driverless = end
			}
		}
		if driverless != "" {
			bridgeerrors.Handle(bridgeerrors.NewUnsupportedPairError(name, fmt.Errorf("%w: connector %q has no driver", connector.ErrUnsupportedPair, driverless)))
			continue
		}
		rt, err := bridge.Prepare(name, bcfg, opened, bcfg.TopicPrefix)
		if err != nil {
			bridgeerrors.Handle(err)
			continue
		}
		rt.SetMetrics(collector)
		bridges[name] = rt
	}

	return cfg, opened, bridges, collector, httpServer, nil
}

// startBridges starts every prepared bridge concurrently, removing any
// that fail to start from the map (logged, not fatal — spec §9
// partial-start semantics).
func startBridges(ctx context.Context, bridges map[string]*bridge.Runtime) {
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var failed []string
	for name, rt := range bridges {
		name, rt := name, rt
		g.Go(func() error {
			if err := rt.Start(gctx); err != nil {
				bridgeerrors.Handle(err)
				mu.Lock()
				failed = append(failed, name)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	for _, name := range failed {
		delete(bridges, name)
	}
}

// openConnectors opens every connector named in cfg.Connectors, looking
// up its registry entry by type and parsing its params subtree. A type
// missing from the registry is a ConfigError. An entry with no Opener
// (an opaque kind) is skipped rather than opened, so config may name it;
// prepareGeneration rejects any bridge that uses such a connector as an
// endpoint with an UnsupportedPairError wrapping ErrUnsupportedPair.
func openConnectors(cfg *config.Config) (map[string]connector.Runtime, error) {
	opened := make(map[string]connector.Runtime, len(cfg.Connectors))

	for name, ccfg := range cfg.Connectors {
		entry, ok := connector.Lookup(ccfg.Type)
		if !ok {
			return nil, bridgeerrors.NewConfigError("open_connectors", fmt.Errorf("unknown connector type %q", ccfg.Type), name)
		}
		if entry.Open == nil {
			continue
		}

		parsed, err := entry.Parse(ccfg.Params)
		if err != nil {
			return nil, bridgeerrors.NewDeviceConfigError("parse", err, name)
		}

		rt, err := entry.Open(name, parsed)
		if err != nil {
			return nil, bridgeerrors.NewDeviceConfigError("open", err, name)
		}
		opened[name] = rt
	}

	return opened, nil
}

// Reload re-reads config, opens the new connectors and prepares the new
// bridges, and only then stops the previous generation. Per spec §9,
// reload is atomic: either the whole new generation comes up and
// replaces the old one, or the reload fails — having touched nothing
// but its own in-memory build — and the old generation keeps running
// untouched.
func (s *Supervisor) Reload() error {
	logger.Info("supervisor: reload requested")

	cfg, opened, bridges, collector, httpServer, err := s.prepareGeneration()
	if err != nil {
		logger.Error("supervisor: reload: new config failed to prepare, keeping previous generation: %v", err)
		return err
	}

	s.mu.Lock()
	oldBridges := s.bridges
	oldOpened := s.opened
	oldHTTP := s.httpServer
	s.mu.Unlock()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for name, rt := range oldBridges {
		if err := rt.Stop(stopCtx); err != nil {
			logger.Warn("supervisor: reload: stop bridge %q: %v", name, err)
		}
		rt.Close()
	}
	for name, rt := range oldOpened {
		if err := rt.Close(); err != nil {
			logger.Warn("supervisor: reload: close connector %q: %v", name, err)
		}
	}
	if oldHTTP != nil {
		oldHTTP.Stop(stopCtx)
	}

	startBridges(context.Background(), bridges)

	s.mu.Lock()
	s.cfg = cfg
	s.opened = opened
	s.bridges = bridges
	s.metrics = collector
	s.httpServer = httpServer
	s.mu.Unlock()

	if httpServer != nil {
		if err := httpServer.Start(context.Background()); err != nil {
			logger.Error("supervisor: reload: httpapi start: %v", err)
			return fmt.Errorf("supervisor: reload: httpapi start: %w", err)
		}
	}

	logger.Info("supervisor: reload complete: %d/%d bridges", len(bridges), len(cfg.Bridges))
	return nil
}

func (s *Supervisor) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for name, rt := range s.bridges {
		if err := rt.Stop(stopCtx); err != nil {
			logger.Warn("supervisor: stop bridge %q: %v", name, err)
		}
		rt.Close()
	}
	for name, rt := range s.opened {
		if err := rt.Close(); err != nil {
			logger.Warn("supervisor: close connector %q: %v", name, err)
		}
	}
	if s.httpServer != nil {
		s.httpServer.Stop(stopCtx)
	}
}
