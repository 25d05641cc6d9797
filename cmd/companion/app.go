package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benlarsendk/a320-checklist-companion/bus"
	"github.com/benlarsendk/a320-checklist-companion/checklist"
	"github.com/benlarsendk/a320-checklist-companion/config"
	"github.com/benlarsendk/a320-checklist-companion/core"
	"github.com/benlarsendk/a320-checklist-companion/gateway"
	"github.com/benlarsendk/a320-checklist-companion/settings"
	"github.com/benlarsendk/a320-checklist-companion/simbrief"
	"github.com/benlarsendk/a320-checklist-companion/simconnect"
	"github.com/benlarsendk/a320-checklist-companion/storage"
	"github.com/benlarsendk/a320-checklist-companion/voice"
)

const componentStopTimeout = 5 * time.Second

// App wires the companion's components together: bus, session log, checklist
// manager, core engine, sim link, file watchers, voice session and gateway.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	bus        *bus.Bus
	sessionLog *storage.SessionLog
	settings   *settings.Manager
	engine     *core.Engine
	link       *simconnect.Link
	watcher    *checklist.Watcher
	voice      *voice.Session
	server     *gateway.Server

	cancel context.CancelFunc
}

// NewApp creates an application instance around the loaded configuration.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Start brings up every component in dependency order. On error the already
// started components are shut down again.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	b, err := bus.Start(bus.Options{
		URL:      a.cfg.NATS.URL,
		Embedded: a.cfg.NATS.Embedded,
	}, a.logger)
	if err != nil {
		cancel()
		return fmt.Errorf("start bus: %w", err)
	}
	a.bus = b

	// The session log is best-effort: the companion works without it.
	sessionLog, err := storage.NewSessionLog(runCtx, b.JetStream())
	if err != nil {
		a.logger.Warn("Session log unavailable", "error", err)
	} else {
		a.sessionLog = sessionLog
	}

	a.settings = settings.NewManager(a.cfg.Data.SettingsFile, a.logger)

	mgr, err := checklist.NewManager(
		a.cfg.Data.ChecklistFile,
		a.cfg.Data.TrainingChecklistFile,
		a.settings.Get().TrainingMode,
		a.logger,
	)
	if err != nil {
		a.Shutdown(componentStopTimeout)
		return fmt.Errorf("load checklists: %w", err)
	}

	var simEvents <-chan simconnect.Event
	if a.cfg.Sim.Enabled {
		a.link = simconnect.NewLink(
			a.cfg.Sim.BridgeURL,
			a.cfg.Sim.PollInterval(),
			a.cfg.Sim.RetryInterval,
			a.logger,
		)
		simEvents = a.link.Events()
	}

	engineOpts := core.Options{
		Manager:        mgr,
		Publisher:      b,
		SimEvents:      simEvents,
		AutoTransition: a.cfg.Sim.AutoPhaseTransition,
		Logger:         a.logger,
	}
	if a.sessionLog != nil {
		engineOpts.Session = a.sessionLog
	}
	a.engine = core.NewEngine(engineOpts)
	if err := a.engine.Start(runCtx); err != nil {
		a.Shutdown(componentStopTimeout)
		return fmt.Errorf("start engine: %w", err)
	}

	if a.link != nil {
		if err := a.link.Start(runCtx); err != nil {
			a.Shutdown(componentStopTimeout)
			return fmt.Errorf("start sim link: %w", err)
		}
	}

	a.startWatcher(runCtx)

	if a.cfg.Voice.Enabled {
		audio := voice.NewEngine(a.cfg.Data.AudioDir, a.logger)
		go func() {
			if err := audio.Watch(runCtx); err != nil {
				a.logger.Warn("Audio watcher stopped", "error", err)
			}
		}()
		a.voice = voice.NewSession(audio, voice.NewMatcher(), a.settings, a.logger)
	}

	a.server = gateway.NewServer(gateway.Options{
		Host:        a.cfg.Server.Host,
		Port:        a.cfg.Server.Port,
		FrontendDir: a.cfg.Data.FrontendDir,
		AudioDir:    a.cfg.Data.AudioDir,
		Engine:      a.engine,
		SimBrief:    simbrief.NewClient(a.logger),
		Settings:    a.settings,
		Voice:       a.voice,
		Session:     a.sessionLog,
		Bus:         b,
		Logger:      a.logger,
	})
	if err := a.server.Start(runCtx); err != nil {
		a.Shutdown(componentStopTimeout)
		return fmt.Errorf("start gateway: %w", err)
	}

	a.logger.Info("Companion ready",
		"addr", fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port),
		"sim", a.cfg.Sim.Enabled,
		"voice", a.cfg.Voice.Enabled)
	return nil
}

// startWatcher reloads checklist documents when they change on disk. A
// watcher failure only disables live reload.
func (a *App) startWatcher(ctx context.Context) {
	w, err := checklist.NewWatcher(
		[]string{a.cfg.Data.ChecklistFile, a.cfg.Data.TrainingChecklistFile},
		a.logger,
	)
	if err != nil {
		a.logger.Warn("Checklist watcher unavailable", "error", err)
		return
	}
	a.watcher = w

	go w.Run(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case path, ok := <-w.Events():
				if !ok {
					return
				}
				if err := a.engine.ReloadDocuments(); err != nil {
					a.logger.Error("Checklist reload failed", "path", path, "error", err)
				}
			}
		}
	}()
}

// Shutdown stops components in reverse dependency order.
func (a *App) Shutdown(timeout time.Duration) {
	if a.server != nil {
		if err := a.server.Stop(); err != nil {
			a.logger.Warn("Gateway stop failed", "error", err)
		}
	}
	if a.link != nil {
		if err := a.link.Stop(timeout); err != nil {
			a.logger.Warn("Sim link stop failed", "error", err)
		}
	}
	if a.engine != nil {
		if err := a.engine.Stop(timeout); err != nil {
			a.logger.Warn("Engine stop failed", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.bus != nil {
		a.bus.Close()
	}
	a.logger.Info("Companion stopped")
}
