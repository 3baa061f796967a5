// Package core wires the daemon together: config, logging, the player
// session with its engine, and the file watchers, all under one
// supervisor.
package core

import (
	"context"
	"strings"
	"time"

	"mpvnotify/internal/backend"
	"mpvnotify/internal/config"
	"mpvnotify/internal/engine"
	"mpvnotify/internal/player"
	"mpvnotify/internal/runtime/supervisor"
	logx "mpvnotify/pkg/logx"
	"mpvnotify/pkg/systemd"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	logs *logx.Service
	log  logx.Logger
}

func NewApp(cfgPath string) (*App, error) {
	boot := logx.NewConsole("info").With(logx.String("comp", "config"))

	cfgm := config.NewManager(cfgPath, boot)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	return &App{
		cfgPath: cfgPath,
		cfgm:    config.NewManager(cfgPath, log.With(logx.String("comp", "config"))),
		logs:    logs,
		log:     log.With(logx.String("comp", "app")),
	}, nil
}

// Done is closed when the supervisor context is cancelled (fatal error or
// Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	if _, err := a.cfgm.Load(); err != nil {
		return err
	}
	cfg := a.cfgm.Get()

	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))

	// The session reconnects forever: the daemon outlives individual player
	// instances, so a closed socket just means waiting for the next one.
	a.sup.GoRestart("player-session", a.runSession,
		supervisor.WithRestartBackoff(cfg.ReconnectBackoffOrDefault(), 30*time.Second),
		supervisor.WithStopOnCleanExit(false))

	a.sup.Go("config-watch", a.cfgm.Watch)
	a.sup.Go("config-apply", a.applyConfigUpdates)

	systemd.NotifyReady()
	a.log.Info("started", logx.String("socket", cfg.Player.Socket))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	systemd.NotifyStopping()
	if a.sup == nil {
		return nil
	}
	err := a.sup.Stop(ctx)
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return err
}

// runSession dials the player, runs one engine over the connection and
// returns when the player goes away. One session corresponds to one player
// instance.
func (a *App) runSession(ctx context.Context) error {
	cfg := a.cfgm.Get()

	client, err := player.Dial(cfg.Player.Socket, cfg.ClientNameOrDefault(),
		a.log.With(logx.String("comp", "player")))
	if err != nil {
		return err
	}
	a.log.Info("player connected", logx.String("socket", cfg.Player.Socket))
	systemd.NotifyStatus("connected to " + cfg.Player.Socket)
	defer systemd.NotifyStatus("waiting for player at " + cfg.Player.Socket)

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readerDone := make(chan error, 1)
	go func() { readerDone <- client.Run(sctx) }()

	eng := engine.New(engine.Config{
		Source:      client,
		Presenter:   backend.New(a.log.With(logx.String("comp", "backend"))),
		Log:         a.log.With(logx.String("comp", "engine")),
		ClientName:  cfg.ClientNameOrDefault(),
		AppName:     cfg.AppNameOrDefault(),
		OptionsPath: cfg.OptionsPath(),
		SetLogLevel: a.logs.SetLevel,
	})

	if cfg.WatchOptions() {
		path := cfg.OptionsPath()
		wlog := a.log.With(logx.String("comp", "options-watch"))
		go func() {
			if err := watchFile(sctx, path, eng.RequestConfigReload, wlog); err != nil {
				wlog.Warn("options watch failed", logx.Err(err))
			}
		}()
	}

	err = eng.Run(sctx)
	cancel()
	_ = client.Close()
	<-readerDone

	a.log.Info("player session ended")
	return err
}

// applyConfigUpdates consumes committed config changes. Logging applies
// immediately; player and options changes take effect on the next session.
func (a *App) applyConfigUpdates(ctx context.Context) error {
	prev := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg, ok := <-a.cfgm.Updates():
			if !ok {
				return nil
			}
			changed, attrs := config.SummarizeConfigChange(prev, cfg)
			if len(changed) == 0 {
				continue
			}
			a.log.Info("config changed",
				append([]logx.Field{logx.String("sections", strings.Join(changed, ","))}, attrs...)...)

			if contains(changed, "logging") {
				a.logs.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: cfg.Logging.File.Enabled,
						Path:    cfg.Logging.File.Path,
					},
				})
			}
			if contains(changed, "player") || contains(changed, "options") {
				a.log.Info("player/options changes apply on next session")
			}
			prev = cfg
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
