// Package engine is the core of mpvnotify: the single-threaded event loop
// that merges property changes, capture completions, timer expiry and
// control messages into a minimal set of notification side effects.
//
// All engine state (observed-state table, option generations, thumbnail
// context, pending actions, debounce timer) is owned by the goroutine
// running Run; nothing here is safe for concurrent use. Producers funnel
// work in through the source's signal channel or RequestConfigReload.
package engine

import (
	"context"
	"image"
	"time"

	"mpvnotify/internal/compose"
	"mpvnotify/internal/opts"
	"mpvnotify/internal/player"
	"mpvnotify/internal/props"
	"mpvnotify/internal/thumbnail"
	logx "mpvnotify/pkg/logx"
)

// Presenter is the notification presentation backend contract. Setters
// cache attributes; Show pushes everything to the server and may fail,
// which the engine recovers from with a full Uninit/Init cycle.
type Presenter interface {
	Init(appName string) error
	Initialized() bool
	BodyMarkup() bool

	SetAppName(name string)
	SetAppIcon(icon string)
	SetCategory(category string)
	SetUrgency(u opts.UrgencyLevel)
	SetProgress(percent int32, ok bool)
	SetImage(img *image.RGBA)

	Update(summary, body string)
	Show() error
	CloseNotification() error
	Uninit()
}

// State is the notification lifecycle state.
type State uint8

const (
	// StateUninitialized: no working backend yet.
	StateUninitialized State = iota
	// StateClosed: backend initialized, no visible notification.
	StateClosed
	// StateOpen: notification visible (timer armed or force-open).
	StateOpen
	// StateFailed: a backend call errored; reinitialization pending.
	StateFailed
)

// Config wires an Engine.
type Config struct {
	Source    player.Source
	Presenter Presenter
	Log       logx.Logger

	// ClientName namespaces runtime overlay keys and msg-level matching.
	ClientName string
	// AppName is the fallback application name shown by the server.
	AppName string
	// OptionsPath is the key=value options file, re-read on reload-config.
	OptionsPath string

	// SetLogLevel receives the level derived from the watched msg-level
	// property. Optional.
	SetLogLevel func(level string)
}

type Engine struct {
	cfg Config
	log logx.Logger

	src player.Source
	ntf Presenter

	table    *props.Table
	optsBase opts.Set
	opts     opts.Set

	pending      props.ActionSet
	summaryDirty bool
	bodyDirty    bool
	summary      string
	body         string

	meta      *compose.Metadata
	metaAvail bool

	mouseHovered   bool
	forceOpen      bool
	percentRounded int64

	imageEnabled bool
	// shotSeq is the sequence number of the most recent capture request;
	// completions carrying an older sequence are discarded
	// (last-requested-wins).
	shotSeq      uint64
	shotInFlight bool
	markup       bool
	thumb        thumbnail.Context
	perfThumbUS  int64
	perfShowUS   int64

	appNameSupported bool

	state State

	timer         *time.Timer
	timerArmed    bool
	timerDeadline time.Time

	reload chan struct{}

	now func() time.Time
}

func New(cfg Config) *Engine {
	log := cfg.Log
	if cfg.AppName == "" {
		cfg.AppName = "mpv"
	}
	e := &Engine{
		cfg:    cfg,
		log:    log,
		src:    cfg.Source,
		ntf:    cfg.Presenter,
		table:  props.NewTable(),
		reload: make(chan struct{}, 1),
		now:    time.Now,
	}
	e.timer = time.NewTimer(time.Hour)
	if !e.timer.Stop() {
		<-e.timer.C
	}
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state }

// RequestConfigReload funnels an options-file reload into the event loop
// (used by the file watcher). Collapses with any reload already pending.
func (e *Engine) RequestConfigReload() {
	select {
	case e.reload <- struct{}{}:
	default:
	}
}

// Run executes the engine until the source shuts down or ctx is cancelled.
// Owned resources are released before return regardless of current state.
func (e *Engine) Run(ctx context.Context) error {
	e.startup()
	defer e.teardown()

	for {
		select {
		case <-ctx.Done():
			return nil

		case sig, ok := <-e.src.Signals():
			if !ok {
				return nil
			}
			if e.handle(sig) {
				return nil
			}
			// Drain the rest of the burst before acting, so a batch of
			// signals coalesces into one set of side effects.
			for {
				var more bool
				select {
				case sig, more = <-e.src.Signals():
					if !more {
						e.drain()
						return nil
					}
					if e.handle(sig) {
						return nil
					}
					continue
				default:
				}
				break
			}

		case <-e.timer.C:
			e.log.Debug("expire timer fired")
			e.timerArmed = false
			e.pending.Add(props.ActionClose)

		case <-e.reload:
			e.reloadConfig()
		}

		e.drain()
	}
}

func (e *Engine) startup() {
	e.opts = opts.Defaults()

	e.writeSummary()
	e.writeBody()

	e.initBackend()

	fileOpts := e.opts
	opts.ApplyFile(&fileOpts, e.cfg.OptionsPath, e.log)
	prev := e.opts
	e.opts = fileOpts
	e.runOptsChanged(&prev, &e.opts)
	// Option side effects during startup must not fire actions; the first
	// real signals will.
	e.pending.Clear()
	e.optsBase = e.opts

	supported, err := e.src.HasProperty(props.Lookup(props.AppName).Name)
	if err != nil {
		e.log.Warn("property support probe failed", logx.Err(err))
	}
	e.appNameSupported = supported

	e.observeAll()
}

func (e *Engine) teardown() {
	e.destroyThumbnail()
	e.closeNotification()
	e.ntf.Uninit()
	e.state = StateUninitialized
	e.disarmTimer()
}

func (e *Engine) observeAll() {
	for _, id := range props.All() {
		if id == props.AppName && !e.appNameSupported {
			continue
		}
		if err := e.src.Observe(id); err != nil {
			e.log.Error("failed to observe property",
				logx.String("property", props.Lookup(id).Name), logx.Err(err))
		}
	}
}

func (e *Engine) reobserveAll() {
	for _, id := range props.All() {
		if id == props.AppName && !e.appNameSupported {
			continue
		}
		if err := e.src.Unobserve(id); err != nil {
			e.log.Error("failed to unobserve property",
				logx.String("property", props.Lookup(id).Name), logx.Err(err))
		}
		if err := e.src.Observe(id); err != nil {
			e.log.Error("failed to observe property",
				logx.String("property", props.Lookup(id).Name), logx.Err(err))
		}
	}
}

// handle processes one signal; the reported actions accumulate until the
// batch is drained. Returns true on shutdown.
func (e *Engine) handle(sig player.Signal) bool {
	switch s := sig.(type) {
	case player.PropertyChange:
		e.onPropertyChange(s.ID, s.Value)
	case player.ScreenshotReady:
		e.onScreenshot(s)
	case player.ScreenshotFailed:
		if s.Seq == e.shotSeq {
			e.shotInFlight = false
		}
		e.log.Debug("screenshot failed", logx.Uint64("seq", s.Seq), logx.Err(s.Err))
	case player.ClientMessage:
		e.onClientMessage(s.Args)
	case player.Seek:
		e.log.Debug("seeked")
		e.pending.Add(props.ActionReset)
	case player.VideoReconfig:
		// Queueing a capture on new file metadata usually yields a frame of
		// the previous file; after a video reconfig the new one is ready.
		e.log.Debug("video reconfig")
		e.pending.Add(props.ActionForcedQueueShot)
	case player.ConfigReload:
		e.reloadConfig()
	case player.Shutdown:
		return true
	}
	return false
}

func (e *Engine) onClientMessage(args []string) {
	if len(args) < 1 {
		return
	}
	switch args[0] {
	case "close":
		e.pending.Add(props.ActionClose)
		e.forceOpen = false
	case "open":
		e.pending.Add(props.ActionReset)
		e.forceOpen = true
	case "reload-config":
		e.reloadConfig()
	}
}

func (e *Engine) writeSummary() {
	e.summary = compose.Summary(e.snapshot())
}

func (e *Engine) writeBody() {
	e.body = compose.Body(e.snapshot())
}

func (e *Engine) snapshot() *compose.Snapshot {
	return &compose.Snapshot{
		Table:              e.table,
		Opts:               &e.opts,
		Meta:               e.meta,
		MetaAvail:          e.metaAvail,
		PercentRounded:     e.percentRounded,
		Markup:             e.markup,
		ThumbnailElapsedUS: e.perfThumbUS,
		ShowElapsedUS:      e.perfShowUS,
	}
}

func (e *Engine) escape(s string) string {
	if e.markup {
		return compose.EscapeMarkup(s)
	}
	return s
}

func (e *Engine) armTimer(d time.Duration) {
	e.stopTimer()
	// Duration zero mirrors a disarmed countdown: the notification stays
	// until something else closes it.
	if d > 0 {
		e.timer.Reset(d)
		e.timerDeadline = e.now().Add(d)
	} else {
		e.timerDeadline = time.Time{}
	}
	e.timerArmed = true
}

func (e *Engine) disarmTimer() {
	e.stopTimer()
	e.timerArmed = false
	e.timerDeadline = time.Time{}
}

func (e *Engine) stopTimer() {
	if !e.timer.Stop() {
		select {
		case <-e.timer.C:
		default:
		}
	}
}
