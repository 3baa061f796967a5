package engine

import (
	"math"
	"time"

	"mpvnotify/internal/opts"
	"mpvnotify/internal/props"
	logx "mpvnotify/pkg/logx"
)

// initBackend brings the presentation backend up and primes it with every
// cached attribute. On failure the engine stays in StateUninitialized;
// the next update attempt retries via reinit.
func (e *Engine) initBackend() {
	if err := e.ntf.Init(e.cfg.AppName); err != nil {
		e.log.ErrorLimited("notification backend init failed", logx.Err(err))
		return
	}

	e.markup = e.ntf.BodyMarkup()
	e.table.SetEscaper(e.escape)

	e.pushAppName()
	e.pushAppIcon()
	e.pushCategory()
	e.pushUrgency()
	e.pushProgress()
	e.ntf.SetImage(e.thumb.Image())
	e.ntf.Update(e.summary, e.body)

	e.state = StateClosed
}

// reinit tears the backend down and builds it from scratch, then
// re-subscribes every property so values are re-delivered and re-escaped
// under the (possibly changed) markup capability.
func (e *Engine) reinit() {
	e.log.Warn("reinitializing notification backend")
	e.ntf.Uninit()
	e.state = StateUninitialized
	e.initBackend()
	if e.ntf.Initialized() {
		e.reobserveAll()
	}
}

// reset restarts the expire countdown and refreshes content. Opening from
// the closed state also requests a capture, so the notification does not
// come up with stale art.
func (e *Engine) reset() {
	wasArmed := e.timerArmed
	e.armTimer(time.Duration(e.opts.Int(opts.ExpireTimeout)) * time.Second)
	if !wasArmed {
		e.queueScreenshot(false)
	}
	e.update()
}

// update rewrites dirty text and pushes the notification to the server. A
// failed show marks the backend failed and triggers reinitialization; the
// re-delivered property values then rebuild the notification.
func (e *Engine) update() {
	if !e.ntf.Initialized() {
		e.reinit()
		return
	}

	if e.summaryDirty {
		e.writeSummary()
	}
	if e.bodyDirty {
		e.writeBody()
	}
	if e.summaryDirty || e.bodyDirty {
		e.ntf.Update(e.summary, e.body)
		e.summaryDirty = false
		e.bodyDirty = false
	}

	perf := e.opts.True(opts.Perfdata)
	var start time.Time
	if perf {
		start = e.now()
	}

	if err := e.ntf.Show(); err != nil {
		e.log.ErrorLimited("failed to show notification", logx.Err(err))
		e.state = StateFailed
		e.reinit()
		return
	}
	e.state = StateOpen

	if perf {
		// Shown on the next rewrite; refreshing now would loop.
		e.perfShowUS = time.Since(start).Microseconds()
		e.bodyDirty = true
	}
}

// closeNotification retracts the notification. Errors are logged and
// swallowed; a close for an already-gone notification is fine.
func (e *Engine) closeNotification() {
	if !e.ntf.Initialized() {
		return
	}
	if err := e.ntf.CloseNotification(); err != nil {
		e.log.Warn("failed to close notification", logx.Err(err))
	}
	e.state = StateClosed
}

func (e *Engine) pushAppName() {
	if e.table.Truthy(props.AppName) {
		e.ntf.SetAppName(e.table.Str(props.AppName))
	} else {
		e.ntf.SetAppName(e.cfg.AppName)
	}
}

func (e *Engine) pushAppIcon() {
	e.ntf.SetAppIcon(e.opts.Str(opts.AppIcon))
}

func (e *Engine) pushCategory() {
	e.ntf.SetCategory(e.opts.Str(opts.Category))
}

func (e *Engine) pushUrgency() {
	e.ntf.SetUrgency(e.opts.UrgencyLevel())
}

// pushProgress recomputes the progress hint: playback position for normal
// tracks, gallery position while viewing images, removed when idle or
// disabled.
func (e *Engine) pushProgress() {
	if e.table.Truthy(props.IdleActive) || !e.opts.True(opts.SendProgress) {
		e.ntf.SetProgress(0, false)
		return
	}

	if e.table.Truthy(props.ImageDetected) {
		count := e.table.Int(props.PlaylistCount)
		if e.table.Present(props.PlaylistPos) && count > 1 {
			pos := e.table.Int(props.PlaylistPos)
			pct := math.Round(float64(pos+1) / float64(count) * 100)
			e.ntf.SetProgress(int32(pct), true)
		} else {
			e.ntf.SetProgress(0, false)
		}
		return
	}

	e.ntf.SetProgress(int32(e.percentRounded), true)
}
