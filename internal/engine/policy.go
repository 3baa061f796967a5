package engine

import (
	"mpvnotify/internal/opts"
	"mpvnotify/internal/player"
	"mpvnotify/internal/props"
	"mpvnotify/internal/thumbnail"
	logx "mpvnotify/pkg/logx"
)

// drain runs the coalesced pending actions in fixed priority order and
// clears them. Per cycle at most one of reset/update runs, and close
// preempts both unless force-open is active.
func (e *Engine) drain() {
	defer e.pending.Clear()

	if e.pending.Empty() {
		return
	}
	e.log.Trace("draining actions", logx.String("actions", e.pending.String()))

	if e.pending.Has(props.ActionCheckImage) {
		e.checkImage()
	}

	if e.pending.Has(props.ActionForcedQueueShot) {
		e.queueScreenshot(true)
	} else if e.pending.Has(props.ActionQueueShot) {
		e.queueScreenshot(false)
	}

	if e.pending.Has(props.ActionClose) && !e.forceOpen {
		e.disarmTimer()
		e.closeNotification()
		return
	}

	if !e.visible() {
		return
	}

	if e.pending.Has(props.ActionReset) {
		e.reset()
	} else if e.pending.Has(props.ActionUpdate) && (e.timerArmed || e.forceOpen) {
		e.update()
	}
}

// visible is the gate deciding whether the notification may be shown at
// all: never over a focused window (unless force-open), and only when
// there is something to say (metadata with a position, or the idle
// placeholder).
func (e *Engine) visible() bool {
	if e.focused() && !e.forceOpen {
		return false
	}
	if e.table.Truthy(props.IdleActive) {
		return true
	}
	return e.metaAvail && e.table.Present(props.TimePos)
}

// focused treats pointer hover and the focus_manual option as focus; all
// three mean the user is already looking at the player.
func (e *Engine) focused() bool {
	return e.table.Truthy(props.Focused) || e.mouseHovered || e.opts.True(opts.FocusManual)
}

// checkImage recomputes whether thumbnail capture is enabled. Disabling
// tears the scale pipeline down and refreshes the notification without an
// image.
func (e *Engine) checkImage() {
	idle := e.table.Truthy(props.IdleActive)

	// A track switch reports no video id and no metadata while the next
	// track loads; captures stay enabled so the first frame of the new
	// track is picked up.
	switching := !idle && !e.table.Present(props.VID) && !e.metaAvail

	noVideo := !e.table.Present(props.VID) && !e.table.Truthy(props.LavfiComplex) && !switching
	if idle || !e.opts.True(opts.SendThumbnail) || noVideo {
		if e.imageEnabled {
			e.log.Debug("thumbnail capture disabled")
			e.imageEnabled = false
			e.destroyThumbnail()
			e.pending.Add(props.ActionUpdate)
		}
		return
	}

	if !e.imageEnabled {
		e.log.Debug("thumbnail capture enabled")
		e.imageEnabled = true
	}
}

// queueScreenshot requests a raw frame capture. Unforced requests only run
// while the notification is (or is about to be) visible; there is no point
// refreshing art nobody sees.
func (e *Engine) queueScreenshot(force bool) {
	if !e.imageEnabled {
		return
	}
	if !e.timerArmed && !force && !e.forceOpen {
		return
	}

	e.shotSeq++
	if err := e.src.RequestScreenshot(e.shotSeq, e.opts.Str(opts.ScreenshotFlags)); err != nil {
		e.log.Error("failed to request screenshot", logx.Err(err))
		return
	}
	e.shotInFlight = true
	e.log.Trace("screenshot requested", logx.Uint64("seq", e.shotSeq))
}

// onScreenshot feeds a completed capture through the scale pipeline and
// schedules a content refresh. Completions from superseded requests are
// dropped (last-requested-wins).
func (e *Engine) onScreenshot(s player.ScreenshotReady) {
	if s.Seq != e.shotSeq {
		e.log.Trace("stale screenshot dropped",
			logx.Uint64("seq", s.Seq), logx.Uint64("latest", e.shotSeq))
		return
	}
	e.shotInFlight = false

	if !e.imageEnabled {
		return
	}

	p := thumbnail.Params{
		TargetSize:     e.opts.Int(opts.ThumbnailSize),
		Algo:           e.opts.Scaling(),
		DisableScaling: e.opts.True(opts.DisableScaling),
	}
	if !e.thumb.Ensure(s.W, s.H, s.Stride, p) {
		e.log.Warn("thumbnail pipeline rejected frame",
			logx.Int("w", s.W), logx.Int("h", s.H))
		e.ntf.SetImage(nil)
		return
	}

	elapsed := e.thumb.Process(s.Data, e.opts.True(opts.Perfdata))
	if e.opts.True(opts.Perfdata) {
		e.perfThumbUS = elapsed.Microseconds()
		e.bodyDirty = true
	}

	e.ntf.SetImage(e.thumb.Image())
	e.pending.Add(props.ActionUpdate)
}

func (e *Engine) destroyThumbnail() {
	e.thumb.Destroy()
	e.ntf.SetImage(nil)
}
