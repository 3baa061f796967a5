package engine

import (
	"math"

	"mpvnotify/internal/compose"
	"mpvnotify/internal/opts"
	"mpvnotify/internal/player"
	"mpvnotify/internal/props"
	logx "mpvnotify/pkg/logx"
)

func (e *Engine) onPropertyChange(id props.ID, v props.Value) {
	res := e.table.Update(id, v)
	e.pending.Union(res.Triggers)
	e.summaryDirty = e.summaryDirty || res.SummaryDirty
	e.bodyDirty = e.bodyDirty || res.BodyDirty

	switch id {
	case props.AppName:
		e.pushAppName()

	case props.IdleActive:
		e.pushProgress()
		e.bodyDirty = true

	case props.Metadata:
		e.onMetadata(v)

	case props.MousePos:
		e.onMousePos(v)

	case props.MsgLevel:
		if e.cfg.SetLogLevel != nil {
			e.cfg.SetLogLevel(player.LevelFromMsgLevel(e.cfg.ClientName, v.Str))
		}

	case props.ScriptOpts:
		e.onScriptOpts(v)

	case props.PercentPos:
		e.onPercentPos(v)

	case props.PlaylistCount, props.PlaylistPos, props.ImageDetected:
		e.pushProgress()
	}
}

func (e *Engine) onMetadata(v props.Value) {
	e.meta = nil
	e.metaAvail = false
	if v.Kind != props.KindNode {
		return
	}
	if meta, ok := compose.ExtractMetadata(v.Node, e.escape); ok {
		e.meta = meta
		e.metaAvail = true
	}
}

// onMousePos closes the notification on the rising edge of the pointer
// entering the player window; the hover state also feeds the focus
// predicate.
func (e *Engine) onMousePos(v props.Value) {
	hovered := false
	if m, ok := v.Node.(map[string]any); ok {
		if h, ok := m["hover"].(bool); ok {
			hovered = h
		}
	}
	if hovered && !e.mouseHovered {
		e.pending.Add(props.ActionClose)
	}
	e.mouseHovered = hovered
}

// onPercentPos caches the rounded position and raises an update only when
// the rounded value moved. Image tracks advance percent-pos without the
// picture changing, so captures are only queued for real video.
func (e *Engine) onPercentPos(v props.Value) {
	if !e.table.Truthy(props.CurrentTracksVideoImage) {
		e.pending.Add(props.ActionQueueShot)
	}

	old := e.percentRounded
	if v.Present() && isNormal(v.Float) {
		e.percentRounded = int64(math.Round(v.Float))
	} else {
		e.percentRounded = 0
	}
	if old != e.percentRounded {
		e.pushProgress()
		e.pending.Add(props.ActionUpdate)
		e.bodyDirty = true
	}
}

// onScriptOpts re-derives the active option generation: start from the
// file-applied base and re-apply the whole overlay, so removed overlay keys
// fall back to their base values.
func (e *Engine) onScriptOpts(v props.Value) {
	prev := e.opts
	e.opts = e.optsBase
	opts.ApplyRuntime(&e.opts, overlayFrom(v), e.cfg.ClientName, e.log)
	e.runOptsChanged(&prev, &e.opts)
}

func overlayFrom(v props.Value) map[string]string {
	out := map[string]string{}
	m, ok := v.Node.(map[string]any)
	if !ok {
		return out
	}
	for k, raw := range m {
		if s, ok := raw.(string); ok {
			out[k] = s
		}
	}
	return out
}

// reloadConfig re-reads the options file into a fresh base generation and
// re-derives the active one, running side effects against the previous
// active generation.
func (e *Engine) reloadConfig() {
	e.log.Info("reloading options", logx.String("path", e.cfg.OptionsPath))

	prev := e.opts

	base := opts.Defaults()
	opts.ApplyFile(&base, e.cfg.OptionsPath, e.log)
	e.optsBase = base

	e.opts = base
	opts.ApplyRuntime(&e.opts, overlayFrom(e.table.Get(props.ScriptOpts)), e.cfg.ClientName, e.log)

	e.runOptsChanged(&prev, &e.opts)
}

// runOptsChanged applies the per-key side effects of an option generation
// change.
func (e *Engine) runOptsChanged(before, after *opts.Set) {
	for _, k := range opts.Diff(before, after) {
		e.log.Debug("option changed", logx.String("key", k.String()))
		switch k {
		case opts.AppIcon:
			e.pushAppIcon()
			e.pending.Add(props.ActionUpdate)
		case opts.Category:
			e.pushCategory()
			e.pending.Add(props.ActionUpdate)
		case opts.Urgency:
			e.pushUrgency()
			e.pending.Add(props.ActionUpdate)
		case opts.SendThumbnail:
			e.pending.Add(props.ActionCheckImage)
			if after.True(opts.SendThumbnail) {
				e.pending.Add(props.ActionQueueShot)
			}
		case opts.SendProgress:
			e.pushProgress()
			e.pending.Add(props.ActionUpdate)
		case opts.SendSubText:
			e.pending.Add(props.ActionUpdate)
			e.bodyDirty = true
		case opts.ThumbnailSize, opts.ThumbnailScaling, opts.DisableScaling:
			e.destroyThumbnail()
			e.pending.Add(props.ActionQueueShot)
		case opts.ScreenshotFlags:
			e.pending.Add(props.ActionQueueShot)
		case opts.FocusManual:
			e.pending.Add(props.ActionReset)
		case opts.Perfdata:
			e.pending.Add(props.ActionUpdate)
			e.bodyDirty = true
		case opts.ExpireTimeout:
			// Takes effect on the next reset; the running countdown keeps its
			// old deadline.
		}
	}
}

func isNormal(f float64) bool {
	return f != 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}
