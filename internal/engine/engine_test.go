package engine

import (
	"errors"
	"image"
	"testing"
	"time"

	"mpvnotify/internal/opts"
	"mpvnotify/internal/player"
	"mpvnotify/internal/props"
	logx "mpvnotify/pkg/logx"
)

type shotReq struct {
	seq   uint64
	flags string
}

type fakeSource struct {
	signals    chan player.Signal
	observed   []props.ID
	unobserved []props.ID
	shots      []shotReq
	shotErr    error
}

func newFakeSource() *fakeSource {
	return &fakeSource{signals: make(chan player.Signal, 64)}
}

func (f *fakeSource) Signals() <-chan player.Signal { return f.signals }

func (f *fakeSource) Observe(id props.ID) error {
	f.observed = append(f.observed, id)
	return nil
}

func (f *fakeSource) Unobserve(id props.ID) error {
	f.unobserved = append(f.unobserved, id)
	return nil
}

func (f *fakeSource) RequestScreenshot(seq uint64, flags string) error {
	if f.shotErr != nil {
		return f.shotErr
	}
	f.shots = append(f.shots, shotReq{seq: seq, flags: flags})
	return nil
}

func (f *fakeSource) HasProperty(string) (bool, error) { return true, nil }

type fakePresenter struct {
	initErr error
	showErr error

	inits   int
	uninits int
	shows   int
	closes  int

	initialized bool
	markup      bool

	appName  string
	appIcon  string
	category string
	urgency  opts.UrgencyLevel

	progress    int32
	hasProgress bool

	img *image.RGBA

	summary string
	body    string
}

func (f *fakePresenter) Init(appName string) error {
	f.inits++
	if f.initErr != nil {
		return f.initErr
	}
	f.initialized = true
	f.appName = appName
	return nil
}

func (f *fakePresenter) Initialized() bool { return f.initialized }
func (f *fakePresenter) BodyMarkup() bool  { return f.markup }

func (f *fakePresenter) SetAppName(name string)         { f.appName = name }
func (f *fakePresenter) SetAppIcon(icon string)         { f.appIcon = icon }
func (f *fakePresenter) SetCategory(category string)    { f.category = category }
func (f *fakePresenter) SetUrgency(u opts.UrgencyLevel) { f.urgency = u }
func (f *fakePresenter) SetProgress(p int32, ok bool)   { f.progress, f.hasProgress = p, ok }
func (f *fakePresenter) SetImage(img *image.RGBA)       { f.img = img }

func (f *fakePresenter) Update(summary, body string) {
	f.summary = summary
	f.body = body
}

func (f *fakePresenter) Show() error {
	if f.showErr != nil {
		return f.showErr
	}
	f.shows++
	return nil
}

func (f *fakePresenter) CloseNotification() error {
	f.closes++
	return nil
}

func (f *fakePresenter) Uninit() {
	f.uninits++
	f.initialized = false
}

type testEngine struct {
	*Engine
	src *fakeSource
	ntf *fakePresenter
	now time.Time
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	src := newFakeSource()
	ntf := &fakePresenter{}
	e := New(Config{
		Source:     src,
		Presenter:  ntf,
		Log:        logx.Nop(),
		ClientName: "osd",
		AppName:    "mpv",
	})
	te := &testEngine{Engine: e, src: src, ntf: ntf, now: time.Unix(1000, 0)}
	e.now = func() time.Time { return te.now }
	e.startup()
	return te
}

func (te *testEngine) deliver(t *testing.T, sigs ...player.Signal) {
	t.Helper()
	for _, sig := range sigs {
		if te.handle(sig) {
			t.Fatalf("unexpected shutdown on %T", sig)
		}
	}
	te.drain()
}

// open delivers metadata and a position, which opens the notification and
// arms the expire countdown.
func (te *testEngine) open(t *testing.T) {
	t.Helper()
	te.deliver(t,
		player.PropertyChange{ID: props.Metadata,
			Value: props.NodeValue(map[string]any{"artist": "A", "title": "T"})},
		player.PropertyChange{ID: props.TimePos, Value: props.IntValue(10)},
	)
	if !te.timerArmed {
		t.Fatalf("open: timer not armed")
	}
	if te.State() != StateOpen {
		t.Fatalf("open: state = %v", te.State())
	}
}

// expire simulates the countdown firing, the way the run loop reacts to it.
func (te *testEngine) expire(t *testing.T) {
	t.Helper()
	te.timerArmed = false
	te.pending.Add(props.ActionClose)
	te.drain()
	if te.State() != StateClosed {
		t.Fatalf("expire: state = %v", te.State())
	}
}

// enableCapture reports a video track, which turns thumbnail capture on.
func (te *testEngine) enableCapture(t *testing.T) {
	t.Helper()
	te.deliver(t, player.PropertyChange{ID: props.VID, Value: props.IntValue(1)})
	if !te.imageEnabled {
		t.Fatalf("capture not enabled with a video track")
	}
}

func rawFrame() player.ScreenshotReady {
	return player.ScreenshotReady{Data: make([]byte, 8*8*4), W: 8, H: 8, Stride: 8 * 4}
}

func TestStartupInitializesAndObserves(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	if te.ntf.inits != 1 || !te.ntf.initialized {
		t.Fatalf("backend not initialized: inits=%d", te.ntf.inits)
	}
	if te.State() != StateClosed {
		t.Fatalf("state = %v, want closed", te.State())
	}
	if len(te.src.observed) != props.Count() {
		t.Fatalf("observed %d properties, want %d", len(te.src.observed), props.Count())
	}
	if te.ntf.summary != "No file" {
		t.Fatalf("initial summary = %q", te.ntf.summary)
	}
	if te.ntf.shows != 0 {
		t.Fatalf("startup must not show anything")
	}
}

func TestMetadataOpensAndArmsTimer(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.open(t)

	if te.ntf.shows != 1 {
		t.Fatalf("shows = %d, want 1", te.ntf.shows)
	}
	wantDeadline := te.now.Add(10 * time.Second)
	if !te.timerDeadline.Equal(wantDeadline) {
		t.Fatalf("deadline = %v, want %v", te.timerDeadline, wantDeadline)
	}
	if te.ntf.summary != "A - T" {
		t.Fatalf("summary = %q", te.ntf.summary)
	}
}

func TestVisibilityGateBlocksFocusedWindow(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.deliver(t, player.PropertyChange{ID: props.Focused, Value: props.BoolValue(true)})

	te.deliver(t,
		player.PropertyChange{ID: props.Metadata,
			Value: props.NodeValue(map[string]any{"artist": "A", "title": "T"})},
		player.PropertyChange{ID: props.TimePos, Value: props.IntValue(10)},
	)
	te.deliver(t, player.Seek{})

	if te.ntf.shows != 0 {
		t.Fatalf("shows = %d, focused window must suppress", te.ntf.shows)
	}
	if te.timerArmed {
		t.Fatalf("timer armed while suppressed")
	}
}

func TestVisibilityGateBlocksWithoutContent(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	// No metadata, no position, not idle: nothing worth showing.
	te.deliver(t, player.Seek{})

	if te.ntf.shows != 0 {
		t.Fatalf("shows = %d, want 0", te.ntf.shows)
	}
}

func TestVisibilityGateAllowsIdle(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.deliver(t, player.PropertyChange{ID: props.IdleActive, Value: props.BoolValue(true)})
	te.deliver(t, player.Seek{})

	if te.ntf.shows != 1 {
		t.Fatalf("shows = %d, idle placeholder should display", te.ntf.shows)
	}
}

func TestUpdateRequiresArmedTimer(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.open(t)
	te.expire(t)
	shows := te.ntf.shows

	te.deliver(t, player.PropertyChange{ID: props.Volume, Value: props.IntValue(50)})
	if te.ntf.shows != shows {
		t.Fatalf("update with expired notification must not show")
	}

	te.deliver(t, player.Seek{})
	if te.ntf.shows != shows+1 {
		t.Fatalf("reset should reopen")
	}

	te.deliver(t, player.PropertyChange{ID: props.Volume, Value: props.IntValue(60)})
	if te.ntf.shows != shows+2 {
		t.Fatalf("update with armed timer should show")
	}
}

func TestResetOverridesUpdateInOneBatch(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.open(t)
	shows := te.ntf.shows

	te.now = te.now.Add(5 * time.Second)
	te.deliver(t,
		player.PropertyChange{ID: props.Volume, Value: props.IntValue(60)},
		player.PropertyChange{ID: props.Pause, Value: props.BoolValue(true)},
	)

	if te.ntf.shows != shows+1 {
		t.Fatalf("shows = %d, want exactly one more for the whole batch", te.ntf.shows)
	}
	if want := te.now.Add(10 * time.Second); !te.timerDeadline.Equal(want) {
		t.Fatalf("deadline = %v, want re-armed to %v", te.timerDeadline, want)
	}
}

func TestFocusClosesOpenNotification(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.open(t)

	te.deliver(t, player.PropertyChange{ID: props.Focused, Value: props.BoolValue(true)})

	if te.ntf.closes != 1 {
		t.Fatalf("closes = %d, want 1", te.ntf.closes)
	}
	if te.timerArmed {
		t.Fatalf("timer should be disarmed on close")
	}
	if te.State() != StateClosed {
		t.Fatalf("state = %v, want closed", te.State())
	}
}

func TestClosePreemptsRestOfCycle(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.open(t)
	shows := te.ntf.shows

	te.deliver(t,
		player.PropertyChange{ID: props.Focused, Value: props.BoolValue(true)},
		player.PropertyChange{ID: props.Pause, Value: props.BoolValue(true)},
	)

	if te.ntf.shows != shows {
		t.Fatalf("close must preempt reset within the same batch")
	}
	if !te.pending.Empty() {
		t.Fatalf("pending must be cleared after drain")
	}
}

func TestForceOpen(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.deliver(t, player.PropertyChange{ID: props.Focused, Value: props.BoolValue(true)})
	te.deliver(t,
		player.PropertyChange{ID: props.Metadata,
			Value: props.NodeValue(map[string]any{"artist": "A", "title": "T"})},
		player.PropertyChange{ID: props.TimePos, Value: props.IntValue(10)},
	)
	if te.ntf.shows != 0 {
		t.Fatalf("setup: focus should suppress")
	}

	te.deliver(t, player.ClientMessage{Args: []string{"open"}})
	if te.ntf.shows != 1 {
		t.Fatalf("force-open should display over a focused window")
	}

	closes := te.ntf.closes
	te.deliver(t, player.PropertyChange{ID: props.Focused, Value: props.BoolValue(true)})
	if te.ntf.closes != closes {
		t.Fatalf("close must be suppressed under force-open")
	}

	// The explicit control message clears force-open before draining.
	te.deliver(t, player.ClientMessage{Args: []string{"close"}})
	if te.ntf.closes != closes+1 {
		t.Fatalf("explicit close must win over force-open")
	}
	if te.forceOpen {
		t.Fatalf("force-open should be cleared")
	}
}

func TestShowFailureTriggersReinit(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.open(t)

	te.src.observed = nil
	te.src.unobserved = nil
	te.ntf.showErr = errors.New("dbus went away")

	te.deliver(t, player.PropertyChange{ID: props.Volume, Value: props.IntValue(60)})

	if te.ntf.uninits != 1 || te.ntf.inits != 2 {
		t.Fatalf("uninits=%d inits=%d, want full reinit", te.ntf.uninits, te.ntf.inits)
	}
	if len(te.src.unobserved) != props.Count() || len(te.src.observed) != props.Count() {
		t.Fatalf("reinit must re-subscribe all properties (un=%d obs=%d)",
			len(te.src.unobserved), len(te.src.observed))
	}
	if te.State() != StateClosed {
		t.Fatalf("state = %v, want closed after recovery", te.State())
	}
}

func TestScreenshotFlow(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.open(t)
	te.enableCapture(t)

	te.deliver(t, player.PropertyChange{ID: props.PercentPos, Value: props.FloatValue(12.4)})

	if len(te.src.shots) != 1 {
		t.Fatalf("shots = %d, want 1", len(te.src.shots))
	}
	if te.src.shots[0].flags != "video" {
		t.Fatalf("flags = %q, want default", te.src.shots[0].flags)
	}

	frame := rawFrame()
	frame.Seq = te.src.shots[0].seq
	te.deliver(t, frame)

	if te.ntf.img == nil {
		t.Fatalf("completed capture should set the image")
	}
}

func TestStaleScreenshotDropped(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.open(t)
	te.enableCapture(t)

	te.deliver(t, player.PropertyChange{ID: props.PercentPos, Value: props.FloatValue(10)})
	te.deliver(t, player.PropertyChange{ID: props.PercentPos, Value: props.FloatValue(20)})
	if len(te.src.shots) != 2 {
		t.Fatalf("shots = %d, want 2", len(te.src.shots))
	}

	// The first request completing now has been superseded.
	stale := rawFrame()
	stale.Seq = te.src.shots[0].seq
	te.deliver(t, stale)
	if te.ntf.img != nil {
		t.Fatalf("stale capture must be dropped")
	}

	fresh := rawFrame()
	fresh.Seq = te.src.shots[1].seq
	te.deliver(t, fresh)
	if te.ntf.img == nil {
		t.Fatalf("latest capture must land")
	}
}

func TestPercentPosCoverArtSkipsCapture(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.open(t)
	te.enableCapture(t)

	te.deliver(t, player.PropertyChange{ID: props.CurrentTracksVideoImage, Value: props.BoolValue(true)})
	te.deliver(t, player.PropertyChange{ID: props.PercentPos, Value: props.FloatValue(50)})

	if len(te.src.shots) != 0 {
		t.Fatalf("cover art position changes must not trigger captures")
	}
	if te.ntf.progress != 50 || !te.ntf.hasProgress {
		t.Fatalf("progress = %d/%v, want 50", te.ntf.progress, te.ntf.hasProgress)
	}
}

func TestUnforcedCaptureNeedsArmedTimer(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.open(t)
	te.expire(t)
	te.enableCapture(t)

	te.deliver(t, player.PropertyChange{ID: props.PercentPos, Value: props.FloatValue(10)})
	if len(te.src.shots) != 0 {
		t.Fatalf("capture with expired notification must be skipped")
	}

	te.deliver(t, player.VideoReconfig{})
	if len(te.src.shots) != 1 {
		t.Fatalf("forced capture must run regardless")
	}
}

func TestIdleDisablesCaptureAndDropsImage(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.open(t)
	te.enableCapture(t)

	te.deliver(t, player.PropertyChange{ID: props.PercentPos, Value: props.FloatValue(10)})
	frame := rawFrame()
	frame.Seq = te.src.shots[0].seq
	te.deliver(t, frame)
	if te.ntf.img == nil {
		t.Fatalf("setup: image expected")
	}

	te.deliver(t, player.PropertyChange{ID: props.IdleActive, Value: props.BoolValue(true)})

	if te.imageEnabled {
		t.Fatalf("idle must disable capture")
	}
	if te.ntf.img != nil {
		t.Fatalf("disabling capture must drop the image")
	}
}

func TestMouseHoverRisingEdgeCloses(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.open(t)

	hover := func(h bool) {
		te.deliver(t, player.PropertyChange{ID: props.MousePos,
			Value: props.NodeValue(map[string]any{"x": 1, "y": 2, "hover": h})})
	}

	hover(true)
	if te.ntf.closes != 1 {
		t.Fatalf("closes = %d, want 1 on rising edge", te.ntf.closes)
	}

	hover(true)
	if te.ntf.closes != 1 {
		t.Fatalf("steady hover must not close again")
	}

	hover(false)
	hover(true)
	if te.ntf.closes != 2 {
		t.Fatalf("closes = %d, want 2 after second rising edge", te.ntf.closes)
	}
}

func TestScriptOptsOverlay(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)

	te.deliver(t, player.PropertyChange{ID: props.ScriptOpts,
		Value: props.NodeValue(map[string]any{
			"osd-expire_timeout": "3",
			"other-perfdata":     "yes",
		})})

	if got := te.opts.Int(opts.ExpireTimeout); got != 3 {
		t.Fatalf("expire_timeout = %d, want overlay value 3", got)
	}
	if te.opts.True(opts.Perfdata) {
		t.Fatalf("foreign overlay keys must be ignored")
	}

	// Removing the overlay key reverts to the base generation.
	te.deliver(t, player.PropertyChange{ID: props.ScriptOpts,
		Value: props.NodeValue(map[string]any{})})
	if got := te.opts.Int(opts.ExpireTimeout); got != 10 {
		t.Fatalf("expire_timeout = %d, want base value 10", got)
	}
}

func TestOptionChangeSideEffects(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.open(t)

	if te.handle(player.PropertyChange{ID: props.ScriptOpts,
		Value: props.NodeValue(map[string]any{"osd-ntf_urgency": "critical"})}) {
		t.Fatalf("unexpected shutdown")
	}
	if te.ntf.urgency != opts.UrgencyCritical {
		t.Fatalf("urgency = %v, want critical pushed immediately", te.ntf.urgency)
	}
	if !te.pending.Has(props.ActionUpdate) {
		t.Fatalf("urgency change must schedule an update")
	}
	te.drain()

	if te.handle(player.PropertyChange{ID: props.ScriptOpts,
		Value: props.NodeValue(map[string]any{"osd-thumbnail_size": "128"})}) {
		t.Fatalf("unexpected shutdown")
	}
	if !te.pending.Has(props.ActionQueueShot) {
		t.Fatalf("thumbnail size change must schedule a capture")
	}
	te.drain()
}

func TestMsgLevelDrivesLogLevel(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	var level string
	e := New(Config{
		Source:      src,
		Presenter:   &fakePresenter{},
		Log:         logx.Nop(),
		ClientName:  "osd",
		SetLogLevel: func(l string) { level = l },
	})
	e.startup()

	e.handle(player.PropertyChange{ID: props.MsgLevel, Value: props.StringValue("osd=v")})
	if level != "debug" {
		t.Fatalf("level = %q, want debug", level)
	}
}

func TestProgressHint(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	te.open(t)

	te.deliver(t, player.PropertyChange{ID: props.PercentPos, Value: props.FloatValue(41.6)})
	if te.ntf.progress != 42 || !te.ntf.hasProgress {
		t.Fatalf("progress = %d/%v, want rounded 42", te.ntf.progress, te.ntf.hasProgress)
	}

	// Gallery position while viewing images.
	te.deliver(t,
		player.PropertyChange{ID: props.ImageDetected, Value: props.BoolValue(true)},
		player.PropertyChange{ID: props.PlaylistPos, Value: props.IntValue(1)},
		player.PropertyChange{ID: props.PlaylistCount, Value: props.IntValue(4)},
	)
	if te.ntf.progress != 50 || !te.ntf.hasProgress {
		t.Fatalf("progress = %d/%v, want gallery 50", te.ntf.progress, te.ntf.hasProgress)
	}

	// Idle removes the hint.
	te.deliver(t, player.PropertyChange{ID: props.IdleActive, Value: props.BoolValue(true)})
	if te.ntf.hasProgress {
		t.Fatalf("idle must remove the progress hint")
	}
}

func TestShutdownSignalStopsLoop(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t)
	if !te.handle(player.Shutdown{}) {
		t.Fatalf("shutdown signal must terminate the loop")
	}
}
