// Package player defines the inbound signal stream the engine consumes and
// implements it for mpv's JSON IPC socket. Everything the player does —
// property changes, async capture completions, control messages, core
// events — is funnelled into one buffered channel drained by the
// single-threaded engine loop; no engine logic ever runs on the transport
// goroutine.
package player

import "mpvnotify/internal/props"

// Signal is one unit of asynchronous input to the engine.
type Signal interface{ isSignal() }

// PropertyChange reports a new value for an observed property. An absent
// (zero) Value means the player reported the property as unavailable.
type PropertyChange struct {
	ID    props.ID
	Value props.Value
}

// ScreenshotReady delivers a completed raw frame capture.
type ScreenshotReady struct {
	// Seq is the capture sequence number the request was tagged with.
	// Results from superseded requests are dropped by the engine
	// (last-requested-wins).
	Seq    uint64
	Data   []byte
	W      int
	H      int
	Stride int
}

// ScreenshotFailed delivers a failed capture request.
type ScreenshotFailed struct {
	Seq uint64
	Err error
}

// ClientMessage is a generic control message (close / open /
// reload-config).
type ClientMessage struct {
	Args []string
}

// Seek reports that a seek completed.
type Seek struct{}

// VideoReconfig reports that video output was reconfigured; a capture
// requested now will see the new video.
type VideoReconfig struct{}

// ConfigReload asks the engine to re-run file and overlay option
// application. Raised by the options-file watcher and by the reload-config
// control message.
type ConfigReload struct{}

// Shutdown reports that the player is going away; the engine loop
// terminates cleanly.
type Shutdown struct{}

func (PropertyChange) isSignal()   {}
func (ScreenshotReady) isSignal()  {}
func (ScreenshotFailed) isSignal() {}
func (ClientMessage) isSignal()    {}
func (Seek) isSignal()             {}
func (VideoReconfig) isSignal()    {}
func (ConfigReload) isSignal()     {}
func (Shutdown) isSignal()         {}

// Source is the upstream event source contract.
//
// Implementations deliver signals on a single channel; the channel closes
// when the source is gone for good.
type Source interface {
	Signals() <-chan Signal

	// Observe subscribes id under its registered property name. The current
	// value is re-delivered as a PropertyChange after (re)subscription.
	Observe(id props.ID) error
	Unobserve(id props.ID) error

	// RequestScreenshot starts an asynchronous raw capture tagged with seq.
	// Completion arrives later as ScreenshotReady or ScreenshotFailed.
	RequestScreenshot(seq uint64, flags string) error

	// HasProperty probes whether the player knows the named property.
	HasProperty(name string) (bool, error)
}
