// Package backend drives the desktop notification server over D-Bus
// (org.freedesktop.Notifications). It holds the single notification's
// cached attributes (text, hints, image) and pushes them with show/update;
// the engine decides when. All calls may fail; the engine recovers from
// show/update failures by a full Uninit/Init cycle, which is the only way
// to get a fresh bus connection after a notification-server restart.
package backend

import (
	"errors"
	"fmt"
	"image"
	"slices"

	"github.com/esiqveland/notify"
	"github.com/godbus/dbus/v5"

	"mpvnotify/internal/opts"
	logx "mpvnotify/pkg/logx"
)

const (
	notificationsDest = "org.freedesktop.Notifications"
	notificationsPath = "/org/freedesktop/Notifications"
)

// ErrNotInitialized is returned by calls that need a live bus connection.
var ErrNotInitialized = errors.New("backend: not initialized")

// imageData is the image-data hint structure (iiibiiay) from the
// notification spec.
type imageData struct {
	Width         int32
	Height        int32
	Rowstride     int32
	HasAlpha      bool
	BitsPerSample int32
	Channels      int32
	Data          []byte
}

// Backend owns one private session-bus connection and the attributes of
// the single notification. Exclusively owned by the event-loop goroutine.
type Backend struct {
	log logx.Logger

	conn       *dbus.Conn
	bodyMarkup bool

	// id is the server-assigned notification id; 0 until first shown.
	// Reused as ReplacesID so updates replace in place.
	id uint32

	appName  string
	appIcon  string
	summary  string
	body     string
	category string
	urgency  opts.UrgencyLevel

	progress    int32
	hasProgress bool

	img *image.RGBA
}

func New(log logx.Logger) *Backend {
	return &Backend{log: log}
}

// Init opens a private session-bus connection and queries server
// capabilities. Safe to call again after Uninit.
func (b *Backend) Init(appName string) error {
	if b.conn != nil {
		return nil
	}

	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return fmt.Errorf("backend: session bus: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("backend: auth: %w", err)
	}
	if err := conn.Hello(); err != nil {
		_ = conn.Close()
		return fmt.Errorf("backend: hello: %w", err)
	}

	caps, err := notify.GetCapabilities(conn)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("backend: get capabilities: %w", err)
	}

	b.conn = conn
	b.appName = appName
	b.bodyMarkup = slices.Contains(caps, "body-markup")
	b.log.Debug("backend initialized", logx.Bool("body_markup", b.bodyMarkup))
	return nil
}

// Initialized reports whether a bus connection is live.
func (b *Backend) Initialized() bool { return b.conn != nil }

// BodyMarkup reports whether the server supports body markup. Valid after
// Init.
func (b *Backend) BodyMarkup() bool { return b.bodyMarkup }

func (b *Backend) SetAppName(name string)         { b.appName = name }
func (b *Backend) SetAppIcon(icon string)         { b.appIcon = icon }
func (b *Backend) SetCategory(category string)    { b.category = category }
func (b *Backend) SetUrgency(u opts.UrgencyLevel) { b.urgency = u }

// SetProgress sets the progress hint; ok=false removes it.
func (b *Backend) SetProgress(percent int32, ok bool) {
	b.progress = percent
	b.hasProgress = ok
}

// SetImage sets the notification image; nil removes it. The image is read
// at Show time, so the caller must not recycle the buffer between Show
// calls without calling SetImage again.
func (b *Backend) SetImage(img *image.RGBA) { b.img = img }

// Update replaces the cached summary and body without contacting the
// server.
func (b *Backend) Update(summary, body string) {
	b.summary = summary
	b.body = body
}

// Show sends the notification (creating or replacing in place) with all
// cached attributes. On success the server-assigned id is retained for
// subsequent replacement.
func (b *Backend) Show() error {
	if b.conn == nil {
		return ErrNotInitialized
	}

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(b.urgency)),
	}
	if b.category != "" {
		hints["category"] = dbus.MakeVariant(b.category)
	}
	if b.hasProgress {
		hints["value"] = dbus.MakeVariant(b.progress)
	}
	if b.img != nil {
		r := b.img.Rect
		hints["image-data"] = dbus.MakeVariant(imageData{
			Width:         int32(r.Dx()),
			Height:        int32(r.Dy()),
			Rowstride:     int32(b.img.Stride),
			HasAlpha:      true,
			BitsPerSample: 8,
			Channels:      4,
			Data:          b.img.Pix,
		})
	}

	id, err := notify.SendNotification(b.conn, notify.Notification{
		AppName:    b.appName,
		ReplacesID: b.id,
		AppIcon:    b.appIcon,
		Summary:    b.summary,
		Body:       b.body,
		Hints:      hints,
		// The engine's own debounce timer closes the notification; the
		// server must never expire it on its own.
		ExpireTimeout: notify.ExpireTimeoutNever,
	})
	if err != nil {
		return fmt.Errorf("backend: show: %w", err)
	}
	b.id = id
	return nil
}

// CloseNotification asks the server to retract the notification. A close
// for an already-gone id is an acceptable terminal outcome, so callers
// treat errors as non-fatal.
func (b *Backend) CloseNotification() error {
	if b.conn == nil {
		return ErrNotInitialized
	}
	if b.id == 0 {
		return nil
	}
	obj := b.conn.Object(notificationsDest, notificationsPath)
	call := obj.Call(notificationsDest+".CloseNotification", 0, b.id)
	if call.Err != nil {
		return fmt.Errorf("backend: close: %w", call.Err)
	}
	return nil
}

// Uninit tears the connection down. Cached attributes survive so a
// following Init+Show restores the notification as it was.
func (b *Backend) Uninit() {
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
	b.id = 0
	b.bodyMarkup = false
}
