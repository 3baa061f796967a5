// Package systemd integrates with the service manager for Type=notify
// units: readiness, status and stopping notifications. Every call is a
// no-op when the process is not running under systemd.
package systemd

import (
	"github.com/coreos/go-systemd/v22/daemon"
)

// NotifyReady tells the service manager the daemon is up.
func NotifyReady() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
}

// NotifyStopping tells the service manager shutdown has begun.
func NotifyStopping() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
}

// NotifyStatus publishes a short human-readable status line.
func NotifyStatus(status string) {
	_, _ = daemon.SdNotify(false, "STATUS="+status)
}
