package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the daemon configuration (YAML or JSON on disk). This is the
// daemon's own config: where the player socket is, where the notification
// options file lives, how to log. The notification options themselves
// (timeouts, thumbnails, ...) live in the options file and are handled by
// the engine, not here.
type Config struct {
	Player  PlayerConfig  `json:"player"`
	Options OptionsConfig `json:"options"`
	Logging LoggingConfig `json:"logging"`
}

type PlayerConfig struct {
	// Socket is the path of mpv's JSON IPC socket (--input-ipc-server).
	Socket string `json:"socket"`

	// ClientName namespaces runtime option overrides ("<name>-<option>" in
	// script-opts) and msg-level matching. Default: "notification_osd".
	ClientName string `json:"client_name,omitempty"`

	// AppName is the fallback application name shown by the notification
	// server. Default: "mpv".
	AppName string `json:"app_name,omitempty"`

	// ReconnectBackoff is a Go duration string; how long to wait before
	// re-dialing a socket that is gone or refusing. Default: "2s".
	ReconnectBackoff string `json:"reconnect_backoff,omitempty"`
}

type OptionsConfig struct {
	// Path of the key=value notification options file. Optional; built-in
	// defaults apply when omitted or missing.
	Path string `json:"path,omitempty"`

	// Watch re-applies the options file when it changes on disk. Default:
	// true when a path is set.
	Watch *bool `json:"watch,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

const (
	defaultClientName       = "notification_osd"
	defaultAppName          = "mpv"
	defaultReconnectBackoff = 2 * time.Second
)

// Validate checks the parts that cannot work when wrong. Everything else
// has a default.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Player.Socket) == "" {
		return fmt.Errorf("player.socket is required")
	}
	if _, err := ParseDurationField("player.reconnect_backoff", c.Player.ReconnectBackoff); err != nil {
		return err
	}
	return nil
}

// ClientNameOrDefault returns the effective client name.
func (c *Config) ClientNameOrDefault() string {
	if s := strings.TrimSpace(c.Player.ClientName); s != "" {
		return s
	}
	return defaultClientName
}

// AppNameOrDefault returns the effective fallback application name.
func (c *Config) AppNameOrDefault() string {
	if s := strings.TrimSpace(c.Player.AppName); s != "" {
		return s
	}
	return defaultAppName
}

// ReconnectBackoffOrDefault returns the effective reconnect backoff.
func (c *Config) ReconnectBackoffOrDefault() time.Duration {
	d, err := ParseDurationOrDefault("player.reconnect_backoff",
		c.Player.ReconnectBackoff, defaultReconnectBackoff)
	if err != nil || d <= 0 {
		return defaultReconnectBackoff
	}
	return d
}

// OptionsPath returns the effective options file path, expanding a leading
// "~/".
func (c *Config) OptionsPath() string {
	p := strings.TrimSpace(c.Options.Path)
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	return p
}

// WatchOptions reports whether the options file should be watched.
func (c *Config) WatchOptions() bool {
	if c.OptionsPath() == "" {
		return false
	}
	if c.Options.Watch == nil {
		return true
	}
	return *c.Options.Watch
}
