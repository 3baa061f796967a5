package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "mpvnotify/pkg/logx"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParse(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
player:
  socket: /tmp/mpv.sock
  client_name: osd
  reconnect_backoff: 5s
options:
  path: ~/.config/mpv/script-opts/osd.conf
logging:
  level: debug
  console: true
`)
	cfg, err := NewManager(path, logx.Nop()).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Player.Socket != "/tmp/mpv.sock" {
		t.Fatalf("socket = %q", cfg.Player.Socket)
	}
	if cfg.ClientNameOrDefault() != "osd" {
		t.Fatalf("client name = %q", cfg.ClientNameOrDefault())
	}
	if cfg.ReconnectBackoffOrDefault() != 5*time.Second {
		t.Fatalf("backoff = %v", cfg.ReconnectBackoffOrDefault())
	}
	if !cfg.WatchOptions() {
		t.Fatalf("options watch should default on when a path is set")
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "player:\n  socket: /tmp/s\n  sockett: /tmp/s\n"},
		{"missing socket", "logging:\n  level: info\n"},
		{"bad backoff", "player:\n  socket: /tmp/s\n  reconnect_backoff: soon\n"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeConfig(t, tc.content)
			if _, err := NewManager(path, logx.Nop()).Parse(); err == nil {
				t.Fatalf("Parse accepted %s", tc.name)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "player:\n  socket: /tmp/mpv.sock\n")
	cfg, err := NewManager(path, logx.Nop()).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.ClientNameOrDefault() != "notification_osd" {
		t.Fatalf("client name = %q", cfg.ClientNameOrDefault())
	}
	if cfg.AppNameOrDefault() != "mpv" {
		t.Fatalf("app name = %q", cfg.AppNameOrDefault())
	}
	if cfg.ReconnectBackoffOrDefault() != 2*time.Second {
		t.Fatalf("backoff = %v", cfg.ReconnectBackoffOrDefault())
	}
	if cfg.OptionsPath() != "" || cfg.WatchOptions() {
		t.Fatalf("no options path configured, nothing to watch")
	}
}

func TestPublishKeepsLatest(t *testing.T) {
	t.Parallel()

	m := NewManager("unused", logx.Nop())
	a := &Config{Player: PlayerConfig{Socket: "/a"}}
	b := &Config{Player: PlayerConfig{Socket: "/b"}}

	m.publish(a)
	m.publish(b)

	got := <-m.Updates()
	if got.Player.Socket != "/b" {
		t.Fatalf("got %q, want the latest published config", got.Player.Socket)
	}
	select {
	case extra := <-m.Updates():
		t.Fatalf("unexpected extra update %+v", extra)
	default:
	}
}

func TestReloadSkipsUnchanged(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "player:\n  socket: /tmp/mpv.sock\n")
	m := NewManager(path, logx.Nop())
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	m.reload()
	select {
	case cfg := <-m.Updates():
		t.Fatalf("unchanged content must not publish, got %+v", cfg)
	default:
	}

	if err := os.WriteFile(path, []byte("player:\n  socket: /tmp/other.sock\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	m.reload()
	select {
	case cfg := <-m.Updates():
		if cfg.Player.Socket != "/tmp/other.sock" {
			t.Fatalf("socket = %q", cfg.Player.Socket)
		}
	default:
		t.Fatalf("changed content must publish")
	}
}
