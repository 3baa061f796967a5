package config

import (
	"sort"
	"strings"

	logx "mpvnotify/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections plus
// safe structured attrs for logging the reload.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 3)
	attrs := make([]logx.Field, 0, 8)

	if strings.TrimSpace(oldCfg.Player.Socket) != strings.TrimSpace(newCfg.Player.Socket) ||
		oldCfg.ClientNameOrDefault() != newCfg.ClientNameOrDefault() ||
		oldCfg.AppNameOrDefault() != newCfg.AppNameOrDefault() ||
		oldCfg.ReconnectBackoffOrDefault() != newCfg.ReconnectBackoffOrDefault() {
		changed = append(changed, "player")
		attrs = append(attrs,
			logx.String("player.socket", strings.TrimSpace(newCfg.Player.Socket)),
			logx.String("player.client_name", newCfg.ClientNameOrDefault()),
			logx.Duration("player.reconnect_backoff", newCfg.ReconnectBackoffOrDefault()),
		)
	}

	if oldCfg.OptionsPath() != newCfg.OptionsPath() ||
		oldCfg.WatchOptions() != newCfg.WatchOptions() {
		changed = append(changed, "options")
		attrs = append(attrs,
			logx.String("options.path", newCfg.OptionsPath()),
			logx.Bool("options.watch", newCfg.WatchOptions()),
		)
	}

	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File.Enabled != newCfg.Logging.File.Enabled ||
		strings.TrimSpace(oldCfg.Logging.File.Path) != strings.TrimSpace(newCfg.Logging.File.Path) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
