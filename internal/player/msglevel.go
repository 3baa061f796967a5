package player

import "strings"

// LevelFromMsgLevel maps the player's msg-level property (a comma list of
// client=level pairs) onto a logx level string for this client. Later
// entries win; both the exact client name and "all" match. An empty or
// unmatched spec falls back to error-only logging.
func LevelFromMsgLevel(clientName, spec string) string {
	level := ""
	for _, pair := range strings.Split(spec, ",") {
		name, val, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		if name == clientName || name == "all" {
			level = val
		}
	}

	switch level {
	case "no":
		return "quiet"
	case "v":
		return "debug"
	case "debug", "trace":
		return "trace"
	default:
		return "error"
	}
}
