package opts

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	logx "mpvnotify/pkg/logx"
)

// setter applies one raw string value to the set. A non-nil error means the
// value was rejected and the prior value kept (except where the original
// behavior substitutes a documented fallback, e.g. unknown enum values).
type setter func(s *Set, value string) error

// Setter table built once; key strings are only compared here, at the
// parsing boundary.
var setters = map[string]setter{
	"expire_timeout": func(s *Set, v string) error {
		n, err := parseNonNegInt(v, 0)
		if err != nil {
			return err
		}
		s[ExpireTimeout].Int = n
		return nil
	},
	"ntf_app_icon": func(s *Set, v string) error { s[AppIcon].Str = v; return nil },
	"ntf_category": func(s *Set, v string) error { s[Category].Str = v; return nil },
	"ntf_urgency": func(s *Set, v string) error {
		switch v {
		case "low":
			s[Urgency].Int = int64(UrgencyLow)
		case "normal":
			s[Urgency].Int = int64(UrgencyNormal)
		case "critical":
			s[Urgency].Int = int64(UrgencyCritical)
		default:
			s[Urgency].Int = int64(UrgencyLow)
			return fmt.Errorf("unknown notification urgency %q, setting to 'low'", v)
		}
		return nil
	},
	"send_thumbnail": boolSetter(SendThumbnail),
	"send_progress":  boolSetter(SendProgress),
	"send_sub_text":  boolSetter(SendSubText),
	"thumbnail_size": func(s *Set, v string) error {
		n, err := parseNonNegInt(v, 1)
		if err != nil {
			return err
		}
		s[ThumbnailSize].Int = n
		return nil
	},
	"screenshot_flags": func(s *Set, v string) error { s[ScreenshotFlags].Str = v; return nil },
	"thumbnail_scaling": func(s *Set, v string) error {
		switch v {
		case "fast-bilinear":
			s[ThumbnailScaling].Int = int64(ScaleFastBilinear)
		case "bilinear":
			s[ThumbnailScaling].Int = int64(ScaleBilinear)
		case "bicubic":
			s[ThumbnailScaling].Int = int64(ScaleBicubic)
		case "lanczos":
			s[ThumbnailScaling].Int = int64(ScaleLanczos)
		default:
			s[ThumbnailScaling].Int = int64(ScaleBicubic)
			return fmt.Errorf("unknown thumbnail scaling option %q, setting to 'bicubic'", v)
		}
		return nil
	},
	"disable_scaling": boolSetter(DisableScaling),
	"focus_manual":    boolSetter(FocusManual),
	"perfdata":        boolSetter(Perfdata),
}

func boolSetter(k Key) setter {
	return func(s *Set, v string) error {
		switch v {
		case "yes":
			s[k].Bool = true
		case "no":
			s[k].Bool = false
		default:
			return fmt.Errorf("cannot convert %q into boolean, keeping previous value", v)
		}
		return nil
	}
}

func parseNonNegInt(v string, min int64) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < min {
		return 0, fmt.Errorf("cannot convert %q into a suitable number, keeping previous value", v)
	}
	return n, nil
}

// Apply dispatches one key=value pair through the setter table. Unknown
// keys and malformed values are reported and otherwise ignored.
func Apply(s *Set, key, value, where string, log logx.Logger) {
	log.Debug("setting option",
		logx.String("where", where),
		logx.String("key", key),
		logx.String("value", value))

	fn, ok := setters[key]
	if !ok {
		log.Warn("unknown option key, ignoring",
			logx.String("where", where),
			logx.String("key", key))
		return
	}
	if err := fn(s, value); err != nil {
		log.Warn("bad option value",
			logx.String("where", where),
			logx.String("key", key),
			logx.Err(err))
	}
}

// ApplyFile reads key=value lines from path onto s. Blank lines, comment
// lines and lines without '=' are skipped. A missing file is not an error;
// the set is simply left untouched.
func ApplyFile(s *Set, path string, log logx.Logger) {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("cannot open options file", logx.String("path", path), logx.Err(err))
		}
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		where := fmt.Sprintf("%s:%d", path, lineNo)
		Apply(s, key, value, where, log)
	}
	if err := sc.Err(); err != nil {
		log.Warn("error reading options file", logx.String("path", path), logx.Err(err))
	}
}

// ApplyRuntime applies the runtime overlay onto s. Only entries namespaced
// to this client ("<client>-<option>") are considered; the rest belong to
// other scripts and are skipped.
func ApplyRuntime(s *Set, overlay map[string]string, clientName string, log logx.Logger) {
	prefix := clientName + "-"
	for key, value := range overlay {
		opt, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		Apply(s, opt, value, "script-opts", log)
	}
}
