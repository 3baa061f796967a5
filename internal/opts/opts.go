// Package opts implements the layered notification option set: factory
// defaults, a file-applied base, and the active generation (base plus the
// runtime overlay re-applied). The engine owns the generations; this
// package provides the typed set, the key=value parsing with its static
// setter table, and the pure diff.
package opts

// Key identifies one option.
type Key int

const (
	ExpireTimeout Key = iota
	AppIcon
	Category
	Urgency
	SendThumbnail
	SendProgress
	SendSubText
	ThumbnailSize
	ScreenshotFlags
	ThumbnailScaling
	DisableScaling
	FocusManual
	Perfdata

	keyCount
)

func (k Key) String() string {
	if int(k) < 0 || int(k) >= len(keyNames) {
		return "unknown"
	}
	return keyNames[k]
}

var keyNames = [keyCount]string{
	ExpireTimeout:    "expire_timeout",
	AppIcon:          "ntf_app_icon",
	Category:         "ntf_category",
	Urgency:          "ntf_urgency",
	SendThumbnail:    "send_thumbnail",
	SendProgress:     "send_progress",
	SendSubText:      "send_sub_text",
	ThumbnailSize:    "thumbnail_size",
	ScreenshotFlags:  "screenshot_flags",
	ThumbnailScaling: "thumbnail_scaling",
	DisableScaling:   "disable_scaling",
	FocusManual:      "focus_manual",
	Perfdata:         "perfdata",
}

// UrgencyLevel matches the freedesktop notification urgency byte.
type UrgencyLevel int64

const (
	UrgencyLow      UrgencyLevel = 0
	UrgencyNormal   UrgencyLevel = 1
	UrgencyCritical UrgencyLevel = 2
)

// ScaleAlgo selects the thumbnail scaling kernel.
type ScaleAlgo int64

const (
	ScaleFastBilinear ScaleAlgo = iota
	ScaleBilinear
	ScaleBicubic
	ScaleLanczos
)

// ValueKind is the declared type of an option value. Fixed per key.
type ValueKind uint8

const (
	KindBool ValueKind = iota
	KindInt
	KindString
)

// Value is one typed option value. Enum options are stored as ints.
type Value struct {
	Kind ValueKind
	Bool bool
	Int  int64
	Str  string
}

// Truthy mirrors the player's notion of a set value.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	case KindString:
		return v.Str != ""
	default:
		return false
	}
}

// Set is one generation of option values. It has value semantics: plain
// assignment is a deep copy, so deriving active from base is a single copy
// plus overlay application, and re-deriving is idempotent.
type Set [keyCount]Value

// Defaults returns the factory default generation.
func Defaults() Set {
	var s Set
	s[ExpireTimeout] = Value{Kind: KindInt, Int: 10}
	s[AppIcon] = Value{Kind: KindString, Str: "mpv"}
	s[Category] = Value{Kind: KindString, Str: "mpv"}
	s[Urgency] = Value{Kind: KindInt, Int: int64(UrgencyLow)}
	s[SendThumbnail] = Value{Kind: KindBool, Bool: true}
	s[SendProgress] = Value{Kind: KindBool, Bool: true}
	s[SendSubText] = Value{Kind: KindBool, Bool: true}
	s[ThumbnailSize] = Value{Kind: KindInt, Int: 64}
	s[ScreenshotFlags] = Value{Kind: KindString, Str: "video"}
	s[ThumbnailScaling] = Value{Kind: KindInt, Int: int64(ScaleBicubic)}
	s[DisableScaling] = Value{Kind: KindBool}
	s[FocusManual] = Value{Kind: KindBool}
	s[Perfdata] = Value{Kind: KindBool}
	return s
}

func (s *Set) Bool(k Key) bool  { return s[k].Bool }
func (s *Set) Int(k Key) int64  { return s[k].Int }
func (s *Set) Str(k Key) string { return s[k].Str }

func (s *Set) UrgencyLevel() UrgencyLevel { return UrgencyLevel(s[Urgency].Int) }
func (s *Set) Scaling() ScaleAlgo         { return ScaleAlgo(s[ThumbnailScaling].Int) }

// True reports whether option k is truthy.
func (s *Set) True(k Key) bool { return s[k].Truthy() }

// Diff returns the keys whose value differs between before and after, in
// key order. It never mutates either generation.
func Diff(before, after *Set) []Key {
	var changed []Key
	for k := Key(0); k < keyCount; k++ {
		if before[k] != after[k] {
			changed = append(changed, k)
		}
	}
	return changed
}
