package props

// ID identifies one observed player property. IDs double as the observe
// handle passed to the event source, so they must be stable for the process
// lifetime.
type ID int

const (
	AppName ID = iota
	Brightness
	Chapter
	Chapters
	Contrast
	CurrentTracksVideoImage
	Duration
	Edition
	Editions
	EOFReached
	Focused
	Gamma
	Hue
	IdleActive
	ImageDisplayDuration
	KeepOpen
	LavfiComplex
	LoopFile
	MediaTitle
	Metadata
	MousePos
	MsgLevel
	Mute
	ScriptOpts
	Pause
	PausedForCache
	PercentPos
	PlayDirection
	PlaylistCount
	PlaylistPos
	Saturation
	Seeking
	Speed
	SubText
	SubVisibility
	TimePos
	ImageDetected
	VID
	Volume

	idCount
)

// Spec is the static metadata record for one observed property. The table
// below is built once; string lookups happen only at the boundary.
type Spec struct {
	Name string
	Kind Kind
	// EscapeMarkup requests markup escaping of string values at store time.
	EscapeMarkup bool
	// Triggers are raised whenever the property changes, gated by
	// OnlyIfTruthy.
	Triggers ActionSet
	// OnlyIfTruthy suppresses the triggers unless the new value is truthy.
	OnlyIfTruthy bool
	// AffectsSummary / AffectsBody mark composed text dirty on change.
	AffectsSummary bool
	AffectsBody    bool
}

var registry = [idCount]Spec{
	// app-name is non-standard; it is only observed when the property-list
	// probe reports the player supports it.
	AppName:    {Name: "app-name", Kind: KindString, Triggers: NewActionSet(ActionUpdate)},
	Brightness: {Name: "brightness", Kind: KindInt, Triggers: NewActionSet(ActionQueueShot)},
	Chapter:    {Name: "chapter", Kind: KindInt, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
	Chapters:   {Name: "chapters", Kind: KindInt, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
	Contrast:   {Name: "contrast", Kind: KindInt, Triggers: NewActionSet(ActionQueueShot)},
	CurrentTracksVideoImage: {Name: "current-tracks/video/image", Kind: KindBool},
	Duration:   {Name: "duration", Kind: KindInt, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
	Edition:    {Name: "edition", Kind: KindInt, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
	Editions:   {Name: "editions", Kind: KindInt, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
	EOFReached: {Name: "eof-reached", Kind: KindBool, Triggers: NewActionSet(ActionReset), OnlyIfTruthy: true, AffectsBody: true},
	Focused:    {Name: "focused", Kind: KindBool, Triggers: NewActionSet(ActionClose), OnlyIfTruthy: true},
	Gamma:      {Name: "gamma", Kind: KindInt, Triggers: NewActionSet(ActionQueueShot)},
	Hue:        {Name: "hue", Kind: KindInt, Triggers: NewActionSet(ActionQueueShot)},
	IdleActive: {Name: "idle-active", Kind: KindBool, Triggers: NewActionSet(ActionUpdate, ActionCheckImage)},
	ImageDisplayDuration: {Name: "image-display-duration", Kind: KindFloat, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
	KeepOpen:   {Name: "keep-open", Kind: KindString, Triggers: NewActionSet(ActionReset), AffectsBody: true},
	LavfiComplex: {Name: "lavfi-complex", Kind: KindString, Triggers: NewActionSet(ActionUpdate, ActionCheckImage)},
	LoopFile:   {Name: "loop-file", Kind: KindString, Triggers: NewActionSet(ActionReset), AffectsBody: true},
	MediaTitle: {Name: "media-title", Kind: KindString, Triggers: NewActionSet(ActionUpdate), AffectsSummary: true},
	Metadata:   {Name: "metadata", Kind: KindNode, Triggers: NewActionSet(ActionReset, ActionCheckImage), AffectsSummary: true, AffectsBody: true},
	MousePos:   {Name: "mouse-pos", Kind: KindNode},
	MsgLevel:   {Name: "msg-level", Kind: KindString},
	Mute:       {Name: "mute", Kind: KindBool, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
	ScriptOpts: {Name: "options/script-opts", Kind: KindNode},
	Pause:      {Name: "pause", Kind: KindBool, Triggers: NewActionSet(ActionReset), AffectsBody: true},
	PausedForCache: {Name: "paused-for-cache", Kind: KindBool, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
	PercentPos: {Name: "percent-pos", Kind: KindFloat},
	PlayDirection: {Name: "play-direction", Kind: KindString, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
	PlaylistCount: {Name: "playlist-count", Kind: KindInt, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
	PlaylistPos:   {Name: "playlist-pos", Kind: KindInt, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
	Saturation: {Name: "saturation", Kind: KindInt, Triggers: NewActionSet(ActionQueueShot)},
	Seeking:    {Name: "seeking", Kind: KindBool, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
	Speed:      {Name: "speed", Kind: KindFloat, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
	SubText:    {Name: "sub-text", Kind: KindString, EscapeMarkup: true, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
	SubVisibility: {Name: "sub-visibility", Kind: KindBool, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
	TimePos:    {Name: "time-pos", Kind: KindInt, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
	ImageDetected: {Name: "user-data/detect-image/detected", Kind: KindBool, Triggers: NewActionSet(ActionUpdate), AffectsSummary: true},
	VID:        {Name: "vid", Kind: KindInt, Triggers: NewActionSet(ActionUpdate, ActionCheckImage)},
	Volume:     {Name: "volume", Kind: KindInt, Triggers: NewActionSet(ActionUpdate), AffectsBody: true},
}

// Lookup returns the static metadata for id.
func Lookup(id ID) Spec { return registry[id] }

// All returns every registered property ID in declaration order.
func All() []ID {
	out := make([]ID, 0, idCount)
	for id := ID(0); id < idCount; id++ {
		out = append(out, id)
	}
	return out
}

// Count is the number of registered properties.
func Count() int { return int(idCount) }
