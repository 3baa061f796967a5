package props

// Action is one coalesced unit of work the engine performs after draining a
// batch of signals. Individual property changes only raise actions; the
// engine decides at drain time which ones actually run and in what order.
type Action uint8

const (
	// ActionReset opens (or restarts) the notification and re-arms the
	// expire timer. Overrides ActionUpdate within the same cycle.
	ActionReset Action = iota
	// ActionUpdate refreshes the contents of an already-open notification
	// without touching the timer.
	ActionUpdate
	// ActionClose closes an open notification unless force-open is active.
	// Overrides ActionReset and ActionUpdate within the same cycle.
	ActionClose
	// ActionQueueShot requests a new raw frame, but only while the expire
	// timer is armed.
	ActionQueueShot
	// ActionForcedQueueShot requests a new raw frame even when the timer is
	// not armed. Used on video reconfig so that an image is ready before the
	// notification opens, avoiding a flicker of stale art.
	ActionForcedQueueShot
	// ActionCheckImage recomputes whether thumbnail capture is currently
	// enabled at all (idle state, video track presence, options).
	ActionCheckImage

	actionCount
)

// ActionSet is a small set of pending actions. Adding an action twice has
// the same effect as adding it once.
type ActionSet struct {
	bits uint8
}

func NewActionSet(actions ...Action) ActionSet {
	var s ActionSet
	for _, a := range actions {
		s.Add(a)
	}
	return s
}

func (s *ActionSet) Add(a Action)         { s.bits |= 1 << a }
func (s *ActionSet) Union(o ActionSet)    { s.bits |= o.bits }
func (s ActionSet) Has(a Action) bool     { return s.bits&(1<<a) != 0 }
func (s ActionSet) Empty() bool           { return s.bits == 0 }
func (s *ActionSet) Clear()               { s.bits = 0 }
func (s ActionSet) Equal(o ActionSet) bool { return s.bits == o.bits }

func (a Action) String() string {
	switch a {
	case ActionReset:
		return "reset"
	case ActionUpdate:
		return "update"
	case ActionClose:
		return "close"
	case ActionQueueShot:
		return "queue-shot"
	case ActionForcedQueueShot:
		return "forced-queue-shot"
	case ActionCheckImage:
		return "check-image"
	default:
		return "unknown"
	}
}

func (s ActionSet) String() string {
	if s.Empty() {
		return "none"
	}
	out := ""
	for a := Action(0); a < actionCount; a++ {
		if !s.Has(a) {
			continue
		}
		if out != "" {
			out += "|"
		}
		out += a.String()
	}
	return out
}
