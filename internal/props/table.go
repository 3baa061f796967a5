// Package props holds the static registry of observed player properties and
// the table of their last known values. The table is the single source of
// truth the composer and the engine policy read from; it records state and
// reports which actions a change raises, but performs no side effects
// itself.
package props

// UpdateResult reports what a single property change implies.
type UpdateResult struct {
	// Triggers is the (possibly empty) action set this change raises.
	Triggers ActionSet
	// SummaryDirty / BodyDirty mark composed text for a rewrite.
	SummaryDirty bool
	BodyDirty    bool
}

// Table stores the last known value of every observed property.
//
// Exclusively owned by the event-loop goroutine; not safe for concurrent
// use.
type Table struct {
	values [idCount]Value

	// escape rewrites string values of properties flagged EscapeMarkup.
	// Swapped when the backend's markup capability changes; identity when
	// markup is unsupported.
	escape func(string) string
}

func NewTable() *Table {
	return &Table{escape: func(s string) string { return s }}
}

// SetEscaper installs the markup escaping function applied at store time.
// Stored values are not rewritten retroactively; the caller re-subscribes
// all properties after a capability change so values are re-delivered.
func (t *Table) SetEscaper(fn func(string) string) {
	if fn == nil {
		fn = func(s string) string { return s }
	}
	t.escape = fn
}

// Update stores the typed value for id and reports the raised actions and
// dirty flags. Triggers gated by OnlyIfTruthy fire only when the new value
// is truthy. Last write wins within a batch.
func (t *Table) Update(id ID, v Value) UpdateResult {
	spec := registry[id]

	if v.Kind == KindString && spec.EscapeMarkup {
		v.Str = t.escape(v.Str)
	}
	t.values[id] = v

	var res UpdateResult
	if !spec.OnlyIfTruthy || v.Truthy() {
		res.Triggers = spec.Triggers
	}
	res.SummaryDirty = spec.AffectsSummary
	res.BodyDirty = spec.AffectsBody
	return res
}

// Get returns the last known value for id; the zero Value when absent.
func (t *Table) Get(id ID) Value { return t.values[id] }

// Present reports whether id has a known value.
func (t *Table) Present(id ID) bool { return t.values[id].Present() }

// Truthy reports whether the last known value for id is truthy.
func (t *Table) Truthy(id ID) bool { return t.values[id].Truthy() }

// Int returns the integer value for id, or 0 when absent.
func (t *Table) Int(id ID) int64 { return t.values[id].Int }

// Float returns the float value for id, or 0 when absent.
func (t *Table) Float(id ID) float64 { return t.values[id].Float }

// Str returns the string value for id, or "" when absent.
func (t *Table) Str(id ID) string { return t.values[id].Str }
