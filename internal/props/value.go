package props

// Kind is the declared value kind of an observed property. It is fixed per
// property for the process lifetime; only the value itself mutates.
type Kind uint8

const (
	KindNone Kind = iota
	KindString
	KindBool
	KindInt
	KindFloat
	// KindNode is a structured value (map/list) kept as decoded JSON.
	// The engine extracts what it needs (mouse hover, metadata tags).
	KindNode
)

// Value is a typed property value. The zero value means "absent": the
// property has not been observed yet, or the player reported it as
// unavailable.
type Value struct {
	Kind  Kind
	Str   string
	Bool  bool
	Int   int64
	Float float64
	Node  any
}

func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func BoolValue(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func IntValue(i int64) Value      { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value  { return Value{Kind: KindFloat, Float: f} }
func NodeValue(node any) Value    { return Value{Kind: KindNode, Node: node} }

// Present reports whether the property has a known value.
func (v Value) Present() bool { return v.Kind != KindNone }

// Truthy mirrors the player's notion of a "set" value: non-empty string,
// true flag, non-zero number. Absent and structured values are never truthy.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindString:
		return v.Str != ""
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	case KindFloat:
		return v.Float != 0
	default:
		return false
	}
}
