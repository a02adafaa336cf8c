package stats

import "strconv"

// Kind discriminates the variants of a Value.
type Kind int

const (
	KindAbsent Kind = iota
	KindNumber
	KindText
	KindBool
)

// Value is a single statistic as reported by the server: a number, a piece
// of text, a boolean, or absent. Only numbers take part in sums and deltas.
type Value struct {
	kind Kind
	num  float64
	text string
	b    bool
}

// Absent is the zero Value.
var Absent = Value{}

func Number(v float64) Value { return Value{kind: KindNumber, num: v} }
func Text(s string) Value    { return Value{kind: KindText, text: s} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// Float returns the numeric value and whether the Value holds one.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// String renders the canonical textual form of the value. Numbers use the
// shortest representation that round-trips, absent values render empty.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.text
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}
