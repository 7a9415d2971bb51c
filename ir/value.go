package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind discriminates the literal variants a const may carry.
type ValueKind uint8

const (
	NumberKind ValueKind = iota
	BoolKind
	CharKind
)

// Value is a tagged literal: a number, a boolean, or a character.
//
// Numbers are held as float64 even when the declared type is int, matching
// the numeric model of the reference interpreter the transformed programs
// run under. Integers above 2^53 therefore lose precision when folded; the
// fallback path runs under the same model, so both sides of a guard agree.
type Value struct {
	kind ValueKind
	num  float64
	b    bool
	ch   string
}

func Number(f float64) Value { return Value{kind: NumberKind, num: f} }
func Boolean(b bool) Value   { return Value{kind: BoolKind, b: b} }
func Char(c string) Value    { return Value{kind: CharKind, ch: c} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) Num() float64    { return v.num }
func (v Value) Bool() bool      { return v.b }
func (v Value) Char() string    { return v.ch }

// Equal reports literal equality: same kind, same payload.
func (v Value) Equal(o Value) bool {
	return v == o
}

// String renders the literal in the external text form. Integral numbers
// print without a fractional part.
func (v Value) String() string {
	switch v.kind {
	case BoolKind:
		return strconv.FormatBool(v.b)
	case CharKind:
		return "'" + v.ch + "'"
	default:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	}
}

// MarshalJSON emits the bare literal: numbers as JSON numbers, booleans as
// JSON booleans, characters as one-character JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case BoolKind:
		return json.Marshal(v.b)
	case CharKind:
		return json.Marshal(v.ch)
	default:
		return json.Marshal(v.num)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = Boolean(b)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*v = Number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Char(s)
		return nil
	}
	return fmt.Errorf("unsupported literal %s", data)
}
