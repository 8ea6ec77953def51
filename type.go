// FILE: lixenwraith/flatconf/type.go
package flatconf

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies which variant a Value holds
type Kind uint8

const (
	KindString Kind = iota
	KindBool
	KindNumber
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindTable:
		return "table"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a configuration value: a string, bool, number, or a nested Tree.
// The zero Value is the empty string.
type Value struct {
	kind  Kind
	str   string
	b     bool
	num   float64
	table *Tree
}

// StringValue wraps s verbatim
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// BoolValue wraps b
func BoolValue(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// NumberValue wraps f
func NumberValue(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// TableValue wraps t. The Value takes ownership of t; callers must not keep
// mutating t through another reference. A nil t is treated as an empty tree.
func TableValue(t *Tree) Value {
	if t == nil {
		t = NewTree()
	}
	return Value{kind: KindTable, table: t}
}

// Kind reports the stored variant
func (v Value) Kind() Kind {
	return v.kind
}

// IsTable reports whether v holds a nested tree
func (v Value) IsTable() bool {
	return v.kind == KindTable
}

// AsString returns the string held by v, or ErrTypeMismatch.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", ErrTypeMismatch
	}
	return v.str, nil
}

// AsBool returns the bool held by v, or ErrTypeMismatch.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, ErrTypeMismatch
	}
	return v.b, nil
}

// AsNumber returns the number held by v, or ErrTypeMismatch.
func (v Value) AsNumber() (float64, error) {
	if v.kind != KindNumber {
		return 0, ErrTypeMismatch
	}
	return v.num, nil
}

// AsTable returns the nested tree held by v, or ErrTypeMismatch.
// The returned tree is the one owned by v, not a copy.
func (v Value) AsTable() (*Tree, error) {
	if v.kind != KindTable {
		return nil, ErrTypeMismatch
	}
	return v.table, nil
}

// Interface converts v to a plain Go value: string, bool, float64, or
// map[string]any for tables.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindTable:
		return v.table.ToMap()
	default:
		return v.str
	}
}

// Equal reports deep equality, including key order of nested tables.
// NaN numbers compare equal to each other.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == other.b
	case KindNumber:
		if math.IsNaN(v.num) && math.IsNaN(other.num) {
			return true
		}
		return v.num == other.num
	case KindTable:
		return v.table.Equal(other.table)
	default:
		return v.str == other.str
	}
}

// String renders scalars in their config-file spelling; tables render as "{...}"
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindTable:
		return "{...}"
	default:
		return v.str
	}
}

// clone deep-copies tables; scalars are copied by value
func (v Value) clone() Value {
	if v.kind == KindTable {
		return Value{kind: KindTable, table: v.table.Clone()}
	}
	return v
}

// String retrieves a string value using the dotted path.
// No conversion is attempted: a value of another kind yields ErrTypeMismatch.
func (t *Tree) String(path string) (string, error) {
	v, err := t.lookupValue(path)
	if err != nil {
		return "", err
	}
	s, err := v.AsString()
	if err != nil {
		return "", fmt.Errorf("%w at %s", err, path)
	}
	return s, nil
}

// Bool retrieves a bool value using the dotted path
func (t *Tree) Bool(path string) (bool, error) {
	v, err := t.lookupValue(path)
	if err != nil {
		return false, err
	}
	b, err := v.AsBool()
	if err != nil {
		return false, fmt.Errorf("%w at %s", err, path)
	}
	return b, nil
}

// Number retrieves a number value using the dotted path
func (t *Tree) Number(path string) (float64, error) {
	v, err := t.lookupValue(path)
	if err != nil {
		return 0, err
	}
	f, err := v.AsNumber()
	if err != nil {
		return 0, fmt.Errorf("%w at %s", err, path)
	}
	return f, nil
}

// Table retrieves the nested tree at the dotted path
func (t *Tree) Table(path string) (*Tree, error) {
	v, err := t.lookupValue(path)
	if err != nil {
		return nil, err
	}
	sub, err := v.AsTable()
	if err != nil {
		return nil, fmt.Errorf("%w at %s", err, path)
	}
	return sub, nil
}

func (t *Tree) lookupValue(path string) (Value, error) {
	v, ok := t.Lookup(path)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return v, nil
}
