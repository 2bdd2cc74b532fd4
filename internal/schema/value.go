package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies the runtime type of a cell value.
type Kind int

// Cell value kinds. The backend does not enforce column types, so every
// cell is one of these four regardless of the declared column type.
const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindBool
)

// Value is a single cell in a result or sample row. It is a closed
// variant over the scalar types JSON can carry.
type Value struct {
	kind Kind
	text string
	num  float64
	b    bool
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Kind returns the variant tag of the value.
func (v Value) Kind() Kind { return v.kind }

// Float returns the numeric payload. Zero unless Kind is KindNumber.
func (v Value) Float() float64 { return v.num }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// String renders the value for display. Nulls render as "NULL" and
// numbers keep their shortest exact representation.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "NULL"
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Null()
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch val := raw.(type) {
	case string:
		*v = Text(val)
	case float64:
		*v = Number(val)
	case bool:
		*v = Bool(val)
	default:
		// Nested objects/arrays are not valid cell values; keep the raw
		// JSON as text so rows never fail to decode.
		*v = Text(string(data))
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// Row is one result or sample row keyed by column name.
type Row map[string]Value

// Get returns the value for a column, or null when the column is absent.
func (r Row) Get(column string) Value {
	if v, ok := r[column]; ok {
		return v
	}
	return Null()
}

var _ fmt.Stringer = Value{}
