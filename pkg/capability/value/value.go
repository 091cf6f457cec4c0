// Package value implements the tagged-sum Value that crosses the capability
// boundary in both directions: interpreter arguments going in, database rows
// and capability results coming back out.
package value

import "fmt"

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindNil Kind = iota
	KindInt
	KindDouble
	KindText
	KindBlob
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is the tagged sum {nil, int, double, text, blob, bool} described in
// spec §3. Text and blob are borrowed from the interpreter's own storage (or
// from the request's scratch arena) for the duration of one capability call;
// nothing in this package retains them past that call.
type Value struct {
	kind Kind
	i    int64
	d    float64
	b    bool
	text string
	blob []byte
}

// Nil returns the nil Value.
func Nil() Value { return Value{kind: KindNil} }

// Int wraps a 64-bit signed integer.
func Int(n int64) Value { return Value{kind: KindInt, i: n} }

// Double wraps a floating point number.
func Double(f float64) Value { return Value{kind: KindDouble, d: f} }

// Text wraps a string. Length is preserved exactly; no NUL sensitivity.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Blob wraps a byte slice. The slice is not copied — callers that need the
// Value to outlive the current capability call must copy first.
func Blob(b []byte) Value { return Value{kind: KindBlob, blob: b} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports which variant is held.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v holds the nil variant.
func (v Value) IsNil() bool { return v.kind == KindNil }

// Int returns the wrapped integer. ok is false if v is not KindInt.
func (v Value) Int() (n int64, ok bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Double returns the wrapped double. ok is false if v is not KindDouble.
func (v Value) Double() (f float64, ok bool) {
	if v.kind != KindDouble {
		return 0, false
	}
	return v.d, true
}

// Text returns the wrapped string. ok is false if v is not KindText.
func (v Value) Text() (s string, ok bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// Blob returns the wrapped bytes. ok is false if v is not KindBlob.
func (v Value) Blob() (b []byte, ok bool) {
	if v.kind != KindBlob {
		return nil, false
	}
	return v.blob, true
}

// Bool returns the wrapped boolean. ok is false if v is not KindBool.
func (v Value) Bool() (b bool, ok bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// ErrInvalidType is returned by a Marshaller when the native value has no
// representation as a Value (functions, arrays, objects — spec §4.1 requires
// the caller to JSON-serialize those before crossing the boundary).
type ErrInvalidType struct {
	NativeType string
}

func (e *ErrInvalidType) Error() string {
	return fmt.Sprintf("value: unsupported native type %q at capability boundary", e.NativeType)
}

// Column pairs a borrowed column name with its cell Value, as produced by one
// row of a database capability query (spec §3, "Column").
type Column struct {
	Name  string
	Value Value
}
