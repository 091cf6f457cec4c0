package value

// Marshaller converts between an interpreter's native representation and
// Value. A concrete Runtime implementation (Lua, the JS runtime, or the
// in-process dev stand-in) supplies one; the capability layer never knows
// which interpreter it is talking to (spec §4.1, §9 "Dynamic typing across
// the capability boundary").
type Marshaller interface {
	// ToValue converts one native argument into a Value. It fails with
	// *ErrInvalidType for natives with no Value representation (functions,
	// arrays, objects); the caller is expected to raise a type error in the
	// interpreter in that case.
	ToValue(native any) (Value, error)

	// FromValue converts a Value (typically a database cell or a capability
	// result) back into the interpreter's native representation.
	FromValue(v Value) (native any, err error)
}

// FromGo converts a plain Go value into a Value using the same rules spec
// §4.1 prescribes for interpreter natives: integers map to KindInt,
// floating-point to KindDouble, strings to KindText, []byte to KindBlob,
// bool to KindBool, nil to KindNil. It is the marshaller used by the
// in-process dev runtime, and by any capability implementation that talks
// to Go code directly instead of an embedded interpreter.
func FromGo(native any) (Value, error) {
	switch n := native.(type) {
	case nil:
		return Nil(), nil
	case bool:
		return Bool(n), nil
	case int:
		return Int(int64(n)), nil
	case int32:
		return Int(int64(n)), nil
	case int64:
		return Int(n), nil
	case float32:
		return Double(float64(n)), nil
	case float64:
		return Double(n), nil
	case string:
		return Text(n), nil
	case []byte:
		return Blob(n), nil
	default:
		return Value{}, &ErrInvalidType{NativeType: goTypeName(native)}
	}
}

// ToGo converts a Value back into its natural Go representation: KindBlob
// becomes []byte, KindText becomes string, and so on. KindNil becomes a nil
// any.
func ToGo(v Value) any {
	switch v.kind {
	case KindNil:
		return nil
	case KindInt:
		return v.i
	case KindDouble:
		return v.d
	case KindText:
		return v.text
	case KindBlob:
		return v.blob
	case KindBool:
		return v.b
	default:
		return nil
	}
}

func goTypeName(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "func-or-unsupported"
	}
}
