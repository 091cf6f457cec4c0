package db

import (
	"fmt"

	"github.com/hull-run/hull/pkg/capability/value"
)

// toDriverArgs converts bound Values into the database/sql driver's native
// arg shape. Binding order is preserved exactly (1-based, positional),
// matching parameter position in the SQL text (spec §4.2).
func toDriverArgs(params []value.Value) []any {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = value.ToGo(p)
	}
	return args
}

// fromDriverValue converts a scanned driver value (the any produced by
// database/sql's generic Scan target) back into a capability Value.
func fromDriverValue(raw any) (value.Value, error) {
	switch v := raw.(type) {
	case nil:
		return value.Nil(), nil
	case int64:
		return value.Int(v), nil
	case float64:
		return value.Double(v), nil
	case bool:
		return value.Bool(v), nil
	case []byte:
		return value.Blob(v), nil
	case string:
		return value.Text(v), nil
	default:
		return value.Value{}, fmt.Errorf("unsupported driver value type %T", raw)
	}
}
