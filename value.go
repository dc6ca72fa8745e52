// SPDX-License-Identifier: MIT

package neograph

import (
	"fmt"

	"github.com/Aetherall/neograph-sub003/internal/ids"
)

// toValue narrows a dynamically-typed Host API input (as would arrive
// decoded from JSON, or handed in directly from an embedder's own
// value) against kind, the property's declared type. Mirrors
// internal/query's convertValue, since both sides of the boundary
// (writing a property, filtering on one) apply the same narrowing.
func toValue(kind ids.Kind, raw interface{}) (ids.Value, error) {
	if raw == nil {
		return ids.Null(), nil
	}
	switch kind {
	case ids.KindString:
		s, ok := raw.(string)
		if !ok {
			return ids.Value{}, fmt.Errorf("expected a string, got %T", raw)
		}
		return ids.StringValue(s), nil
	case ids.KindInt:
		switch n := raw.(type) {
		case int:
			return ids.IntValue(int64(n)), nil
		case int64:
			return ids.IntValue(n), nil
		case float64:
			return ids.IntValue(int64(n)), nil
		default:
			return ids.Value{}, fmt.Errorf("expected an int, got %T", raw)
		}
	case ids.KindNumber:
		switch n := raw.(type) {
		case float64:
			return ids.NumberValue(n), nil
		case int:
			return ids.NumberValue(float64(n)), nil
		default:
			return ids.Value{}, fmt.Errorf("expected a number, got %T", raw)
		}
	case ids.KindBool:
		b, ok := raw.(bool)
		if !ok {
			return ids.Value{}, fmt.Errorf("expected a bool, got %T", raw)
		}
		return ids.BoolValue(b), nil
	default:
		return ids.Null(), nil
	}
}

// fromValue widens an internal Value back to a plain Go value, for
// Node's public Properties() map and for any event payload handed to
// a subscriber.
func fromValue(v ids.Value) interface{} {
	switch v.Kind() {
	case ids.KindString:
		return v.String()
	case ids.KindInt:
		return v.Int()
	case ids.KindNumber:
		return v.Number()
	case ids.KindBool:
		return v.Bool()
	default:
		return nil
	}
}
