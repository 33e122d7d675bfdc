package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// ErrUnsupportedValue is returned when a script result cannot be expressed as
// a scalar, sequence, or mapping.
var ErrUnsupportedValue = errors.New("unsupported result type")

// Kind identifies the shape of one Value.
type Kind string

const (
	KindNull     Kind = "null"
	KindBool     Kind = "bool"
	KindInt      Kind = "int"
	KindFloat    Kind = "float"
	KindString   Kind = "string"
	KindSequence Kind = "sequence"
	KindMapping  Kind = "mapping"
)

// Value is the tagged representation of a script result. Dynamic interpreter
// values are converted into this shape at the sandbox boundary so the output
// formatter can handle every case exhaustively.
type Value struct {
	kind     Kind
	boolVal  bool
	intVal   int64
	floatVal float64
	strVal   string
	seq      []Value
	mapping  map[string]Value
}

// Null returns the null Value.
func Null() Value {
	return Value{kind: KindNull}
}

// Bool returns a boolean Value.
func Bool(v bool) Value {
	return Value{kind: KindBool, boolVal: v}
}

// Int returns an integer Value.
func Int(v int64) Value {
	return Value{kind: KindInt, intVal: v}
}

// Float returns a floating-point Value.
func Float(v float64) Value {
	return Value{kind: KindFloat, floatVal: v}
}

// String returns a text Value.
func String(v string) Value {
	return Value{kind: KindString, strVal: v}
}

// Sequence returns an ordered Value of the given elements.
func Sequence(elems []Value) Value {
	return Value{kind: KindSequence, seq: elems}
}

// Mapping returns a key-value Value.
func Mapping(entries map[string]Value) Value {
	return Value{kind: KindMapping, mapping: entries}
}

// Kind reports the shape tag of the value.
func (v Value) Kind() Kind {
	if v.kind == "" {
		return KindNull
	}
	return v.kind
}

// AsBool returns the boolean payload. Valid only for KindBool.
func (v Value) AsBool() bool { return v.boolVal }

// AsInt returns the integer payload. Valid only for KindInt.
func (v Value) AsInt() int64 { return v.intVal }

// AsFloat returns the float payload. Valid only for KindFloat.
func (v Value) AsFloat() float64 { return v.floatVal }

// AsString returns the text payload. Valid only for KindString.
func (v Value) AsString() string { return v.strVal }

// AsSequence returns the element slice. Valid only for KindSequence.
func (v Value) AsSequence() []Value { return v.seq }

// AsMapping returns the entry map. Valid only for KindMapping.
func (v Value) AsMapping() map[string]Value { return v.mapping }

// Keys returns mapping keys in sorted order for deterministic rendering.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.mapping))
	for key := range v.mapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Interface converts the value back into plain Go data suitable for JSON
// serialization.
func (v Value) Interface() any {
	switch v.Kind() {
	case KindBool:
		return v.boolVal
	case KindInt:
		return v.intVal
	case KindFloat:
		return v.floatVal
	case KindString:
		return v.strVal
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, elem := range v.seq {
			out[i] = elem.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.mapping))
		for key, entry := range v.mapping {
			out[key] = entry.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON serializes the value through its plain Go form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Text renders the value for plain terminal output: scalars stringified,
// sequences joined by newlines, mappings as sorted "key: value" lines.
func (v Value) Text() string {
	switch v.Kind() {
	case KindBool:
		return strconv.FormatBool(v.boolVal)
	case KindInt:
		return strconv.FormatInt(v.intVal, 10)
	case KindFloat:
		return strconv.FormatFloat(v.floatVal, 'g', -1, 64)
	case KindString:
		return v.strVal
	case KindSequence:
		lines := make([]string, len(v.seq))
		for i, elem := range v.seq {
			lines[i] = elem.Text()
		}
		return joinLines(lines)
	case KindMapping:
		keys := v.Keys()
		lines := make([]string, len(keys))
		for i, key := range keys {
			lines[i] = key + ": " + v.mapping[key].Text()
		}
		return joinLines(lines)
	default:
		return ""
	}
}

func joinLines(lines []string) string {
	out := ""
	for i, line := range lines {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}

// FromInterface converts a dynamically-typed interpreter result into a tagged
// Value, recursing through sequences and mappings. Opaque runtime objects
// (functions, modules) are rejected with ErrUnsupportedValue.
func FromInterface(raw any) (Value, error) {
	switch typed := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(typed), nil
	case int:
		return Int(int64(typed)), nil
	case int32:
		return Int(int64(typed)), nil
	case int64:
		return Int(typed), nil
	case float32:
		return Float(float64(typed)), nil
	case float64:
		return Float(typed), nil
	case string:
		return String(typed), nil
	case []byte:
		return String(string(typed)), nil
	case time.Time:
		return String(typed.Format(time.RFC3339)), nil
	case []any:
		elems := make([]Value, 0, len(typed))
		for i, item := range typed {
			elem, err := FromInterface(item)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems = append(elems, elem)
		}
		return Sequence(elems), nil
	case map[string]any:
		entries := make(map[string]Value, len(typed))
		for key, item := range typed {
			entry, err := FromInterface(item)
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", key, err)
			}
			entries[key] = entry
		}
		return Mapping(entries), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, raw)
	}
}
