package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
)

// ErrUnsupportedGoType is returned when a Go value has no Value representation
// or a Value cannot be decoded into the requested target.
var ErrUnsupportedGoType = errors.New("unsupported go type")

// Of converts a Go value into a Value.
//
//   - Value and JSON variants are returned as they are (JSON wrapped in Structured).
//   - []byte becomes Binary.
//   - nil, bools, strings, numbers, []any and map[string]any map onto JSON directly.
//   - Anything else goes through its encoding/json representation, so structs
//     are stored the way they marshal.
//
// Strings that are not valid UTF-8 are rejected with ErrUnsupportedGoType.
func Of(x any) (Value, error) {
	switch x := x.(type) {
	case Value:
		if err := Validate(x); err != nil {
			return nil, err
		}
		return x, nil
	case []byte:
		return Binary(x), nil
	}
	j, err := JSONOf(x)
	if err != nil {
		return nil, err
	}
	return Structured{JSON: j}, nil
}

// MustOf is the panic-on-failure variant of Of.
func MustOf(x any) Value {
	v, err := Of(x)
	if err != nil {
		panic(err)
	}
	return v
}

// JSONOf converts a Go value into a JSON tree.
func JSONOf(x any) (JSON, error) {
	switch x := x.(type) {
	case nil:
		return Null{}, nil
	case JSON:
		if err := ValidateJSON(x); err != nil {
			return nil, err
		}
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		if err := validString(x); err != nil {
			return nil, err
		}
		return String(x), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(x), nil
	case int:
		return Number(x), nil
	case int8:
		return Number(x), nil
	case int16:
		return Number(x), nil
	case int32:
		return Number(x), nil
	case int64:
		return Number(x), nil
	case uint:
		return Number(x), nil
	case uint8:
		return Number(x), nil
	case uint16:
		return Number(x), nil
	case uint32:
		return Number(x), nil
	case uint64:
		return Number(x), nil
	case json.Number:
		f, err := strconv.ParseFloat(string(x), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: number %q: %v", ErrUnsupportedGoType, x, err)
		}
		return Number(f), nil
	case []any:
		seq := make(Sequence, len(x))
		for i, el := range x {
			j, err := JSONOf(el)
			if err != nil {
				return nil, err
			}
			seq[i] = j
		}
		return seq, nil
	case map[string]any:
		m := make(Mapping, len(x))
		for k, el := range x {
			if err := validString(k); err != nil {
				return nil, err
			}
			j, err := JSONOf(el)
			if err != nil {
				return nil, err
			}
			m[k] = j
		}
		return m, nil
	}
	return viaEncodingJSON(x)
}

func viaEncodingJSON(x any) (JSON, error) {
	if err := validStrings(reflect.ValueOf(x), 0); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(x)
	if err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrUnsupportedGoType, x, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("%w: %T: %v", ErrUnsupportedGoType, x, err)
	}
	return JSONOf(generic)
}

// Any converts the tree back into plain Go values: nil, bool, float64, string,
// []any and map[string]any.
func (s Structured) Any() any {
	return AnyOf(s.JSON)
}

// AnyOf converts j into plain Go values.
func AnyOf(j JSON) any {
	switch j := j.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(j)
	case Number:
		return float64(j)
	case String:
		return string(j)
	case Sequence:
		out := make([]any, len(j))
		for i, el := range j {
			out[i] = AnyOf(el)
		}
		return out
	case Mapping:
		out := make(map[string]any, len(j))
		for k, el := range j {
			out[k] = AnyOf(el)
		}
		return out
	}
	panic(fmt.Sprintf("exhaustive match fallback, json type: %T", j))
}

// Into decodes v into target, which must be a non-nil pointer.
//
// *Value always receives v. Binary decodes into *[]byte or *Binary. Structured
// decodes into *JSON, *any, or anything encoding/json can unmarshal into.
func Into(v Value, target any) error {
	if target == nil {
		return fmt.Errorf("%w: nil target", ErrUnsupportedGoType)
	}
	if t, ok := target.(*Value); ok {
		*t = v
		return nil
	}
	return Match(v,
		func(b Binary) error {
			switch t := target.(type) {
			case *[]byte:
				*t = append([]byte(nil), b...)
			case *Binary:
				*t = append(Binary(nil), b...)
			default:
				return fmt.Errorf("%w: binary value into %T", ErrUnsupportedGoType, target)
			}
			return nil
		},
		func(s Structured) error {
			switch t := target.(type) {
			case *JSON:
				*t = s.JSON
				return nil
			case *any:
				*t = s.Any()
				return nil
			case *[]byte:
				return fmt.Errorf("%w: structured value into %T", ErrUnsupportedGoType, target)
			}
			raw, err := json.Marshal(s.Any())
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnsupportedGoType, err)
			}
			if err := json.Unmarshal(raw, target); err != nil {
				return fmt.Errorf("%w: into %T: %v", ErrUnsupportedGoType, target, err)
			}
			return nil
		},
	)
}
