package value

import (
	"fmt"
	"reflect"
	"unicode/utf8"
)

// Validate reports an error wrapping ErrUnsupportedGoType when a string or
// mapping key inside v is not valid UTF-8. Such strings have no canonical
// encoding: two of them could serialize to the same bytes.
func Validate(v Value) error {
	if s, ok := v.(Structured); ok {
		return ValidateJSON(s.JSON)
	}
	return nil
}

// ValidateJSON is Validate for a bare tree.
func ValidateJSON(j JSON) error {
	switch j := j.(type) {
	case String:
		return validString(string(j))
	case Sequence:
		for _, el := range j {
			if err := ValidateJSON(el); err != nil {
				return err
			}
		}
	case Mapping:
		for k, el := range j {
			if err := validString(k); err != nil {
				return err
			}
			if err := ValidateJSON(el); err != nil {
				return err
			}
		}
	}
	return nil
}

func validString(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: string %q is not valid UTF-8", ErrUnsupportedGoType, s)
	}
	return nil
}

// maxWalkDepth stops validStrings on cyclic values; json.Marshal reports those.
const maxWalkDepth = 1000

// validStrings walks the strings encoding/json would marshal from rv.
// json.Marshal replaces invalid UTF-8 with U+FFFD, so it is checked before.
func validStrings(rv reflect.Value, depth int) error {
	if depth > maxWalkDepth {
		return nil
	}
	switch rv.Kind() {
	case reflect.String:
		return validString(rv.String())
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return validStrings(rv.Elem(), depth+1)
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		for i := 0; i < rv.Len(); i++ {
			if err := validStrings(rv.Index(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if err := validStrings(iter.Key(), depth+1); err != nil {
				return err
			}
			if err := validStrings(iter.Value(), depth+1); err != nil {
				return err
			}
		}
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			if f := t.Field(i); !f.IsExported() && !f.Anonymous {
				continue
			}
			if err := validStrings(rv.Field(i), depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
