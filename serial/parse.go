package serial

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/davazp/iredb/value"
)

// Parse reads a single JSON document into a tree. Duplicate mapping keys keep
// the last occurrence. Anything after the document is an error.
func Parse(raw []byte) (value.JSON, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	j, err := parseValue(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after document", ErrInvalidJSON)
	}
	return j, nil
}

func parseValue(dec *json.Decoder) (value.JSON, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch tok := tok.(type) {
	case nil:
		return value.Null{}, nil
	case bool:
		return value.Bool(tok), nil
	case string:
		return value.String(tok), nil
	case json.Number:
		f, err := strconv.ParseFloat(tok.String(), 64)
		if err != nil {
			return nil, err
		}
		return value.Number(f), nil
	case json.Delim:
		switch tok {
		case '[':
			seq := value.Sequence{}
			for dec.More() {
				el, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				seq = append(seq, el)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return seq, nil
		case '{':
			m := value.Mapping{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected mapping key %v", keyTok)
				}
				el, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				m[key] = el
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}
