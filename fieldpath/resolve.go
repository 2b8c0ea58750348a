package fieldpath

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	gojson "github.com/goccy/go-json"
)

// Decode parses a JSON document into plain Go values: objects become
// map[string]any, arrays []any and numbers json.Number.
func Decode(data []byte) (v any, err error) {
	if !gojson.Valid(data) {
		return nil, ErrInvalidJSON
	}
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	err = dec.Decode(&v)
	if err != nil {
		return nil, err
	}
	return v, nil
}

var ErrInvalidJSON = errors.New("fieldpath: invalid JSON")

// Resolve walks root along p. The second result is false when any step
// is missing or has the wrong shape.
func Resolve(root any, p Path) (any, bool) {
	if p.IsEmpty() {
		return nil, false
	}

	current := root
	for _, seg := range p.segments {
		if seg.Name != "" || seg.Kind == Key {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			current, ok = obj[seg.Name]
			if !ok {
				return nil, false
			}
		}

		switch seg.Kind {
		case Index:
			arr, ok := current.([]any)
			if !ok || seg.Index >= len(arr) {
				return nil, false
			}
			current = arr[seg.Index]

		case Conditional:
			arr, ok := current.([]any)
			if !ok {
				return nil, false
			}
			current, ok = firstMatch(arr, seg.Conditions)
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

func ResolveString(root any, path string) (any, bool) {
	return Resolve(root, Parse(path))
}

func firstMatch(arr []any, conds []Condition) (any, bool) {
	for _, elem := range arr {
		obj, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		if matches(obj, conds) {
			return obj, true
		}
	}
	return nil, false
}

func matches(obj map[string]any, conds []Condition) bool {
	for _, c := range conds {
		s, ok := Scalar(obj[c.Key])
		if !ok || s != c.Value {
			return false
		}
	}
	return true
}

// Scalar renders strings, numbers and booleans as text.
// Null, objects and arrays have no scalar form.
func Scalar(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}
