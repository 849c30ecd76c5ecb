package codec

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-ingest/pkg/storage"
)

// jsonValue converts a value decoded with UseNumber. ok is false for null.
func jsonValue(v any) (storage.Value, bool, error) {
	switch x := v.(type) {
	case nil:
		return storage.Value{}, false, nil
	case string:
		return storage.StringValue(x), true, nil
	case bool:
		return storage.BoolValue(x), true, nil
	case json.Number:
		val, err := numberValue(string(x))
		return val, err == nil, err
	default:
		// Lists and maps are kept as their JSON text
		data, err := json.Marshal(x)
		if err != nil {
			return storage.Value{}, false, err
		}
		return storage.StringValue(string(data)), true, nil
	}
}

// numberValue keeps integral literals as integers and everything else as
// doubles.
func numberValue(s string) (storage.Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return storage.IntValue(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return storage.Value{}, fmt.Errorf("invalid number %q", s)
	}
	return storage.DoubleValue(f), nil
}

// jsonID renders a document identifier (string or number) as a string.
func jsonID(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	default:
		return "", false
	}
}

// typedValue parses a value whose type name comes from the document,
// shared by GraphSON EXTENDED type names and GraphML attr.type.
// declared is false for types with no PropertyType (boolean, list, map).
func typedValue(typeName, text string) (val storage.Value, t storage.PropertyType, declared bool, err error) {
	switch typeName {
	case "string":
		return storage.StringValue(text), storage.Text, true, nil
	case "int", "integer", "long":
		i, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return val, t, false, fmt.Errorf("invalid %s %q", typeName, text)
		}
		return storage.IntValue(i), storage.Integer, true, nil
	case "float":
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 32)
		if err != nil {
			return val, t, false, fmt.Errorf("invalid float %q", text)
		}
		return storage.FloatValue(float32(f)), storage.Float, true, nil
	case "double":
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return val, t, false, fmt.Errorf("invalid double %q", text)
		}
		return storage.DoubleValue(f), storage.Double, true, nil
	case "boolean":
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return val, t, false, fmt.Errorf("invalid boolean %q", text)
		}
		return storage.BoolValue(b), t, false, nil
	default:
		return storage.StringValue(text), t, false, nil
	}
}

// declaredType maps a document type name to a PropertyType, if any.
func declaredType(typeName string) (storage.PropertyType, bool) {
	switch typeName {
	case "string":
		return storage.Text, true
	case "int", "integer", "long":
		return storage.Integer, true
	case "float":
		return storage.Float, true
	case "double":
		return storage.Double, true
	default:
		return 0, false
	}
}
