package codec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dd0wney/cluso-ingest/pkg/storage"
)

// GraphSON modes
const (
	ModeNormal   = "NORMAL"
	ModeCompact  = "COMPACT"
	ModeExtended = "EXTENDED"
)

// Structural GraphSON keys; everything else on an element is a property.
const (
	gsID    = "_id"
	gsType  = "_type"
	gsOutV  = "_outV"
	gsInV   = "_inV"
	gsLabel = "_label"
	gsOutE  = "_outE"
	gsInE   = "_inE"
)

// GraphSONDecoder reads a GraphSON document:
//
//	{"mode":"NORMAL","vertices":[{"_id":"1","name":"marko"}],
//	 "edges":[{"_id":"7","_outV":"1","_inV":"2","_label":"knows"}]}
//
// In EXTENDED mode every property is {"type":"integer","value":29} and each
// typed property is reported to a KeyDeclarer. Vertices and edges are
// decoded one array element at a time.
type GraphSONDecoder struct{}

// Decode implements Decoder.
func (GraphSONDecoder) Decode(ctx context.Context, r io.Reader, sink Sink) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	fail := func(err error) error { return decodeErr(FormatGraphSON, 0, err) }

	if err := expectDelim(dec, '{'); err != nil {
		return fail(err)
	}

	mode := ModeNormal
	declared := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fail(err)
		}
		field, _ := tok.(string)

		switch field {
		case "mode":
			if err := dec.Decode(&mode); err != nil {
				return fail(fmt.Errorf("mode: %w", err))
			}
			mode = strings.ToUpper(mode)
			if mode != ModeNormal && mode != ModeCompact && mode != ModeExtended {
				return fail(fmt.Errorf("unknown GraphSON mode %q", mode))
			}
		case "vertices", "edges":
			isEdge := field == "edges"
			err := eachObject(ctx, dec, func(obj map[string]any) error {
				el, err := graphSONElement(obj, isEdge, mode == ModeExtended, sink, declared)
				if err != nil {
					return err
				}
				return sink.Put(el)
			})
			if err != nil {
				return fail(err)
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return fail(err)
			}
		}
	}

	if err := expectDelim(dec, '}'); err != nil {
		return fail(err)
	}
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// eachObject decodes a JSON array of objects one element at a time.
func eachObject(ctx context.Context, dec *json.Decoder, fn func(map[string]any) error) error {
	if err := expectDelim(dec, '['); err != nil {
		return err
	}
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return err
		}
		if obj == nil {
			return fmt.Errorf("expected an object, got null")
		}
		if err := fn(obj); err != nil {
			return err
		}
	}
	return expectDelim(dec, ']')
}

func graphSONElement(obj map[string]any, isEdge, extended bool, sink Sink, declared map[string]bool) (Element, error) {
	id, ok := jsonID(obj[gsID])
	if !ok && !isEdge {
		return nil, fmt.Errorf("vertex without %s", gsID)
	}

	props := make(map[string]storage.Value, len(obj))
	for k, raw := range obj {
		switch k {
		case gsID, gsType, gsOutV, gsInV, gsLabel, gsOutE, gsInE:
			continue
		}
		var (
			val     storage.Value
			present bool
			err     error
		)
		if extended {
			val, present, err = extendedValue(k, raw, sink, declared)
		} else {
			val, present, err = jsonValue(raw)
		}
		if err != nil {
			return nil, fmt.Errorf("element %s property %q: %w", id, k, err)
		}
		if present {
			props[k] = val
		}
	}

	if !isEdge {
		return &Vertex{ID: id, Properties: props}, nil
	}

	out, ok1 := jsonID(obj[gsOutV])
	in, ok2 := jsonID(obj[gsInV])
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("edge %s without %s/%s", id, gsOutV, gsInV)
	}
	label, _ := obj[gsLabel].(string)
	if label == "" {
		label = DefaultEdgeLabel
	}
	return &Edge{ID: id, Label: label, Source: out, Target: in, Properties: props}, nil
}

func extendedValue(name string, raw any, sink Sink, declared map[string]bool) (storage.Value, bool, error) {
	typed, ok := raw.(map[string]any)
	if !ok {
		return storage.Value{}, false, fmt.Errorf("EXTENDED value must be {\"type\",\"value\"}")
	}
	typeName, _ := typed["type"].(string)
	inner := typed["value"]
	if inner == nil {
		return storage.Value{}, false, nil
	}

	var text string
	switch x := inner.(type) {
	case string:
		text = x
	case json.Number:
		text = x.String()
	case bool:
		text = fmt.Sprint(x)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return storage.Value{}, false, err
		}
		text = string(data)
	}

	val, t, isDeclared, err := typedValue(strings.ToLower(typeName), text)
	if err != nil {
		return storage.Value{}, false, err
	}
	if isDeclared && !declared[name] {
		declared[name] = true
		if err := declare(sink, name, t); err != nil {
			return storage.Value{}, false, err
		}
	}
	return val, true, nil
}
