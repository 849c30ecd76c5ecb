package codec

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// FaunusGraphSONDecoder reads line-delimited adjacency records, one vertex
// per line with its outgoing edges inline:
//
//	{"_id":1,"name":"marko","_outE":[{"_label":"knows","_id":7,"_inV":2}]}
//
// Edges may point at vertices on later lines, so they are spooled to a
// temporary file and emitted after the last vertex. "_inE" lists are
// ignored; every edge is also listed as some vertex's "_outE".
type FaunusGraphSONDecoder struct {
	// TempDir is where edges are spooled; empty means os.TempDir().
	TempDir string
}

type spooledEdge struct {
	Out  string         `json:"out"`
	Edge map[string]any `json:"edge"`
}

// Decode implements Decoder.
func (d FaunusGraphSONDecoder) Decode(ctx context.Context, r io.Reader, sink Sink) error {
	spool, err := os.CreateTemp(d.TempDir, "faunus-edges-*.jsonl")
	if err != nil {
		return decodeErr(FormatFaunusGraphSON, 0, fmt.Errorf("failed to create edge spool: %w", err))
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	spoolW := bufio.NewWriter(spool)
	enc := json.NewEncoder(spoolW)

	reader := bufio.NewReader(r)
	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return decodeErr(FormatFaunusGraphSON, line, err)
		}
		raw, readErr := reader.ReadBytes('\n')
		if readErr != nil && readErr != io.EOF {
			return decodeErr(FormatFaunusGraphSON, line, readErr)
		}
		line++

		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
			if err := faunusLine(trimmed, sink, enc); err != nil {
				return decodeErr(FormatFaunusGraphSON, line, err)
			}
		}
		if readErr == io.EOF {
			break
		}
	}

	if err := spoolW.Flush(); err != nil {
		return decodeErr(FormatFaunusGraphSON, 0, err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return decodeErr(FormatFaunusGraphSON, 0, err)
	}

	dec := json.NewDecoder(bufio.NewReader(spool))
	dec.UseNumber()
	for {
		if err := ctx.Err(); err != nil {
			return decodeErr(FormatFaunusGraphSON, 0, err)
		}
		var se spooledEdge
		if err := dec.Decode(&se); err == io.EOF {
			return nil
		} else if err != nil {
			return decodeErr(FormatFaunusGraphSON, 0, err)
		}
		se.Edge[gsOutV] = se.Out
		el, err := graphSONElement(se.Edge, true, false, sink, nil)
		if err != nil {
			return decodeErr(FormatFaunusGraphSON, 0, err)
		}
		if err := sink.Put(el); err != nil {
			return decodeErr(FormatFaunusGraphSON, 0, err)
		}
	}
}

func faunusLine(raw []byte, sink Sink, spool *json.Encoder) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return err
	}
	if obj == nil {
		return fmt.Errorf("expected a vertex object")
	}

	v, err := graphSONElement(obj, false, false, sink, nil)
	if err != nil {
		return err
	}
	if err := sink.Put(v); err != nil {
		return err
	}

	outE, _ := obj[gsOutE].([]any)
	for _, e := range outE {
		edge, ok := e.(map[string]any)
		if !ok {
			return fmt.Errorf("vertex %s: %s entries must be objects", v.(*Vertex).ID, gsOutE)
		}
		if err := spool.Encode(spooledEdge{Out: v.(*Vertex).ID, Edge: edge}); err != nil {
			return err
		}
	}
	return nil
}
