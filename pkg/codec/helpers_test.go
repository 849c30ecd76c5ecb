package codec

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-ingest/pkg/storage"
)

// collectSink records everything a decoder emits
type collectSink struct {
	vertices []*Vertex
	edges    []*Edge
	decls    []KeyDeclaration
	failOn   string // vertex ID whose Put fails
}

var errSinkRejected = errors.New("sink rejected element")

func (s *collectSink) Put(e Element) error {
	switch el := e.(type) {
	case *Vertex:
		if s.failOn != "" && el.ID == s.failOn {
			return errSinkRejected
		}
		s.vertices = append(s.vertices, el)
	case *Edge:
		s.edges = append(s.edges, el)
	}
	return nil
}

func (s *collectSink) DeclareKey(d KeyDeclaration) error {
	s.decls = append(s.decls, d)
	return nil
}

func (s *collectSink) vertex(t *testing.T, id string) *Vertex {
	t.Helper()
	for _, v := range s.vertices {
		if v.ID == id {
			return v
		}
	}
	t.Fatalf("vertex %s not decoded", id)
	return nil
}

func decodeString(t *testing.T, d Decoder, doc string) *collectSink {
	t.Helper()
	sink := &collectSink{}
	if err := d.Decode(context.Background(), strings.NewReader(doc), sink); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return sink
}

func requireDecodeError(t *testing.T, err error, format string) *DecodeError {
	t.Helper()
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}
	if de.Format != format {
		t.Errorf("DecodeError.Format = %q, want %q", de.Format, format)
	}
	return de
}

func assertString(t *testing.T, props map[string]storage.Value, key, want string) {
	t.Helper()
	got, err := props[key].AsString()
	if err != nil || got != want {
		t.Errorf("%s = %q (%v), want %q", key, got, err, want)
	}
}

func assertInt(t *testing.T, props map[string]storage.Value, key string, want int64) {
	t.Helper()
	got, err := props[key].AsInt()
	if err != nil || got != want {
		t.Errorf("%s = %d (%v), want %d", key, got, err, want)
	}
}

func assertDouble(t *testing.T, props map[string]storage.Value, key string, want float64) {
	t.Helper()
	got, err := props[key].AsDouble()
	if err != nil || got != want {
		t.Errorf("%s = %v (%v), want %v", key, got, err, want)
	}
}
