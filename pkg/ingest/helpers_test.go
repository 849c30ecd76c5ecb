package ingest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-ingest/pkg/codec"
	"github.com/dd0wney/cluso-ingest/pkg/metagraph"
	"github.com/dd0wney/cluso-ingest/pkg/storage"
)

const testGraph = "g"

func newManager(t *testing.T) *metagraph.Manager {
	t.Helper()
	m, err := metagraph.Open(metagraph.Config{DataDir: t.TempDir()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	_, err = m.Create(testGraph, "test graph")
	require.NoError(t, err)
	return m
}

func newOrchestrator(t *testing.T, cfg Config) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(cfg)
	require.NoError(t, err)
	return o
}

func graph(t *testing.T, m *metagraph.Manager) *storage.GraphStorage {
	t.Helper()
	gs, err := m.Get(testGraph)
	require.NoError(t, err)
	return gs
}

// trackedBody records whether Close was called.
type trackedBody struct {
	io.Reader
	closed atomic.Bool
}

func (b *trackedBody) Close() error {
	b.closed.Store(true)
	return nil
}

func body(doc string) *trackedBody {
	return &trackedBody{Reader: strings.NewReader(doc)}
}

func request(format, keys, doc string) (Request, *trackedBody) {
	b := body(doc)
	return Request{GraphID: testGraph, Format: format, KeySpec: keys, Body: b}, b
}

// shape is a comparable rendering of a graph: vertices by document id and
// edges as "source -label-> target" with their properties.
type shape struct {
	vertices map[string]string
	edges    []string
}

func renderProps(props map[string]storage.Value) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s:%s", k, props[k].Type, props[k].String()))
	}
	return strings.Join(parts, ";")
}

// decodedShape decodes doc directly, without touching a store.
func decodedShape(t *testing.T, format, doc string) shape {
	t.Helper()
	dec, err := codec.DefaultRegistry().Resolve(format)
	require.NoError(t, err)

	s := shape{vertices: make(map[string]string)}
	err = dec.Decode(context.Background(), strings.NewReader(doc), codec.SinkFunc(func(e codec.Element) error {
		switch el := e.(type) {
		case *codec.Vertex:
			s.vertices[el.ID] = renderProps(el.Properties)
		case *codec.Edge:
			label := el.Label
			if label == "" {
				label = codec.DefaultEdgeLabel
			}
			s.edges = append(s.edges, fmt.Sprintf("%s -%s-> %s {%s}", el.Source, label, el.Target, renderProps(el.Properties)))
		}
		return nil
	}))
	require.NoError(t, err)
	sort.Strings(s.edges)
	return s
}

// storedShape renders what the store holds.
func storedShape(t *testing.T, gs *storage.GraphStorage) shape {
	t.Helper()
	s := shape{vertices: make(map[string]string)}
	ext := make(map[uint64]string)
	for _, n := range gs.Nodes() {
		ext[n.ID] = n.ExternalID
		s.vertices[n.ExternalID] = renderProps(n.Properties)
	}
	for _, e := range gs.Edges() {
		s.edges = append(s.edges, fmt.Sprintf("%s -%s-> %s {%s}", ext[e.FromNodeID], e.Label, ext[e.ToNodeID], renderProps(e.Properties)))
	}
	sort.Strings(s.edges)
	return s
}
