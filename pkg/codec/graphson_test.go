package codec

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-ingest/pkg/storage"
)

const tinkerGraphSON = `{
  "mode": "NORMAL",
  "vertices": [
    {"name":"marko","age":29,"_id":1,"_type":"vertex"},
    {"name":"vadas","age":27,"_id":2,"_type":"vertex"},
    {"name":"lop","lang":"java","_id":3,"_type":"vertex","tags":["a","b"]}
  ],
  "edges": [
    {"weight":0.5,"_id":7,"_type":"edge","_outV":1,"_inV":2,"_label":"knows"},
    {"weight":0.4,"_id":9,"_type":"edge","_outV":1,"_inV":3,"_label":"created"}
  ]
}`

func TestGraphSON_Normal(t *testing.T) {
	sink := decodeString(t, GraphSONDecoder{}, tinkerGraphSON)

	if len(sink.vertices) != 3 || len(sink.edges) != 2 {
		t.Fatalf("decoded %d vertices, %d edges; want 3, 2", len(sink.vertices), len(sink.edges))
	}

	marko := sink.vertex(t, "1")
	assertString(t, marko.Properties, "name", "marko")
	assertInt(t, marko.Properties, "age", 29)
	if _, ok := marko.Properties["_type"]; ok {
		t.Error("structural keys must not become properties")
	}
	assertString(t, sink.vertex(t, "3").Properties, "tags", `["a","b"]`)

	knows := sink.edges[0]
	if knows.ID != "7" || knows.Source != "1" || knows.Target != "2" || knows.Label != "knows" {
		t.Errorf("Unexpected edge: %+v", knows)
	}
	assertDouble(t, knows.Properties, "weight", 0.5)

	if len(sink.decls) != 0 {
		t.Errorf("NORMAL mode should declare no keys, got %v", sink.decls)
	}
}

func TestGraphSON_Extended(t *testing.T) {
	doc := `{"mode":"EXTENDED","vertices":[
	  {"_id":"1","name":{"type":"string","value":"marko"},"age":{"type":"integer","value":29},
	   "score":{"type":"float","value":1.5},"active":{"type":"boolean","value":true}},
	  {"_id":"2","name":{"type":"string","value":"vadas"},"age":{"type":"long","value":27}}
	],"edges":[
	  {"_id":"7","_outV":"1","_inV":"2","_label":"knows","weight":{"type":"double","value":0.5}}
	]}`
	sink := decodeString(t, GraphSONDecoder{}, doc)

	got := map[string]storage.PropertyType{}
	for _, d := range sink.decls {
		if _, dup := got[d.Name]; dup {
			t.Errorf("key %s declared twice", d.Name)
		}
		got[d.Name] = d.Type
	}
	want := map[string]storage.PropertyType{
		"name": storage.Text, "age": storage.Integer, "score": storage.Float, "weight": storage.Double,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("declared %s = %v, want %v", k, got[k], v)
		}
	}
	if _, ok := got["active"]; ok {
		t.Error("boolean properties have no key type and must not be declared")
	}

	marko := sink.vertex(t, "1")
	assertInt(t, marko.Properties, "age", 29)
	if f, err := marko.Properties["score"].AsFloat(); err != nil || f != 1.5 {
		t.Errorf("score = %v, %v", f, err)
	}
	if b, err := marko.Properties["active"].AsBool(); err != nil || !b {
		t.Errorf("active = %v, %v", b, err)
	}
	assertDouble(t, sink.edges[0].Properties, "weight", 0.5)
}

func TestGraphSON_Compact(t *testing.T) {
	doc := `{"mode":"COMPACT","vertices":[{"_id":"a"},{"_id":"b"}],"edges":[{"_outV":"a","_inV":"b"}]}`
	sink := decodeString(t, GraphSONDecoder{}, doc)

	if len(sink.edges) != 1 || sink.edges[0].Label != DefaultEdgeLabel || sink.edges[0].ID != "" {
		t.Errorf("Unexpected edges: %+v", sink.edges)
	}
}

func TestGraphSON_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"truncated", `{"vertices":[{"_id":1,"name":"marko"}`},
		{"not an object", `[1,2,3]`},
		{"vertex without id", `{"vertices":[{"name":"x"}]}`},
		{"edge without endpoints", `{"vertices":[],"edges":[{"_id":1,"_outV":2}]}`},
		{"bad mode", `{"mode":"FANCY","vertices":[]}`},
		{"extended bad integer", `{"mode":"EXTENDED","vertices":[{"_id":1,"age":{"type":"integer","value":"old"}}]}`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := GraphSONDecoder{}.Decode(context.Background(), strings.NewReader(tt.doc), &collectSink{})
			requireDecodeError(t, err, FormatGraphSON)
		})
	}
}

func TestGraphSON_StopsAtFirstSinkError(t *testing.T) {
	sink := &collectSink{failOn: "2"}
	err := GraphSONDecoder{}.Decode(context.Background(), strings.NewReader(tinkerGraphSON), sink)

	requireDecodeError(t, err, FormatGraphSON)
	if !errors.Is(err, errSinkRejected) {
		t.Errorf("cause should be preserved, got %v", err)
	}
	if len(sink.vertices) != 1 || len(sink.edges) != 0 {
		t.Errorf("decoding should stop at the failing element, got %d vertices", len(sink.vertices))
	}
}

func TestGraphSON_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := GraphSONDecoder{}.Decode(ctx, strings.NewReader(tinkerGraphSON), &collectSink{})
	requireDecodeError(t, err, FormatGraphSON)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled cause, got %v", err)
	}
}
