package codec

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/dd0wney/cluso-ingest/pkg/storage"
)

// GraphMLDecoder reads GraphML. <key> declarations with an attr.type are
// reported to a KeyDeclarer and their <data> values are parsed to that type;
// <default> values fill in missing data. An edge's label comes from its
// "label" attribute, or from a "label" data value when the attribute is
// absent.
type GraphMLDecoder struct{}

type graphMLKey struct {
	id       string
	name     string
	domain   string // node, edge, all, graph
	typeName string
	def      *string
}

func (k *graphMLKey) appliesTo(domain string) bool {
	return k.domain == "" || k.domain == "all" || k.domain == domain
}

// Decode implements Decoder.
func (GraphMLDecoder) Decode(ctx context.Context, r io.Reader, sink Sink) error {
	dec := xml.NewDecoder(r)
	fail := func(err error) error {
		line, _ := dec.InputPos()
		return decodeErr(FormatGraphML, line, err)
	}

	keys := make(map[string]*graphMLKey)
	var (
		keyOrder   []*graphMLKey
		curKey     *graphMLKey
		vertex     *Vertex
		edge       *Edge
		labelAttr  bool
		dataKey    *graphMLKey
		inText     bool
		text       strings.Builder
		props      map[string]storage.Value
		curElement string
		sawRoot    bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "graphml":
				sawRoot = true
			case "key":
				k := &graphMLKey{
					id:       attr(t, "id"),
					name:     attr(t, "attr.name"),
					domain:   attr(t, "for"),
					typeName: strings.ToLower(attr(t, "attr.type")),
				}
				if k.id == "" {
					return fail(fmt.Errorf("<key> without id"))
				}
				if k.name == "" {
					k.name = k.id
				}
				keys[k.id] = k
				keyOrder = append(keyOrder, k)
				curKey = k
				if pt, ok := declaredType(k.typeName); ok && k.domain != "graph" {
					if err := declare(sink, k.name, pt); err != nil {
						return fail(err)
					}
				}
			case "default":
				if curKey != nil {
					inText = true
					text.Reset()
				}
			case "node":
				if err := ctx.Err(); err != nil {
					return fail(err)
				}
				id := attr(t, "id")
				if id == "" {
					return fail(fmt.Errorf("<node> without id"))
				}
				props = make(map[string]storage.Value)
				vertex = &Vertex{ID: id, Properties: props}
				curElement = "node"
			case "edge":
				if err := ctx.Err(); err != nil {
					return fail(err)
				}
				source, target := attr(t, "source"), attr(t, "target")
				if source == "" || target == "" {
					return fail(fmt.Errorf("<edge> without source or target"))
				}
				props = make(map[string]storage.Value)
				edge = &Edge{ID: attr(t, "id"), Label: attr(t, "label"), Source: source, Target: target, Properties: props}
				labelAttr = edge.Label != ""
				curElement = "edge"
			case "data":
				if curElement == "" {
					// graph-level data
					continue
				}
				id := attr(t, "key")
				k, ok := keys[id]
				if !ok {
					k = &graphMLKey{id: id, name: id}
				}
				dataKey = k
				inText = true
				text.Reset()
			}

		case xml.CharData:
			if inText {
				text.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "default":
				if curKey != nil && inText {
					def := text.String()
					curKey.def = &def
				}
				inText = false
			case "key":
				curKey = nil
			case "data":
				if dataKey == nil {
					continue
				}
				raw := text.String()
				inText = false
				if edge != nil && !labelAttr && dataKey.name == "label" {
					edge.Label = raw
				} else {
					val, _, _, err := typedValue(dataKey.typeName, raw)
					if err != nil {
						return fail(fmt.Errorf("data %q: %w", dataKey.name, err))
					}
					props[dataKey.name] = val
				}
				dataKey = nil
			case "node":
				if vertex == nil {
					continue
				}
				if err := applyDefaults(keyOrder, "node", props); err != nil {
					return fail(err)
				}
				if err := sink.Put(vertex); err != nil {
					return fail(err)
				}
				vertex, curElement = nil, ""
			case "edge":
				if edge == nil {
					continue
				}
				if err := applyDefaults(keyOrder, "edge", props); err != nil {
					return fail(err)
				}
				if edge.Label == "" {
					edge.Label = DefaultEdgeLabel
				}
				if err := sink.Put(edge); err != nil {
					return fail(err)
				}
				edge, curElement = nil, ""
			}
		}
	}

	if vertex != nil || edge != nil {
		return fail(io.ErrUnexpectedEOF)
	}
	if !sawRoot {
		return fail(fmt.Errorf("no <graphml> element"))
	}
	return nil
}

func applyDefaults(keys []*graphMLKey, domain string, props map[string]storage.Value) error {
	for _, k := range keys {
		if k.def == nil || !k.appliesTo(domain) {
			continue
		}
		if _, ok := props[k.name]; ok {
			continue
		}
		val, _, _, err := typedValue(k.typeName, *k.def)
		if err != nil {
			return fmt.Errorf("default for %q: %w", k.name, err)
		}
		props[k.name] = val
	}
	return nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
