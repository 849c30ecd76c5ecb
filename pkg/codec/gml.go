package codec

import (
	"context"
	"fmt"
	"io"

	"github.com/dd0wney/cluso-ingest/pkg/storage"
)

// GMLDecoder reads Graph Modelling Language:
//
//	graph [
//	  directed 1
//	  node [ id 1 name "marko" age 29 ]
//	  edge [ source 1 target 2 label "knows" weight 0.5 ]
//	]
//
// A node's "id" and an edge's "source", "target", "id" and "label" are
// structural; other scalar attributes become properties and nested lists
// (graphics and the like) are skipped.
type GMLDecoder struct{}

type gmlParser struct {
	ctx  context.Context
	lex  *gmlLexer
	sink Sink
	tok  gmlToken
}

// Decode implements Decoder.
func (GMLDecoder) Decode(ctx context.Context, r io.Reader, sink Sink) error {
	p := &gmlParser{ctx: ctx, lex: newGMLLexer(r), sink: sink}
	if err := p.parse(); err != nil {
		return decodeErr(FormatGML, p.tok.Line, err)
	}
	return nil
}

func (p *gmlParser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *gmlParser) expect(t gmlTokenType) error {
	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.Type != t {
		return fmt.Errorf("expected %s, got %s %q", t, p.tok.Type, p.tok.Value)
	}
	return nil
}

func (p *gmlParser) parse() error {
	sawGraph := false
	for {
		if err := p.advance(); err != nil {
			return err
		}
		switch p.tok.Type {
		case gmlEOF:
			if !sawGraph {
				return fmt.Errorf("no graph [ ... ] section")
			}
			return nil
		case gmlKey:
		default:
			return fmt.Errorf("expected key, got %s %q", p.tok.Type, p.tok.Value)
		}

		if p.tok.Value == "graph" {
			if err := p.expect(gmlOpen); err != nil {
				return err
			}
			if err := p.parseGraph(); err != nil {
				return err
			}
			sawGraph = true
			continue
		}
		if err := p.skipValue(); err != nil {
			return err
		}
	}
}

func (p *gmlParser) parseGraph() error {
	for {
		if err := p.advance(); err != nil {
			return err
		}
		switch p.tok.Type {
		case gmlClose:
			return nil
		case gmlKey:
		default:
			return fmt.Errorf("expected key or ']', got %s %q", p.tok.Type, p.tok.Value)
		}

		switch p.tok.Value {
		case "node", "edge":
			isEdge := p.tok.Value == "edge"
			if err := p.ctx.Err(); err != nil {
				return err
			}
			if err := p.expect(gmlOpen); err != nil {
				return err
			}
			attrs, err := p.parseElement()
			if err != nil {
				return err
			}
			el, err := gmlElement(attrs, isEdge)
			if err != nil {
				return err
			}
			if err := p.sink.Put(el); err != nil {
				return err
			}
		default:
			if err := p.skipValue(); err != nil {
				return err
			}
		}
	}
}

// parseElement reads scalar attributes up to the closing ']'.
func (p *gmlParser) parseElement() (map[string]gmlToken, error) {
	attrs := make(map[string]gmlToken)
	for {
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch p.tok.Type {
		case gmlClose:
			return attrs, nil
		case gmlKey:
		default:
			return nil, fmt.Errorf("expected key or ']', got %s %q", p.tok.Type, p.tok.Value)
		}
		key := p.tok.Value

		if err := p.advance(); err != nil {
			return nil, err
		}
		switch p.tok.Type {
		case gmlInt, gmlReal, gmlString:
			attrs[key] = p.tok
		case gmlOpen:
			if err := p.skipList(); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("missing value for %q", key)
		}
	}
}

// skipValue consumes the value following a key.
func (p *gmlParser) skipValue() error {
	if err := p.advance(); err != nil {
		return err
	}
	switch p.tok.Type {
	case gmlInt, gmlReal, gmlString:
		return nil
	case gmlOpen:
		return p.skipList()
	default:
		return fmt.Errorf("missing value, got %s", p.tok.Type)
	}
}

// skipList consumes tokens up to the ']' matching an already-read '['.
func (p *gmlParser) skipList() error {
	depth := 1
	for depth > 0 {
		if err := p.advance(); err != nil {
			return err
		}
		switch p.tok.Type {
		case gmlOpen:
			depth++
		case gmlClose:
			depth--
		case gmlEOF:
			return io.ErrUnexpectedEOF
		}
	}
	return nil
}

func gmlElement(attrs map[string]gmlToken, isEdge bool) (Element, error) {
	take := func(key string) (string, bool) {
		tok, ok := attrs[key]
		if ok {
			delete(attrs, key)
		}
		return tok.Value, ok
	}

	if isEdge {
		source, ok1 := take("source")
		target, ok2 := take("target")
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("edge without source or target")
		}
		id, _ := take("id")
		label, _ := take("label")
		if label == "" {
			label = DefaultEdgeLabel
		}
		edge := &Edge{ID: id, Label: label, Source: source, Target: target}
		edge.Properties = make(map[string]storage.Value, len(attrs))
		for k, tok := range attrs {
			val, err := gmlValue(tok)
			if err != nil {
				return nil, fmt.Errorf("edge attribute %q: %w", k, err)
			}
			edge.Properties[k] = val
		}
		return edge, nil
	}

	id, ok := take("id")
	if !ok {
		return nil, fmt.Errorf("node without id")
	}
	vertex := &Vertex{ID: id, Properties: make(map[string]storage.Value, len(attrs))}
	for k, tok := range attrs {
		val, err := gmlValue(tok)
		if err != nil {
			return nil, fmt.Errorf("node %s attribute %q: %w", id, k, err)
		}
		vertex.Properties[k] = val
	}
	return vertex, nil
}

func gmlValue(tok gmlToken) (storage.Value, error) {
	switch tok.Type {
	case gmlInt, gmlReal:
		return numberValue(tok.Value)
	default:
		return storage.StringValue(tok.Value), nil
	}
}
