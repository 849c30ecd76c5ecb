package codec

import (
	"github.com/dd0wney/cluso-ingest/pkg/storage"
)

// Element is a decoded vertex or edge. The set is closed: only *Vertex
// and *Edge implement it.
type Element interface {
	isElement()
}

// Vertex is a decoded vertex. ID is the identifier used by the source
// document; it need not be numeric.
type Vertex struct {
	ID         string
	Properties map[string]storage.Value
}

// Edge is a decoded, labelled edge between two document vertex IDs.
type Edge struct {
	ID         string
	Label      string
	Source     string
	Target     string
	Properties map[string]storage.Value
}

func (*Vertex) isElement() {}
func (*Edge) isElement()   {}

// DefaultEdgeLabel is used when a document gives an edge no label.
const DefaultEdgeLabel = "_default"

// Sink receives elements as a decoder produces them. An error from Put
// stops decoding.
type Sink interface {
	Put(Element) error
}

// KeyDeclaration is a typed property declaration found in a schema-rich
// document (GraphSON EXTENDED values, GraphML <key attr.type>).
type KeyDeclaration struct {
	Name string
	Type storage.PropertyType
}

// KeyDeclarer is implemented by sinks that want to see typed property
// declarations. Decoders report each declaration before the first element
// that uses it.
type KeyDeclarer interface {
	DeclareKey(KeyDeclaration) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Element) error

// Put calls f(e).
func (f SinkFunc) Put(e Element) error {
	return f(e)
}

func declare(sink Sink, name string, t storage.PropertyType) error {
	if d, ok := sink.(KeyDeclarer); ok {
		return d.DeclareKey(KeyDeclaration{Name: name, Type: t})
	}
	return nil
}
