package codec

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

// Decoder streams one document format into a Sink. Implementations must
// not buffer the whole document and must check ctx between elements.
type Decoder interface {
	Decode(ctx context.Context, r io.Reader, sink Sink) error
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(ctx context.Context, r io.Reader, sink Sink) error

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, r io.Reader, sink Sink) error {
	return f(ctx, r, sink)
}

// Format identifiers
const (
	FormatGraphSON       = "graphson"
	FormatFaunusGraphSON = "faunusgraphson"
	FormatGraphML        = "graphml"
	FormatGML            = "gml"
)

// Registry maps case-insensitive format identifiers to decoders.
type Registry struct {
	decoders map[string]Decoder
	mu       sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// DefaultRegistry returns a registry with every built-in format.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(FormatGraphSON, GraphSONDecoder{})
	r.Register(FormatFaunusGraphSON, FaunusGraphSONDecoder{})
	r.Register(FormatGraphML, GraphMLDecoder{})
	r.Register(FormatGML, GMLDecoder{})
	return r
}

// Register adds or replaces the decoder for a format.
func (r *Registry) Register(format string, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[strings.ToLower(strings.TrimSpace(format))] = d
}

// Resolve returns the decoder for format, or *UnsupportedFormatError.
func (r *Registry) Resolve(format string) (Decoder, error) {
	r.mu.RLock()
	d, ok := r.decoders[strings.ToLower(strings.TrimSpace(format))]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnsupportedFormatError{Format: format, Supported: r.Formats()}
	}
	return d, nil
}

// Formats lists the registered identifiers in order.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.decoders))
	for f := range r.decoders {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
