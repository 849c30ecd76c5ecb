package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// ValueType represents the type of a property value
type ValueType uint8

const (
	TypeString ValueType = iota
	TypeInt
	TypeFloat  // single precision
	TypeDouble // double precision
	TypeBool
	TypeGeo // latitude/longitude point
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeBool:
		return "bool"
	case TypeGeo:
		return "geo"
	default:
		return fmt.Sprintf("ValueType(%d)", uint8(t))
	}
}

// Value represents a typed property value
type Value struct {
	Type ValueType
	Data []byte
}

// Geo is a point on the globe in decimal degrees.
type Geo struct {
	Lat float64
	Lon float64
}

func (g Geo) String() string {
	return strconv.FormatFloat(g.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(g.Lon, 'f', -1, 64)
}

// Helper functions to create typed values
func StringValue(s string) Value {
	return Value{Type: TypeString, Data: []byte(s)}
}

func IntValue(i int64) Value {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, uint64(i))
	return Value{Type: TypeInt, Data: data}
}

func FloatValue(f float32) Value {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, math.Float32bits(f))
	return Value{Type: TypeFloat, Data: data}
}

func DoubleValue(f float64) Value {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, math.Float64bits(f))
	return Value{Type: TypeDouble, Data: data}
}

func BoolValue(b bool) Value {
	data := []byte{0}
	if b {
		data[0] = 1
	}
	return Value{Type: TypeBool, Data: data}
}

func GeoValue(lat, lon float64) Value {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint64(data[0:8], math.Float64bits(lat))
	binary.LittleEndian.PutUint64(data[8:16], math.Float64bits(lon))
	return Value{Type: TypeGeo, Data: data}
}

// Decode methods
func (v Value) AsString() (string, error) {
	if v.Type != TypeString {
		return "", fmt.Errorf("value is not a string")
	}
	return string(v.Data), nil
}

func (v Value) AsInt() (int64, error) {
	if v.Type != TypeInt || len(v.Data) != 8 {
		return 0, fmt.Errorf("value is not an int")
	}
	return int64(binary.LittleEndian.Uint64(v.Data)), nil
}

func (v Value) AsFloat() (float32, error) {
	if v.Type != TypeFloat || len(v.Data) != 4 {
		return 0, fmt.Errorf("value is not a float")
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(v.Data)), nil
}

func (v Value) AsDouble() (float64, error) {
	if v.Type != TypeDouble || len(v.Data) != 8 {
		return 0, fmt.Errorf("value is not a double")
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(v.Data)), nil
}

func (v Value) AsBool() (bool, error) {
	if v.Type != TypeBool || len(v.Data) != 1 {
		return false, fmt.Errorf("value is not a bool")
	}
	return v.Data[0] == 1, nil
}

func (v Value) AsGeo() (Geo, error) {
	if v.Type != TypeGeo || len(v.Data) != 16 {
		return Geo{}, fmt.Errorf("value is not a geo point")
	}
	return Geo{
		Lat: math.Float64frombits(binary.LittleEndian.Uint64(v.Data[0:8])),
		Lon: math.Float64frombits(binary.LittleEndian.Uint64(v.Data[8:16])),
	}, nil
}

// Interface returns the Go representation of the value: string, int64,
// float32, float64, bool or Geo. Malformed values yield nil.
func (v Value) Interface() any {
	var (
		out any
		err error
	)
	switch v.Type {
	case TypeString:
		out, err = v.AsString()
	case TypeInt:
		out, err = v.AsInt()
	case TypeFloat:
		out, err = v.AsFloat()
	case TypeDouble:
		out, err = v.AsDouble()
	case TypeBool:
		out, err = v.AsBool()
	case TypeGeo:
		out, err = v.AsGeo()
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return out
}

// Equal reports whether two values have the same type and encoding.
func (v Value) Equal(other Value) bool {
	return v.Type == other.Type && string(v.Data) == string(other.Data)
}

func (v Value) String() string {
	switch x := v.Interface().(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// Node represents a vertex in the graph
type Node struct {
	ID         uint64
	ExternalID string // identifier the vertex carried in its source document
	Properties map[string]Value
	CreatedAt  int64
}

// Edge represents a labelled relationship between nodes
type Edge struct {
	ID         uint64
	ExternalID string
	FromNodeID uint64
	ToNodeID   uint64
	Label      string
	Properties map[string]Value
	CreatedAt  int64
}

// Clone creates a deep copy of a node
func (n *Node) Clone() *Node {
	clone := *n
	clone.Properties = make(map[string]Value, len(n.Properties))
	for k, v := range n.Properties {
		clone.Properties[k] = v
	}
	return &clone
}

// GetProperty gets a property value
func (n *Node) GetProperty(key string) (Value, bool) {
	val, ok := n.Properties[key]
	return val, ok
}

// Clone creates a deep copy of an edge
func (e *Edge) Clone() *Edge {
	clone := *e
	clone.Properties = make(map[string]Value, len(e.Properties))
	for k, v := range e.Properties {
		clone.Properties[k] = v
	}
	return &clone
}

// GetProperty gets a property value
func (e *Edge) GetProperty(key string) (Value, bool) {
	val, ok := e.Properties[key]
	return val, ok
}
