package storage

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PropertyType is the declared data type of a property key.
type PropertyType uint8

const (
	Text PropertyType = iota + 1
	Integer
	Float
	Double
	GeoCoordinate
)

var propertyTypeTokens = map[string]PropertyType{
	"text":          Text,
	"integer":       Integer,
	"float":         Float,
	"double":        Double,
	"geocoordinate": GeoCoordinate,
}

// ParsePropertyType resolves a case-sensitive type token.
func ParsePropertyType(token string) (PropertyType, bool) {
	t, ok := propertyTypeTokens[token]
	return t, ok
}

// PropertyTypeTokens lists the accepted type tokens in declaration order.
func PropertyTypeTokens() []string {
	return []string{"text", "integer", "float", "double", "geocoordinate"}
}

// String returns the token the type is parsed from.
func (p PropertyType) String() string {
	switch p {
	case Text:
		return "text"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Double:
		return "double"
	case GeoCoordinate:
		return "geocoordinate"
	default:
		return fmt.Sprintf("PropertyType(%d)", uint8(p))
	}
}

// ValueType is the storage encoding used for values of this key.
func (p PropertyType) ValueType() ValueType {
	switch p {
	case Integer:
		return TypeInt
	case Float:
		return TypeFloat
	case Double:
		return TypeDouble
	case GeoCoordinate:
		return TypeGeo
	default:
		return TypeString
	}
}

// Valid reports whether p is one of the declared constants.
func (p PropertyType) Valid() bool {
	return p >= Text && p <= GeoCoordinate
}

// ReservedKeys are element identifiers that can never become property keys.
var ReservedKeys = []string{"id", "_id"}

// IsReservedKey reports whether name is a reserved identifier.
func IsReservedKey(name string) bool {
	for _, r := range ReservedKeys {
		if name == r {
			return true
		}
	}
	return false
}

// PropertyKey is a schema entry: a named, typed, optionally indexed key.
type PropertyKey struct {
	Name      string       `json:"name"`
	DataType  PropertyType `json:"dataType"`
	Indexed   bool         `json:"indexed"`
	CreatedAt int64        `json:"createdAt"`
}

// Coerce converts v to the encoding required by a key of type t.
// It returns ErrTypeMismatch when no lossless conversion exists.
func Coerce(t PropertyType, v Value) (Value, error) {
	if v.Type == t.ValueType() {
		return v, nil
	}

	mismatch := func() (Value, error) {
		return Value{}, fmt.Errorf("%w: cannot store %s value %q as %s", ErrTypeMismatch, v.Type, v.String(), t)
	}

	switch t {
	case Text:
		return StringValue(v.String()), nil

	case Integer:
		switch v.Type {
		case TypeString:
			i, err := strconv.ParseInt(strings.TrimSpace(string(v.Data)), 10, 64)
			if err != nil {
				return mismatch()
			}
			return IntValue(i), nil
		case TypeFloat, TypeDouble:
			f := toFloat64(v)
			if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) || math.Abs(f) > 1<<53 {
				return mismatch()
			}
			return IntValue(int64(f)), nil
		}

	case Float, Double:
		var f float64
		switch v.Type {
		case TypeString:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(string(v.Data)), 64)
			if err != nil {
				return mismatch()
			}
			f = parsed
		case TypeInt:
			i, _ := v.AsInt()
			f = float64(i)
		case TypeFloat, TypeDouble:
			f = toFloat64(v)
		default:
			return mismatch()
		}
		if t == Float {
			return FloatValue(float32(f)), nil
		}
		return DoubleValue(f), nil

	case GeoCoordinate:
		if v.Type == TypeString {
			g, err := ParseGeo(string(v.Data))
			if err != nil {
				return mismatch()
			}
			return GeoValue(g.Lat, g.Lon), nil
		}
	}
	return mismatch()
}

// ParseGeo parses "lat,lon" in decimal degrees.
func ParseGeo(s string) (Geo, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Geo{}, fmt.Errorf("geo point %q: expected \"lat,lon\"", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Geo{}, fmt.Errorf("geo point %q: latitude: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Geo{}, fmt.Errorf("geo point %q: longitude: %w", s, err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Geo{}, fmt.Errorf("geo point %q: out of range", s)
	}
	return Geo{Lat: lat, Lon: lon}, nil
}

func toFloat64(v Value) float64 {
	if f, err := v.AsDouble(); err == nil {
		return f
	}
	if f, err := v.AsFloat(); err == nil {
		return float64(f)
	}
	return math.NaN()
}

// MarshalText encodes the type as its token.
func (p PropertyType) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPropertyType, uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a type token.
func (p *PropertyType) UnmarshalText(text []byte) error {
	t, ok := ParsePropertyType(string(text))
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPropertyType, text)
	}
	*p = t
	return nil
}
