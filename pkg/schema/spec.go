package schema

import (
	"strings"

	"github.com/dd0wney/cluso-ingest/pkg/storage"
	"github.com/dd0wney/cluso-ingest/pkg/validation"
)

// KeyDefinition is one requested key: a name and its type.
type KeyDefinition struct {
	Name string
	Type storage.PropertyType
}

// ParseKeySpec parses "name=type,name2=type2". A blank spec yields no
// definitions and trailing blank segments ("name=text,") are dropped. Each
// segment is split on its first "="; surrounding whitespace is ignored and
// type tokens are case-sensitive. The whole spec
// is rejected on the first bad segment, so nothing is provisioned from a
// partially valid list.
func ParseKeySpec(spec string) ([]KeyDefinition, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}

	segments := strings.Split(spec, ",")
	for len(segments) > 0 && strings.TrimSpace(segments[len(segments)-1]) == "" {
		segments = segments[:len(segments)-1]
	}
	if len(segments) == 0 {
		return nil, nil
	}
	defs := make([]KeyDefinition, 0, len(segments))
	for _, segment := range segments {
		name, token, ok := strings.Cut(segment, "=")
		if !ok {
			return nil, &MalformedSpecError{Segment: segment, Reason: `expected "name=type"`}
		}
		name = strings.TrimSpace(name)
		token = strings.TrimSpace(token)

		if err := validation.ValidatePropertyKey(name); err != nil {
			return nil, &MalformedSpecError{Segment: segment, Reason: err.Error()}
		}
		t, ok := storage.ParsePropertyType(token)
		if !ok {
			return nil, &UnknownTypeError{Key: name, Token: token}
		}
		defs = append(defs, KeyDefinition{Name: name, Type: t})
	}
	return defs, nil
}
