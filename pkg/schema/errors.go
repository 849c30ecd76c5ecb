package schema

import (
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-ingest/pkg/storage"
)

// MalformedSpecError reports a key spec segment that is not "name=type".
type MalformedSpecError struct {
	Segment string
	Reason  string
}

func (e *MalformedSpecError) Error() string {
	return fmt.Sprintf("malformed search key %q: %s", e.Segment, e.Reason)
}

// UnknownTypeError reports a type token outside the supported set.
type UnknownTypeError struct {
	Key   string
	Token string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type %q for key %q (expected one of %s)",
		e.Token, e.Key, strings.Join(storage.PropertyTypeTokens(), ", "))
}
