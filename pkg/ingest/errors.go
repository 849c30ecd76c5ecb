package ingest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dd0wney/cluso-ingest/pkg/codec"
	"github.com/dd0wney/cluso-ingest/pkg/schema"
	"github.com/dd0wney/cluso-ingest/pkg/storage"
)

var (
	ErrDuplicateVertex = errors.New("duplicate vertex id")
	ErrUnknownVertex   = errors.New("edge references unknown vertex")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// NotFoundError reports an import into a graph that does not exist.
type NotFoundError struct {
	GraphID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cannot find graph '%s'", e.GraphID)
}

// StatusCode maps an import error onto an HTTP status code. Errors outside
// the import taxonomy (storage closed, WAL failures) are server errors.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var (
		notFound    *NotFoundError
		invalid     *ValidationError
		unsupported *codec.UnsupportedFormatError
		decode      *codec.DecodeError
		unknownType *schema.UnknownTypeError
		malformed   *schema.MalformedSpecError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalid),
		errors.As(err, &unsupported),
		errors.As(err, &unknownType),
		errors.As(err, &malformed),
		errors.As(err, &decode),
		errors.Is(err, storage.ErrSchemaConflict),
		errors.Is(err, storage.ErrTypeMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorKind is the metrics label for err.
func errorKind(err error) string {
	var (
		notFound    *NotFoundError
		invalid     *ValidationError
		unsupported *codec.UnsupportedFormatError
		decode      *codec.DecodeError
		unknownType *schema.UnknownTypeError
		malformed   *schema.MalformedSpecError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &invalid), errors.As(err, &malformed):
		return "validation"
	case errors.As(err, &unsupported):
		return "unsupported_format"
	case errors.As(err, &unknownType):
		return "unknown_type"
	case errors.As(err, &decode):
		return "decode"
	case errors.Is(err, storage.ErrSchemaConflict):
		return "schema_conflict"
	case errors.Is(err, storage.ErrTypeMismatch):
		return "type_mismatch"
	default:
		return "internal"
	}
}
