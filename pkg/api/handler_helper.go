package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dd0wney/cluso-ingest/pkg/logging"
	"github.com/dd0wney/cluso-ingest/pkg/validation"
)

// sanitizeError logs err and returns a message that is safe to send to a
// client. Paths and causes stay in the log.
func sanitizeError(logger logging.Logger, err error, operation string) string {
	if err == nil {
		return ""
	}
	logger.Error(operation+" failed", logging.Error(err))
	return operation + " failed"
}

// requestDecoder decodes and validates request bodies.
// It provides a fluent interface for common request handling patterns.
type requestDecoder struct {
	r          *http.Request
	w          http.ResponseWriter
	server     *Server
	err        error
	statusCode int
}

// NewRequestDecoder creates a new request decoder for the given request.
func (s *Server) NewRequestDecoder(w http.ResponseWriter, r *http.Request) *requestDecoder {
	return &requestDecoder{
		r:      r,
		w:      w,
		server: s,
	}
}

// DecodeJSON decodes the request body into v. Unknown fields are rejected.
func (rd *requestDecoder) DecodeJSON(v any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	dec := json.NewDecoder(rd.r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		rd.err = fmt.Errorf("invalid request body: %w", err)
		rd.statusCode = http.StatusBadRequest
	}
	return rd
}

// ValidateGraph validates a create-graph request.
func (rd *requestDecoder) ValidateGraph(req *CreateGraphRequest) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	vr := validation.GraphRequest{ID: req.ID, Description: req.Description}
	if err := validation.ValidateGraphRequest(&vr); err != nil {
		rd.err = fmt.Errorf("invalid request: %w", err)
		rd.statusCode = http.StatusBadRequest
	}
	return rd
}

// HasError returns true if any error occurred during decoding/validation.
func (rd *requestDecoder) HasError() bool {
	return rd.err != nil
}

// RespondError sends the error response and returns true if there was an error.
func (rd *requestDecoder) RespondError() bool {
	if rd.err == nil {
		return false
	}
	rd.server.respondError(rd.w, rd.statusCode, rd.err.Error())
	return true
}
