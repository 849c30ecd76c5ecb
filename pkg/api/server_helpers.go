package api

import (
	"encoding/json"
	"net/http"

	"github.com/dd0wney/cluso-ingest/pkg/ingest"
	"github.com/dd0wney/cluso-ingest/pkg/logging"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Status:  ingest.StatusError,
		Message: message,
	})
}
