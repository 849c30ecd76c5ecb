package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dd0wney/cluso-ingest/pkg/ingest"
	"github.com/dd0wney/cluso-ingest/pkg/logging"
)

// Multipart field names of a file import.
const (
	fieldFormat     = "format"
	fieldSearchKeys = "searchkeys"
	fieldFile       = "file"
)

// handleFileImport streams an uploaded document into a graph. The reply is
// the import Result with its status code: 200 committed, 400 bad request or
// bad document, 404 unknown graph.
func (s *Server) handleFileImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(defaultMaxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			s.logger.Warn("failed to remove multipart temp files", logging.Error(err))
		}
	}()

	req := ingest.Request{
		GraphID: mux.Vars(r)["graphId"],
		Format:  r.FormValue(fieldFormat),
		KeySpec: r.FormValue(fieldSearchKeys),
	}
	// A missing file leaves Body nil, which the importer rejects as a
	// validation error.
	if file, _, err := r.FormFile(fieldFile); err == nil {
		req.Body = file
	} else if !errors.Is(err, http.ErrMissingFile) {
		s.respondError(w, http.StatusBadRequest, "invalid file field: "+err.Error())
		return
	}

	res := s.importer.Import(r.Context(), req)
	s.respondJSON(w, res.Code, res)
}
