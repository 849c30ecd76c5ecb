package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dd0wney/cluso-ingest/pkg/logging"
	"github.com/dd0wney/cluso-ingest/pkg/metagraph"
)

func (s *Server) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	var req CreateGraphRequest
	rd := s.NewRequestDecoder(w, r).DecodeJSON(&req).ValidateGraph(&req)
	if rd.RespondError() {
		return
	}

	if _, err := s.graphs.Create(req.ID, req.Description); err != nil {
		switch {
		case errors.Is(err, metagraph.ErrGraphExists):
			s.respondError(w, http.StatusConflict, "graph '"+req.ID+"' already exists")
		case errors.Is(err, metagraph.ErrInvalidGraphID):
			s.respondError(w, http.StatusBadRequest, err.Error())
		default:
			s.respondError(w, http.StatusInternalServerError, sanitizeError(s.logger, err, "create graph"))
		}
		return
	}

	info, err := s.graphs.Info(req.ID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, sanitizeError(s.logger, err, "create graph"))
		return
	}
	s.logger.Info("graph created", logging.GraphID(req.ID))
	s.respondJSON(w, http.StatusCreated, graphResponse(info))
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	infos := s.graphs.List()

	resp := GraphListResponse{Graphs: make([]GraphResponse, 0, len(infos))}
	for _, info := range infos {
		resp.Graphs = append(resp.Graphs, graphResponse(info))
	}
	resp.Count = len(resp.Graphs)
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["graphId"]
	info, err := s.graphs.Info(id)
	if err != nil {
		if errors.Is(err, metagraph.ErrGraphNotFound) {
			s.respondError(w, http.StatusNotFound, "cannot find graph '"+id+"'")
			return
		}
		s.respondError(w, http.StatusInternalServerError, sanitizeError(s.logger, err, "get graph"))
		return
	}
	s.respondJSON(w, http.StatusOK, graphResponse(info))
}
