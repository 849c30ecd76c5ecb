package api

import (
	"time"

	"github.com/dd0wney/cluso-ingest/pkg/metagraph"
	"github.com/dd0wney/cluso-ingest/pkg/storage"
)

// ErrorResponse is the body of every non-import error. It uses the same
// status/msg keys as an import Result.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"msg"`
}

// CreateGraphRequest is the body of POST /api/graphs
type CreateGraphRequest struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

// KeyResponse describes one schema key
type KeyResponse struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Indexed bool   `json:"indexed"`
}

// GraphResponse describes a graph and its contents
type GraphResponse struct {
	ID          string        `json:"id"`
	Description string        `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	Vertices    uint64        `json:"vertices"`
	Edges       uint64        `json:"edges"`
	Commits     uint64        `json:"commits"`
	Rollbacks   uint64        `json:"rollbacks"`
	Keys        []KeyResponse `json:"keys"`
}

// GraphListResponse is the body of GET /api/graphs
type GraphListResponse struct {
	Graphs []GraphResponse `json:"graphs"`
	Count  int             `json:"count"`
}

// VersionResponse is the body of GET /api/version
type VersionResponse struct {
	Version string   `json:"version"`
	Formats []string `json:"formats"`
	Uptime  string   `json:"uptime"`
}

func graphResponse(info *metagraph.GraphInfo) GraphResponse {
	keys := make([]KeyResponse, 0, len(info.Keys))
	for _, k := range info.Keys {
		keys = append(keys, keyResponse(k))
	}
	return GraphResponse{
		ID:          info.ID,
		Description: info.Description,
		CreatedAt:   time.UnixMilli(info.CreatedAt).UTC(),
		Vertices:    info.Vertices,
		Edges:       info.Edges,
		Commits:     info.Commits,
		Rollbacks:   info.Rollbacks,
		Keys:        keys,
	}
}

func keyResponse(k storage.PropertyKey) KeyResponse {
	return KeyResponse{Name: k.Name, Type: k.DataType.String(), Indexed: k.Indexed}
}
