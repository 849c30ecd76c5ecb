package metagraph

import (
	"errors"

	"github.com/dd0wney/cluso-ingest/pkg/storage"
)

// Errors for graph registry operations
var (
	ErrGraphNotFound  = errors.New("graph not found")
	ErrGraphExists    = errors.New("graph already exists")
	ErrInvalidGraphID = errors.New("invalid graph ID")
	ErrManagerClosed  = errors.New("graph manager is closed")
)

// metaFile holds a graph's descriptor inside its directory.
const metaFile = "graph.json"

// Graph describes a registered graph.
type Graph struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// GraphInfo is a graph's descriptor with its current contents.
type GraphInfo struct {
	Graph
	Vertices  uint64                `json:"vertices"`
	Edges     uint64                `json:"edges"`
	Commits   uint64                `json:"commits"`
	Rollbacks uint64                `json:"rollbacks"`
	Keys      []storage.PropertyKey `json:"keys"`

	WALBytesWritten uint64 `json:"wal_bytes_written"`
}

// Config configures a Manager.
type Config struct {
	// DataDir is the root directory; graphs live in DataDir/graphs/<id>.
	DataDir     string
	CompressWAL bool
}
