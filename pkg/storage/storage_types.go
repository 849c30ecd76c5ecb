package storage

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-ingest/pkg/logging"
	"github.com/dd0wney/cluso-ingest/pkg/wal"
)

// GraphStorage holds one logical graph: its property-key schema, its
// elements and the WAL that makes committed transactions durable.
type GraphStorage struct {
	name string

	// Core data structures
	nodes map[uint64]*Node
	edges map[uint64]*Edge

	// Indexes for fast lookups
	edgesByLabel    map[string][]uint64       // edge label -> edge IDs
	outgoingEdges   map[uint64][]uint64       // node ID -> outgoing edge IDs
	incomingEdges   map[uint64][]uint64       // node ID -> incoming edge IDs
	propertyKeys    map[string]*PropertyKey   // schema
	propertyIndexes map[string]*PropertyIndex // indexed key -> index

	// ID generators, accessed atomically
	nextNodeID  uint64
	nextEdgeID  uint64
	txIDCounter uint64

	// mu guards the maps above. schemaMu serialises schema provisioning
	// and is never taken while mu is held.
	mu       sync.RWMutex
	schemaMu sync.Mutex
	closed   bool

	dataDir string
	wal     wal.WriteAheadLog
	logger  logging.Logger

	stats Statistics
}

// StorageConfig holds configuration for GraphStorage
type StorageConfig struct {
	Name        string
	DataDir     string
	CompressWAL bool
	Logger      logging.Logger
}

// Statistics tracks graph statistics
type Statistics struct {
	NodeCount    uint64
	EdgeCount    uint64
	KeyCount     uint64
	Commits      uint64
	Rollbacks    uint64
	LastCommitAt time.Time
}
