package storage

import (
	"fmt"
	"os"
	"sort"
	"sync/atomic"

	"github.com/dd0wney/cluso-ingest/pkg/logging"
	"github.com/dd0wney/cluso-ingest/pkg/wal"
)

// NewGraphStorage opens a graph in dataDir with default settings
func NewGraphStorage(dataDir string) (*GraphStorage, error) {
	return Open(StorageConfig{DataDir: dataDir})
}

// Open opens (or creates) a graph and replays its WAL.
func Open(config StorageConfig) (*GraphStorage, error) {
	if config.DataDir == "" {
		return nil, fmt.Errorf("storage: data directory is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	gs := &GraphStorage{
		name:            config.Name,
		nodes:           make(map[uint64]*Node),
		edges:           make(map[uint64]*Edge),
		edgesByLabel:    make(map[string][]uint64),
		outgoingEdges:   make(map[uint64][]uint64),
		incomingEdges:   make(map[uint64][]uint64),
		propertyKeys:    make(map[string]*PropertyKey),
		propertyIndexes: make(map[string]*PropertyIndex),
		dataDir:         config.DataDir,
		logger:          logger.With(logging.Component("storage"), logging.GraphID(config.Name)),
	}

	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	w, err := wal.Open(config.DataDir, wal.Options{Compress: config.CompressWAL})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize WAL: %w", err)
	}
	gs.wal = w

	if err := gs.replay(); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to replay WAL: %w", err)
	}

	gs.logger.Debug("graph opened",
		logging.Uint64("nodes", gs.stats.NodeCount),
		logging.Uint64("edges", gs.stats.EdgeCount),
		logging.Uint64("keys", gs.stats.KeyCount))
	return gs, nil
}

// Name returns the graph identifier.
func (gs *GraphStorage) Name() string {
	return gs.name
}

// DataDir returns the directory holding this graph's log.
func (gs *GraphStorage) DataDir() string {
	return gs.dataDir
}

// LockSchema acquires the per-graph schema lock and returns its release
// function. Only schema provisioning should run while it is held.
func (gs *GraphStorage) LockSchema() (unlock func()) {
	gs.schemaMu.Lock()
	return gs.schemaMu.Unlock
}

// GetNode returns a copy of a node
func (gs *GraphStorage) GetNode(nodeID uint64) (*Node, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	if gs.closed {
		return nil, ErrStorageClosed
	}
	node, ok := gs.nodes[nodeID]
	if !ok {
		return nil, NodeNotFoundError(nodeID)
	}
	return node.Clone(), nil
}

// GetEdge returns a copy of an edge
func (gs *GraphStorage) GetEdge(edgeID uint64) (*Edge, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	if gs.closed {
		return nil, ErrStorageClosed
	}
	edge, ok := gs.edges[edgeID]
	if !ok {
		return nil, EdgeNotFoundError(edgeID)
	}
	return edge.Clone(), nil
}

// GetOutgoingEdges returns the edges leaving a node, ordered by ID.
func (gs *GraphStorage) GetOutgoingEdges(nodeID uint64) ([]*Edge, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	if _, ok := gs.nodes[nodeID]; !ok {
		return nil, NodeNotFoundError(nodeID)
	}
	ids := gs.outgoingEdges[nodeID]
	edges := make([]*Edge, 0, len(ids))
	for _, id := range ids {
		edges = append(edges, gs.edges[id].Clone())
	}
	return edges, nil
}

// Nodes returns copies of all nodes ordered by ID.
func (gs *GraphStorage) Nodes() []*Node {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	out := make([]*Node, 0, len(gs.nodes))
	for _, n := range gs.nodes {
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns copies of all edges ordered by ID.
func (gs *GraphStorage) Edges() []*Edge {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	out := make([]*Edge, 0, len(gs.edges))
	for _, e := range gs.edges {
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EdgesByLabel returns the IDs of edges carrying label.
func (gs *GraphStorage) EdgesByLabel(label string) []uint64 {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	ids := make([]uint64, len(gs.edgesByLabel[label]))
	copy(ids, gs.edgesByLabel[label])
	return ids
}

// PropertyKey returns the committed schema entry for name.
func (gs *GraphStorage) PropertyKey(name string) (PropertyKey, bool) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	key, ok := gs.propertyKeys[name]
	if !ok {
		return PropertyKey{}, false
	}
	return *key, true
}

// PropertyKeys returns all committed schema entries ordered by name.
func (gs *GraphStorage) PropertyKeys() []PropertyKey {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	keys := make([]PropertyKey, 0, len(gs.propertyKeys))
	for _, k := range gs.propertyKeys {
		keys = append(keys, *k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })
	return keys
}

// FindNodesByProperty uses the key's index to find matching nodes.
// The value is coerced to the key's declared type first.
func (gs *GraphStorage) FindNodesByProperty(key string, value Value) ([]*Node, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	pk, ok := gs.propertyKeys[key]
	if !ok {
		return nil, NewError("lookup").Key(key).Cause(fmt.Errorf("no such property key")).Err()
	}
	idx, ok := gs.propertyIndexes[key]
	if !ok {
		return nil, NewError("lookup").Key(key).Cause(fmt.Errorf("property key is not indexed")).Err()
	}
	coerced, err := Coerce(pk.DataType, value)
	if err != nil {
		return nil, err
	}
	ids, err := idx.Lookup(coerced)
	if err != nil {
		return nil, err
	}

	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := gs.nodes[id]; ok {
			nodes = append(nodes, n.Clone())
		}
	}
	return nodes, nil
}

// GetStatistics returns a snapshot of graph statistics
func (gs *GraphStorage) GetStatistics() Statistics {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.stats
}

// WALStats reports commit log volume when the log supports it.
func (gs *GraphStorage) WALStats() (wal.Stats, bool) {
	if w, ok := gs.wal.(*wal.WAL); ok {
		return w.Stats(), true
	}
	return wal.Stats{}, false
}

// Close closes the graph. Open transactions fail to commit afterwards.
func (gs *GraphStorage) Close() error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if gs.closed {
		return nil
	}
	gs.closed = true
	return gs.wal.Close()
}

func (gs *GraphStorage) allocateNodeID() uint64 {
	return atomic.AddUint64(&gs.nextNodeID, 1)
}

func (gs *GraphStorage) allocateEdgeID() uint64 {
	return atomic.AddUint64(&gs.nextEdgeID, 1)
}

func (gs *GraphStorage) allocateTransactionID() uint64 {
	return atomic.AddUint64(&gs.txIDCounter, 1)
}
