package storage

import (
	"encoding/json"
	"fmt"

	"github.com/dd0wney/cluso-ingest/pkg/logging"
)

// WAL payloads are JSON documents of PropertyKey, Node and Edge.

func encodeRecord(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode WAL record: %w", err)
	}
	return data, nil
}

// applyPropertyKey must be called with gs.mu held.
func (gs *GraphStorage) applyPropertyKey(k *PropertyKey) {
	key := *k
	gs.propertyKeys[key.Name] = &key
	gs.stats.KeyCount = uint64(len(gs.propertyKeys))

	if !key.Indexed {
		return
	}
	idx := NewPropertyIndex(key.Name, key.DataType.ValueType())
	// Vertices loaded before the key existed are indexed when their value fits.
	for _, n := range gs.nodes {
		if v, ok := n.Properties[key.Name]; ok {
			if coerced, err := Coerce(key.DataType, v); err == nil {
				gs.indexValue(idx, n.ID, coerced)
			}
		}
	}
	gs.propertyIndexes[key.Name] = idx
}

// applyNode must be called with gs.mu held.
func (gs *GraphStorage) applyNode(n *Node) {
	gs.nodes[n.ID] = n
	for name, v := range n.Properties {
		if idx, ok := gs.propertyIndexes[name]; ok {
			gs.indexValue(idx, n.ID, v)
		}
	}
	gs.stats.NodeCount = uint64(len(gs.nodes))
}

// indexValue adds a vertex value to a property index. Commit coerces values
// to their key's type, so a mismatch means a replayed record predates its key.
func (gs *GraphStorage) indexValue(idx *PropertyIndex, nodeID uint64, v Value) {
	if err := idx.Insert(nodeID, v); err != nil {
		gs.logger.Warn("vertex value left out of property index",
			logging.Uint64("node_id", nodeID),
			logging.Error(err))
	}
}

// applyEdge must be called with gs.mu held.
func (gs *GraphStorage) applyEdge(e *Edge) {
	gs.edges[e.ID] = e
	gs.edgesByLabel[e.Label] = append(gs.edgesByLabel[e.Label], e.ID)
	gs.outgoingEdges[e.FromNodeID] = append(gs.outgoingEdges[e.FromNodeID], e.ID)
	gs.incomingEdges[e.ToNodeID] = append(gs.incomingEdges[e.ToNodeID], e.ID)
	gs.stats.EdgeCount = uint64(len(gs.edges))
}
