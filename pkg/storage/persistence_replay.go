package storage

import (
	"encoding/json"

	"github.com/dd0wney/cluso-ingest/pkg/wal"
)

// replay rebuilds in-memory state from the committed groups in the WAL.
func (gs *GraphStorage) replay() error {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	var maxNode, maxEdge, maxTx uint64
	err := gs.wal.Replay(func(entry *wal.Entry) error {
		if entry.TxID > maxTx {
			maxTx = entry.TxID
		}
		switch entry.OpType {
		case wal.OpCreatePropertyKey:
			var k PropertyKey
			if err := json.Unmarshal(entry.Data, &k); err != nil {
				return err
			}
			gs.applyPropertyKey(&k)
		case wal.OpCreateVertex:
			var n Node
			if err := json.Unmarshal(entry.Data, &n); err != nil {
				return err
			}
			if n.Properties == nil {
				n.Properties = make(map[string]Value)
			}
			// Skip if node already exists
			if _, exists := gs.nodes[n.ID]; exists {
				return nil
			}
			gs.applyNode(&n)
			if n.ID > maxNode {
				maxNode = n.ID
			}
		case wal.OpCreateEdge:
			var e Edge
			if err := json.Unmarshal(entry.Data, &e); err != nil {
				return err
			}
			if e.Properties == nil {
				e.Properties = make(map[string]Value)
			}
			if _, exists := gs.edges[e.ID]; exists {
				return nil
			}
			gs.applyEdge(&e)
			if e.ID > maxEdge {
				maxEdge = e.ID
			}
		case wal.OpCommit:
			gs.stats.Commits++
		}
		return nil
	})
	if err != nil {
		return err
	}

	// IDs of rolled-back transactions were never logged and may be reused.
	gs.nextNodeID = maxNode
	gs.nextEdgeID = maxEdge
	gs.txIDCounter = maxTx
	return nil
}
