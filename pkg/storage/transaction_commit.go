package storage

import (
	"fmt"
	"time"

	"github.com/dd0wney/cluso-ingest/pkg/logging"
	"github.com/dd0wney/cluso-ingest/pkg/wal"
)

// Commit makes every staged key, vertex and edge visible at once.
//
// Staged keys are reconciled against keys committed by concurrent
// transactions first: a key committed meanwhile is dropped from this
// transaction and the committed declaration wins, whatever its type. Staged
// values are then coerced to the committed type, so a value that cannot be
// stored as that type fails the commit with ErrTypeMismatch. A failed commit
// leaves the store untouched and the transaction rolled back.
func (tx *Transaction) Commit() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.committed || tx.rolledBack {
		return ErrTransactionAlreadyEnded
	}
	if !tx.active {
		return ErrTransactionNotActive
	}

	gs := tx.gs
	gs.mu.Lock()
	defer gs.mu.Unlock()

	if err := tx.commitLocked(); err != nil {
		tx.rolledBack = true
		tx.active = false
		gs.stats.Rollbacks++
		gs.logger.Warn("transaction commit failed",
			logging.Uint64("tx_id", tx.id),
			logging.Error(err))
		return err
	}

	tx.committed = true
	tx.active = false
	return nil
}

// commitLocked must be called with tx.mu and gs.mu held.
func (tx *Transaction) commitLocked() error {
	gs := tx.gs
	if gs.closed {
		return ErrStorageClosed
	}

	keys := tx.reconcileKeys()

	// Keys committed by concurrent transactions may postdate AddVertex.
	schema := make(map[string]*PropertyKey, len(gs.propertyKeys)+len(keys))
	for name, k := range gs.propertyKeys {
		schema[name] = k
	}
	for _, k := range keys {
		schema[k.Name] = k
	}
	for _, id := range tx.nodeOrder {
		n := tx.createdNodes[id]
		if err := coerceAll(schema, n.Properties); err != nil {
			return NewError("commit").Node(id).External(n.ExternalID).Cause(err).Err()
		}
	}
	for _, id := range tx.edgeOrder {
		e := tx.createdEdges[id]
		if err := coerceAll(schema, e.Properties); err != nil {
			return NewError("commit").Edge(id).External(e.ExternalID).Cause(err).Err()
		}
	}

	records, err := tx.walRecords(keys)
	if err != nil {
		return NewError("commit").Tx(tx.id).Cause(err).Err()
	}
	if len(records) > 0 {
		if _, err := gs.wal.AppendGroup(tx.id, records); err != nil {
			return NewError("commit").Tx(tx.id).Cause(fmt.Errorf("%w: %v", ErrWALAppendFailed, err)).Err()
		}
	}

	for _, k := range keys {
		gs.applyPropertyKey(k)
	}
	for _, id := range tx.nodeOrder {
		gs.applyNode(tx.createdNodes[id])
	}
	for _, id := range tx.edgeOrder {
		gs.applyEdge(tx.createdEdges[id])
	}

	tx.keysApplied = len(keys)
	gs.stats.Commits++
	gs.stats.LastCommitAt = time.Now()
	return nil
}

// reconcileKeys returns the staged keys that are still new. Must be called
// with gs.mu held.
func (tx *Transaction) reconcileKeys() []*PropertyKey {
	keys := make([]*PropertyKey, 0, len(tx.keyOrder))
	for _, name := range tx.keyOrder {
		staged := tx.stagedKeys[name]
		existing, ok := tx.gs.propertyKeys[name]
		if !ok {
			keys = append(keys, staged)
			continue
		}
		if existing.DataType != staged.DataType {
			tx.gs.logger.Warn("key committed meanwhile with a different type, keeping it",
				logging.Uint64("tx_id", tx.id),
				logging.Key(name),
				logging.String("existing", existing.DataType.String()),
				logging.String("requested", staged.DataType.String()))
		}
	}
	return keys
}

func (tx *Transaction) walRecords(keys []*PropertyKey) ([]wal.Record, error) {
	records := make([]wal.Record, 0, len(keys)+len(tx.nodeOrder)+len(tx.edgeOrder))
	for _, k := range keys {
		data, err := encodeRecord(k)
		if err != nil {
			return nil, err
		}
		records = append(records, wal.Record{OpType: wal.OpCreatePropertyKey, Data: data})
	}
	for _, id := range tx.nodeOrder {
		data, err := encodeRecord(tx.createdNodes[id])
		if err != nil {
			return nil, err
		}
		records = append(records, wal.Record{OpType: wal.OpCreateVertex, Data: data})
	}
	for _, id := range tx.edgeOrder {
		data, err := encodeRecord(tx.createdEdges[id])
		if err != nil {
			return nil, err
		}
		records = append(records, wal.Record{OpType: wal.OpCreateEdge, Data: data})
	}
	return records, nil
}

func coerceAll(schema map[string]*PropertyKey, props map[string]Value) error {
	for name, v := range props {
		key, ok := schema[name]
		if !ok {
			continue
		}
		coerced, err := Coerce(key.DataType, v)
		if err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
		props[name] = coerced
	}
	return nil
}

// Rollback discards all staged work. Rolling back twice is a no-op;
// rolling back a committed transaction returns ErrTransactionAlreadyEnded.
func (tx *Transaction) Rollback() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.rolledBack {
		return nil
	}
	if tx.committed {
		return ErrTransactionAlreadyEnded
	}

	tx.stagedKeys = nil
	tx.keyOrder = nil
	tx.createdNodes = nil
	tx.nodeOrder = nil
	tx.createdEdges = nil
	tx.edgeOrder = nil

	tx.rolledBack = true
	tx.active = false

	tx.gs.mu.Lock()
	tx.gs.stats.Rollbacks++
	tx.gs.mu.Unlock()
	return nil
}
