package storage

import (
	"sync"
)

// Transaction represents a buffered write transaction
type Transaction struct {
	gs         *GraphStorage
	id         uint64
	active     bool
	committed  bool
	rolledBack bool
	mu         sync.Mutex

	// Pending operations, kept in insertion order
	stagedKeys   map[string]*PropertyKey
	keyOrder     []string
	createdNodes map[uint64]*Node
	nodeOrder    []uint64
	createdEdges map[uint64]*Edge
	edgeOrder    []uint64

	keysApplied int
}

// BeginTransaction starts a new transaction. Transactions on the same
// graph may run concurrently; they only serialise inside Commit.
func (gs *GraphStorage) BeginTransaction() (*Transaction, error) {
	gs.mu.RLock()
	closed := gs.closed
	gs.mu.RUnlock()
	if closed {
		return nil, ErrStorageClosed
	}

	return &Transaction{
		gs:           gs,
		id:           gs.allocateTransactionID(),
		active:       true,
		stagedKeys:   make(map[string]*PropertyKey),
		createdNodes: make(map[uint64]*Node),
		createdEdges: make(map[uint64]*Edge),
	}, nil
}

// ID returns the transaction identifier written to the WAL.
func (tx *Transaction) ID() uint64 {
	return tx.id
}

// Pending returns the number of staged keys, vertices and edges.
func (tx *Transaction) Pending() (keys, vertices, edges int) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return len(tx.keyOrder), len(tx.nodeOrder), len(tx.edgeOrder)
}

// IsActive reports whether the transaction can still stage or commit.
func (tx *Transaction) IsActive() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.active
}

// KeysApplied returns how many staged keys the commit created. Keys that a
// concurrent transaction committed first are not counted.
func (tx *Transaction) KeysApplied() int {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.keysApplied
}
