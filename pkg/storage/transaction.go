// Transaction support for the graph store.
//
// A transaction buffers property-key declarations, vertices and edges.
// Nothing is visible to readers until Commit writes the whole group to
// the WAL and applies it under the store lock.
//
// The implementation is split across:
//   - transaction_types.go: Transaction struct and BeginTransaction
//   - transaction_ops.go: staging operations (MakeKey, AddVertex, AddEdge)
//   - transaction_commit.go: key reconciliation, commit and rollback
package storage
