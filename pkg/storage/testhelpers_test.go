package storage

import (
	"testing"
)

// testGraphStorage creates a new GraphStorage in a temp dir and closes it on cleanup
func testGraphStorage(t *testing.T, config ...StorageConfig) *GraphStorage {
	t.Helper()

	var cfg StorageConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}
	if cfg.Name == "" {
		cfg.Name = "test"
	}

	gs, err := Open(cfg)
	if err != nil {
		t.Fatalf("Failed to open GraphStorage: %v", err)
	}

	t.Cleanup(func() {
		if err := gs.Close(); err != nil {
			t.Logf("Warning: Close() failed during cleanup: %v", err)
		}
	})

	return gs
}

// testBegin starts a transaction or fails the test
func testBegin(t *testing.T, gs *GraphStorage) *Transaction {
	t.Helper()

	tx, err := gs.BeginTransaction()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	return tx
}

// testVertex stages a vertex or fails the test
func testVertex(t *testing.T, tx *Transaction, externalID string, properties map[string]Value) uint64 {
	t.Helper()

	id, err := tx.AddVertex(externalID, properties)
	if err != nil {
		t.Fatalf("Failed to add vertex %s: %v", externalID, err)
	}
	return id
}

// testCommit commits or fails the test
func testCommit(t *testing.T, tx *Transaction) {
	t.Helper()

	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
}
