package storage

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-ingest/pkg/logging"
)

func TestPersistence_ReplayCommittedTransactions(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "snappy"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			cfg := StorageConfig{Name: "g", DataDir: dir, CompressWAL: compress}

			gs, err := Open(cfg)
			if err != nil {
				t.Fatal(err)
			}
			tx := testBegin(t, gs)
			if err := tx.MakeKey("name", Text); err != nil {
				t.Fatal(err)
			}
			a := testVertex(t, tx, "1", map[string]Value{"name": StringValue("marko")})
			b := testVertex(t, tx, "2", map[string]Value{"name": StringValue("vadas")})
			if _, err := tx.AddEdge("7", "knows", a, b, map[string]Value{"weight": DoubleValue(0.5)}); err != nil {
				t.Fatal(err)
			}
			testCommit(t, tx)

			// Rolled back work must not survive a restart
			rb := testBegin(t, gs)
			testVertex(t, rb, "ghost", nil)
			rb.Rollback()

			if err := gs.Close(); err != nil {
				t.Fatal(err)
			}

			reopened := testGraphStorage(t, cfg)
			stats := reopened.GetStatistics()
			if stats.NodeCount != 2 || stats.EdgeCount != 1 || stats.KeyCount != 1 || stats.Commits != 1 {
				t.Fatalf("Unexpected statistics after replay: %+v", stats)
			}

			found, err := reopened.FindNodesByProperty("name", StringValue("vadas"))
			if err != nil || len(found) != 1 || found[0].ExternalID != "2" {
				t.Errorf("Index not rebuilt: %v, %v", found, err)
			}
			edges := reopened.Edges()
			if w, err := edges[0].Properties["weight"].AsDouble(); err != nil || w != 0.5 {
				t.Errorf("edge weight = %v, %v", w, err)
			}

			// New IDs continue after the replayed ones
			tx = testBegin(t, reopened)
			c := testVertex(t, tx, "3", nil)
			testCommit(t, tx)
			if c <= b {
				t.Errorf("New node ID %d should be greater than %d", c, b)
			}
		})
	}
}

func TestPersistence_KeyIndexesExistingVertices(t *testing.T) {
	gs := testGraphStorage(t)

	tx := testBegin(t, gs)
	id := testVertex(t, tx, "1", map[string]Value{"age": StringValue("29")})
	testCommit(t, tx)

	tx = testBegin(t, gs)
	if err := tx.MakeKey("age", Integer); err != nil {
		t.Fatal(err)
	}
	testCommit(t, tx)

	found, err := gs.FindNodesByProperty("age", IntValue(29))
	if err != nil || len(found) != 1 || found[0].ID != id {
		t.Errorf("FindNodesByProperty = %v, %v", found, err)
	}
}

func TestApplyNode_IndexMismatchIsLogged(t *testing.T) {
	var buf bytes.Buffer
	gs := testGraphStorage(t, StorageConfig{Logger: logging.NewJSONLogger(&buf, logging.WarnLevel)})

	gs.mu.Lock()
	gs.applyPropertyKey(&PropertyKey{Name: "age", DataType: Integer, Indexed: true})
	gs.applyNode(&Node{ID: 1, ExternalID: "a", Properties: map[string]Value{"age": StringValue("old")}})
	gs.mu.Unlock()

	if got := gs.GetStatistics().NodeCount; got != 1 {
		t.Errorf("NodeCount = %d, want 1", got)
	}
	if !strings.Contains(buf.String(), "vertex value left out of property index") {
		t.Errorf("expected an index warning, got %q", buf.String())
	}
	if nodes, err := gs.FindNodesByProperty("age", IntValue(0)); err != nil || len(nodes) != 0 {
		t.Errorf("FindNodesByProperty = %v, %v", nodes, err)
	}
}
