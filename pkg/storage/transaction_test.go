package storage

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestTransaction_BeginCommit(t *testing.T) {
	gs := testGraphStorage(t)

	tx := testBegin(t, gs)
	if err := tx.MakeKey("name", Text); err != nil {
		t.Fatalf("MakeKey failed: %v", err)
	}
	alice := testVertex(t, tx, "1", map[string]Value{"name": StringValue("Alice")})
	bob := testVertex(t, tx, "2", map[string]Value{"name": StringValue("Bob")})
	if _, err := tx.AddEdge("e1", "knows", alice, bob, nil); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	// Nothing is visible before commit
	if _, err := gs.GetNode(alice); !IsNotFound(err) {
		t.Errorf("Expected node to be invisible before commit, got %v", err)
	}
	if _, ok := gs.PropertyKey("name"); ok {
		t.Error("Expected key to be invisible before commit")
	}

	keys, vertices, edges := tx.Pending()
	if keys != 1 || vertices != 2 || edges != 1 {
		t.Errorf("Pending() = %d/%d/%d, want 1/2/1", keys, vertices, edges)
	}

	testCommit(t, tx)

	node, err := gs.GetNode(alice)
	if err != nil {
		t.Fatalf("GetNode after commit: %v", err)
	}
	if node.ExternalID != "1" {
		t.Errorf("ExternalID = %q, want 1", node.ExternalID)
	}
	out, err := gs.GetOutgoingEdges(alice)
	if err != nil || len(out) != 1 || out[0].ToNodeID != bob || out[0].Label != "knows" {
		t.Errorf("GetOutgoingEdges = %v, %v", out, err)
	}

	stats := gs.GetStatistics()
	if stats.NodeCount != 2 || stats.EdgeCount != 1 || stats.KeyCount != 1 || stats.Commits != 1 {
		t.Errorf("Unexpected statistics: %+v", stats)
	}
}

func TestTransaction_Rollback(t *testing.T) {
	gs := testGraphStorage(t)

	tx := testBegin(t, gs)
	if err := tx.MakeKey("name", Text); err != nil {
		t.Fatalf("MakeKey failed: %v", err)
	}
	id := testVertex(t, tx, "1", nil)

	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Errorf("Second rollback should be a no-op, got %v", err)
	}
	if err := tx.Commit(); !errors.Is(err, ErrTransactionAlreadyEnded) {
		t.Errorf("Commit after rollback = %v, want ErrTransactionAlreadyEnded", err)
	}
	if _, err := tx.AddVertex("2", nil); !errors.Is(err, ErrTransactionNotActive) {
		t.Errorf("AddVertex after rollback = %v, want ErrTransactionNotActive", err)
	}

	if _, err := gs.GetNode(id); !IsNotFound(err) {
		t.Errorf("Expected rolled back node to be absent, got %v", err)
	}
	if len(gs.PropertyKeys()) != 0 {
		t.Errorf("Expected no keys, got %v", gs.PropertyKeys())
	}
	if got := gs.GetStatistics().Rollbacks; got != 1 {
		t.Errorf("Rollbacks = %d, want 1", got)
	}
}

func TestTransaction_MakeKeyErrors(t *testing.T) {
	gs := testGraphStorage(t)

	tx := testBegin(t, gs)
	if err := tx.MakeKey("age", Integer); err != nil {
		t.Fatalf("MakeKey failed: %v", err)
	}
	testCommit(t, tx)

	tx = testBegin(t, gs)
	defer tx.Rollback()

	tests := []struct {
		name     string
		key      string
		dataType PropertyType
		want     error
	}{
		{"reserved id", "id", Text, ErrReservedKey},
		{"reserved _id", "_id", Integer, ErrReservedKey},
		{"invalid type", "x", PropertyType(99), ErrInvalidPropertyType},
		{"committed same type", "age", Integer, ErrKeyExists},
		{"committed other type", "age", Text, ErrSchemaConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tx.MakeKey(tt.key, tt.dataType)
			if !errors.Is(err, tt.want) {
				t.Errorf("MakeKey(%q, %v) = %v, want %v", tt.key, tt.dataType, err, tt.want)
			}
		})
	}

	if err := tx.MakeKey("city", Text); err != nil {
		t.Fatalf("MakeKey failed: %v", err)
	}
	if err := tx.MakeKey("city", Text); !errors.Is(err, ErrKeyExists) {
		t.Errorf("Staging twice = %v, want ErrKeyExists", err)
	}
	if err := tx.MakeKey("city", Double); !errors.Is(err, ErrSchemaConflict) {
		t.Errorf("Staging with other type = %v, want ErrSchemaConflict", err)
	}
}

func TestTransaction_CoercesDeclaredKeys(t *testing.T) {
	gs := testGraphStorage(t)

	tx := testBegin(t, gs)
	for name, typ := range map[string]PropertyType{"age": Integer, "loc": GeoCoordinate, "score": Double} {
		if err := tx.MakeKey(name, typ); err != nil {
			t.Fatalf("MakeKey(%s) failed: %v", name, err)
		}
	}
	id := testVertex(t, tx, "v", map[string]Value{
		"age":   StringValue("42"),
		"loc":   StringValue("51.5,-0.12"),
		"score": IntValue(7),
		"free":  BoolValue(true),
	})
	if _, err := tx.AddVertex("bad", map[string]Value{"age": StringValue("forty")}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("AddVertex with bad integer = %v, want ErrTypeMismatch", err)
	}
	testCommit(t, tx)

	node, err := gs.GetNode(id)
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if age, err := node.Properties["age"].AsInt(); err != nil || age != 42 {
		t.Errorf("age = %v, %v", age, err)
	}
	if loc, err := node.Properties["loc"].AsGeo(); err != nil || loc.Lat != 51.5 || loc.Lon != -0.12 {
		t.Errorf("loc = %v, %v", loc, err)
	}
	if score, err := node.Properties["score"].AsDouble(); err != nil || score != 7 {
		t.Errorf("score = %v, %v", score, err)
	}
	if node.Properties["free"].Type != TypeBool {
		t.Errorf("undeclared key should keep its type, got %v", node.Properties["free"].Type)
	}

	found, err := gs.FindNodesByProperty("age", StringValue("42"))
	if err != nil || len(found) != 1 || found[0].ID != id {
		t.Errorf("FindNodesByProperty = %v, %v", found, err)
	}
}

func TestTransaction_AddEdgeRequiresEndpoints(t *testing.T) {
	gs := testGraphStorage(t)

	tx := testBegin(t, gs)
	a := testVertex(t, tx, "a", nil)
	testCommit(t, tx)

	tx = testBegin(t, gs)
	defer tx.Rollback()
	b := testVertex(t, tx, "b", nil)

	if _, err := tx.AddEdge("", "link", a, b, nil); err != nil {
		t.Errorf("Edge from committed to staged vertex failed: %v", err)
	}
	if _, err := tx.AddEdge("", "link", a, 9999, nil); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Edge to missing vertex = %v, want ErrNodeNotFound", err)
	}
}

func TestTransaction_ConcurrentKeyReconciliation(t *testing.T) {
	gs := testGraphStorage(t)

	const workers = 8
	var wg sync.WaitGroup
	var applied atomic.Int64
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := gs.BeginTransaction()
			if err != nil {
				errs <- err
				return
			}
			defer func() { applied.Add(int64(tx.KeysApplied())) }()
			if err := tx.MakeKey("tag", Text); err != nil {
				errs <- err
				return
			}
			if _, err := tx.AddVertex("", map[string]Value{"tag": StringValue("x")}); err != nil {
				errs <- err
				return
			}
			errs <- tx.Commit()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Concurrent commit failed: %v", err)
		}
	}
	if keys := gs.PropertyKeys(); len(keys) != 1 || keys[0].Name != "tag" {
		t.Errorf("Expected exactly one tag key, got %v", keys)
	}
	if got := applied.Load(); got != 1 {
		t.Errorf("KeysApplied summed to %d, want 1", got)
	}
	if got := gs.GetStatistics().NodeCount; got != workers {
		t.Errorf("NodeCount = %d, want %d", got, workers)
	}
}

func TestTransaction_CommittedKeyTypeWins(t *testing.T) {
	tests := []struct {
		name      string
		value     Value
		wantErr   error
		wantNodes uint64
	}{
		{"coercible value", StringValue("2.5"), nil, 1},
		{"uncoercible value", StringValue("heavy"), ErrTypeMismatch, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := testGraphStorage(t)

			first := testBegin(t, gs)
			second := testBegin(t, gs)
			if err := first.MakeKey("weight", Double); err != nil {
				t.Fatal(err)
			}
			if err := second.MakeKey("weight", Text); err != nil {
				t.Fatal(err)
			}
			testVertex(t, second, "v", map[string]Value{"weight": tt.value})

			testCommit(t, first)

			err := second.Commit()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Commit = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Commit = %v, want %v", err, tt.wantErr)
			}
			if second.IsActive() {
				t.Error("Commit should end the transaction")
			}
			if got := gs.GetStatistics().NodeCount; got != tt.wantNodes {
				t.Errorf("NodeCount = %d, want %d", got, tt.wantNodes)
			}
			if got := second.KeysApplied(); got != 0 {
				t.Errorf("KeysApplied = %d, want 0", got)
			}

			key, _ := gs.PropertyKey("weight")
			if key.DataType != Double {
				t.Errorf("weight type = %v, want double", key.DataType)
			}
			if tt.wantNodes == 1 {
				got := gs.Nodes()[0].Properties["weight"]
				if got.Type != TypeDouble {
					t.Errorf("weight stored as %v, want double", got.Type)
				}
			}
		})
	}
}

func TestTransaction_ClosedStorage(t *testing.T) {
	gs, err := NewGraphStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	tx := testBegin(t, gs)
	testVertex(t, tx, "v", nil)

	if err := gs.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); !IsClosed(err) {
		t.Errorf("Commit on closed storage = %v, want ErrStorageClosed", err)
	}
	if _, err := gs.BeginTransaction(); !IsClosed(err) {
		t.Errorf("BeginTransaction on closed storage = %v", err)
	}
}
