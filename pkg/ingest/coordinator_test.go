package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-ingest/pkg/codec"
	"github.com/dd0wney/cluso-ingest/pkg/schema"
	"github.com/dd0wney/cluso-ingest/pkg/storage"
	"github.com/dd0wney/cluso-ingest/pkg/validation"
)

func gmlPlan(t *testing.T, keys, doc string) Plan {
	t.Helper()
	defs, err := schema.ParseKeySpec(keys)
	require.NoError(t, err)
	return Plan{Format: codec.FormatGML, Keys: defs, Decoder: codec.GMLDecoder{}, Body: strings.NewReader(doc)}
}

func TestCoordinator_Atomic(t *testing.T) {
	gs := graph(t, newManager(t))

	var phases []Phase
	c, err := NewCoordinator(CoordinatorConfig{OnPhase: func(p Phase, _ time.Duration) { phases = append(phases, p) }})
	require.NoError(t, err)
	assert.Equal(t, ModeAtomic, c.Mode())

	out, err := c.Run(context.Background(), gs, gmlPlan(t, "name=text", gmlDoc))
	require.NoError(t, err)

	assert.Equal(t, PhaseCommitted, out.Phase)
	assert.Equal(t, 1, out.Batches)
	assert.Equal(t, 3, out.Vertices)
	assert.Equal(t, 2, out.Edges)
	assert.Equal(t, 1, out.KeysCreated)
	require.Len(t, out.Keys, 1)
	assert.Equal(t, schema.Created, out.Keys[0].Outcome)
	assert.Equal(t, []Phase{PhaseSchemaProvisioning, PhaseLoading}, phases)
}

func TestCoordinator_Batched(t *testing.T) {
	gs := graph(t, newManager(t))

	var ops []string
	c, err := NewCoordinator(CoordinatorConfig{
		Mode:      ModeBatched,
		BatchSize: 2,
		OnStorage: func(op, outcome string, _ time.Duration) { ops = append(ops, op+":"+outcome) },
	})
	require.NoError(t, err)

	out, err := c.Run(context.Background(), gs, gmlPlan(t, "name=text", gmlDoc))
	require.NoError(t, err)
	assert.Equal(t, []string{"commit:committed", "commit:committed", "commit:committed"}, ops)

	// 5 elements in batches of 2, plus the final partial batch
	assert.Equal(t, 3, out.Batches)
	assert.Equal(t, 3, out.Vertices)
	assert.Equal(t, 2, out.Edges)
	assert.Equal(t, 1, out.KeysCreated)
	assert.Equal(t, uint64(3), gs.GetStatistics().Commits)
}

func TestCoordinator_BatchedFailureKeepsCommittedBatches(t *testing.T) {
	gs := graph(t, newManager(t))

	c, err := NewCoordinator(CoordinatorConfig{Mode: ModeBatched, BatchSize: 2})
	require.NoError(t, err)

	doc := `graph [
	  node [ id 1 ] node [ id 2 ] node [ id 3 ]
	  edge [ source 1 target 99 ]
	]`
	out, err := c.Run(context.Background(), gs, gmlPlan(t, "", doc))

	require.ErrorIs(t, err, ErrUnknownVertex)
	assert.Equal(t, PhaseRolledBack, out.Phase)
	assert.Equal(t, PhaseLoading, out.FailedIn)
	assert.Equal(t, 1, out.Batches)
	assert.Equal(t, 2, out.Vertices, "the first batch stays committed")
	assert.Equal(t, uint64(2), gs.GetStatistics().NodeCount)
}

func TestCoordinator_BatchedEdgesSpanBatches(t *testing.T) {
	gs := graph(t, newManager(t))

	c, err := NewCoordinator(CoordinatorConfig{Mode: ModeBatched, BatchSize: 1})
	require.NoError(t, err)

	out, err := c.Run(context.Background(), gs, gmlPlan(t, "", gmlDoc))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Edges)

	edges := gs.Edges()
	require.Len(t, edges, 2)
	from, err := gs.GetNode(edges[0].FromNodeID)
	require.NoError(t, err)
	assert.Equal(t, "1", from.ExternalID)
}

func TestCoordinator_ProvisionFailureRollsBack(t *testing.T) {
	gs := graph(t, newManager(t))

	c, err := NewCoordinator(CoordinatorConfig{})
	require.NoError(t, err)

	defs := []schema.KeyDefinition{{Name: "a", Type: storage.Text}, {Name: "b", Type: storage.PropertyType(0)}}
	out, err := c.Run(context.Background(), gs, Plan{Decoder: codec.GMLDecoder{}, Keys: defs, Body: strings.NewReader(gmlDoc)})

	require.Error(t, err)
	assert.Equal(t, PhaseSchemaProvisioning, out.FailedIn)
	assert.Empty(t, gs.PropertyKeys())
	assert.Zero(t, gs.GetStatistics().NodeCount)

	// The schema lock was released
	unlock := gs.LockSchema()
	unlock()
}

func TestCoordinator_ClosedGraph(t *testing.T) {
	gs, err := storage.NewGraphStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, gs.Close())

	c, err := NewCoordinator(CoordinatorConfig{})
	require.NoError(t, err)

	out, err := c.Run(context.Background(), gs, gmlPlan(t, "", gmlDoc))
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.Equal(t, PhaseRolledBack, out.Phase)
	assert.Equal(t, 500, StatusCode(err))
}

func TestNewCoordinator_Config(t *testing.T) {
	_, err := NewCoordinator(CoordinatorConfig{Mode: "eventual"})
	assert.Error(t, err)

	_, err = NewCoordinator(CoordinatorConfig{Mode: ModeBatched, BatchSize: validation.MaxBatchSize + 1})
	assert.Error(t, err)

	c, err := NewCoordinator(CoordinatorConfig{Mode: "BATCHED"})
	require.NoError(t, err)
	assert.Equal(t, ModeBatched, c.Mode())
	assert.Equal(t, DefaultBatchSize, c.batchSize)
}
