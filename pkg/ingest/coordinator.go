package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-ingest/pkg/logging"
	"github.com/dd0wney/cluso-ingest/pkg/schema"
	"github.com/dd0wney/cluso-ingest/pkg/validation"
)

// DefaultBatchSize is used by ModeBatched when no size is configured.
const DefaultBatchSize = 10000

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	Mode      Mode
	BatchSize int
	Logger    logging.Logger
	// OnPhase, when set, is called as each working phase completes.
	OnPhase func(phase Phase, d time.Duration)
	// OnStorage, when set, is called after every commit and rollback.
	OnStorage func(operation, outcome string, d time.Duration)
}

// Coordinator runs the schema phase and the load phase of an import
// against one graph under a single commit/rollback boundary.
type Coordinator struct {
	mode        Mode
	batchSize   int
	provisioner *schema.Provisioner
	logger      logging.Logger
	onPhase     func(Phase, time.Duration)
	onStorage   func(string, string, time.Duration)
}

// NewCoordinator validates cfg and returns a Coordinator.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	mode, err := ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	batchSize := 0
	if mode == ModeBatched {
		batchSize = validation.DefaultOrInt(cfg.BatchSize, DefaultBatchSize)
		if err := validation.ValidateBatchSize(batchSize); err != nil {
			return nil, err
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	onPhase := cfg.OnPhase
	if onPhase == nil {
		onPhase = func(Phase, time.Duration) {}
	}
	return &Coordinator{
		mode:        mode,
		batchSize:   batchSize,
		provisioner: schema.NewProvisioner(logger),
		logger:      logger.With(logging.Component("coordinator")),
		onPhase:     onPhase,
		onStorage:   cfg.OnStorage,
	}, nil
}

// Mode returns the commit mode.
func (c *Coordinator) Mode() Mode {
	return c.mode
}

// Run provisions plan.Keys and loads plan.Body into g.
//
// The graph's schema lock is held only while keys are staged, so the load
// phases of concurrent imports overlap. A key another import commits with a
// different type in the meantime wins at commit, as it would have had it
// been committed before provisioning. Any error rolls back the open
// transaction. In batched mode batches committed before the error stay
// committed and are reported in the Outcome.
func (c *Coordinator) Run(ctx context.Context, g Graph, plan Plan) (*Outcome, error) {
	start := time.Now()
	out := &Outcome{Phase: PhaseSchemaProvisioning}
	fail := func(err error) (*Outcome, error) {
		out.FailedIn = out.Phase
		out.Phase = PhaseRolledBack
		out.Duration = time.Since(start)
		return out, err
	}

	tx, err := g.BeginTransaction()
	if err != nil {
		return fail(fmt.Errorf("failed to begin transaction: %w", err))
	}

	results, err := c.provision(g, tx, plan.Keys)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Warn("rollback failed", logging.Error(rbErr))
		}
		return fail(err)
	}
	out.Keys = results
	c.onPhase(PhaseSchemaProvisioning, time.Since(start))

	out.Phase = PhaseLoading
	loadStart := time.Now()
	l := newLoader(g, tx, c.batchSize, c.logger.With(logging.GraphID(g.Name())), c.onStorage)

	err = plan.Decoder.Decode(ctx, plan.Body, l)
	if err == nil {
		err = l.commit()
	} else {
		l.rollback()
	}
	out.Vertices, out.Edges, out.Batches = l.vertices, l.edges, l.commits
	out.KeysCreated = l.keys
	if err != nil {
		if l.commits > 0 {
			c.logger.Warn("import failed after partial commit",
				logging.Int("batches", l.commits),
				logging.Int("vertices", l.vertices),
				logging.Int("edges", l.edges))
		}
		return fail(err)
	}
	c.onPhase(PhaseLoading, time.Since(loadStart))

	if staged := schema.CountCreated(results); staged > out.KeysCreated {
		c.logger.Debug("keys created concurrently by another import",
			logging.Int("staged", staged),
			logging.Int("applied", out.KeysCreated))
	}
	out.Phase = PhaseCommitted
	out.Duration = time.Since(start)
	return out, nil
}

// provision stages keys under the graph's schema lock.
func (c *Coordinator) provision(g Graph, tx schema.SchemaWriter, defs []schema.KeyDefinition) ([]schema.KeyResult, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	unlock := g.LockSchema()
	defer unlock()
	return c.provisioner.Provision(tx, defs)
}
