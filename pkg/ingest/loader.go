package ingest

import (
	"fmt"
	"time"

	"github.com/dd0wney/cluso-ingest/pkg/codec"
	"github.com/dd0wney/cluso-ingest/pkg/logging"
	"github.com/dd0wney/cluso-ingest/pkg/storage"
)

// loader is the sink a decoder writes into. It maps document vertex ids to
// store ids and, with batchSize > 0, commits every batchSize elements.
type loader struct {
	graph     Graph
	tx        *storage.Transaction
	batchSize int
	logger    logging.Logger
	// observe reports each commit and rollback with its outcome.
	observe func(operation, outcome string, d time.Duration)

	ids map[string]uint64

	pending         int
	stagedVertices  int
	stagedEdges     int
	vertices, edges int // committed
	keys            int // keys created by committed batches
	commits         int
}

func newLoader(g Graph, tx *storage.Transaction, batchSize int, logger logging.Logger,
	observe func(operation, outcome string, d time.Duration)) *loader {
	if observe == nil {
		observe = func(string, string, time.Duration) {}
	}
	return &loader{
		graph:     g,
		tx:        tx,
		batchSize: batchSize,
		logger:    logger,
		observe:   observe,
		ids:       make(map[string]uint64),
	}
}

// Put implements codec.Sink.
func (l *loader) Put(e codec.Element) error {
	switch el := e.(type) {
	case *codec.Vertex:
		if _, dup := l.ids[el.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateVertex, el.ID)
		}
		id, err := l.tx.AddVertex(el.ID, el.Properties)
		if err != nil {
			return fmt.Errorf("vertex %q: %w", el.ID, err)
		}
		l.ids[el.ID] = id
		l.stagedVertices++

	case *codec.Edge:
		from, ok := l.ids[el.Source]
		if !ok {
			return fmt.Errorf("%w: edge %q source %q", ErrUnknownVertex, el.ID, el.Source)
		}
		to, ok := l.ids[el.Target]
		if !ok {
			return fmt.Errorf("%w: edge %q target %q", ErrUnknownVertex, el.ID, el.Target)
		}
		label := el.Label
		if label == "" {
			label = codec.DefaultEdgeLabel
		}
		if _, err := l.tx.AddEdge(el.ID, label, from, to, el.Properties); err != nil {
			return fmt.Errorf("edge %q: %w", el.ID, err)
		}
		l.stagedEdges++

	default:
		return fmt.Errorf("unexpected element %T", e)
	}

	l.pending++
	if l.batchSize > 0 && l.pending >= l.batchSize {
		return l.flush()
	}
	return nil
}

// DeclareKey implements codec.KeyDeclarer: a document's typed declaration
// must agree with the key the graph already has.
func (l *loader) DeclareKey(d codec.KeyDeclaration) error {
	if storage.IsReservedKey(d.Name) {
		return nil
	}
	existing, ok := l.tx.PropertyKey(d.Name)
	if !ok || existing.DataType == d.Type {
		return nil
	}
	return storage.SchemaConflictError(d.Name, existing.DataType, d.Type)
}

// flush commits the open transaction and starts the next batch.
func (l *loader) flush() error {
	if err := l.commit(); err != nil {
		return err
	}
	tx, err := l.graph.BeginTransaction()
	if err != nil {
		return err
	}
	l.tx = tx
	return nil
}

// commit commits the open transaction and folds its counts into the
// committed totals.
func (l *loader) commit() error {
	start := time.Now()
	if err := l.tx.Commit(); err != nil {
		l.observe("commit", "failed", time.Since(start))
		return err
	}
	l.observe("commit", "committed", time.Since(start))
	l.commits++
	l.keys += l.tx.KeysApplied()
	l.vertices += l.stagedVertices
	l.edges += l.stagedEdges
	if l.batchSize > 0 {
		l.logger.Debug("batch committed",
			logging.Int("batch", l.commits),
			logging.Int("vertices", l.vertices),
			logging.Int("edges", l.edges))
	}
	l.stagedVertices, l.stagedEdges, l.pending = 0, 0, 0
	return nil
}

func (l *loader) rollback() {
	if l.tx.IsActive() {
		start := time.Now()
		if err := l.tx.Rollback(); err != nil {
			l.logger.Warn("rollback failed", logging.Error(err))
		}
		l.observe("rollback", "rolled_back", time.Since(start))
	}
	l.stagedVertices, l.stagedEdges, l.pending = 0, 0, 0
}
