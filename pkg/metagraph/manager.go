package metagraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dd0wney/cluso-ingest/pkg/logging"
	"github.com/dd0wney/cluso-ingest/pkg/storage"
	"github.com/dd0wney/cluso-ingest/pkg/validation"
)

type entry struct {
	graph   Graph
	storage *storage.GraphStorage
}

// Manager owns every graph under a data directory.
type Manager struct {
	root        string
	compressWAL bool
	logger      logging.Logger

	graphs map[string]*entry
	mu     sync.RWMutex
	closed bool
}

// Open opens the registry and every graph already on disk.
func Open(cfg Config, logger logging.Logger) (*Manager, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("metagraph: data directory is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	m := &Manager{
		root:        filepath.Join(cfg.DataDir, "graphs"),
		compressWAL: cfg.CompressWAL,
		logger:      logger.With(logging.Component("metagraph")),
		graphs:      make(map[string]*entry),
	}
	if err := os.MkdirAll(m.root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create graphs directory: %w", err)
	}

	dirs, err := os.ReadDir(m.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		g, err := readGraph(filepath.Join(m.root, d.Name()))
		if err != nil {
			m.logger.Warn("skipping unreadable graph directory",
				logging.Path(d.Name()), logging.Error(err))
			continue
		}
		if err := m.openLocked(g); err != nil {
			m.Close()
			return nil, err
		}
	}

	m.logger.Info("graph registry opened",
		logging.Path(m.root),
		logging.Int("graphs", len(m.graphs)))
	return m, nil
}

// Create registers and opens a new, empty graph.
func (m *Manager) Create(id, description string) (*Graph, error) {
	if err := validation.ValidateGraphID(id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGraphID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}
	if _, exists := m.graphs[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrGraphExists, id)
	}

	g := Graph{ID: id, Description: description, CreatedAt: time.Now().UnixMilli()}
	dir := filepath.Join(m.root, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create graph directory: %w", err)
	}
	if err := writeGraph(dir, g); err != nil {
		return nil, err
	}
	if err := m.openLocked(g); err != nil {
		return nil, err
	}

	m.logger.Info("graph created", logging.GraphID(id))
	out := g
	return &out, nil
}

// Get returns the open store of a graph.
func (m *Manager) Get(id string) (*storage.GraphStorage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrManagerClosed
	}
	e, ok := m.graphs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, id)
	}
	return e.storage, nil
}

// Info returns a graph's descriptor, statistics and schema.
func (m *Manager) Info(id string) (*GraphInfo, error) {
	m.mu.RLock()
	e, ok := m.graphs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, id)
	}
	return info(e), nil
}

// List returns every graph ordered by ID.
func (m *Manager) List() []*GraphInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*GraphInfo, 0, len(m.graphs))
	for _, e := range m.graphs {
		out = append(out, info(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Ping reports whether the manager can still serve lookups.
func (m *Manager) Ping() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrManagerClosed
	}
	return nil
}

// Count returns the number of open graphs.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.graphs)
}

// Close closes every graph. Later lookups fail with ErrManagerClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for id, e := range m.graphs {
		if err := e.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("graph %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// openLocked must be called with m.mu held (or before m is shared).
func (m *Manager) openLocked(g Graph) error {
	gs, err := storage.Open(storage.StorageConfig{
		Name:        g.ID,
		DataDir:     filepath.Join(m.root, g.ID),
		CompressWAL: m.compressWAL,
		Logger:      m.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to open graph %s: %w", g.ID, err)
	}
	m.graphs[g.ID] = &entry{graph: g, storage: gs}
	return nil
}

func info(e *entry) *GraphInfo {
	stats := e.storage.GetStatistics()
	gi := &GraphInfo{
		Graph:     e.graph,
		Vertices:  stats.NodeCount,
		Edges:     stats.EdgeCount,
		Commits:   stats.Commits,
		Rollbacks: stats.Rollbacks,
		Keys:      e.storage.PropertyKeys(),
	}
	if ws, ok := e.storage.WALStats(); ok {
		gi.WALBytesWritten = ws.BytesWritten
	}
	return gi
}

func readGraph(dir string) (Graph, error) {
	var g Graph
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return g, err
	}
	if err := json.Unmarshal(data, &g); err != nil {
		return g, fmt.Errorf("corrupt %s: %w", metaFile, err)
	}
	if g.ID != filepath.Base(dir) {
		return g, fmt.Errorf("%s names graph %q", metaFile, g.ID)
	}
	return g, nil
}

func writeGraph(dir string, g Graph) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, metaFile+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write graph descriptor: %w", err)
	}
	return os.Rename(tmp, filepath.Join(dir, metaFile))
}
