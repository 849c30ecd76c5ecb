// Package ingest runs graph imports: it provisions the requested property
// keys, streams a decoded document into a transaction and commits or rolls
// back as one unit.
package ingest

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dd0wney/cluso-ingest/pkg/codec"
	"github.com/dd0wney/cluso-ingest/pkg/schema"
	"github.com/dd0wney/cluso-ingest/pkg/storage"
)

// Request is one file import.
type Request struct {
	GraphID string
	Format  string
	// KeySpec is "name=type[,name=type...]"; blank provisions nothing.
	KeySpec string
	// Body is closed by Import on every path.
	Body io.ReadCloser
}

// Result statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Result is the outcome of an import, shaped for the HTTP response.
type Result struct {
	Status      string `json:"status"`
	Message     string `json:"msg,omitempty"`
	ImportID    string `json:"importId"`
	GraphID     string `json:"graphId,omitempty"`
	Format      string `json:"format,omitempty"`
	Vertices    int    `json:"vertices"`
	Edges       int    `json:"edges"`
	KeysCreated int    `json:"keysCreated"`
	Phase       Phase  `json:"phase"`

	// Code is the HTTP status for this result.
	Code int `json:"-"`
	// Err is the underlying error, nil on success.
	Err error `json:"-"`
}

// OK reports whether the import committed.
func (r *Result) OK() bool {
	return r.Status == StatusOK
}

// Phase is a state of the import state machine. Phases only move forward.
type Phase int

const (
	PhaseValidating Phase = iota
	PhaseSchemaProvisioning
	PhaseLoading
	PhaseCommitted
	PhaseRolledBack
)

var phaseNames = [...]string{
	PhaseValidating:         "validating",
	PhaseSchemaProvisioning: "schema_provisioning",
	PhaseLoading:            "loading",
	PhaseCommitted:          "committed",
	PhaseRolledBack:         "rolled_back",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText encodes the phase name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseCommitted || p == PhaseRolledBack
}

// Mode selects how the coordinator commits.
type Mode string

const (
	// ModeAtomic commits the whole import in one transaction.
	ModeAtomic Mode = "atomic"
	// ModeBatched commits every BatchSize elements. A failure keeps the
	// batches already committed.
	ModeBatched Mode = "batched"
)

// ParseMode resolves a mode name; blank means atomic.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAtomic:
		return ModeAtomic, nil
	case ModeBatched:
		return ModeBatched, nil
	default:
		return "", fmt.Errorf("unknown commit mode %q (expected atomic or batched)", s)
	}
}

// Graph is the store an import writes into. *storage.GraphStorage
// implements it.
type Graph interface {
	Name() string
	LockSchema() (unlock func())
	BeginTransaction() (*storage.Transaction, error)
}

// Plan is everything the coordinator needs for one import.
type Plan struct {
	Format  string
	Keys    []schema.KeyDefinition
	Decoder codec.Decoder
	Body    io.Reader
}

// Outcome reports what a coordinator run did. Counts are of committed
// elements.
type Outcome struct {
	Vertices    int
	Edges       int
	KeysCreated int
	Keys        []schema.KeyResult
	Batches     int
	Phase       Phase
	// FailedIn is the phase that failed when Phase is PhaseRolledBack.
	FailedIn Phase
	Duration time.Duration
}
