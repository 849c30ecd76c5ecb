package schema

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-ingest/pkg/logging"
	"github.com/dd0wney/cluso-ingest/pkg/storage"
)

// SchemaWriter is the part of a transaction the provisioner needs.
// *storage.Transaction implements it.
type SchemaWriter interface {
	// PropertyKey reports a key visible to the transaction, staged or committed.
	PropertyKey(name string) (storage.PropertyKey, bool)
	// MakeKey stages a new indexed key.
	MakeKey(name string, t storage.PropertyType) error
}

// Outcome of one key definition
type Outcome int

const (
	Created Outcome = iota
	SkippedReserved
	SkippedExisting
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case SkippedReserved:
		return "skipped_reserved"
	case SkippedExisting:
		return "skipped_existing"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// KeyResult reports what happened to one definition.
type KeyResult struct {
	KeyDefinition
	Outcome Outcome
}

// Provisioner stages missing keys into a transaction.
type Provisioner struct {
	logger logging.Logger
}

// NewProvisioner returns a Provisioner; a nil logger discards output.
func NewProvisioner(logger logging.Logger) *Provisioner {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Provisioner{logger: logger.With(logging.Component("schema"))}
}

// Provision stages an indexed key for every definition that is neither
// reserved nor already present. An existing key is kept as declared even
// when the requested type differs. The caller must hold the graph's schema
// lock. On error the caller must roll back: keys staged so far are only
// visible inside the transaction.
func (p *Provisioner) Provision(tx SchemaWriter, defs []KeyDefinition) ([]KeyResult, error) {
	results := make([]KeyResult, 0, len(defs))
	for _, def := range defs {
		if storage.IsReservedKey(def.Name) {
			p.logger.Debug("skipping reserved key", logging.Key(def.Name))
			results = append(results, KeyResult{KeyDefinition: def, Outcome: SkippedReserved})
			continue
		}

		if existing, ok := tx.PropertyKey(def.Name); ok {
			if existing.DataType != def.Type {
				p.logger.Warn("key exists with a different type, keeping it",
					logging.Key(def.Name),
					logging.String("existing", existing.DataType.String()),
					logging.String("requested", def.Type.String()))
			}
			results = append(results, KeyResult{KeyDefinition: def, Outcome: SkippedExisting})
			continue
		}

		if err := tx.MakeKey(def.Name, def.Type); err != nil {
			if errors.Is(err, storage.ErrKeyExists) {
				results = append(results, KeyResult{KeyDefinition: def, Outcome: SkippedExisting})
				continue
			}
			return results, err
		}
		p.logger.Debug("staged property key",
			logging.Key(def.Name),
			logging.String("type", def.Type.String()))
		results = append(results, KeyResult{KeyDefinition: def, Outcome: Created})
	}
	return results, nil
}

// CountCreated counts the keys a provisioning run staged.
func CountCreated(results []KeyResult) int {
	n := 0
	for _, r := range results {
		if r.Outcome == Created {
			n++
		}
	}
	return n
}
