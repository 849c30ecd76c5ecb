package storage

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNodeNotFound            = errors.New("node not found")
	ErrEdgeNotFound            = errors.New("edge not found")
	ErrStorageClosed           = errors.New("storage is closed")
	ErrKeyExists               = errors.New("property key already exists")
	ErrReservedKey             = errors.New("property key name is reserved")
	ErrInvalidPropertyType     = errors.New("invalid property type")
	ErrSchemaConflict          = errors.New("schema conflict")
	ErrTypeMismatch            = errors.New("property type mismatch")
	ErrTransactionNotActive    = errors.New("transaction is not active")
	ErrTransactionAlreadyEnded = errors.New("transaction has already been committed or rolled back")
	ErrWALAppendFailed         = errors.New("WAL append failed")
)

// StorageError provides structured error information for storage operations.
type StorageError struct {
	Op     string // Operation that failed (e.g., "commit", "make_key")
	Entity string // Entity type (e.g., "node", "edge", "key")
	ID     uint64 // Entity ID (if applicable)
	Name   string // Key name or external identifier
	Cause  error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	switch {
	case e.ID != 0 && e.Name != "":
		return fmt.Sprintf("%s %s %d (%s): %v", e.Op, e.Entity, e.ID, e.Name, e.Cause)
	case e.ID != 0:
		return fmt.Sprintf("%s %s %d: %v", e.Op, e.Entity, e.ID, e.Cause)
	case e.Name != "":
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.Name, e.Cause)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building StorageErrors.
type ErrorBuilder struct {
	err StorageError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: StorageError{Op: op}}
}

// Node sets the entity to "node" with the given ID.
func (b *ErrorBuilder) Node(id uint64) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.ID = id
	return b
}

// Edge sets the entity to "edge" with the given ID.
func (b *ErrorBuilder) Edge(id uint64) *ErrorBuilder {
	b.err.Entity = "edge"
	b.err.ID = id
	return b
}

// Key sets the entity to "property key" with the given name.
func (b *ErrorBuilder) Key(name string) *ErrorBuilder {
	b.err.Entity = "property key"
	b.err.Name = name
	return b
}

// Tx sets the entity to "transaction" with the given ID.
func (b *ErrorBuilder) Tx(id uint64) *ErrorBuilder {
	b.err.Entity = "transaction"
	b.err.ID = id
	return b
}

// External records the document identifier of the element involved.
func (b *ErrorBuilder) External(id string) *ErrorBuilder {
	b.err.Name = id
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// NodeNotFoundError creates a node not found error.
func NodeNotFoundError(nodeID uint64) error {
	return NewError("get").Node(nodeID).Cause(ErrNodeNotFound).Err()
}

// EdgeNotFoundError creates an edge not found error.
func EdgeNotFoundError(edgeID uint64) error {
	return NewError("get").Edge(edgeID).Cause(ErrEdgeNotFound).Err()
}

// SchemaConflictError reports a key staged with a type that differs from
// the one already committed (or staged) for the same name.
func SchemaConflictError(name string, existing, requested PropertyType) error {
	return NewError("make_key").Key(name).
		Cause(fmt.Errorf("%w: exists as %s, requested %s", ErrSchemaConflict, existing, requested)).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound) || errors.Is(err, ErrEdgeNotFound)
}

// IsClosed returns true if the error indicates the storage is closed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrStorageClosed)
}
