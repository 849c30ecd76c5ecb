// Package events fans import outcomes out to in-process subscribers and,
// optionally, to external consumers over a mangos PUB socket.
package events

import (
	"context"
	"time"
)

// Topics
const (
	TopicImportCommitted = "import.committed"
	TopicImportFailed    = "import.failed"
)

// Event describes one finished import.
type Event struct {
	Topic       string    `json:"topic"`
	ImportID    string    `json:"import_id"`
	GraphID     string    `json:"graph_id"`
	Format      string    `json:"format"`
	Vertices    int       `json:"vertices"`
	Edges       int       `json:"edges"`
	KeysCreated int       `json:"keys_created"`
	Error       string    `json:"error,omitempty"`
	Time        time.Time `json:"time"`
}

// Publisher accepts events. Implementations must not block the caller on
// slow consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, Event) error { return nil }
