package wal

// GroupAppender writes a transaction's records followed by a commit marker.
type GroupAppender interface {
	// AppendGroup returns the LSN of the commit marker.
	AppendGroup(txID uint64, records []Record) (uint64, error)
}

// Replayer iterates committed records for recovery after restart.
type Replayer interface {
	Replay(handler func(*Entry) error) error
}

// WriteAheadLog is the full contract the storage engine depends on.
type WriteAheadLog interface {
	GroupAppender
	Replayer
	Truncate() error
	Close() error
	CurrentLSN() uint64
}

var _ WriteAheadLog = (*WAL)(nil)
