package wal

import "fmt"

// OpType identifies the kind of record stored in the log.
type OpType uint8

const (
	OpCreatePropertyKey OpType = iota + 1
	OpCreateVertex
	OpCreateEdge
	// OpCommit terminates a transaction group. Groups without it are ignored on replay.
	OpCommit
)

func (op OpType) String() string {
	switch op {
	case OpCreatePropertyKey:
		return "create_property_key"
	case OpCreateVertex:
		return "create_vertex"
	case OpCreateEdge:
		return "create_edge"
	case OpCommit:
		return "commit"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// Record is one operation handed to AppendGroup.
type Record struct {
	OpType OpType
	Data   []byte
}

// Entry is a record as read back from disk, with its framing metadata.
type Entry struct {
	LSN       uint64 // Log Sequence Number
	TxID      uint64
	OpType    OpType
	Data      []byte // always uncompressed
	Checksum  uint32
	Timestamp int64
}

// Options configures a WAL.
type Options struct {
	// Compress stores record payloads snappy-encoded.
	Compress bool
}

// Stats reports write volume since the log was opened.
type Stats struct {
	Groups       uint64
	Records      uint64
	BytesRaw     uint64
	BytesWritten uint64
}

// CompressionRatio returns written/raw payload bytes, or 1 when nothing was written.
func (s Stats) CompressionRatio() float64 {
	if s.BytesRaw == 0 {
		return 1
	}
	return float64(s.BytesWritten) / float64(s.BytesRaw)
}
