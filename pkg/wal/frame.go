package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/golang/snappy"
)

const flagSnappy byte = 1 << 0

// frame layout: [LSN:8][TxID:8][Op:1][Flags:1][Len:4][Payload:N][CRC:4][Timestamp:8]
const frameHeaderSize = 8 + 8 + 1 + 1 + 4

var errChecksum = errors.New("checksum mismatch")

// encodeFrame serialises an entry, compressing the payload when requested.
// It returns the framed bytes and the stored payload length.
func encodeFrame(e *Entry, compress bool) ([]byte, int) {
	payload := e.Data
	var flags byte
	if compress {
		payload = snappy.Encode(nil, e.Data)
		flags |= flagSnappy
	}
	e.Checksum = crc32.ChecksumIEEE(payload)

	buf := make([]byte, frameHeaderSize+len(payload)+4+8)
	binary.LittleEndian.PutUint64(buf[0:8], e.LSN)
	binary.LittleEndian.PutUint64(buf[8:16], e.TxID)
	buf[16] = byte(e.OpType)
	buf[17] = flags
	binary.LittleEndian.PutUint32(buf[18:22], uint32(len(payload)))
	copy(buf[frameHeaderSize:], payload)
	tail := buf[frameHeaderSize+len(payload):]
	binary.LittleEndian.PutUint32(tail[0:4], e.Checksum)
	binary.LittleEndian.PutUint64(tail[4:12], uint64(e.Timestamp))
	return buf, len(payload)
}

// decodeFrame reads one entry. io.EOF is returned only on a clean boundary.
func decodeFrame(r *bufio.Reader) (*Entry, error) {
	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("truncated header: %w", err)
		}
		return nil, err
	}

	e := &Entry{
		LSN:    binary.LittleEndian.Uint64(header[0:8]),
		TxID:   binary.LittleEndian.Uint64(header[8:16]),
		OpType: OpType(header[16]),
	}
	flags := header[17]
	size := binary.LittleEndian.Uint32(header[18:22])

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("truncated payload at LSN %d: %w", e.LSN, err)
	}
	tail := make([]byte, 12)
	if _, err := io.ReadFull(r, tail); err != nil {
		return nil, fmt.Errorf("truncated trailer at LSN %d: %w", e.LSN, err)
	}
	e.Checksum = binary.LittleEndian.Uint32(tail[0:4])
	e.Timestamp = int64(binary.LittleEndian.Uint64(tail[4:12]))

	if crc32.ChecksumIEEE(payload) != e.Checksum {
		return nil, fmt.Errorf("LSN %d: %w", e.LSN, errChecksum)
	}

	if flags&flagSnappy != 0 {
		data, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("LSN %d: decompress: %w", e.LSN, err)
		}
		payload = data
	}
	e.Data = payload
	return e, nil
}
