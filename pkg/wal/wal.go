package wal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dd0wney/cluso-ingest/pkg/logging"
)

const walFileName = "wal.log"

// WAL is an append-only log of transaction groups. A group is only
// considered durable once its commit marker has been synced.
type WAL struct {
	file       *os.File
	writer     *bufio.Writer
	path       string
	compress   bool
	currentLSN uint64
	stats      Stats
	logger     logging.Logger
	mu         sync.Mutex
}

// Open opens or creates the log in dataDir and recovers the last LSN.
func Open(dataDir string, opts Options) (*WAL, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}

	path := filepath.Join(dataDir, walFileName)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}

	w := &WAL{
		file:     file,
		writer:   bufio.NewWriter(file),
		path:     path,
		compress: opts.Compress,
		logger:   logging.DefaultLogger().With(logging.Component("wal"), logging.Path(path)),
	}

	entries, validBytes, err := w.readAll()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to recover LSN: %w", err)
	}
	if len(entries) > 0 {
		w.currentLSN = entries[len(entries)-1].LSN
	}

	// Drop a torn tail so new groups are not appended after garbage.
	if info, statErr := file.Stat(); statErr == nil && info.Size() > validBytes {
		w.logger.Warn("truncating torn WAL tail",
			logging.Int64("valid_bytes", validBytes),
			logging.Int64("file_bytes", info.Size()))
		if err := file.Truncate(validBytes); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to truncate torn WAL tail: %w", err)
		}
	}

	return w, nil
}

// AppendGroup writes records followed by an OpCommit marker and syncs once.
// On failure the file is cut back to its previous length.
func (w *WAL) AppendGroup(txID uint64, records []Record) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, fmt.Errorf("WAL is closed")
	}
	if w.currentLSN > ^uint64(0)-uint64(len(records))-1 {
		return 0, fmt.Errorf("WAL LSN space exhausted - require WAL rotation")
	}

	info, err := w.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat WAL: %w", err)
	}
	startSize := info.Size()
	startLSN := w.currentLSN
	now := time.Now().Unix()

	var raw, written uint64
	writeOne := func(op OpType, data []byte) error {
		w.currentLSN++
		e := &Entry{LSN: w.currentLSN, TxID: txID, OpType: op, Data: data, Timestamp: now}
		frame, stored := encodeFrame(e, w.compress)
		raw += uint64(len(data))
		written += uint64(stored)
		_, err := w.writer.Write(frame)
		return err
	}

	fail := func(err error) (uint64, error) {
		w.currentLSN = startLSN
		w.writer.Reset(w.file)
		if truncErr := w.file.Truncate(startSize); truncErr != nil {
			w.logger.Error("failed to cut back partial WAL group", logging.Error(truncErr))
		}
		return 0, err
	}

	for _, rec := range records {
		if err := writeOne(rec.OpType, rec.Data); err != nil {
			return fail(fmt.Errorf("failed to write WAL record: %w", err))
		}
	}
	if err := writeOne(OpCommit, nil); err != nil {
		return fail(fmt.Errorf("failed to write WAL commit marker: %w", err))
	}
	if err := w.writer.Flush(); err != nil {
		return fail(fmt.Errorf("failed to flush WAL: %w", err))
	}
	if err := w.file.Sync(); err != nil {
		return fail(fmt.Errorf("failed to sync WAL: %w", err))
	}

	w.stats.Groups++
	w.stats.Records += uint64(len(records))
	w.stats.BytesRaw += raw
	w.stats.BytesWritten += written
	return w.currentLSN, nil
}

// readAll returns every intact entry and the byte length they occupy.
// A corrupt or torn frame ends the scan without an error.
func (w *WAL) readAll() ([]*Entry, int64, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	counter := &countingReader{r: f}
	reader := bufio.NewReader(counter)
	entries := make([]*Entry, 0)
	var valid int64

	for {
		entry, err := decodeFrame(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			w.logger.Warn("WAL corruption detected, recovery stopped",
				logging.Count(len(entries)), logging.Error(err))
			break
		}
		entries = append(entries, entry)
		valid = counter.n - int64(reader.Buffered())
	}
	return entries, valid, nil
}

// Replay calls handler for every record of every committed group, in log
// order. Commit markers themselves are passed through so callers can apply
// a group atomically.
func (w *WAL) Replay(handler func(*Entry) error) error {
	w.mu.Lock()
	if w.writer != nil {
		if err := w.writer.Flush(); err != nil {
			w.mu.Unlock()
			return err
		}
	}
	entries, _, err := w.readAll()
	w.mu.Unlock()
	if err != nil {
		return err
	}

	committed := make(map[uint64]bool)
	for _, e := range entries {
		if e.OpType == OpCommit {
			committed[e.TxID] = true
		}
	}

	for _, e := range entries {
		if !committed[e.TxID] {
			continue
		}
		if err := handler(e); err != nil {
			return fmt.Errorf("failed to replay entry LSN=%d: %w", e.LSN, err)
		}
	}
	return nil
}

// Truncate empties the log, e.g. after a snapshot.
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush WAL before truncate: %w", err)
	}
	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate WAL: %w", err)
	}
	w.writer.Reset(w.file)
	w.currentLSN = 0
	return nil
}

// CurrentLSN returns the LSN of the last written entry.
func (w *WAL) CurrentLSN() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentLSN
}

// Stats returns write statistics.
func (w *WAL) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Close flushes, syncs and closes the log. Closing twice is a no-op.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	if err := w.writer.Flush(); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	err := w.file.Close()
	w.file = nil
	return err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
