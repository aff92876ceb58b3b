package runlog

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/snappy"
)

// indexEntry remembers where a timestamp's record starts in the file.
type indexEntry struct {
	ts     string
	offset uint64
}

// Writer appends solve records to a journal file. Appends are flushed
// individually so a crash loses at most the entry being written; the
// index block and final header are written on Close.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	w      *bufio.Writer
	offset uint64
	index  []indexEntry
	seq    uint64
	closed bool
}

// Create starts a new journal at path, truncating any previous file.
// Parent directories are created as needed.
func Create(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create journal: %w", err)
	}

	w := &Writer{
		file:   file,
		w:      bufio.NewWriter(file),
		offset: uint64(binary.Size(header{})),
	}

	// Placeholder header; Close rewrites it with the entry count and
	// index offset.
	hdr := header{Magic: Magic, Version: Version}
	if err := binary.Write(w.w, binary.LittleEndian, &hdr); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("write journal header: %w", err)
	}
	return w, nil
}

// Append writes one record and flushes it to the file. It returns the
// on-disk size of the entry. The record's sequence number is assigned
// here, in append order.
func (w *Writer) Append(rec Record) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}

	w.seq++
	rec.Seq = w.seq

	raw, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("marshal journal record: %w", err)
	}
	payload := snappy.Encode(nil, raw)

	ts := []byte(rec.Timestamp)
	if len(ts) > math.MaxUint16 {
		return 0, fmt.Errorf("timestamp too long for journal: %d bytes", len(ts))
	}

	w.index = append(w.index, indexEntry{ts: string(rec.Timestamp), offset: w.offset})

	if err := binary.Write(w.w, binary.LittleEndian, uint16(len(ts))); err != nil {
		return 0, err
	}
	if _, err := w.w.Write(ts); err != nil {
		return 0, err
	}
	if err := binary.Write(w.w, binary.LittleEndian, uint32(len(payload))); err != nil {
		return 0, err
	}
	if _, err := w.w.Write(payload); err != nil {
		return 0, err
	}
	if err := binary.Write(w.w, binary.LittleEndian, crc32.ChecksumIEEE(payload)); err != nil {
		return 0, err
	}

	size := entrySize(len(ts), len(payload))
	w.offset += uint64(size)
	return size, w.w.Flush()
}

// Count returns the number of records appended so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.index)
}

// Close writes the index block, rewrites the header with the final entry
// count and index offset, and closes the file. Closing twice is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	indexOffset := w.offset
	if err := binary.Write(w.w, binary.LittleEndian, uint32(len(w.index))); err != nil {
		return err
	}
	for _, ie := range w.index {
		if err := binary.Write(w.w, binary.LittleEndian, uint16(len(ie.ts))); err != nil {
			return err
		}
		if _, err := w.w.WriteString(ie.ts); err != nil {
			return err
		}
		if err := binary.Write(w.w, binary.LittleEndian, ie.offset); err != nil {
			return err
		}
	}
	if err := w.w.Flush(); err != nil {
		return err
	}

	hdr := header{
		Magic:       Magic,
		Version:     Version,
		EntryCount:  uint64(len(w.index)),
		IndexOffset: indexOffset,
	}
	if _, err := w.file.Seek(0, 0); err != nil {
		return err
	}
	if err := binary.Write(w.file, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	if err := w.file.Sync(); err != nil {
		return err
	}
	return w.file.Close()
}

// entrySize is the framed size of one entry on disk.
func entrySize(tsLen, payloadLen int) int {
	return 2 + tsLen + 4 + payloadLen + 4
}
