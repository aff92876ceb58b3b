package runlog

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"

	"github.com/golang/snappy"
	"golang.org/x/exp/mmap"

	"github.com/voltlab/gridflow/pkg/series"
)

// MappedReader serves random access into a closed journal by timestamp,
// reading entries through a memory map. It needs the index block, so it
// only opens journals whose writer closed cleanly.
type MappedReader struct {
	path  string
	m     *mmap.ReaderAt
	hdr   header
	index map[series.Timestamp]uint64
	order []series.Timestamp
}

// OpenMapped memory-maps a journal and loads its index block.
func OpenMapped(path string) (*MappedReader, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("map journal: %w", err)
	}

	mr := &MappedReader{path: path, m: m}

	headerSize := binary.Size(header{})
	buf := make([]byte, headerSize)
	if _, err := m.ReadAt(buf, 0); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("read journal header: %w", err)
	}
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &mr.hdr); err != nil {
		_ = m.Close()
		return nil, err
	}
	if mr.hdr.Magic != Magic {
		_ = m.Close()
		return nil, fmt.Errorf("not a journal file: magic %x", mr.hdr.Magic)
	}
	if mr.hdr.IndexOffset == 0 {
		_ = m.Close()
		return nil, ErrNoIndex
	}

	if err := mr.loadIndex(); err != nil {
		_ = m.Close()
		return nil, err
	}
	return mr, nil
}

// loadIndex reads the index block written at close.
func (mr *MappedReader) loadIndex() error {
	pos := int64(mr.hdr.IndexOffset)

	var count uint32
	if err := mr.readAt(&count, pos, 4); err != nil {
		return fmt.Errorf("read index count: %w", err)
	}
	pos += 4

	mr.index = make(map[series.Timestamp]uint64, count)
	mr.order = make([]series.Timestamp, 0, count)

	for i := uint32(0); i < count; i++ {
		var tsLen uint16
		if err := mr.readAt(&tsLen, pos, 2); err != nil {
			return fmt.Errorf("read index entry %d: %w", i, err)
		}
		pos += 2

		ts := make([]byte, tsLen)
		if _, err := mr.m.ReadAt(ts, pos); err != nil {
			return fmt.Errorf("read index entry %d: %w", i, err)
		}
		pos += int64(tsLen)

		var offset uint64
		if err := mr.readAt(&offset, pos, 8); err != nil {
			return fmt.Errorf("read index entry %d: %w", i, err)
		}
		pos += 8

		key := series.Timestamp(ts)
		mr.index[key] = offset
		mr.order = append(mr.order, key)
	}
	return nil
}

// readAt decodes one fixed-size value from the map at pos.
func (mr *MappedReader) readAt(v any, pos int64, size int) error {
	buf := make([]byte, size)
	if _, err := mr.m.ReadAt(buf, pos); err != nil {
		return err
	}
	return binary.Read(bytes.NewReader(buf), binary.LittleEndian, v)
}

// Len returns the number of journaled records.
func (mr *MappedReader) Len() int {
	return len(mr.index)
}

// Timestamps returns the journaled timestamps in append order.
func (mr *MappedReader) Timestamps() []series.Timestamp {
	return append([]series.Timestamp(nil), mr.order...)
}

// Lookup reads the record of one timestamp.
func (mr *MappedReader) Lookup(ts series.Timestamp) (Record, error) {
	offset, ok := mr.index[ts]
	if !ok {
		return Record{}, fmt.Errorf("%w: %q", ErrNotInJournal, ts)
	}
	pos := int64(offset)

	var tsLen uint16
	if err := mr.readAt(&tsLen, pos, 2); err != nil {
		return Record{}, err
	}
	pos += 2 + int64(tsLen)

	var payloadLen uint32
	if err := mr.readAt(&payloadLen, pos, 4); err != nil {
		return Record{}, err
	}
	pos += 4

	payload := make([]byte, payloadLen)
	if _, err := mr.m.ReadAt(payload, pos); err != nil {
		return Record{}, err
	}
	pos += int64(payloadLen)

	var sum uint32
	if err := mr.readAt(&sum, pos, 4); err != nil {
		return Record{}, err
	}
	if crc32.ChecksumIEEE(payload) != sum {
		return Record{}, fmt.Errorf("%w: timestamp %q", ErrCorrupt, ts)
	}

	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return rec, nil
}

// Close unmaps the journal.
func (mr *MappedReader) Close() error {
	if mr.m != nil {
		return mr.m.Close()
	}
	return nil
}
