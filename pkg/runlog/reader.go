package runlog

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/golang/snappy"
)

// Reader replays a journal sequentially. It works on cleanly closed
// journals and on journals whose writer crashed: without an index block
// it reads entries until the file ends, dropping a torn final write.
type Reader struct {
	file   *os.File
	r      *bufio.Reader
	hdr    header
	offset uint64
}

// Open opens a journal for sequential replay.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	r := &Reader{file: file, r: bufio.NewReader(file)}
	if err := binary.Read(r.r, binary.LittleEndian, &r.hdr); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("read journal header: %w", err)
	}
	if r.hdr.Magic != Magic {
		_ = file.Close()
		return nil, fmt.Errorf("not a journal file: magic %x", r.hdr.Magic)
	}
	if r.hdr.Version != Version {
		_ = file.Close()
		return nil, fmt.Errorf("unsupported journal version %d", r.hdr.Version)
	}
	r.offset = uint64(binary.Size(r.hdr))
	return r, nil
}

// Next returns the next record. It reports io.EOF when the journal is
// exhausted: at the index block for closed journals, at the end of data
// for crashed ones. A torn final write from a crash counts as the end.
func (r *Reader) Next() (Record, error) {
	if r.hdr.IndexOffset > 0 && r.offset >= r.hdr.IndexOffset {
		return Record{}, io.EOF
	}

	var tsLen uint16
	if err := binary.Read(r.r, binary.LittleEndian, &tsLen); err != nil {
		return Record{}, eofOrErr(err)
	}
	ts := make([]byte, tsLen)
	if _, err := io.ReadFull(r.r, ts); err != nil {
		return Record{}, eofOrErr(err)
	}

	var payloadLen uint32
	if err := binary.Read(r.r, binary.LittleEndian, &payloadLen); err != nil {
		return Record{}, eofOrErr(err)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return Record{}, eofOrErr(err)
	}

	var sum uint32
	if err := binary.Read(r.r, binary.LittleEndian, &sum); err != nil {
		return Record{}, eofOrErr(err)
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

	r.offset += uint64(entrySize(int(tsLen), int(payloadLen)))
	return rec, nil
}

// Close closes the journal file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadAll replays a journal into memory.
func ReadAll(path string) ([]Record, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// eofOrErr folds a truncated read into io.EOF: a torn final entry from a
// crashed writer ends the replay instead of failing it.
func eofOrErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}
