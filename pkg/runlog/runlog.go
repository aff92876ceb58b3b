// Package runlog is the append-only journal of a study run. Every
// timestamp the solve loop finishes, solved or failed, becomes one
// journal record, so an interrupted or crashed run can be inspected
// without re-solving the series.
//
// Journal format:
//
//	[Header: magic(4) | version(4) | entry_count(8) | index_offset(8)]
//	[Entries: ts_len(2) | ts | payload_len(4) | snappy(JSON) | crc32(4)]
//	[Index: count(4), then per entry ts_len(2) | ts | offset(8)]
//
// The header is rewritten on Close with the final entry count and index
// offset. A journal whose writer never closed keeps the zeroed header;
// the sequential Reader still replays it, the mapped reader does not.
package runlog

import (
	"errors"
	"time"

	"github.com/voltlab/gridflow/pkg/powerflow"
	"github.com/voltlab/gridflow/pkg/series"
)

const (
	// Magic identifies a journal file.
	Magic = 0x4746524C // "GFRL"
	// Version is the journal format version.
	Version = 1
)

var (
	// ErrClosed is returned when appending to a closed writer.
	ErrClosed = errors.New("journal closed")
	// ErrNoIndex is returned when a mapped reader opens a journal whose
	// writer never closed, so no index block exists.
	ErrNoIndex = errors.New("journal has no index block")
	// ErrNotInJournal is returned when a timestamp has no journal entry.
	ErrNotInJournal = errors.New("timestamp not in journal")
	// ErrCorrupt is returned when an entry fails its checksum.
	ErrCorrupt = errors.New("journal entry corrupt")
)

// header mirrors the on-disk file header.
type header struct {
	Magic       uint32
	Version     uint32
	EntryCount  uint64
	IndexOffset uint64
}

// NodeRecord is the journal's wire form of one bus result.
type NodeRecord struct {
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	VMag      float64 `json:"v_magnitude"`
	VAngleDeg float64 `json:"v_angle_deg"`
	P         float64 `json:"p"`
	Q         float64 `json:"q"`
}

// LineRecord is the journal's wire form of one branch result.
type LineRecord struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	IMag  float64 `json:"i_magnitude"`
	PFrom float64 `json:"p_from"`
	QFrom float64 `json:"q_from"`
	PTo   float64 `json:"p_to"`
	QTo   float64 `json:"q_to"`
	PLoss float64 `json:"p_loss"`
	QLoss float64 `json:"q_loss"`
}

// Record is one journal entry: the outcome of one timestamp's solve.
type Record struct {
	Seq        uint64           `json:"seq"`
	RunID      string           `json:"run_id"`
	Timestamp  series.Timestamp `json:"timestamp"`
	Solved     bool             `json:"solved"`
	Error      string           `json:"error,omitempty"`
	Iterations int              `json:"iterations,omitempty"`
	ElapsedMS  int64            `json:"elapsed_ms"`
	Nodes      []NodeRecord     `json:"nodes,omitempty"`
	Lines      []LineRecord     `json:"lines,omitempty"`
}

// Solved builds the journal record for a converged timestamp.
func Solved(runID string, ts series.Timestamp, nodes powerflow.NodeResults, lines powerflow.LineResults, iterations int, elapsed time.Duration) Record {
	return Record{
		RunID:      runID,
		Timestamp:  ts,
		Solved:     true,
		Iterations: iterations,
		ElapsedMS:  elapsed.Milliseconds(),
		Nodes:      nodeRecords(nodes),
		Lines:      lineRecords(lines),
	}
}

// Failed builds the journal record for a timestamp the run could not
// solve.
func Failed(runID string, ts series.Timestamp, cause error, elapsed time.Duration) Record {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return Record{
		RunID:     runID,
		Timestamp: ts,
		Solved:    false,
		Error:     msg,
		ElapsedMS: elapsed.Milliseconds(),
	}
}

func nodeRecords(nodes powerflow.NodeResults) []NodeRecord {
	out := make([]NodeRecord, len(nodes))
	for i, n := range nodes {
		out[i] = NodeRecord{
			Name:      n.Name,
			Kind:      n.Kind.String(),
			VMag:      n.VMag,
			VAngleDeg: n.VAngleDeg,
			P:         n.P,
			Q:         n.Q,
		}
	}
	return out
}

func lineRecords(lines powerflow.LineResults) []LineRecord {
	out := make([]LineRecord, len(lines))
	for i, l := range lines {
		out[i] = LineRecord{
			From:  l.From,
			To:    l.To,
			IMag:  l.IMag,
			PFrom: l.PFrom,
			QFrom: l.QFrom,
			PTo:   l.PTo,
			QTo:   l.QTo,
			PLoss: l.PLoss,
			QLoss: l.QLoss,
		}
	}
	return out
}
