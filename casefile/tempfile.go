// Package casefile implements the on-disk and spill-aware in-memory
// storage this module stacks everything else on: TempFile is a
// fixed-row-width random-access file of cases, and Window is a FIFO queue
// of cases that keeps the most recent ones in memory and automatically
// spills the rest to a TempFile once a size threshold is crossed.
//
// TempFile's row framing — a little-endian CRC32 (encoding/binary)
// guarding each row's payload, written with one WriteAt per row — is adapted
// from the teacher's append-only WAL encoding (wal.go's Log.Encode /
// Decode), but retargeted from sequential append-with-backpatch to direct
// offset = index * rowBytes addressing, since a case tempfile is read and
// written in arbitrary order, never scanned front to back.
package casefile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/cprocess/caseengine/taint"
	"github.com/cprocess/caseengine/value"
)

// ErrCorruptRow is returned by GetCase when a row's checksum does not
// match its payload.
var ErrCorruptRow = errors.New("casefile: corrupt row")

const crcSize = 4

// TempFile is a fixed-row-width random-access case store backed by an
// anonymous OS temp file. Every row occupies exactly RowBytes() bytes
// regardless of whether it has ever been written, so GetCase on an
// untouched row returns a case whose slots are all zero bytes (numeric
// 0.0, not system-missing; NUL string bytes, not spaces).
//
// TempFile owns a taint.Node, tainted by any I/O failure against its
// backing file; casefile.Window propagates from this node into its own.
// The sort engine's readers do not: they set their own node on a failed
// read.
type TempFile struct {
	f          *os.File
	numSlots   int
	rowBytes   int64 // crcSize + numSlots*value.SlotBytes
	node       *taint.Node
	syncWrites bool
}

// NewTempFile creates a new backing file for cases with numSlots value
// slots each. Every PutCase is followed by an fsync before it returns,
// the way the teacher's WAL writer always syncs after every entry; use
// NewTempFileAsync to trade that durability for throughput.
func NewTempFile(numSlots int) (*TempFile, error) {
	return NewTempFileAsync(numSlots, false)
}

// NewTempFileAsync creates a new backing file like NewTempFile, but lets
// the caller opt into async writes (asyncSync true skips the fsync after
// each PutCase) via config.Workspace.AsyncSync.
func NewTempFileAsync(numSlots int, asyncSync bool) (*TempFile, error) {
	f, err := os.CreateTemp("", "caseengine-tempfile-*")
	if err != nil {
		return nil, fmt.Errorf("casefile: create temp file: %w", err)
	}
	// The file's directory entry is never needed by name; unlinking now
	// means the space is reclaimed as soon as the last handle closes.
	_ = os.Remove(f.Name())

	return &TempFile{
		f:          f,
		numSlots:   numSlots,
		rowBytes:   int64(crcSize + numSlots*value.SlotBytes),
		node:       taint.New(),
		syncWrites: !asyncSync,
	}, nil
}

// Taint returns the node tainted by this file's I/O failures.
func (tf *TempFile) Taint() *taint.Node { return tf.node }

// Close releases the backing file.
func (tf *TempFile) Close() error {
	if err := tf.f.Close(); err != nil {
		tf.node.Set()
		return err
	}
	return nil
}

func (tf *TempFile) offset(idx uint64) int64 {
	return int64(idx) * tf.rowBytes
}

// PutCase writes c's slots at row idx, which need not have been written
// before; rows in between read back as zero bytes until written.
func (tf *TempFile) PutCase(idx uint64, c value.Case) error {
	if c.NumSlots() != tf.numSlots {
		return fmt.Errorf("casefile: case has %d slots, file expects %d", c.NumSlots(), tf.numSlots)
	}

	payload := make([]byte, tf.numSlots*value.SlotBytes)
	for i := 0; i < tf.numSlots; i++ {
		s := c.SlotAt(i)
		copy(payload[i*value.SlotBytes:], s[:])
	}
	crc := crc32.ChecksumIEEE(payload)

	row := make([]byte, 0, tf.rowBytes)
	buf := make([]byte, crcSize)
	binary.LittleEndian.PutUint32(buf, crc)
	row = append(row, buf...)
	row = append(row, payload...)

	if _, err := tf.f.WriteAt(row, tf.offset(idx)); err != nil {
		tf.node.Set()
		return fmt.Errorf("casefile: write row %d: %w", idx, err)
	}
	if tf.syncWrites {
		if err := tf.f.Sync(); err != nil {
			tf.node.Set()
			return fmt.Errorf("casefile: sync row %d: %w", idx, err)
		}
	}
	return nil
}

// GetCase reads row idx into dst, which must already have numSlots slots
// (e.g. via value.NewCase or value.Resize). A row that was never written
// reads back as all zero bytes (numeric 0.0), not an error.
func (tf *TempFile) GetCase(idx uint64, dst *value.Case) error {
	if dst.NumSlots() != tf.numSlots {
		return fmt.Errorf("casefile: destination has %d slots, file expects %d", dst.NumSlots(), tf.numSlots)
	}

	row := make([]byte, tf.rowBytes)
	n, err := tf.f.ReadAt(row, tf.offset(idx))
	if err != nil && err != io.EOF {
		tf.node.Set()
		return fmt.Errorf("casefile: read row %d: %w", idx, err)
	}
	if n < len(row) {
		// Row past current EOF: never written, treat as blank.
		for i := n; i < len(row); i++ {
			row[i] = 0
		}
	}

	storedCRC := binary.LittleEndian.Uint32(row[:crcSize])
	payload := row[crcSize:]
	if storedCRC != 0 || !isZero(payload) {
		if crc32.ChecksumIEEE(payload) != storedCRC {
			tf.node.Set()
			return ErrCorruptRow
		}
	}

	for i := 0; i < tf.numSlots; i++ {
		var s value.Slot
		copy(s[:], payload[i*value.SlotBytes:(i+1)*value.SlotBytes])
		dst.SetSlotAt(i, s)
	}
	return nil
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// RowBytes returns the fixed on-disk size of one row, including its
// checksum.
func (tf *TempFile) RowBytes() int64 { return tf.rowBytes }
