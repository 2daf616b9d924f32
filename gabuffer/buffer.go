// Package gabuffer accumulates serialized block records into the ordered
// byte stream that segments are carved from, and replays a reconstructed
// stream back into records.
package gabuffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// RecordPrefixSize is the length of the little-endian length prefix
// embedded at the front of every block record.
const RecordPrefixSize = 4

// ErrBufferUnderflow is returned by [Buffer.TakeSegment] when fewer than
// one segment's worth of bytes is buffered.
// It indicates a caller error; the buffer does not retry or block.
var ErrBufferUnderflow = errors.New("buffered bytes insufficient for a full segment")

// Buffer is the raw record buffer: an ordered byte stream of block
// records awaiting archival. Exactly one producer pushes records;
// the segment assembler consumes the stream in segment-capacity slices.
type Buffer struct {
	capacity int

	buf []byte

	// taken is the total number of bytes consumed by TakeSegment
	// since the buffer was created, used for header byte ranges.
	taken uint64
}

// NewBuffer returns a Buffer that cuts segments of the given capacity.
func NewBuffer(segmentCapacity int) (*Buffer, error) {
	if segmentCapacity <= 0 {
		return nil, fmt.Errorf("segment capacity must be > 0 (got %d)", segmentCapacity)
	}
	return &Buffer{capacity: segmentCapacity}, nil
}

// Push appends one block record to the stream.
// The record must be a well-formed length-prefixed blob
// (see [NewRecord]); records are never reordered or duplicated.
func (b *Buffer) Push(record []byte) error {
	if len(record) < RecordPrefixSize {
		return fmt.Errorf("record shorter than its length prefix: %d bytes", len(record))
	}

	want := binary.LittleEndian.Uint32(record[:RecordPrefixSize])
	if int(want) != len(record)-RecordPrefixSize {
		return fmt.Errorf(
			"record length prefix %d does not match payload length %d",
			want, len(record)-RecordPrefixSize,
		)
	}

	b.buf = append(b.buf, record...)
	return nil
}

// Buffered returns the number of bytes currently awaiting archival.
func (b *Buffer) Buffered() int {
	return len(b.buf)
}

// HasFullSegment reports whether TakeSegment would succeed.
func (b *Buffer) HasFullSegment() bool {
	return len(b.buf) >= b.capacity
}

// TakeSegment removes and returns exactly one segment capacity of bytes
// from the front of the stream. A record straddling the cut keeps its
// remainder buffered for the next segment.
//
// The returned offsets are the inclusive stream-byte range the slice
// covers, counted from the first byte ever pushed.
func (b *Buffer) TakeSegment() (seg []byte, firstByte, lastByte uint64, err error) {
	if len(b.buf) < b.capacity {
		return nil, 0, 0, ErrBufferUnderflow
	}

	seg = make([]byte, b.capacity)
	copy(seg, b.buf[:b.capacity])

	// Shift the remainder down rather than re-slicing,
	// so consumed bytes do not pin the backing array.
	n := copy(b.buf, b.buf[b.capacity:])
	b.buf = b.buf[:n]

	firstByte = b.taken
	b.taken += uint64(b.capacity)
	lastByte = b.taken - 1

	return seg, firstByte, lastByte, nil
}

// NewRecord frames a block's canonical serialization as a record:
// a 4-byte little-endian payload length followed by the payload.
// The prefix is part of the record and travels through the archive,
// so reconstruction can re-split the stream without out-of-band metadata.
func NewRecord(payload []byte) ([]byte, error) {
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, fmt.Errorf("payload too large for record framing: %d bytes", len(payload))
	}

	record := make([]byte, RecordPrefixSize+len(payload))
	binary.LittleEndian.PutUint32(record[:RecordPrefixSize], uint32(len(payload)))
	copy(record[RecordPrefixSize:], payload)
	return record, nil
}
