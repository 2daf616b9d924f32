package gabuffer

import "encoding/binary"

// RecordReader replays a reconstructed byte stream back into block
// records. Segments are appended in index order; records straddling a
// segment boundary complete once the next segment's bytes arrive.
type RecordReader struct {
	buf []byte
}

// NewRecordReader returns an empty RecordReader.
func NewRecordReader() *RecordReader {
	return new(RecordReader)
}

// Append adds the next reconstructed segment's source bytes to the stream.
// Callers must append segments in strictly increasing index order,
// with padding already stripped.
func (r *RecordReader) Append(segmentBytes []byte) {
	r.buf = append(r.buf, segmentBytes...)
}

// Next returns the payload of the next complete record in the stream,
// without its length prefix. The ok value is false when the buffered
// bytes end mid-record; appending more segments may complete it.
func (r *RecordReader) Next() (payload []byte, ok bool) {
	if len(r.buf) < RecordPrefixSize {
		return nil, false
	}

	n := int(binary.LittleEndian.Uint32(r.buf[:RecordPrefixSize]))
	if len(r.buf)-RecordPrefixSize < n {
		return nil, false
	}

	payload = make([]byte, n)
	copy(payload, r.buf[RecordPrefixSize:RecordPrefixSize+n])

	rest := copy(r.buf, r.buf[RecordPrefixSize+n:])
	r.buf = r.buf[:rest]

	return payload, true
}

// Pending returns the number of stream bytes held that do not yet form
// a complete record.
func (r *RecordReader) Pending() int {
	return len(r.buf)
}

// Records drains every complete record currently in the stream.
func (r *RecordReader) Records() [][]byte {
	var records [][]byte
	for {
		payload, ok := r.Next()
		if !ok {
			return records
		}
		records = append(records, payload)
	}
}
