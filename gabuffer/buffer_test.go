package gabuffer_test

import (
	"testing"

	"github.com/gordian-engine/garchive/gabuffer"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, payload []byte) []byte {
	t.Helper()
	rec, err := gabuffer.NewRecord(payload)
	require.NoError(t, err)
	return rec
}

func TestBuffer_TakeSegmentPreservesOrder(t *testing.T) {
	t.Parallel()

	b, err := gabuffer.NewBuffer(16)
	require.NoError(t, err)

	r1 := record(t, []byte("abcd"))     // 8 bytes framed
	r2 := record(t, []byte("efghijkl")) // 12 bytes framed

	require.NoError(t, b.Push(r1))
	require.False(t, b.HasFullSegment())

	require.NoError(t, b.Push(r2))
	require.True(t, b.HasFullSegment())
	require.Equal(t, 20, b.Buffered())

	seg, first, last, err := b.TakeSegment()
	require.NoError(t, err)
	require.Equal(t, uint64(0), first)
	require.Equal(t, uint64(15), last)

	want := append(append([]byte(nil), r1...), r2...)
	require.Equal(t, want[:16], seg)

	// The straddling record's remainder stays buffered.
	require.Equal(t, 4, b.Buffered())
	require.False(t, b.HasFullSegment())
}

func TestBuffer_TakeSegmentUnderflow(t *testing.T) {
	t.Parallel()

	b, err := gabuffer.NewBuffer(32)
	require.NoError(t, err)

	_, _, _, err = b.TakeSegment()
	require.ErrorIs(t, err, gabuffer.ErrBufferUnderflow)

	require.NoError(t, b.Push(record(t, []byte("short"))))
	_, _, _, err = b.TakeSegment()
	require.ErrorIs(t, err, gabuffer.ErrBufferUnderflow)
}

func TestBuffer_ByteRangesAreContiguous(t *testing.T) {
	t.Parallel()

	b, err := gabuffer.NewBuffer(8)
	require.NoError(t, err)

	require.NoError(t, b.Push(record(t, make([]byte, 20)))) // 24 bytes framed

	var next uint64
	for b.HasFullSegment() {
		_, first, last, err := b.TakeSegment()
		require.NoError(t, err)
		require.Equal(t, next, first)
		require.Equal(t, first+7, last)
		next = last + 1
	}
	require.Equal(t, uint64(24), next)
}

func TestBuffer_PushRejectsMalformedRecords(t *testing.T) {
	t.Parallel()

	b, err := gabuffer.NewBuffer(16)
	require.NoError(t, err)

	require.Error(t, b.Push([]byte{1, 2})) // shorter than the prefix

	// Prefix disagrees with payload length.
	require.Error(t, b.Push([]byte{5, 0, 0, 0, 1, 2, 3}))
}

func TestRecordReader_ReplaysAcrossSegments(t *testing.T) {
	t.Parallel()

	payloads := [][]byte{
		[]byte("first record"),
		[]byte("the second record is a bit longer"),
		[]byte("x"),
	}

	var stream []byte
	for _, p := range payloads {
		stream = append(stream, record(t, p)...)
	}

	// Feed the stream in segment-sized slices so records straddle cuts.
	r := gabuffer.NewRecordReader()
	const cut = 10
	for off := 0; off < len(stream); off += cut {
		end := off + cut
		if end > len(stream) {
			end = len(stream)
		}
		r.Append(stream[off:end])
	}

	got := r.Records()
	require.Len(t, got, len(payloads))
	for i, p := range payloads {
		require.Equal(t, p, got[i])
	}
	require.Zero(t, r.Pending())
}

func TestRecordReader_PartialRecordWaits(t *testing.T) {
	t.Parallel()

	rec := record(t, []byte("partially delivered"))

	r := gabuffer.NewRecordReader()
	r.Append(rec[:7])

	_, ok := r.Next()
	require.False(t, ok)
	require.Equal(t, 7, r.Pending())

	r.Append(rec[7:])
	payload, ok := r.Next()
	require.True(t, ok)
	require.Equal(t, []byte("partially delivered"), payload)
}

func TestRecordReader_EmptyPayloadRecord(t *testing.T) {
	t.Parallel()

	r := gabuffer.NewRecordReader()
	r.Append(record(t, nil))

	payload, ok := r.Next()
	require.True(t, ok)
	require.Empty(t, payload)
	require.Zero(t, r.Pending())
}
