package gastore_test

import (
	"context"
	"testing"

	"github.com/gordian-engine/garchive"
	"github.com/gordian-engine/garchive/gabuffer"
	"github.com/gordian-engine/garchive/gaerasure/gareedsolomon"
	"github.com/gordian-engine/garchive/gaheader"
	"github.com/gordian-engine/garchive/gasegment"
	"github.com/gordian-engine/garchive/gastore"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

var testParams = garchive.Params{
	SegmentCapacity: 512,
	ShardSize:       128,
	DataShards:      4,
	ParityShards:    2,
	PadByte:         0,
}

// archiveSegments runs the real pipeline to get realistic store inputs.
func archiveSegments(t *testing.T, n int) []garchive.ArchivedSegment {
	t.Helper()

	coder, err := gareedsolomon.NewCoder(testParams.DataShards, testParams.ParityShards, testParams.ShardSize)
	require.NoError(t, err)

	a, err := gasegment.NewArchiver(slogt.New(t), testParams, coder, gaheader.NewChain())
	require.NoError(t, err)

	payload := make([]byte, n*testParams.SegmentCapacity-gabuffer.RecordPrefixSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	record, err := gabuffer.NewRecord(payload)
	require.NoError(t, err)

	segs, err := a.Push(context.Background(), record)
	require.NoError(t, err)
	require.Len(t, segs, n)

	return segs
}

func openStore(t *testing.T) *gastore.Store {
	t.Helper()

	s, err := gastore.Open(slogt.New(t), "")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestStore_SegmentRoundTrip(t *testing.T) {
	t.Parallel()

	segs := archiveSegments(t, 3)
	s := openStore(t)

	for _, seg := range segs {
		require.NoError(t, s.PutSegment(seg))
	}

	t.Run("headers come back in index order", func(t *testing.T) {
		headers, err := s.Headers()
		require.NoError(t, err)
		require.Len(t, headers, 3)

		for i, h := range headers {
			require.Equal(t, segs[i].Header, h)
		}

		require.NoError(t, gaheader.VerifyChain(headers))
	})

	t.Run("tip header", func(t *testing.T) {
		tip, err := s.TipHeader()
		require.NoError(t, err)
		require.Equal(t, segs[2].Header, tip)
	})

	t.Run("pieces round trip", func(t *testing.T) {
		for _, seg := range segs {
			pieces, err := s.SegmentPieces(seg.Header.SegmentIndex)
			require.NoError(t, err)
			require.Equal(t, seg.Pieces, pieces)
		}
	})

	t.Run("single piece lookup", func(t *testing.T) {
		p, err := s.Piece(1, 3)
		require.NoError(t, err)
		require.Equal(t, segs[1].Pieces[3], p)
	})
}

func TestStore_NotFound(t *testing.T) {
	t.Parallel()

	s := openStore(t)

	_, err := s.Header(0)
	require.ErrorIs(t, err, gastore.ErrNotFound)

	_, err = s.Piece(0, 0)
	require.ErrorIs(t, err, gastore.ErrNotFound)

	_, err = s.TipHeader()
	require.ErrorIs(t, err, gastore.ErrNotFound)
}

func TestStore_DeletedPiecesStillReconstruct(t *testing.T) {
	t.Parallel()

	segs := archiveSegments(t, 1)
	s := openStore(t)
	require.NoError(t, s.PutSegment(segs[0]))

	// Enforce a retention policy of k pieces: drop m of them.
	require.NoError(t, s.DeletePiece(0, 0))
	require.NoError(t, s.DeletePiece(0, 4))

	pieces, err := s.SegmentPieces(0)
	require.NoError(t, err)
	require.Len(t, pieces, 4)

	coder, err := gareedsolomon.NewCoder(testParams.DataShards, testParams.ParityShards, testParams.ShardSize)
	require.NoError(t, err)
	r, err := gasegment.NewReconstructor(slogt.New(t), testParams, coder)
	require.NoError(t, err)

	got, err := r.ReconstructSegment(context.Background(), segs[0].Header, pieces)
	require.NoError(t, err)
	require.Len(t, got, testParams.SegmentCapacity)
}

func TestStore_HeaderOnlyNode(t *testing.T) {
	t.Parallel()

	segs := archiveSegments(t, 2)
	s := openStore(t)

	for _, seg := range segs {
		require.NoError(t, s.PutHeader(seg.Header))
	}

	headers, err := s.Headers()
	require.NoError(t, err)
	require.NoError(t, gaheader.VerifyChain(headers))

	pieces, err := s.SegmentPieces(0)
	require.NoError(t, err)
	require.Empty(t, pieces)
}
