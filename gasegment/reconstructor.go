package gasegment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bits-and-blooms/bitset"
	"github.com/gordian-engine/garchive"
	"github.com/gordian-engine/garchive/gaerasure"
	"github.com/gordian-engine/garchive/gamerkle"
)

// ErrCommitmentMismatch is returned when a piece fails inclusion-proof
// verification against its segment's commitment root.
// During reconstruction a mismatching piece is discarded exactly like a
// corrupt shard; its bytes are never handed to the erasure coder.
var ErrCommitmentMismatch = errors.New("piece does not verify against segment commitment")

// Reconstructor rebuilds segment bytes from any sufficient subset of a
// segment's pieces, verifying every piece against the segment header's
// commitment root first.
type Reconstructor struct {
	log *slog.Logger

	params garchive.Params
	coder  gaerasure.Coder
}

// NewReconstructor returns a Reconstructor for the given protocol
// parameters. The coder must match the one used to archive.
func NewReconstructor(log *slog.Logger, params garchive.Params, coder gaerasure.Coder) (*Reconstructor, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	return &Reconstructor{
		log: log,

		params: params,
		coder:  coder,
	}, nil
}

// ReconstructSegment recovers one segment's source bytes, with padding
// stripped, from the supplied pieces.
//
// Pieces failing length or commitment verification are discarded,
// not trusted; if fewer than DataShards verified pieces remain,
// reconstruction fails with [gaerasure.ErrInsufficientShards] and no
// partial data is returned.
func (r *Reconstructor) ReconstructSegment(
	ctx context.Context,
	header garchive.SegmentHeader,
	pieces []garchive.Piece,
) ([]byte, error) {
	shards, err := r.collectShards(header, pieces)
	if err != nil {
		return nil, err
	}

	if err := r.coder.Reconstruct(ctx, shards); err != nil {
		return nil, fmt.Errorf("failed to reconstruct segment %d: %w", header.SegmentIndex, err)
	}

	seg := make([]byte, 0, r.params.DataShards*r.params.ShardSize)
	for _, shard := range shards[:r.params.DataShards] {
		seg = append(seg, shard...)
	}

	// Everything beyond the capacity is the committed PadByte fill.
	return seg[:r.params.SegmentCapacity], nil
}

// RecoverSegment rebuilds the segment's full piece set, including any
// pieces that were never held locally, so this node can re-serve them.
// The regenerated commitment must reproduce the header's root exactly;
// anything else means the header and parameters disagree.
func (r *Reconstructor) RecoverSegment(
	ctx context.Context,
	header garchive.SegmentHeader,
	pieces []garchive.Piece,
) (garchive.ArchivedSegment, error) {
	seg, err := r.ReconstructSegment(ctx, header, pieces)
	if err != nil {
		return garchive.ArchivedSegment{}, err
	}

	rebuilt, tree, err := assemblePieces(ctx, r.params, r.coder, seg)
	if err != nil {
		return garchive.ArchivedSegment{}, err
	}

	if tree.Root() != header.PieceRoot {
		return garchive.ArchivedSegment{}, fmt.Errorf(
			"%w: regenerated root %x does not match header root %x",
			ErrCommitmentMismatch, tree.Root(), header.PieceRoot,
		)
	}

	for i := range rebuilt {
		rebuilt[i].SegmentIndex = header.SegmentIndex
	}

	return garchive.ArchivedSegment{Header: header, Pieces: rebuilt}, nil
}

// collectShards verifies and deduplicates the supplied pieces into the
// k+m shard layout the coder expects, nil marking missing shards.
func (r *Reconstructor) collectShards(
	header garchive.SegmentHeader,
	pieces []garchive.Piece,
) ([][]byte, error) {
	total := r.params.TotalShards()
	shards := make([][]byte, total)
	seen := bitset.New(uint(total))

	for _, p := range pieces {
		if err := VerifyPiece(r.params, header, p); err != nil {
			r.log.Warn(
				"Discarding piece",
				"segment_index", header.SegmentIndex,
				"piece_index", p.Index,
				"err", err,
			)
			continue
		}

		idx := uint(p.Index)
		if seen.Test(idx) {
			continue
		}
		seen.Set(idx)

		// Copy so later mutation of the caller's slice
		// cannot corrupt the decode.
		shard := make([]byte, len(p.Data))
		copy(shard, p.Data)
		shards[p.Index] = shard
	}

	if got := int(seen.Count()); got < r.params.DataShards {
		return nil, fmt.Errorf(
			"%w: %d verified pieces for segment %d, need %d",
			gaerasure.ErrInsufficientShards, got, header.SegmentIndex, r.params.DataShards,
		)
	}

	return shards, nil
}

// VerifyPiece checks a single piece against its segment header,
// with no other pieces required. It returns [gaerasure.ErrCorruptShard]
// for positional or size violations and [ErrCommitmentMismatch] when
// the inclusion proof does not reproduce the header's root.
func VerifyPiece(params garchive.Params, header garchive.SegmentHeader, p garchive.Piece) error {
	if p.SegmentIndex != header.SegmentIndex {
		return fmt.Errorf(
			"%w: piece is for segment %d, header is segment %d",
			gaerasure.ErrCorruptShard, p.SegmentIndex, header.SegmentIndex,
		)
	}

	total := params.TotalShards()
	if p.Index < 0 || p.Index >= total {
		return fmt.Errorf("%w: piece index %d out of range [0, %d)", gaerasure.ErrCorruptShard, p.Index, total)
	}

	wantKind := garchive.SourcePiece
	if p.Index >= params.DataShards {
		wantKind = garchive.ParityPiece
	}
	if p.Kind != wantKind {
		return fmt.Errorf("%w: piece %d has kind %d, want %d", gaerasure.ErrCorruptShard, p.Index, p.Kind, wantKind)
	}

	if len(p.Data) != params.ShardSize {
		return fmt.Errorf(
			"%w: piece %d is %d bytes, want %d",
			gaerasure.ErrCorruptShard, p.Index, len(p.Data), params.ShardSize,
		)
	}

	if !gamerkle.Verify(header.PieceRoot, p.Index, total, p.Data, p.Proof) {
		return fmt.Errorf("%w: piece %d", ErrCommitmentMismatch, p.Index)
	}

	return nil
}
