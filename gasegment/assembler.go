package gasegment

import (
	"context"
	"fmt"

	"github.com/gordian-engine/garchive"
	"github.com/gordian-engine/garchive/gaerasure"
	"github.com/gordian-engine/garchive/gamerkle"
)

// splitSource slices exactly SegmentCapacity source bytes into
// DataShards shards of ShardSize, filling the tail of the last shard
// with PadByte. The padding is committed along with the data, so a
// verifier never has to trust a stripped length.
func splitSource(params garchive.Params, seg []byte) [][]byte {
	shards := make([][]byte, params.DataShards)

	offset := 0
	for i := range shards {
		shard := make([]byte, params.ShardSize)
		n := copy(shard, seg[offset:])
		offset += n

		for j := n; j < params.ShardSize; j++ {
			shard[j] = params.PadByte
		}
		shards[i] = shard
	}

	return shards
}

// assemblePieces erasure-codes one segment's source bytes and returns
// the full ordered piece set with inclusion proofs, plus the commitment
// tree the proofs were taken from.
//
// Piece output is deterministic: identical input bytes produce
// byte-identical pieces on every node.
func assemblePieces(
	ctx context.Context,
	params garchive.Params,
	coder gaerasure.Coder,
	seg []byte,
) ([]garchive.Piece, *gamerkle.Tree, error) {
	if len(seg) != params.SegmentCapacity {
		return nil, nil, fmt.Errorf(
			"segment must be exactly %d bytes, got %d",
			params.SegmentCapacity, len(seg),
		)
	}

	source := splitSource(params, seg)

	parity, err := coder.Encode(ctx, source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode parity shards: %w", err)
	}

	total := params.TotalShards()
	leaves := make([][]byte, 0, total)
	leaves = append(leaves, source...)
	leaves = append(leaves, parity...)

	tree, err := gamerkle.NewTree(leaves)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build piece commitment: %w", err)
	}

	pieces := make([]garchive.Piece, total)
	for i, shard := range leaves {
		proof, err := tree.Prove(i)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to prove piece %d: %w", i, err)
		}

		kind := garchive.SourcePiece
		if i >= params.DataShards {
			kind = garchive.ParityPiece
		}

		pieces[i] = garchive.Piece{
			Index: i,
			Kind:  kind,
			Data:  shard,
			Proof: proof,
		}
	}

	return pieces, tree, nil
}
