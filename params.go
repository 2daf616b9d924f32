package garchive

import "fmt"

// Params are the protocol constants for one archive network.
// They are fixed at network genesis and must be identical on every node;
// two nodes with different Params derive different pieces from the same
// history and can never agree on commitments.
type Params struct {
	// SegmentCapacity is the number of source-history bytes
	// folded into one segment.
	SegmentCapacity int

	// ShardSize is the byte length of every shard, source and parity alike.
	ShardSize int

	// DataShards is the number of source shards per segment (k).
	DataShards int

	// ParityShards is the number of parity shards per segment (m).
	ParityShards int

	// PadByte fills the tail of the final source shard when
	// SegmentCapacity is less than DataShards*ShardSize.
	// The padding is covered by the segment commitment.
	PadByte byte
}

// Validate reports whether the parameters describe a usable protocol.
// It is expected to be called once, when a component is constructed,
// not on every operation.
func (p Params) Validate() error {
	if p.SegmentCapacity <= 0 {
		return fmt.Errorf("segment capacity must be > 0 (got %d)", p.SegmentCapacity)
	}
	if p.ShardSize <= 0 {
		return fmt.Errorf("shard size must be > 0 (got %d)", p.ShardSize)
	}
	if p.DataShards <= 0 {
		return fmt.Errorf("data shards must be > 0 (got %d)", p.DataShards)
	}
	if p.ParityShards <= 0 {
		return fmt.Errorf("parity shards must be > 0 (got %d)", p.ParityShards)
	}

	// The segment's source bytes must fill all data shards,
	// with padding confined to the tail of the last one.
	// A capacity at or below (k-1)*ShardSize would leave whole shards
	// of pure padding, which indicates misconfigured parameters.
	layout := p.DataShards * p.ShardSize
	if p.SegmentCapacity > layout {
		return fmt.Errorf(
			"segment capacity %d exceeds shard layout %d*%d=%d",
			p.SegmentCapacity, p.DataShards, p.ShardSize, layout,
		)
	}
	if p.SegmentCapacity <= (p.DataShards-1)*p.ShardSize {
		return fmt.Errorf(
			"segment capacity %d leaves whole shards unused in layout %d*%d",
			p.SegmentCapacity, p.DataShards, p.ShardSize,
		)
	}

	return nil
}

// TotalShards returns the number of pieces every segment produces.
func (p Params) TotalShards() int {
	return p.DataShards + p.ParityShards
}

// PaddingSize returns the number of PadByte bytes appended to the
// source bytes to fill the data shard layout.
func (p Params) PaddingSize() int {
	return p.DataShards*p.ShardSize - p.SegmentCapacity
}
