// Package gareedsolomon implements [gaerasure.Coder] over byte-wise
// GF(2^8) Reed-Solomon coding from github.com/klauspost/reedsolomon.
package gareedsolomon

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordian-engine/garchive/gaerasure"
	"github.com/klauspost/reedsolomon"
)

// Coder is a wrapper around [reedsolomon.Encoder]
// satisfying the [gaerasure.Coder] interface.
type Coder struct {
	rs reedsolomon.Encoder

	dataShards   int
	parityShards int
	shardSize    int
}

// NewCoder returns a Coder fixed to the given shard layout.
// All three values are protocol constants; see [gaerasure.Coder].
func NewCoder(dataShards, parityShards, shardSize int) (*Coder, error) {
	if dataShards <= 0 {
		return nil, fmt.Errorf("data shards must be > 0")
	}
	if parityShards <= 0 {
		return nil, fmt.Errorf("parity shards must be > 0")
	}
	if shardSize <= 0 {
		return nil, fmt.Errorf("shard size must be > 0")
	}

	rs, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("failed to create reed-solomon encoder: %w", err)
	}

	return &Coder{
		rs: rs,

		dataShards:   dataShards,
		parityShards: parityShards,
		shardSize:    shardSize,
	}, nil
}

// Encode satisfies [gaerasure.Coder].
// The source slices are not modified or retained.
func (c *Coder) Encode(_ context.Context, source [][]byte) ([][]byte, error) {
	if len(source) != c.dataShards {
		return nil, fmt.Errorf("expected %d source shards, got %d", c.dataShards, len(source))
	}
	for i, s := range source {
		if len(s) != c.shardSize {
			return nil, fmt.Errorf(
				"source shard %d: %w: want %d bytes, got %d",
				i, gaerasure.ErrCorruptShard, c.shardSize, len(s),
			)
		}
	}

	// The reedsolomon encoder works on the full shard set,
	// with parity slots preallocated for it to fill.
	all := make([][]byte, c.dataShards+c.parityShards)
	copy(all, source)
	for i := c.dataShards; i < len(all); i++ {
		all[i] = make([]byte, c.shardSize)
	}

	if err := c.rs.Encode(all); err != nil {
		return nil, fmt.Errorf("failed to encode parity: %w", err)
	}

	return all[c.dataShards:], nil
}

// Reconstruct satisfies [gaerasure.Coder],
// filling nil entries of shards in place.
func (c *Coder) Reconstruct(_ context.Context, shards [][]byte) error {
	total := c.dataShards + c.parityShards
	if len(shards) != total {
		return fmt.Errorf("expected %d total shards, got %d", total, len(shards))
	}

	present := 0
	for i, s := range shards {
		if s == nil {
			continue
		}
		if len(s) != c.shardSize {
			return fmt.Errorf(
				"shard %d: %w: want %d bytes, got %d",
				i, gaerasure.ErrCorruptShard, c.shardSize, len(s),
			)
		}
		present++
	}

	if present < c.dataShards {
		return fmt.Errorf(
			"%w: have %d, need %d",
			gaerasure.ErrInsufficientShards, present, c.dataShards,
		)
	}

	if err := c.rs.Reconstruct(shards); err != nil {
		if errors.Is(err, reedsolomon.ErrTooFewShards) {
			return fmt.Errorf("%w: %d shards present", gaerasure.ErrInsufficientShards, present)
		}
		return fmt.Errorf("failed to reconstruct shards: %w", err)
	}

	return nil
}

// Verify reports whether the parity shards in a complete shard set are
// consistent with the source shards.
func (c *Coder) Verify(shards [][]byte) (bool, error) {
	if len(shards) != c.dataShards+c.parityShards {
		return false, fmt.Errorf("expected %d total shards, got %d", c.dataShards+c.parityShards, len(shards))
	}
	return c.rs.Verify(shards)
}
