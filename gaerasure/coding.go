package gaerasure

import (
	"context"
	"errors"
)

// Coder produces parity shards from a fixed set of source shards,
// and reconstructs missing shards from any sufficient subset.
//
// The shard counts and shard size are protocol constants fixed when the
// Coder is constructed, not per call; every node on a network must use
// identical settings or pieces will not agree byte for byte.
type Coder interface {
	// Encode derives the parity shards for exactly k source shards,
	// each exactly the fixed shard size.
	// The coding is Maximum-Distance-Separable: any k of the k+m
	// resulting shards recover all k source shards exactly.
	//
	// Encode is deterministic; identical source shards yield
	// identical parity shards on every implementation.
	Encode(ctx context.Context, source [][]byte) (parity [][]byte, err error)

	// Reconstruct fills in the nil entries of shards in place.
	// The slice must be k+m long, ordered source shards first then
	// parity shards, with nil marking each missing shard.
	//
	// Reconstruct returns [ErrInsufficientShards] when fewer than k
	// entries are present, and [ErrCorruptShard] when a present
	// entry's length does not match the fixed shard size.
	Reconstruct(ctx context.Context, shards [][]byte) error
}

// ErrInsufficientShards is returned by [Coder.Reconstruct] when fewer
// than k valid shards were supplied. The segment is unrecoverable until
// more pieces arrive; retrying with the same inputs cannot succeed.
var ErrInsufficientShards = errors.New("insufficient shards to reconstruct source data")

// ErrCorruptShard is returned when a supplied shard violates the fixed
// shard size. The offending shard must be discarded, never trusted.
var ErrCorruptShard = errors.New("shard does not match fixed shard size")
