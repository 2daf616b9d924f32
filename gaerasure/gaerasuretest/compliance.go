package gaerasuretest

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/gordian-engine/garchive/gaerasure"
	"github.com/stretchr/testify/require"
)

// CoderFactory is the factory function used for [TestCoderCompliance].
type CoderFactory func(dataShards, parityShards, shardSize int) gaerasure.Coder

// TestCoderCompliance is the compliance test for [gaerasure.Coder]
// implementations: it checks the MDS recoverability guarantee across a
// range of shard layouts and loss patterns.
func TestCoderCompliance(t *testing.T, f CoderFactory) {
	t.Helper()

	for _, shardCounts := range [][2]int{
		// Equal counts:
		{4, 4}, {8, 8}, {16, 16},

		// Different counts:
		{4, 8}, {8, 4}, {10, 20}, {20, 10},
	} {
		dataCount := shardCounts[0]
		parityCount := shardCounts[1]
		t.Run(fmt.Sprintf("%d data and %d parity shards", dataCount, parityCount), func(t *testing.T) {
			for _, shardSize := range []int{64, 1024, 4096} {
				t.Run(fmt.Sprintf("shard size = %d", shardSize), func(t *testing.T) {
					t.Parallel()

					ctx, cancel := context.WithCancel(context.Background())
					defer cancel()

					// Seed an RNG from the layout,
					// so each test case has different source data.
					seed := [32]byte{}
					binary.LittleEndian.PutUint32(seed[:8], uint32(dataCount))
					binary.LittleEndian.PutUint32(seed[8:16], uint32(parityCount))
					binary.LittleEndian.PutUint64(seed[16:], uint64(shardSize))
					chacha := rand.NewChaCha8(seed)

					source := make([][]byte, dataCount)
					for i := range source {
						source[i] = make([]byte, shardSize)
						_, _ = chacha.Read(source[i]) // ChaCha8 doesn't error on Read.
					}

					coder := f(dataCount, parityCount, shardSize)

					parity, err := coder.Encode(ctx, source)
					require.NoError(t, err)
					require.Len(t, parity, parityCount)

					total := dataCount + parityCount
					rng := rand.New(chacha)

					t.Run("any k shards reconstruct the source", func(t *testing.T) {
						// Keep a random k-subset, drop everything else.
						shards := make([][]byte, total)
						for _, idx := range rng.Perm(total)[:dataCount] {
							if idx < dataCount {
								shards[idx] = bytes.Clone(source[idx])
							} else {
								shards[idx] = bytes.Clone(parity[idx-dataCount])
							}
						}

						require.NoError(t, coder.Reconstruct(ctx, shards))
						for i := range source {
							require.True(t, bytes.Equal(shards[i], source[i]))
						}
					})

					t.Run("k-1 shards fail with ErrInsufficientShards", func(t *testing.T) {
						shards := make([][]byte, total)
						for _, idx := range rng.Perm(total)[:dataCount-1] {
							if idx < dataCount {
								shards[idx] = bytes.Clone(source[idx])
							} else {
								shards[idx] = bytes.Clone(parity[idx-dataCount])
							}
						}

						err := coder.Reconstruct(ctx, shards)
						require.ErrorIs(t, err, gaerasure.ErrInsufficientShards)
					})

					t.Run("wrong shard length fails with ErrCorruptShard", func(t *testing.T) {
						shards := make([][]byte, total)
						for i := range source {
							shards[i] = bytes.Clone(source[i])
						}
						shards[0] = shards[0][:shardSize-1]

						err := coder.Reconstruct(ctx, shards)
						require.ErrorIs(t, err, gaerasure.ErrCorruptShard)
					})
				})
			}
		})
	}
}
