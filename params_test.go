package garchive_test

import (
	"testing"

	"github.com/gordian-engine/garchive"
	"github.com/stretchr/testify/require"
)

func TestParamsValidate(t *testing.T) {
	t.Parallel()

	valid := garchive.Params{
		SegmentCapacity: 4096,
		ShardSize:       1024,
		DataShards:      4,
		ParityShards:    4,
	}
	require.NoError(t, valid.Validate())

	for _, tc := range []struct {
		name   string
		mutate func(*garchive.Params)
	}{
		{name: "zero capacity", mutate: func(p *garchive.Params) { p.SegmentCapacity = 0 }},
		{name: "zero shard size", mutate: func(p *garchive.Params) { p.ShardSize = 0 }},
		{name: "zero data shards", mutate: func(p *garchive.Params) { p.DataShards = 0 }},
		{name: "zero parity shards", mutate: func(p *garchive.Params) { p.ParityShards = 0 }},
		{name: "capacity exceeds shard layout", mutate: func(p *garchive.Params) { p.SegmentCapacity = 4097 }},
		{name: "capacity leaves whole shards of padding", mutate: func(p *garchive.Params) { p.SegmentCapacity = 3072 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)
			require.Error(t, p.Validate())
		})
	}

	t.Run("padding size", func(t *testing.T) {
		p := valid
		p.SegmentCapacity = 4000
		require.NoError(t, p.Validate())
		require.Equal(t, 96, p.PaddingSize())
		require.Equal(t, 8, p.TotalShards())
	})
}

func TestSegmentHeaderHash(t *testing.T) {
	t.Parallel()

	h := garchive.SegmentHeader{
		SegmentIndex:    1,
		FirstByteOffset: 4096,
		LastByteOffset:  8191,
	}
	h.PieceRoot[0] = 0xab

	require.Equal(t, h.Hash(), h.Hash())

	// Every field must contribute to the hash.
	for name, mutate := range map[string]func(*garchive.SegmentHeader){
		"segment index": func(s *garchive.SegmentHeader) { s.SegmentIndex++ },
		"prev hash":     func(s *garchive.SegmentHeader) { s.PrevHeaderHash[31] ^= 1 },
		"piece root":    func(s *garchive.SegmentHeader) { s.PieceRoot[0] ^= 1 },
		"first byte":    func(s *garchive.SegmentHeader) { s.FirstByteOffset++ },
		"last byte":     func(s *garchive.SegmentHeader) { s.LastByteOffset++ },
	} {
		m := h
		mutate(&m)
		require.NotEqual(t, h.Hash(), m.Hash(), "mutating %s must change the hash", name)
	}
}
