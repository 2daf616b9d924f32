// Package gaheader maintains the append-only chain of segment headers
// that makes the archive tamper-evident independently of the source
// blockchain's own chain.
package gaheader

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordian-engine/garchive"
)

// ErrMissingPredecessor is returned when a header does not link to the
// chain's current tip, either by index or by previous-header hash.
// Chain extensions fail wholesale on the first broken link;
// no prefix of a bad extension is ever applied.
var ErrMissingPredecessor = errors.New("header does not link to current chain tip")

// Chain is the segment header chain. Its tip is the only shared mutable
// state in the archiving pipeline: shard work for multiple segments may
// run in parallel, but appends serialize here so indices stay strictly
// increasing.
//
// Callers hold and pass a Chain explicitly; there is no package-level
// instance.
type Chain struct {
	mu sync.Mutex

	// nextIndex is the segment index the next Append will assign.
	nextIndex uint64

	// tipHash is the hash of the most recent header,
	// or the genesis sentinel when the chain is empty.
	tipHash [garchive.HashSize]byte
}

// NewChain returns an empty Chain whose first header will be segment 0
// linking to [garchive.GenesisPrevHash].
func NewChain() *Chain {
	return &Chain{tipHash: garchive.GenesisPrevHash}
}

// NewChainAt returns a Chain resuming after the given tip header,
// for a process restarting from durable state.
// The header is trusted; callers re-syncing from an untrusted source
// must run [VerifyChain] first.
func NewChainAt(tip garchive.SegmentHeader) *Chain {
	return &Chain{
		nextIndex: tip.SegmentIndex + 1,
		tipHash:   tip.Hash(),
	}
}

// NextIndex returns the segment index the next Append will assign.
func (c *Chain) NextIndex() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextIndex
}

// Append constructs the header for the next segment and advances the tip.
// The header's index and previous-header hash are assigned here, not by
// the caller, so a Chain can never fork: each index gets exactly one
// valid header.
func (c *Chain) Append(pieceRoot [garchive.HashSize]byte, firstByte, lastByte uint64) (garchive.SegmentHeader, error) {
	if lastByte < firstByte {
		return garchive.SegmentHeader{}, fmt.Errorf(
			"invalid byte range: last %d before first %d", lastByte, firstByte,
		)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	header := garchive.SegmentHeader{
		SegmentIndex:    c.nextIndex,
		PrevHeaderHash:  c.tipHash,
		PieceRoot:       pieceRoot,
		FirstByteOffset: firstByte,
		LastByteOffset:  lastByte,
	}

	c.nextIndex++
	c.tipHash = header.Hash()

	return header, nil
}

// Extend applies externally produced headers to the chain,
// for re-syncing from a peer or from durable state.
// The extension is all-or-nothing: the first header failing linkage
// rejects the whole slice with [ErrMissingPredecessor] and the tip is
// left unchanged.
func (c *Chain) Extend(headers []garchive.SegmentHeader) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	nextIndex := c.nextIndex
	tipHash := c.tipHash

	for _, h := range headers {
		if h.SegmentIndex != nextIndex {
			return fmt.Errorf(
				"%w: header index %d, expected %d",
				ErrMissingPredecessor, h.SegmentIndex, nextIndex,
			)
		}
		if h.PrevHeaderHash != tipHash {
			return fmt.Errorf(
				"%w: header %d prev hash %x does not match tip %x",
				ErrMissingPredecessor, h.SegmentIndex, h.PrevHeaderHash, tipHash,
			)
		}

		nextIndex++
		tipHash = h.Hash()
	}

	c.nextIndex = nextIndex
	c.tipHash = tipHash

	return nil
}

// VerifyChain checks the full linkage of an ordered, contiguous header
// sequence starting at segment 0. It returns nil for a valid chain, and
// wraps [ErrMissingPredecessor] at the first broken link otherwise.
//
// VerifyChain is stateless so any collaborator can check headers
// obtained from an untrusted source before trusting them.
func VerifyChain(headers []garchive.SegmentHeader) error {
	return VerifyChainFrom(garchive.GenesisPrevHash, 0, headers)
}

// VerifyChainFrom checks the linkage of a contiguous header range that
// begins mid-chain: the first header must have the given index and link
// to prevHash. Use this when only a suffix of the archive is held locally
// and the predecessor hash is already trusted.
func VerifyChainFrom(prevHash [garchive.HashSize]byte, firstIndex uint64, headers []garchive.SegmentHeader) error {
	wantIndex := firstIndex
	wantPrev := prevHash
	for _, h := range headers {
		if h.SegmentIndex != wantIndex {
			return fmt.Errorf(
				"%w: header index %d, expected %d",
				ErrMissingPredecessor, h.SegmentIndex, wantIndex,
			)
		}
		if h.PrevHeaderHash != wantPrev {
			return fmt.Errorf(
				"%w: header %d prev hash %x, expected %x",
				ErrMissingPredecessor, h.SegmentIndex, h.PrevHeaderHash, wantPrev,
			)
		}
		wantIndex++
		wantPrev = h.Hash()
	}
	return nil
}
