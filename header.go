package garchive

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// HashSize is the byte length of all digests used by the archive:
// header hashes, commitment roots, and proof nodes.
const HashSize = 32

// GenesisPrevHash is the prev-header sentinel carried by segment 0.
var GenesisPrevHash = [HashSize]byte{}

// headerEncodingSize is the fixed canonical encoding length:
// segment index, prev header hash, piece root, and the two byte offsets.
const headerEncodingSize = 8 + HashSize + HashSize + 8 + 8

// SegmentHeader records one archived segment in the header chain.
// Headers are immutable once emitted; header[i].PrevHeaderHash must equal
// header[i-1].Hash(), giving the archive its own tamper-evident chain
// independent of the source blockchain.
type SegmentHeader struct {
	SegmentIndex uint64

	PrevHeaderHash [HashSize]byte

	// PieceRoot is the commitment root over the segment's ordered pieces.
	PieceRoot [HashSize]byte

	// FirstByteOffset and LastByteOffset are the inclusive range of the
	// buffered history stream this segment covers.
	FirstByteOffset uint64
	LastByteOffset  uint64
}

// MarshalBinary returns the canonical fixed-width encoding of the header.
// Every field is little-endian; the encoding is the preimage of [SegmentHeader.Hash],
// so it must never change shape without a protocol revision.
func (h SegmentHeader) MarshalBinary() ([]byte, error) {
	out := make([]byte, headerEncodingSize)

	binary.LittleEndian.PutUint64(out[0:8], h.SegmentIndex)
	copy(out[8:40], h.PrevHeaderHash[:])
	copy(out[40:72], h.PieceRoot[:])
	binary.LittleEndian.PutUint64(out[72:80], h.FirstByteOffset)
	binary.LittleEndian.PutUint64(out[80:88], h.LastByteOffset)

	return out, nil
}

// UnmarshalBinary decodes a header previously produced by MarshalBinary.
func (h *SegmentHeader) UnmarshalBinary(data []byte) error {
	if len(data) != headerEncodingSize {
		return fmt.Errorf("invalid header encoding length: want %d, got %d", headerEncodingSize, len(data))
	}

	h.SegmentIndex = binary.LittleEndian.Uint64(data[0:8])
	copy(h.PrevHeaderHash[:], data[8:40])
	copy(h.PieceRoot[:], data[40:72])
	h.FirstByteOffset = binary.LittleEndian.Uint64(data[72:80])
	h.LastByteOffset = binary.LittleEndian.Uint64(data[80:88])

	return nil
}

// Hash returns the BLAKE2b-256 digest of the header's canonical encoding.
// The next segment's header carries this value as its PrevHeaderHash.
func (h SegmentHeader) Hash() [HashSize]byte {
	enc, _ := h.MarshalBinary() // MarshalBinary cannot fail.
	return blake2b.Sum256(enc)
}
