package garchive

// PieceKind discriminates how a piece's shard was produced.
// Source and parity pieces verify identically against the segment
// commitment; the kind only matters when deciding how to consume them.
type PieceKind uint8

const (
	// SourcePiece carries one shard of the segment's original bytes.
	SourcePiece PieceKind = iota

	// ParityPiece carries one erasure-coded shard derived from the
	// segment's source shards.
	ParityPiece
)

// Piece is the unit of distribution: one shard of a segment together
// with the positional metadata and inclusion proof needed to verify it
// against the segment's commitment root, without any other piece.
type Piece struct {
	// SegmentIndex is the index of the segment this piece belongs to.
	SegmentIndex uint64

	// Index is the piece's position within the segment,
	// in [0, DataShards+ParityShards).
	// Indices below DataShards are source pieces.
	Index int

	Kind PieceKind

	// Data is the shard bytes, always exactly ShardSize long.
	Data []byte

	// Proof is the sibling-hash path binding Data to the segment's
	// commitment root at Index.
	Proof [][HashSize]byte
}

// ArchivedSegment is the atomic output of archiving one segment:
// the full ordered piece set and the header that commits to it.
// Either all of it is published or none of it is.
type ArchivedSegment struct {
	Header SegmentHeader
	Pieces []Piece
}
