// Package gacodec provides the canonical binary encodings used to
// persist and transport pieces and segment headers.
package gacodec

import (
	"encoding/binary"
	"fmt"

	"github.com/gordian-engine/garchive"
)

const (
	int16Size = 2
	int32Size = 4
	int64Size = 8

	versionSize      = int16Size
	segmentIndexSize = int64Size
	pieceIndexSize   = int32Size
	kindSize         = 1
	proofLenSize     = 1
	dataLenSize      = int32Size

	prefixSize = versionSize + segmentIndexSize + pieceIndexSize + kindSize + proofLenSize + dataLenSize

	binaryVersion = 1
)

// BinaryPieceCodec encodes and decodes pieces to their canonical
// fixed-layout binary form. All integers are little-endian.
type BinaryPieceCodec struct{}

func NewBinaryPieceCodec() *BinaryPieceCodec {
	return &BinaryPieceCodec{}
}

func (bpc *BinaryPieceCodec) Encode(p garchive.Piece) ([]byte, error) {
	if len(p.Proof) > 0xff {
		return nil, fmt.Errorf("proof too long to encode: %d nodes", len(p.Proof))
	}

	out := make([]byte, prefixSize+len(p.Data)+garchive.HashSize*len(p.Proof))

	// Write version
	binary.LittleEndian.PutUint16(out[0:2], binaryVersion)

	// Write segment index
	binary.LittleEndian.PutUint64(out[2:10], p.SegmentIndex)

	// Write piece index
	binary.LittleEndian.PutUint32(out[10:14], uint32(p.Index))

	// Write kind
	out[14] = byte(p.Kind)

	// Write proof length
	out[15] = byte(len(p.Proof))

	// Write data length
	binary.LittleEndian.PutUint32(out[16:20], uint32(len(p.Data)))

	// Write data
	copy(out[prefixSize:], p.Data)

	// Write proof nodes
	off := prefixSize + len(p.Data)
	for _, node := range p.Proof {
		copy(out[off:], node[:])
		off += garchive.HashSize
	}

	return out, nil
}

func (bpc *BinaryPieceCodec) Decode(data []byte) (garchive.Piece, error) {
	var p garchive.Piece

	if len(data) < prefixSize {
		return p, fmt.Errorf("piece encoding too short: %d bytes", len(data))
	}

	// Read version
	version := binary.LittleEndian.Uint16(data[0:2])
	if version != binaryVersion {
		return p, fmt.Errorf("unsupported version: %d", version)
	}

	// Read segment index
	p.SegmentIndex = binary.LittleEndian.Uint64(data[2:10])

	// Read piece index
	p.Index = int(binary.LittleEndian.Uint32(data[10:14]))

	// Read kind
	p.Kind = garchive.PieceKind(data[14])
	if p.Kind != garchive.SourcePiece && p.Kind != garchive.ParityPiece {
		return garchive.Piece{}, fmt.Errorf("invalid piece kind: %d", data[14])
	}

	// Read proof length
	proofLen := int(data[15])

	// Read data length
	dataLen := int(binary.LittleEndian.Uint32(data[16:20]))

	want := prefixSize + dataLen + garchive.HashSize*proofLen
	if len(data) != want {
		return garchive.Piece{}, fmt.Errorf("piece encoding length mismatch: want %d bytes, got %d", want, len(data))
	}

	// Read data
	p.Data = make([]byte, dataLen)
	copy(p.Data, data[prefixSize:prefixSize+dataLen])

	// Read proof nodes
	p.Proof = make([][garchive.HashSize]byte, proofLen)
	off := prefixSize + dataLen
	for i := range p.Proof {
		copy(p.Proof[i][:], data[off:off+garchive.HashSize])
		off += garchive.HashSize
	}

	return p, nil
}
