// Package gastore persists the archive's durable state: the ordered
// segment header sequence and whatever subset of pieces the local
// retention policy keeps.
package gastore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gordian-engine/garchive"
	"github.com/gordian-engine/garchive/gacodec"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound is returned when a requested header or piece
// is not in the store.
var ErrNotFound = errors.New("not found in archive store")

// Key prefixes. Indices are encoded big-endian after the prefix so
// LevelDB's lexicographic iteration walks segments in index order.
const (
	headerPrefix = 'h'
	piecePrefix  = 'p'
)

// Store wraps LevelDB for archive persistence.
// Retention policy is the caller's concern: the store holds whatever
// headers and pieces it is given and nothing decides expiry here.
type Store struct {
	log *slog.Logger

	db *leveldb.DB

	pieces *gacodec.BinaryPieceCodec
}

// Open opens or creates a store at the given path.
// An empty path opens an in-memory store, for tests.
func Open(log *slog.Logger, path string) (*Store, error) {
	var db *leveldb.DB
	var err error

	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open archive store at %q: %w", path, err)
	}

	return &Store{
		log: log,

		db: db,

		pieces: gacodec.NewBinaryPieceCodec(),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// PutSegment stores an archived segment's header and full piece set
// in one batch, so a crash never leaves a header without its pieces.
func (s *Store) PutSegment(seg garchive.ArchivedSegment) error {
	batch := new(leveldb.Batch)

	enc, err := seg.Header.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode header %d: %w", seg.Header.SegmentIndex, err)
	}
	batch.Put(headerKey(seg.Header.SegmentIndex), enc)

	for _, p := range seg.Pieces {
		encPiece, err := s.pieces.Encode(p)
		if err != nil {
			return fmt.Errorf("failed to encode piece %d/%d: %w", p.SegmentIndex, p.Index, err)
		}
		batch.Put(pieceKey(p.SegmentIndex, p.Index), encPiece)
	}

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to write segment %d: %w", seg.Header.SegmentIndex, err)
	}

	s.log.Debug("Stored segment", "segment_index", seg.Header.SegmentIndex, "pieces", len(seg.Pieces))
	return nil
}

// PutHeader stores a single header, for nodes that track the chain
// without retaining pieces.
func (s *Store) PutHeader(h garchive.SegmentHeader) error {
	enc, err := h.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode header %d: %w", h.SegmentIndex, err)
	}
	if err := s.db.Put(headerKey(h.SegmentIndex), enc, nil); err != nil {
		return fmt.Errorf("failed to write header %d: %w", h.SegmentIndex, err)
	}
	return nil
}

// Header returns the stored header for one segment.
func (s *Store) Header(segmentIndex uint64) (garchive.SegmentHeader, error) {
	data, err := s.db.Get(headerKey(segmentIndex), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return garchive.SegmentHeader{}, fmt.Errorf("%w: header %d", ErrNotFound, segmentIndex)
	}
	if err != nil {
		return garchive.SegmentHeader{}, fmt.Errorf("failed to read header %d: %w", segmentIndex, err)
	}

	var h garchive.SegmentHeader
	if err := h.UnmarshalBinary(data); err != nil {
		return garchive.SegmentHeader{}, fmt.Errorf("failed to decode header %d: %w", segmentIndex, err)
	}
	return h, nil
}

// Headers returns every stored header in segment index order,
// ready to hand to the chain verifier.
func (s *Store) Headers() ([]garchive.SegmentHeader, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte{headerPrefix}), nil)
	defer iter.Release()

	var headers []garchive.SegmentHeader
	for iter.Next() {
		var h garchive.SegmentHeader
		if err := h.UnmarshalBinary(iter.Value()); err != nil {
			return nil, fmt.Errorf("failed to decode stored header: %w", err)
		}
		headers = append(headers, h)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate headers: %w", err)
	}

	return headers, nil
}

// TipHeader returns the highest-index stored header.
func (s *Store) TipHeader() (garchive.SegmentHeader, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte{headerPrefix}), nil)
	defer iter.Release()

	if !iter.Last() {
		if err := iter.Error(); err != nil {
			return garchive.SegmentHeader{}, fmt.Errorf("failed to seek tip header: %w", err)
		}
		return garchive.SegmentHeader{}, fmt.Errorf("%w: no headers stored", ErrNotFound)
	}

	var h garchive.SegmentHeader
	if err := h.UnmarshalBinary(iter.Value()); err != nil {
		return garchive.SegmentHeader{}, fmt.Errorf("failed to decode tip header: %w", err)
	}
	return h, nil
}

// Piece returns one stored piece.
func (s *Store) Piece(segmentIndex uint64, pieceIndex int) (garchive.Piece, error) {
	data, err := s.db.Get(pieceKey(segmentIndex, pieceIndex), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return garchive.Piece{}, fmt.Errorf("%w: piece %d/%d", ErrNotFound, segmentIndex, pieceIndex)
	}
	if err != nil {
		return garchive.Piece{}, fmt.Errorf("failed to read piece %d/%d: %w", segmentIndex, pieceIndex, err)
	}

	return s.pieces.Decode(data)
}

// SegmentPieces returns every stored piece of one segment,
// in piece index order. Missing pieces are simply absent;
// whether the remainder suffices is the reconstructor's call.
func (s *Store) SegmentPieces(segmentIndex uint64) ([]garchive.Piece, error) {
	prefix := make([]byte, 1+8)
	prefix[0] = piecePrefix
	binary.BigEndian.PutUint64(prefix[1:], segmentIndex)

	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var pieces []garchive.Piece
	for iter.Next() {
		p, err := s.pieces.Decode(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("failed to decode stored piece: %w", err)
		}
		pieces = append(pieces, p)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate pieces of segment %d: %w", segmentIndex, err)
	}

	return pieces, nil
}

// DeletePiece drops one piece, for retention enforcement by the caller.
func (s *Store) DeletePiece(segmentIndex uint64, pieceIndex int) error {
	return s.db.Delete(pieceKey(segmentIndex, pieceIndex), nil)
}

func headerKey(segmentIndex uint64) []byte {
	key := make([]byte, 1+8)
	key[0] = headerPrefix
	binary.BigEndian.PutUint64(key[1:], segmentIndex)
	return key
}

func pieceKey(segmentIndex uint64, pieceIndex int) []byte {
	key := make([]byte, 1+8+4)
	key[0] = piecePrefix
	binary.BigEndian.PutUint64(key[1:9], segmentIndex)
	binary.BigEndian.PutUint32(key[9:], uint32(pieceIndex))
	return key
}
