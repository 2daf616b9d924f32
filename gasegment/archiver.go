package gasegment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gordian-engine/garchive"
	"github.com/gordian-engine/garchive/gabuffer"
	"github.com/gordian-engine/garchive/gaerasure"
	"github.com/gordian-engine/garchive/gaheader"
)

// Archiver consumes finalized block records and emits archived segments.
// Records are pushed in strict finalization order by a single producer;
// the archiver owns its buffer and appends to the chain in strictly
// increasing segment index order.
type Archiver struct {
	log *slog.Logger

	params garchive.Params
	coder  gaerasure.Coder
	chain  *gaheader.Chain

	buffer *gabuffer.Buffer
}

// NewArchiver returns an Archiver appending to the given chain.
// The chain may already hold headers, in which case archiving resumes
// at its next index.
func NewArchiver(
	log *slog.Logger,
	params garchive.Params,
	coder gaerasure.Coder,
	chain *gaheader.Chain,
) (*Archiver, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	buffer, err := gabuffer.NewBuffer(params.SegmentCapacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create record buffer: %w", err)
	}

	return &Archiver{
		log: log,

		params: params,
		coder:  coder,
		chain:  chain,

		buffer: buffer,
	}, nil
}

// Push appends one block record to the buffered stream and archives
// every segment the stream can now fill, returning them in index order.
// A record spanning a segment boundary keeps its remainder buffered.
//
// Each returned segment is atomic: its header was appended to the chain
// and its full piece set produced. If archiving a segment fails, the
// chain is not extended for it and no partial output is returned.
func (a *Archiver) Push(ctx context.Context, record []byte) ([]garchive.ArchivedSegment, error) {
	if err := a.buffer.Push(record); err != nil {
		return nil, fmt.Errorf("failed to buffer record: %w", err)
	}

	var out []garchive.ArchivedSegment
	for a.buffer.HasFullSegment() {
		seg, err := a.archiveNext(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, seg)
	}

	return out, nil
}

func (a *Archiver) archiveNext(ctx context.Context) (garchive.ArchivedSegment, error) {
	segBytes, firstByte, lastByte, err := a.buffer.TakeSegment()
	if err != nil {
		return garchive.ArchivedSegment{}, fmt.Errorf("failed to take segment bytes: %w", err)
	}

	pieces, tree, err := assemblePieces(ctx, a.params, a.coder, segBytes)
	if err != nil {
		return garchive.ArchivedSegment{}, err
	}

	// The append is the commit point: until the header is on the chain,
	// nothing about this segment is published.
	header, err := a.chain.Append(tree.Root(), firstByte, lastByte)
	if err != nil {
		return garchive.ArchivedSegment{}, fmt.Errorf("failed to append segment header: %w", err)
	}

	// The segment index is assigned by the chain,
	// so it lands on the pieces only after the append succeeds.
	for i := range pieces {
		pieces[i].SegmentIndex = header.SegmentIndex
	}

	a.log.Debug(
		"Archived segment",
		"segment_index", header.SegmentIndex,
		"first_byte", firstByte,
		"last_byte", lastByte,
		"pieces", len(pieces),
	)

	return garchive.ArchivedSegment{Header: header, Pieces: pieces}, nil
}

// Buffered returns the number of stream bytes awaiting archival.
// These bytes belong to the final, not-yet-full segment,
// which is never emitted.
func (a *Archiver) Buffered() int {
	return a.buffer.Buffered()
}
