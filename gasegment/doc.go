// Package gasegment is the archiving pipeline's core: it folds the
// buffered record stream into fixed-capacity segments, erasure-codes
// each segment into source and parity pieces, binds them with a
// commitment, and appends the segment's header to the chain.
// The inverse path rebuilds a segment's bytes from any sufficient
// subset of verified pieces.
package gasegment
