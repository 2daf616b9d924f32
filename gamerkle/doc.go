// Package gamerkle produces the binary hash tree used to commit to a
// segment's ordered pieces, and the per-piece inclusion proofs that let
// a single piece be verified against the root without any other piece.
package gamerkle
