// Package garchive archives a blockchain's history into fixed-size,
// erasure-coded segments whose pieces are independently verifiable
// against a per-segment commitment root.
//
// The root package holds the protocol parameters and the core types
// shared by the subpackages; the pipeline itself lives in
// [github.com/gordian-engine/garchive/gasegment], which consumes
// block records through [github.com/gordian-engine/garchive/gabuffer]
// and emits pieces bound by a
// [github.com/gordian-engine/garchive/gamerkle] commitment and a
// [github.com/gordian-engine/garchive/gaheader] header chain.
package garchive
