package gamerkle

import (
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// HashSize is the byte length of every node digest in the tree.
const HashSize = 32

// Domain-separation prefixes keep a leaf digest from ever colliding
// with an interior digest built over attacker-chosen children.
const (
	leafPrefix     = 0x00
	interiorPrefix = 0x01
)

// Tree is a binary BLAKE2b-256 hash tree over an ordered list of leaves.
//
// Leaf i is hashed as H(0x00 ‖ leaf), interior nodes as
// H(0x01 ‖ left ‖ right). A level with an odd node count duplicates its
// last node; that rule is part of the commitment and every implementation
// must apply it identically.
type Tree struct {
	// levels[0] holds the leaf hashes; each subsequent level halves
	// (rounding up) until levels[len-1] holds only the root.
	levels [][][HashSize]byte

	nLeaves int
}

// NewTree hashes the given leaves into a Tree.
// The leaf byte slices are not retained.
func NewTree(leaves [][]byte) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("cannot build tree with zero leaves")
	}

	level := make([][HashSize]byte, len(leaves))
	for i, leaf := range leaves {
		level[i] = hashLeaf(leaf)
	}

	levels := [][][HashSize]byte{level}
	for len(level) > 1 {
		next := make([][HashSize]byte, (len(level)+1)/2)
		for i := range next {
			left := level[2*i]
			right := left
			if 2*i+1 < len(level) {
				right = level[2*i+1]
			}
			next[i] = hashInterior(left, right)
		}
		levels = append(levels, next)
		level = next
	}

	return &Tree{levels: levels, nLeaves: len(leaves)}, nil
}

// NLeaves returns the number of leaves committed by the tree.
func (t *Tree) NLeaves() int {
	return t.nLeaves
}

// Root returns the tree's root digest.
func (t *Tree) Root() [HashSize]byte {
	return t.levels[len(t.levels)-1][0]
}

// Prove returns the sibling-hash path for the leaf at the given index,
// ordered from the leaf level upward.
func (t *Tree) Prove(index int) ([][HashSize]byte, error) {
	if index < 0 || index >= t.nLeaves {
		return nil, fmt.Errorf("leaf index %d out of range [0, %d)", index, t.nLeaves)
	}

	proof := make([][HashSize]byte, 0, len(t.levels)-1)
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling >= len(level) {
			// Odd level end duplicates itself.
			sibling = index
		}
		proof = append(proof, level[sibling])
		index >>= 1
	}

	return proof, nil
}

// Verify recomputes the root from one leaf's bytes and its proof,
// and reports whether it equals the expected root.
//
// nLeaves must be the leaf count the root was built over; it determines
// where the odd-duplication rule applies on the path.
func Verify(root [HashSize]byte, index, nLeaves int, leaf []byte, proof [][HashSize]byte) bool {
	if index < 0 || index >= nLeaves {
		return false
	}
	if len(proof) != proofLen(nLeaves) {
		return false
	}

	cur := hashLeaf(leaf)
	levelWidth := nLeaves
	for _, sibling := range proof {
		if index&1 == 0 {
			// The duplication rule means a right sibling beyond the
			// level end must equal the current node itself.
			if index == levelWidth-1 && sibling != cur {
				return false
			}
			cur = hashInterior(cur, sibling)
		} else {
			cur = hashInterior(sibling, cur)
		}
		index >>= 1
		levelWidth = (levelWidth + 1) / 2
	}

	return cur == root
}

func proofLen(nLeaves int) int {
	n := 0
	for w := nLeaves; w > 1; w = (w + 1) / 2 {
		n++
	}
	return n
}

func hashLeaf(leaf []byte) [HashSize]byte {
	h, _ := blake2b.New256(nil) // Keyless BLAKE2b-256 cannot fail.
	h.Write([]byte{leafPrefix})
	h.Write(leaf)

	var out [HashSize]byte
	h.Sum(out[:0])
	return out
}

func hashInterior(left, right [HashSize]byte) [HashSize]byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte{interiorPrefix})
	h.Write(left[:])
	h.Write(right[:])

	var out [HashSize]byte
	h.Sum(out[:0])
	return out
}
