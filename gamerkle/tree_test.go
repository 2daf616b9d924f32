package gamerkle_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/gordian-engine/garchive/gamerkle"
	"github.com/stretchr/testify/require"
)

func randomLeaves(n, size int, seed byte) [][]byte {
	chacha := rand.NewChaCha8([32]byte{0: seed})
	leaves := make([][]byte, n)
	for i := range leaves {
		leaves[i] = make([]byte, size)
		_, _ = chacha.Read(leaves[i])
	}
	return leaves
}

func TestTree_RootDeterministic(t *testing.T) {
	t.Parallel()

	leaves := randomLeaves(8, 64, 1)

	t1, err := gamerkle.NewTree(leaves)
	require.NoError(t, err)
	t2, err := gamerkle.NewTree(leaves)
	require.NoError(t, err)

	require.Equal(t, t1.Root(), t2.Root())
}

func TestTree_RootChangesWithAnyLeaf(t *testing.T) {
	t.Parallel()

	leaves := randomLeaves(8, 64, 2)
	tree, err := gamerkle.NewTree(leaves)
	require.NoError(t, err)

	for i := range leaves {
		mutated := randomLeaves(8, 64, 2)
		mutated[i][0] ^= 1

		mt, err := gamerkle.NewTree(mutated)
		require.NoError(t, err)
		require.NotEqual(t, tree.Root(), mt.Root(), "flipping a bit of leaf %d must change the root", i)
	}
}

func TestTree_ProveVerify(t *testing.T) {
	t.Parallel()

	// Odd, even, power-of-two, and single leaf counts,
	// since the odd-duplication rule changes the path shape.
	for _, n := range []int{1, 2, 3, 5, 7, 8, 12, 16} {
		t.Run(fmt.Sprintf("%d leaves", n), func(t *testing.T) {
			t.Parallel()

			leaves := randomLeaves(n, 48, byte(n))
			tree, err := gamerkle.NewTree(leaves)
			require.NoError(t, err)

			root := tree.Root()
			for i := range leaves {
				proof, err := tree.Prove(i)
				require.NoError(t, err)

				require.True(t, gamerkle.Verify(root, i, n, leaves[i], proof))
			}
		})
	}
}

func TestVerify_RejectsMutations(t *testing.T) {
	t.Parallel()

	const n = 7
	leaves := randomLeaves(n, 48, 9)
	tree, err := gamerkle.NewTree(leaves)
	require.NoError(t, err)
	root := tree.Root()

	for i := range leaves {
		proof, err := tree.Prove(i)
		require.NoError(t, err)

		t.Run(fmt.Sprintf("leaf %d byte flip", i), func(t *testing.T) {
			for b := range leaves[i] {
				bad := append([]byte(nil), leaves[i]...)
				bad[b] ^= 1
				require.False(t, gamerkle.Verify(root, i, n, bad, proof))
			}
		})

		t.Run(fmt.Sprintf("leaf %d proof flip", i), func(t *testing.T) {
			for node := range proof {
				bad := append([][gamerkle.HashSize]byte(nil), proof...)
				bad[node][0] ^= 1
				require.False(t, gamerkle.Verify(root, i, n, leaves[i], bad))
			}
		})

		t.Run(fmt.Sprintf("leaf %d wrong index", i), func(t *testing.T) {
			require.False(t, gamerkle.Verify(root, (i+1)%n, n, leaves[i], proof))
		})
	}

	t.Run("wrong proof length", func(t *testing.T) {
		proof, err := tree.Prove(0)
		require.NoError(t, err)
		require.False(t, gamerkle.Verify(root, 0, n, leaves[0], proof[:len(proof)-1]))
	})

	t.Run("out of range index", func(t *testing.T) {
		proof, err := tree.Prove(0)
		require.NoError(t, err)
		require.False(t, gamerkle.Verify(root, n, n, leaves[0], proof))
		require.False(t, gamerkle.Verify(root, -1, n, leaves[0], proof))
	})
}

func TestTree_ProveOutOfRange(t *testing.T) {
	t.Parallel()

	tree, err := gamerkle.NewTree(randomLeaves(4, 16, 3))
	require.NoError(t, err)

	_, err = tree.Prove(4)
	require.Error(t, err)
	_, err = tree.Prove(-1)
	require.Error(t, err)
}

func TestNewTree_ZeroLeaves(t *testing.T) {
	t.Parallel()

	_, err := gamerkle.NewTree(nil)
	require.Error(t, err)
}
