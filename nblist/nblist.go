/*package nblist holds the block neighbor list consumed by the force kernels.

Atoms are grouped into blocks of four. Each block carries a list of neighbor
atom ids, and for every neighbor a 4-bit mask saying which block members must
not interact with it. A set bit suppresses the interaction; the kernels only
ever see unordered (block member, neighbor) pairs, so the builder is
responsible for listing every interacting pair exactly once.
*/
package nblist

import (
	"log"

	"github.com/mfellner/nbforce/fvec"
	"github.com/mfellner/nbforce/geom"
)

// BlockSize is the number of atoms per block, matching the kernel vector
// width.
const BlockSize = 4

// List is a block neighbor list. It is immutable once built and safe for
// unsynchronized concurrent reads.
type List struct {
	numAtoms   int
	blockAtoms []int32
	neighbors  [][]int32
	exclusions [][]uint8
}

// NumBlocks returns the number of 4-atom blocks.
func (l *List) NumBlocks() int { return len(l.neighbors) }

// NumAtoms returns the number of atoms the list was built for.
func (l *List) NumAtoms() int { return l.numAtoms }

// SortedAtoms returns the flat array of atom ids, BlockSize per block. The
// final block is padded by repeating the last atom; padded lanes are masked
// out of every neighbor entry.
func (l *List) SortedAtoms() []int32 { return l.blockAtoms }

// BlockNeighbors returns the neighbor atom ids of the given block.
func (l *List) BlockNeighbors(block int) []int32 { return l.neighbors[block] }

// BlockExclusions returns the per-neighbor lane masks of the given block,
// parallel to BlockNeighbors. Bit j set means block member j must not
// interact with that neighbor.
func (l *List) BlockExclusions(block int) []uint8 { return l.exclusions[block] }

// Build constructs a neighbor list over the packed (x, y, z, charge) records
// in posq. Every unexcluded pair separated by at most maxDistance appears
// exactly once; a pair is excluded when either atom's exclusion list names
// the other. Pairs farther apart may still be listed, since the kernels
// re-test the cutoff.
//
// Spatial sorting is deliberately not done here. A production list would
// come from a voxel hash; this builder is O(N^2) and meant for moderate atom
// counts, tests and benchmarks.
func Build(
	posq []float32, numAtoms int, exclusions [][]int32,
	maxDistance float32, periodic bool, box geom.Box,
) *List {
	if len(posq) < 4*numAtoms {
		log.Fatalf(
			"Build() given %d posq values for %d atoms.", len(posq), numAtoms,
		)
	}
	if len(exclusions) != 0 && len(exclusions) != numAtoms {
		log.Fatalf(
			"Build() given %d exclusion lists for %d atoms.",
			len(exclusions), numAtoms,
		)
	}

	numBlocks := (numAtoms + BlockSize - 1) / BlockSize
	l := &List{
		numAtoms:   numAtoms,
		blockAtoms: make([]int32, BlockSize*numBlocks),
		neighbors:  make([][]int32, numBlocks),
		exclusions: make([][]uint8, numBlocks),
	}
	for i := range l.blockAtoms {
		if i < numAtoms {
			l.blockAtoms[i] = int32(i)
		} else {
			l.blockAtoms[i] = int32(numAtoms - 1)
		}
	}

	maxDist2 := maxDistance * maxDistance
	for j := 0; j < numAtoms; j++ {
		posJ := fvec.Load(posq[4*j:])

		// Pairs are deduplicated by only listing j against lanes with a
		// smaller atom id, so blocks past j's own can be skipped entirely.
		for b := 0; b <= (j / BlockSize); b++ {
			var mask uint8
			inRange := false
			for lane := 0; lane < BlockSize; lane++ {
				i := int(l.blockAtoms[BlockSize*b+lane])
				if i >= j || pairExcluded(exclusions, i, j) {
					mask |= 1 << lane
					continue
				}
				_, r2 := geom.Delta(posJ, fvec.Load(posq[4*i:]), periodic, box)
				if r2 <= maxDist2 {
					inRange = true
				}
			}
			if mask == (1<<BlockSize)-1 || !inRange {
				continue
			}
			l.neighbors[b] = append(l.neighbors[b], int32(j))
			l.exclusions[b] = append(l.exclusions[b], mask)
		}
	}
	return l
}

func pairExcluded(exclusions [][]int32, i, j int) bool {
	if len(exclusions) == 0 {
		return false
	}
	for _, k := range exclusions[i] {
		if int(k) == j {
			return true
		}
	}
	for _, k := range exclusions[j] {
		if int(k) == i {
			return true
		}
	}
	return false
}
