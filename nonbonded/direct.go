package nonbonded

import (
	"log"

	"github.com/viterin/vek/vek32"

	"github.com/mfellner/nbforce/parallel"
)

// Evaluate computes the full nonbonded contribution: the direct-space sum
// over the worker pool followed by the reciprocal-space sum when Ewald or PME
// is configured. Forces are added into the packed forces buffer. If energy is
// non-nil the total energy is added into it; passing nil skips the masked
// energy summation on the vector path entirely.
func (e *Evaluator) Evaluate(
	numAtoms int, posq []float32, params []LJParams, exclusions [][]int32,
	forces []float32, energy *float32, pool *parallel.Pool,
) error {
	e.CalculateDirect(numAtoms, posq, params, exclusions, forces, energy, pool)
	return e.CalculateReciprocal(numAtoms, posq, forces, energy)
}

// CalculateDirect computes the direct-space part of the interaction. The
// work is partitioned across the pool by striding block (or atom) indices by
// the worker count; every worker accumulates into a private force buffer and
// energy partial, and nothing is read back until the pool's barrier has been
// crossed.
func (e *Evaluator) CalculateDirect(
	numAtoms int, posq []float32, params []LJParams, exclusions [][]int32,
	forces []float32, energy *float32, pool *parallel.Pool,
) {
	if len(posq) < 4*numAtoms || len(forces) < 4*numAtoms {
		log.Fatalf(
			"CalculateDirect() needs 4*%d packed values, got posq of "+
				"length %d and forces of length %d.",
			numAtoms, len(posq), len(forces),
		)
	}
	if len(params) < numAtoms || len(exclusions) != numAtoms {
		log.Fatalf(
			"CalculateDirect() given %d parameter pairs and %d exclusion "+
				"lists for %d atoms.", len(params), len(exclusions), numAtoms,
		)
	}

	// Record the inputs for the workers. All of this is read-only until the
	// barrier.
	e.numAtoms = numAtoms
	e.posq = posq
	e.params = params
	e.exclusions = exclusions
	e.includeEnergy = energy != nil
	e.threadForce = make([][]float32, pool.Workers())
	e.threadEnergy = make([]float64, pool.Workers())

	pool.Run(e.threadComputeDirect)

	// Combine the per-worker buffers. Energies are summed in double
	// precision and cast back once at the end.
	directEnergy := 0.0
	for _, partial := range e.threadEnergy {
		directEnergy += partial
	}
	for _, buf := range e.threadForce {
		vek32.Add_Inplace(forces[:4*numAtoms], buf)
	}
	if energy != nil {
		*energy += float32(directEnergy)
	}
}

// threadComputeDirect is the per-worker task. Worker ids stride the block
// index space (or the atom index space on the all-pairs path), which balances
// load well since blocks have roughly uniform neighbor counts.
func (e *Evaluator) threadComputeDirect(worker int) {
	numWorkers := len(e.threadForce)
	buf := make([]float32, 4*e.numAtoms)
	e.threadForce[worker] = buf
	var energy *float64
	if e.includeEnergy {
		energy = &e.threadEnergy[worker]
	}

	switch {
	case e.ewald || e.pme:
		// Compute the interactions from the neighbor list.
		for b := worker; b < e.neighbors.NumBlocks(); b += numWorkers {
			e.blockEwaldIxn(b, buf, energy)
		}

		// Now subtract off the excluded pairs, since the reciprocal-space
		// sum implicitly includes them.
		for i := worker; i < e.numAtoms; i += numWorkers {
			for _, j := range e.exclusions[i] {
				if correctsPair(e.exclusions, i, int(j)) {
					e.excludedIxn(i, int(j), buf, energy)
				}
			}
		}
	case e.cutoff:
		// Compute the interactions from the neighbor list.
		for b := worker; b < e.neighbors.NumBlocks(); b += numWorkers {
			e.blockIxn(b, buf, energy)
		}
	default:
		// Loop over all atom pairs.
		for i := worker; i < e.numAtoms; i += numWorkers {
			for j := i + 1; j < e.numAtoms; j++ {
				if !listed(e.exclusions[i], j) && !listed(e.exclusions[j], i) {
					e.oneIxn(i, j, buf, energy)
				}
			}
		}
	}
}

// correctsPair reports whether the exclusion entry (i, j) is the one entry
// responsible for the pair's Ewald correction. Exclusion lists may be stored
// one-directionally, so each unordered pair must be corrected exactly once:
// the upward-pointing entry wins, and a downward entry only counts when no
// matching upward entry exists.
func correctsPair(exclusions [][]int32, i, j int) bool {
	if j > i {
		return true
	}
	return j < i && !listed(exclusions[j], i)
}

func listed(exclusions []int32, j int) bool {
	for _, k := range exclusions {
		if int(k) == j {
			return true
		}
	}
	return false
}
