/*package nonbonded evaluates Lennard-Jones and Coulomb interactions over a
set of particles.

The evaluator is configured once through its setters and then invoked once per
simulation step. Direct-space work is partitioned over a worker pool with one
private force buffer per worker; the long-range electrostatic tail is added by
either a classic Ewald sum or an external particle-mesh solver. All hot-path
arithmetic is single precision, vectorized four lanes at a time through the
fvec package.

Positions and charges are packed four floats per atom as (x, y, z, charge).
Force outputs use the same packed layout with the fourth float unused, and the
evaluator adds into the caller's buffers so that other force contributions can
be composed on top.
*/
package nonbonded

import (
	"log"
	"math"

	"github.com/mfellner/nbforce/geom"
	"github.com/mfellner/nbforce/nblist"
)

// One4PiEps0 is 1/(4*pi*eps0) in kJ nm / (mol e^2). Two unit charges one
// nanometer apart have this Coulomb energy.
const One4PiEps0 = 138.935456

const (
	// numTablePoints is the number of intervals in the Ewald scale table.
	numTablePoints = 1025

	twoOverSqrtPi = float32(1.1283791670955126) // 2/sqrt(pi)
)

// LJParams holds one atom's Lennard-Jones parameters. The pair interaction
// uses sig = Sigma_i + Sigma_j and eps = Epsilon_i * Epsilon_j: the sigma
// combining rule is the arithmetic sum of the per-atom values, not the
// geometric mean, and downstream parameter files depend on that convention.
type LJParams struct {
	Sigma   float32
	Epsilon float32
}

// Evaluator computes nonbonded forces and energies. Configure it with the
// setters, then call Evaluate once per step. Configuration is fixed for the
// lifetime of the instance once Ewald or PME has been chosen.
//
// An Evaluator must not be reconfigured concurrently with evaluation.
type Evaluator struct {
	cutoff    bool
	useSwitch bool
	periodic  bool
	ewald     bool
	pme       bool

	cutoffDistance    float32
	switchingDistance float32
	krf, crf          float32

	neighbors *nblist.List
	box       geom.Box
	boxSize   [3]float32

	alphaEwald          float32
	numRx, numRy, numRz int
	meshDim             [3]int
	solver              PMESolver

	ewaldDX, ewaldDXInv float32
	ewaldScaleTable     []float32

	// Evaluation state, shared read-only by the workers for the duration of
	// one call.
	numAtoms      int
	posq          []float32
	params        []LJParams
	exclusions    [][]int32
	includeEnergy bool
	threadForce   [][]float32
	threadEnergy  []float64
}

// SetUseCutoff enables a distance cutoff. Beyond the cutoff, Lennard-Jones
// interactions vanish and Coulomb interactions switch to the reaction-field
// form derived from the given solvent dielectric. The neighbor list must have
// been built for the same cutoff.
func (e *Evaluator) SetUseCutoff(
	distance float32, neighbors *nblist.List, solventDielectric float32,
) {
	if distance <= 0 {
		log.Fatalf("SetUseCutoff() given cutoff distance %g.", distance)
	}
	if neighbors == nil {
		log.Fatal("SetUseCutoff() given a nil neighbor list.")
	}
	e.cutoff = true
	e.cutoffDistance = distance
	e.neighbors = neighbors
	d := float64(solventDielectric)
	e.krf = float32(math.Pow(float64(distance), -3) * (d - 1) / (2*d + 1))
	e.crf = float32((1 / float64(distance)) * 3 * d / (2*d + 1))
}

// SetUseSwitchingFunction tapers the Lennard-Jones energy smoothly to zero
// between the given distance and the cutoff. A cutoff must already be set and
// the switching distance must lie below it.
func (e *Evaluator) SetUseSwitchingFunction(distance float32) {
	if !e.cutoff {
		log.Fatal("SetUseSwitchingFunction() called before SetUseCutoff().")
	}
	if distance >= e.cutoffDistance {
		log.Fatalf(
			"Switching distance %g is not below the cutoff distance %g.",
			distance, e.cutoffDistance,
		)
	}
	e.useSwitch = true
	e.switchingDistance = distance
}

// SetPeriodic enables periodic boundary conditions with the given box widths.
// A cutoff must already be set, and every box dimension must be at least
// twice the cutoff distance for the minimum-image convention to hold.
func (e *Evaluator) SetPeriodic(boxSize [3]float32) {
	if !e.cutoff {
		log.Fatal("SetPeriodic() called before SetUseCutoff().")
	}
	for m := 0; m < 3; m++ {
		if boxSize[m] < 2*e.cutoffDistance {
			log.Fatalf(
				"Periodic box dimension %g is smaller than twice the "+
					"cutoff distance %g.", boxSize[m], e.cutoffDistance,
			)
		}
	}
	e.periodic = true
	e.boxSize = boxSize
	e.box = geom.NewBox(boxSize[0], boxSize[1], boxSize[2])
}

// SetUseEwald splits the Coulomb interaction with the Ewald method: the
// direct-space kernels keep the tabulated short-range part and Evaluate adds
// the reciprocal-space sum over wavevectors up to (kmaxx, kmaxy, kmaxz).
// Requires a cutoff, and is mutually exclusive with PME.
func (e *Evaluator) SetUseEwald(alpha float32, kmaxx, kmaxy, kmaxz int) {
	if !e.cutoff {
		log.Fatal("SetUseEwald() called before SetUseCutoff().")
	}
	if e.pme {
		log.Fatal("SetUseEwald() called on an evaluator configured for PME.")
	}
	e.alphaEwald = alpha
	e.numRx, e.numRy, e.numRz = kmaxx, kmaxy, kmaxz
	e.ewald = true
	e.tabulateEwaldScaleFactor()
}

// SetUsePME is like SetUseEwald but delegates the reciprocal-space part to
// the given mesh solver with the given mesh dimensions. Mutually exclusive
// with classic Ewald.
func (e *Evaluator) SetUsePME(alpha float32, mesh [3]int, solver PMESolver) {
	if !e.cutoff {
		log.Fatal("SetUsePME() called before SetUseCutoff().")
	}
	if e.ewald {
		log.Fatal("SetUsePME() called on an evaluator configured for Ewald.")
	}
	if solver == nil {
		log.Fatal("SetUsePME() given a nil solver.")
	}
	e.alphaEwald = alpha
	e.meshDim = mesh
	e.solver = solver
	e.pme = true
	e.tabulateEwaldScaleFactor()
}
