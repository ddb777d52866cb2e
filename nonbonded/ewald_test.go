package nonbonded

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mfellner/nbforce/fvec"
	"github.com/mfellner/nbforce/geom"
	"github.com/mfellner/nbforce/nblist"
	"github.com/mfellner/nbforce/parallel"
)

func TestErfcApprox(t *testing.T) {
	for x := float32(0); x < 3.5; x += 0.01 {
		want := math.Erfc(float64(x))
		assert.InDelta(t, want, float64(erfcApprox32(x)), 5e-6)
		vec := erfcApprox(fvec.Broadcast(x))
		for lane := 0; lane < 4; lane++ {
			assert.InDelta(t, want, float64(vec[lane]), 5e-6)
		}
	}
}

func TestEwaldScaleTable(t *testing.T) {
	cutoff, alpha := float32(1.2), float32(3.0)
	posq := []float32{0, 0, 0, 1, 1, 0, 0, -1}
	exclusions := [][]int32{{}, {}}
	box := geom.NewBox(4, 4, 4)
	neighbors := nblist.Build(posq, 2, exclusions, cutoff, true, box)

	ev := &Evaluator{}
	ev.SetUseCutoff(cutoff, neighbors, 1)
	ev.SetPeriodic([3]float32{4, 4, 4})
	ev.SetUseEwald(alpha, 10, 10, 10)

	for r := float32(0.01); r <= cutoff; r += 0.0123 {
		alphaR := float64(alpha) * float64(r)
		want := math.Erfc(alphaR) +
			float64(twoOverSqrtPi)*alphaR*math.Exp(-alphaR*alphaR)
		got := ev.ewaldScaleFunction(fvec.Broadcast(r))
		for lane := 0; lane < 4; lane++ {
			assert.InDelta(t, want, float64(got[lane]), 1e-5,
				"r = %g", r)
		}
	}
}

// ewaldPair evaluates a two-charge periodic Ewald system, with or without the
// pair excluded, and returns the forces and energy.
func ewaldPair(t *testing.T, excluded bool) ([]float32, float32) {
	t.Helper()
	posq := []float32{
		2.0, 2, 2, 1,
		2.2, 2, 2, -1,
	}
	params := []LJParams{{}, {}}
	exclusions := [][]int32{{}, {}}
	if excluded {
		exclusions = [][]int32{{1}, {0}}
	}
	box := geom.NewBox(4, 4, 4)
	neighbors := nblist.Build(posq, 2, exclusions, 1.0, true, box)

	ev := &Evaluator{}
	ev.SetUseCutoff(1.0, neighbors, 1)
	ev.SetPeriodic([3]float32{4, 4, 4})
	ev.SetUseEwald(3.0, 20, 20, 20)
	pool := parallel.NewPool(2)
	defer pool.Close()

	forces := make([]float32, 8)
	var energy float32
	assert.NoError(t,
		ev.Evaluate(2, posq, params, exclusions, forces, &energy, pool))
	return forces, energy
}

func TestEwaldExclusionRemovesBareCoulomb(t *testing.T) {
	// The truncation error of the reciprocal sum and every periodic-image
	// term are identical with and without the exclusion, so the difference
	// between the two runs must be exactly the bare Coulomb interaction of
	// the pair: q1 q2 / (4 pi eps0 r) with r = 0.2.
	forcesFull, energyFull := ewaldPair(t, false)
	forcesExcl, energyExcl := ewaldPair(t, true)

	barePair := float64(One4PiEps0) * (1 * -1) / 0.2
	assert.InDelta(t, barePair, float64(energyFull-energyExcl), 0.5)

	bareForce := float64(One4PiEps0) / (0.2 * 0.2)
	assert.InDelta(t, bareForce,
		float64(forcesFull[0]-forcesExcl[0]), 2.0)
	assert.InDelta(t, -bareForce,
		float64(forcesFull[4]-forcesExcl[4]), 2.0)
	for _, i := range []int{1, 2, 5, 6} {
		assert.InDelta(t, 0, float64(forcesFull[i]-forcesExcl[i]), 1.0)
	}
}

func TestEwaldExcludedPairForcesVanish(t *testing.T) {
	// With the only pair excluded, the direct, reciprocal and correction
	// terms cancel up to the interactions with periodic images. The image
	// force of this arrangement is about 1.8, three orders of magnitude
	// below the bare pair force of 3.5e3.
	forces, _ := ewaldPair(t, true)
	for i := 0; i < 8; i++ {
		if i%4 == 3 {
			// The packed fourth float is not a coordinate and must come
			// through untouched.
			assert.Zero(t, forces[i], "component %d", i)
			continue
		}
		assert.InDelta(t, 0, float64(forces[i]), 3.5, "component %d", i)
	}
}

type recordingSolver struct {
	numAtoms int
	charges  []float32
	boxSize  [3]float32
	alpha    float32
	mesh     [3]int
	order    int
	energy   float32
}

func (s *recordingSolver) Execute(
	numAtoms int, posq, charges []float32, boxSize [3]float32,
	alpha float32, mesh [3]int, order int, forces []float32,
) (float32, [3][3]float32, error) {
	s.numAtoms = numAtoms
	s.charges = append([]float32{}, charges...)
	s.boxSize = boxSize
	s.alpha = alpha
	s.mesh = mesh
	s.order = order
	return s.energy, [3][3]float32{}, nil
}

func TestPMEDelegation(t *testing.T) {
	posq := []float32{0, 0, 0, 1, 1, 0, 0, -1}
	exclusions := [][]int32{{}, {}}
	box := geom.NewBox(4, 4, 4)
	neighbors := nblist.Build(posq, 2, exclusions, 1.0, true, box)
	solver := &recordingSolver{energy: 2.5}

	ev := &Evaluator{}
	ev.SetUseCutoff(1.0, neighbors, 1)
	ev.SetPeriodic([3]float32{4, 4, 4})
	ev.SetUsePME(3.0, [3]int{32, 32, 32}, solver)

	forces := make([]float32, 8)
	var energy float32
	assert.NoError(t, ev.CalculateReciprocal(2, posq, forces, &energy))

	assert.Equal(t, 2, solver.numAtoms)
	assert.Equal(t, []float32{1, -1}, solver.charges)
	assert.Equal(t, [3]float32{4, 4, 4}, solver.boxSize)
	assert.Equal(t, float32(3.0), solver.alpha)
	assert.Equal(t, [3]int{32, 32, 32}, solver.mesh)
	assert.Equal(t, 5, solver.order)
	assert.Equal(t, float32(2.5), energy)
}
