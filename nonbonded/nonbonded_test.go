package nonbonded

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mfellner/nbforce/geom"
	"github.com/mfellner/nbforce/nblist"
	"github.com/mfellner/nbforce/parallel"
)

// assertClose checks agreement to a relative tolerance, falling back to an
// absolute one near zero.
func assertClose(t *testing.T, want, got float32, rel float64, msg string) {
	t.Helper()
	tol := rel * math.Abs(float64(want))
	if tol < 1e-3 {
		tol = 1e-3
	}
	assert.InDelta(t, float64(want), float64(got), tol, msg)
}

// jitteredLattice returns a small system with guaranteed minimum separation,
// alternating charges and uniform Lennard-Jones parameters.
func jitteredLattice(n int, spacing float32, seed int64) (
	posq []float32, params []LJParams, exclusions [][]int32,
) {
	rng := rand.New(rand.NewSource(seed))
	side := int(math.Ceil(math.Cbrt(float64(n))))
	posq = make([]float32, 4*n)
	params = make([]LJParams, n)
	exclusions = make([][]int32, n)
	for i := 0; i < n; i++ {
		x, y, z := i%side, (i/side)%side, i/(side*side)
		posq[4*i] = (float32(x)+0.5)*spacing + (rng.Float32()-0.5)*spacing/5
		posq[4*i+1] = (float32(y)+0.5)*spacing + (rng.Float32()-0.5)*spacing/5
		posq[4*i+2] = (float32(z)+0.5)*spacing + (rng.Float32()-0.5)*spacing/5
		if i%2 == 0 {
			posq[4*i+3] = 0.3
		} else {
			posq[4*i+3] = -0.3
		}
		params[i] = LJParams{Sigma: 0.05, Epsilon: 0.5}
		exclusions[i] = []int32{}
	}
	return posq, params, exclusions
}

func TestTwoChargeCoulomb(t *testing.T) {
	// Two unit charges one nanometer apart, no cutoff, no Lennard-Jones:
	// the energy must come out as exactly the Coulomb constant and the
	// forces as an equal and opposite pair along the separation axis.
	posq := []float32{
		0, 0, 0, 1,
		1, 0, 0, 1,
	}
	params := []LJParams{{}, {}}
	exclusions := [][]int32{{}, {}}
	pool := parallel.NewPool(2)
	defer pool.Close()

	ev := &Evaluator{}
	forces := make([]float32, 8)
	var energy float32
	err := ev.Evaluate(2, posq, params, exclusions, forces, &energy, pool)
	assert.NoError(t, err)

	assert.InDelta(t, One4PiEps0, float64(energy), 1e-3)
	assert.InDelta(t, -One4PiEps0, float64(forces[0]), 1e-3)
	assert.InDelta(t, One4PiEps0, float64(forces[4]), 1e-3)
	assert.Equal(t, forces[0], -forces[4])
	for _, i := range []int{1, 2, 5, 6} {
		assert.Zero(t, forces[i])
	}
}

func TestPairForcesAreReciprocal(t *testing.T) {
	n := 12
	posq, params, exclusions := jitteredLattice(n, 0.4, 7)

	ev := &Evaluator{}
	ev.numAtoms, ev.posq, ev.params, ev.exclusions =
		n, posq, params, exclusions

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			buf := make([]float32, 4*n)
			ev.oneIxn(i, j, buf, nil)
			for m := 0; m < 3; m++ {
				assert.Equal(t, buf[4*i+m], -buf[4*j+m],
					fmt.Sprintf("pair (%d, %d) component %d", i, j, m))
			}
		}
	}
}

func TestNetForceVanishes(t *testing.T) {
	// Strict pairwise symmetry means the total momentum transfer of the
	// block path must cancel.
	n := 27
	posq, params, exclusions := jitteredLattice(n, 0.4, 11)
	box := geom.NewBox(10, 10, 10)
	neighbors := nblist.Build(posq, n, exclusions, 1.0, false, box)

	ev := &Evaluator{}
	ev.SetUseCutoff(1.0, neighbors, 78.3)
	pool := parallel.NewPool(3)
	defer pool.Close()

	forces := make([]float32, 4*n)
	var energy float32
	assert.NoError(t,
		ev.Evaluate(n, posq, params, exclusions, forces, &energy, pool))

	for m := 0; m < 3; m++ {
		net := float32(0)
		for i := 0; i < n; i++ {
			net += forces[4*i+m]
		}
		assert.InDelta(t, 0, float64(net), 1e-2)
	}
}

func TestScalarAndBlockPathsAgree(t *testing.T) {
	// A cutoff wide enough to cover every pair makes the neighbor-list
	// block path and the all-pairs scalar kernel compute the same sum.
	n := 16
	posq, params, exclusions := jitteredLattice(n, 0.3, 3)
	box := geom.NewBox(10, 10, 10)
	cutoff := float32(2.0)
	neighbors := nblist.Build(posq, n, exclusions, cutoff, false, box)

	ev := &Evaluator{}
	ev.SetUseCutoff(cutoff, neighbors, 78.3)
	pool := parallel.NewPool(2)
	defer pool.Close()

	blockForces := make([]float32, 4*n)
	var blockEnergy float32
	assert.NoError(t, ev.Evaluate(
		n, posq, params, exclusions, blockForces, &blockEnergy, pool))

	ref := &Evaluator{}
	ref.SetUseCutoff(cutoff, neighbors, 78.3)
	ref.numAtoms, ref.posq, ref.params, ref.exclusions =
		n, posq, params, exclusions
	refForces := make([]float32, 4*n)
	var refEnergy float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			ref.oneIxn(i, j, refForces, &refEnergy)
		}
	}

	assertClose(t, float32(refEnergy), blockEnergy, 1e-4, "energy")
	for i := 0; i < n; i++ {
		for m := 0; m < 3; m++ {
			assertClose(t, refForces[4*i+m], blockForces[4*i+m], 1e-4,
				fmt.Sprintf("atom %d component %d", i, m))
		}
	}
}

func TestReductionIndependentOfWorkerCount(t *testing.T) {
	n := 32
	posq, params, exclusions := jitteredLattice(n, 0.3, 17)
	box := geom.NewBox(10, 10, 10)
	neighbors := nblist.Build(posq, n, exclusions, 1.0, false, box)

	run := func(workers int) ([]float32, float32) {
		ev := &Evaluator{}
		ev.SetUseCutoff(1.0, neighbors, 78.3)
		pool := parallel.NewPool(workers)
		defer pool.Close()
		forces := make([]float32, 4*n)
		var energy float32
		assert.NoError(t,
			ev.Evaluate(n, posq, params, exclusions, forces, &energy, pool))
		return forces, energy
	}

	forces1, energy1 := run(1)
	forces4, energy4 := run(4)

	assertClose(t, energy1, energy4, 1e-5, "energy")
	for i := range forces1 {
		assertClose(t, forces1[i], forces4[i], 1e-5,
			fmt.Sprintf("force component %d", i))
	}
}

// pairAt evaluates a two-atom Lennard-Jones system at separation r through
// the block path and returns the energy and the force on the second atom
// along the separation axis.
func pairAt(
	t *testing.T, ev *Evaluator, pool *parallel.Pool, r float32,
	params []LJParams, exclusions [][]int32,
) (float32, float32) {
	t.Helper()
	posq := []float32{
		0, 0, 0, 0,
		r, 0, 0, 0,
	}
	forces := make([]float32, 8)
	var energy float32
	assert.NoError(t,
		ev.Evaluate(2, posq, params, exclusions, forces, &energy, pool))
	return energy, forces[4]
}

func TestSwitchingFunction(t *testing.T) {
	cutoff, rs := float32(1.0), float32(0.8)
	params := []LJParams{
		{Sigma: 0.25, Epsilon: 1},
		{Sigma: 0.25, Epsilon: 1},
	}
	exclusions := [][]int32{{}, {}}
	posq := []float32{0, 0, 0, 0, 0.5, 0, 0, 0}
	box := geom.NewBox(10, 10, 10)
	neighbors := nblist.Build(posq, 2, exclusions, 100, false, box)

	ev := &Evaluator{}
	ev.SetUseCutoff(cutoff, neighbors, 1)
	ev.SetUseSwitchingFunction(rs)
	pool := parallel.NewPool(1)
	defer pool.Close()

	// Continuity at the switching distance.
	eBelow, fBelow := pairAt(t, ev, pool, rs-1e-4, params, exclusions)
	eAbove, fAbove := pairAt(t, ev, pool, rs+1e-4, params, exclusions)
	assert.InDelta(t, float64(eBelow), float64(eAbove), 1e-4)
	assert.InDelta(t, float64(fBelow), float64(fAbove), 1e-3)

	// Exact zero value and slope at the cutoff.
	eEdge, fEdge := pairAt(t, ev, pool, cutoff-1e-4, params, exclusions)
	assert.InDelta(t, 0, float64(eEdge), 1e-4)
	assert.InDelta(t, 0, float64(fEdge), 1e-2)

	// The force stays the exact gradient of the switched energy across the
	// tapering region.
	h := float32(1e-3)
	for r := float32(0.82); r < 0.98; r += 0.02 {
		eMinus, _ := pairAt(t, ev, pool, r-h, params, exclusions)
		ePlus, _ := pairAt(t, ev, pool, r+h, params, exclusions)
		_, force := pairAt(t, ev, pool, r, params, exclusions)
		dEdR := (ePlus - eMinus) / (2 * h)
		assertClose(t, -dEdR, force, 0.02,
			fmt.Sprintf("gradient at r = %g", r))
	}
}
