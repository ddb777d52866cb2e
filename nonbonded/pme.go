package nonbonded

// pmeOrder is the B-spline interpolation order requested from the mesh
// solver.
const pmeOrder = 5

// PMESolver is the external particle-mesh Ewald solver used for the
// reciprocal-space sum when PME is configured.
type PMESolver interface {
	// Execute computes the reciprocal-space contribution for the given
	// atoms. Positions are packed (x, y, z, charge); charges are also passed
	// separately. Per-atom forces are added into forces using the same
	// packed layout. The virial is always computed and returned even though
	// the evaluator currently makes no use of it.
	Execute(
		numAtoms int, posq, charges []float32, boxSize [3]float32,
		alpha float32, mesh [3]int, order int, forces []float32,
	) (energy float32, virial [3][3]float32, err error)
}
