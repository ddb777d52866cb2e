package nonbonded

import (
	"github.com/mfellner/nbforce/fvec"
	"github.com/mfellner/nbforce/geom"
	"github.com/mfellner/nbforce/nblist"
)

// blockState holds one neighbor-list block transposed into lane form: lane j
// of each vector belongs to block member j.
type blockState struct {
	atoms   []int32
	x, y, z fvec.Float4
	charge  fvec.Float4
	sigma   fvec.Float4
	epsilon fvec.Float4
	force   [4]fvec.Float4

	// needPeriodic is false when every block atom sits more than a cutoff
	// away from the box faces, in which case no neighbor interaction can
	// cross the boundary and the wrapping arithmetic is skipped.
	needPeriodic bool
}

func (e *Evaluator) loadBlock(blockIndex int, s *blockState) {
	s.atoms = e.neighbors.SortedAtoms()[4*blockIndex : 4*blockIndex+4]
	var posq [4]fvec.Float4
	for i := 0; i < nblist.BlockSize; i++ {
		posq[i] = fvec.Load(e.posq[4*s.atoms[i]:])
		s.force[i] = fvec.Float4{}
	}
	s.x = fvec.Float4{posq[0][0], posq[1][0], posq[2][0], posq[3][0]}
	s.y = fvec.Float4{posq[0][1], posq[1][1], posq[2][1], posq[3][1]}
	s.z = fvec.Float4{posq[0][2], posq[1][2], posq[2][2], posq[3][2]}
	s.charge = fvec.Float4{
		posq[0][3], posq[1][3], posq[2][3], posq[3][3],
	}.Scale(One4PiEps0)
	s.sigma = fvec.Float4{
		e.params[s.atoms[0]].Sigma, e.params[s.atoms[1]].Sigma,
		e.params[s.atoms[2]].Sigma, e.params[s.atoms[3]].Sigma,
	}
	s.epsilon = fvec.Float4{
		e.params[s.atoms[0]].Epsilon, e.params[s.atoms[1]].Epsilon,
		e.params[s.atoms[2]].Epsilon, e.params[s.atoms[3]].Epsilon,
	}

	s.needPeriodic = false
	if e.periodic {
	outer:
		for i := 0; i < nblist.BlockSize; i++ {
			for m := 0; m < 3; m++ {
				if posq[i][m]-e.cutoffDistance < 0 ||
					posq[i][m]+e.cutoffDistance > e.box.Size[m] {
					s.needPeriodic = true
					break outer
				}
			}
		}
	}
}

// storeBlock flushes the force running totals to the global buffer. Block
// atoms are visited once per neighbor but written once per block; neighbors
// are written every iteration since each appears only once per block.
func (s *blockState) storeBlock(forces []float32) {
	for j := 0; j < nblist.BlockSize; j++ {
		fvec.Load(forces[4*s.atoms[j]:]).Add(s.force[j]).
			Store(forces[4*s.atoms[j]:])
	}
}

// blockIxn evaluates one block against its neighbor list with plain cutoff
// electrostatics (reaction field).
func (e *Evaluator) blockIxn(blockIndex int, forces []float32, energy *float64) {
	var s blockState
	e.loadBlock(blockIndex, &s)
	cutoff2 := e.cutoffDistance * e.cutoffDistance

	neighbors := e.neighbors.BlockNeighbors(blockIndex)
	exclusions := e.neighbors.BlockExclusions(blockIndex)
	var include [4]bool
	for i, atom := range neighbors {
		atomPosq := fvec.Load(e.posq[4*atom:])
		dx, dy, dz, r2 := geom.DeltaBlock(
			atomPosq, s.x, s.y, s.z, s.needPeriodic, e.box,
		)
		any := false
		for j := 0; j < 4; j++ {
			include[j] = (exclusions[i]>>j)&1 == 0 && r2[j] < cutoff2
			any = any || include[j]
		}
		if !any {
			continue // No interactions to compute.
		}

		r := r2.Sqrt()
		inverseR := fvec.Broadcast(1).Div(r)
		switchValue, switchDeriv := fvec.Broadcast(1), fvec.Float4{}
		if e.useSwitch {
			switchValue, switchDeriv = e.switchFunctionBlock(r)
		}
		sig := s.sigma.AddS(e.params[atom].Sigma)
		sig2 := inverseR.Mul(sig)
		sig2 = sig2.Mul(sig2)
		sig6 := sig2.Mul(sig2).Mul(sig2)
		eps := s.epsilon.Scale(e.params[atom].Epsilon)
		dEdR := switchValue.Mul(eps).
			Mul(sig6.Scale(12).SubS(6)).Mul(sig6)
		chargeProd := s.charge.Scale(e.posq[4*atom+3])
		dEdR = dEdR.Add(chargeProd.Mul(inverseR.Sub(r2.Scale(2 * e.krf))))
		dEdR = dEdR.Mul(inverseR).Mul(inverseR)
		ljEnergy := eps.Mul(sig6.SubS(1)).Mul(sig6)
		if e.useSwitch {
			dEdR = dEdR.Sub(ljEnergy.Mul(switchDeriv).Mul(inverseR))
			ljEnergy = ljEnergy.Mul(switchValue)
		}

		if energy != nil {
			pairEnergy := ljEnergy.Add(
				chargeProd.Mul(inverseR.Add(r2.Scale(e.krf)).AddS(-e.crf)))
			*energy += float64(pairEnergy.Mask(include).Sum())
		}

		s.scatterForces(dx, dy, dz, dEdR, include, atom, forces)
	}
	s.storeBlock(forces)
}

// blockEwaldIxn is blockIxn with Ewald-split electrostatics: the Coulomb
// force uses the tabulated real-space scale factor and the Coulomb energy
// uses the erfc approximation directly.
func (e *Evaluator) blockEwaldIxn(
	blockIndex int, forces []float32, energy *float64,
) {
	var s blockState
	e.loadBlock(blockIndex, &s)
	cutoff2 := e.cutoffDistance * e.cutoffDistance

	neighbors := e.neighbors.BlockNeighbors(blockIndex)
	exclusions := e.neighbors.BlockExclusions(blockIndex)
	var include [4]bool
	for i, atom := range neighbors {
		atomPosq := fvec.Load(e.posq[4*atom:])
		dx, dy, dz, r2 := geom.DeltaBlock(
			atomPosq, s.x, s.y, s.z, s.needPeriodic, e.box,
		)
		any := false
		for j := 0; j < 4; j++ {
			include[j] = (exclusions[i]>>j)&1 == 0 && r2[j] < cutoff2
			any = any || include[j]
		}
		if !any {
			continue // No interactions to compute.
		}

		r := r2.Sqrt()
		inverseR := fvec.Broadcast(1).Div(r)
		switchValue, switchDeriv := fvec.Broadcast(1), fvec.Float4{}
		if e.useSwitch {
			switchValue, switchDeriv = e.switchFunctionBlock(r)
		}
		chargeProd := s.charge.Scale(e.posq[4*atom+3])
		dEdR := chargeProd.Mul(inverseR).Mul(e.ewaldScaleFunction(r))
		sig := s.sigma.AddS(e.params[atom].Sigma)
		sig2 := inverseR.Mul(sig)
		sig2 = sig2.Mul(sig2)
		sig6 := sig2.Mul(sig2).Mul(sig2)
		eps := s.epsilon.Scale(e.params[atom].Epsilon)
		dEdR = dEdR.Add(switchValue.Mul(eps).
			Mul(sig6.Scale(12).SubS(6)).Mul(sig6))
		dEdR = dEdR.Mul(inverseR).Mul(inverseR)
		ljEnergy := eps.Mul(sig6.SubS(1)).Mul(sig6)
		if e.useSwitch {
			dEdR = dEdR.Sub(ljEnergy.Mul(switchDeriv).Mul(inverseR))
			ljEnergy = ljEnergy.Mul(switchValue)
		}

		if energy != nil {
			pairEnergy := ljEnergy.Add(chargeProd.Mul(inverseR).
				Mul(erfcApprox(r.Scale(e.alphaEwald))))
			*energy += float64(pairEnergy.Mask(include).Sum())
		}

		s.scatterForces(dx, dy, dz, dEdR, include, atom, forces)
	}
	s.storeBlock(forces)
}

// switchFunctionBlock is the four-lane form of switchFunction. Lanes at or
// below the switching distance get t = 0, so their value is 1 and derivative
// is 0.
func (e *Evaluator) switchFunctionBlock(r fvec.Float4) (value, deriv fvec.Float4) {
	width := e.cutoffDistance - e.switchingDistance
	t := r.SubS(e.switchingDistance).DivS(width).
		Mask(r.GreaterS(e.switchingDistance))
	t3 := t.Mul(t).Mul(t)
	value = t3.Mul(t.Scale(15).Sub(t.Mul(t).Scale(6)).AddS(-10)).AddS(1)
	deriv = t.Mul(t).
		Mul(t.Scale(60).Sub(t.Mul(t).Scale(30)).AddS(-30)).DivS(width)
	return value, deriv
}

// scatterForces transposes the per-lane force components into per-atom
// vectors, adds them to the block running totals and subtracts them from the
// neighbor's global slot, honoring the inclusion mask.
func (s *blockState) scatterForces(
	dx, dy, dz, dEdR fvec.Float4, include [4]bool, atom int32,
	forces []float32,
) {
	fx := dx.Mul(dEdR)
	fy := dy.Mul(dEdR)
	fz := dz.Mul(dEdR)
	fw := fvec.Float4{}
	fvec.Transpose(&fx, &fy, &fz, &fw)
	result := [4]fvec.Float4{fx, fy, fz, fw}

	atomForce := fvec.Load(forces[4*atom:])
	for j := 0; j < 4; j++ {
		if include[j] {
			s.force[j] = s.force[j].Add(result[j])
			atomForce = atomForce.Sub(result[j])
		}
	}
	atomForce.Store(forces[4*atom:])
}
