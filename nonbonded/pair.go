package nonbonded

import (
	"github.com/chewxy/math32"

	"github.com/mfellner/nbforce/fvec"
	"github.com/mfellner/nbforce/geom"
)

// switchFunction returns the Lennard-Jones switching value and its radial
// derivative at distance r. It is the unique quintic with value 1 and zero
// first and second derivatives at the switching distance, and value 0 with
// zero first and second derivatives at the cutoff.
func (e *Evaluator) switchFunction(r float32) (value, deriv float32) {
	t := (r - e.switchingDistance) / (e.cutoffDistance - e.switchingDistance)
	value = 1 + t*t*t*(-10+t*(15-t*6))
	deriv = t * t * (-30 + t*(60-t*30)) /
		(e.cutoffDistance - e.switchingDistance)
	return value, deriv
}

// oneIxn accumulates the interaction of the single pair (ii, jj) into the
// force buffer and energy partial. This is the fallback path used when no
// cutoff (and hence no neighbor list) is configured.
//
// A zero-distance pair divides by zero here and the resulting NaN propagates
// into the outputs. Exclusion lists are expected to keep self pairs and
// coincident atoms out of the kernels.
func (e *Evaluator) oneIxn(ii, jj int, forces []float32, energy *float64) {
	posI := fvec.Load(e.posq[4*ii:])
	posJ := fvec.Load(e.posq[4*jj:])
	delta, r2 := geom.Delta(posJ, posI, e.periodic, e.box)
	if e.cutoff && r2 >= e.cutoffDistance*e.cutoffDistance {
		return
	}
	r := math32.Sqrt(r2)
	inverseR := 1 / r

	switchValue, switchDeriv := float32(1), float32(0)
	if e.useSwitch && r > e.switchingDistance {
		switchValue, switchDeriv = e.switchFunction(r)
	}

	sig := e.params[ii].Sigma + e.params[jj].Sigma
	sig2 := inverseR * sig
	sig2 *= sig2
	sig6 := sig2 * sig2 * sig2
	eps := e.params[ii].Epsilon * e.params[jj].Epsilon
	dEdR := switchValue * eps * (12*sig6 - 6) * sig6

	chargeProd := One4PiEps0 * e.posq[4*ii+3] * e.posq[4*jj+3]
	if e.cutoff {
		dEdR += chargeProd * (inverseR - 2*e.krf*r2)
	} else {
		dEdR += chargeProd * inverseR
	}
	dEdR *= inverseR * inverseR

	ljEnergy := eps * (sig6 - 1) * sig6
	if e.useSwitch {
		dEdR -= ljEnergy * switchDeriv * inverseR
		ljEnergy *= switchValue
	}

	if energy != nil {
		if e.cutoff {
			ljEnergy += chargeProd * (inverseR + e.krf*r2 - e.crf)
		} else {
			ljEnergy += chargeProd * inverseR
		}
		*energy += float64(ljEnergy)
	}

	result := delta.Scale(dEdR)
	fvec.Load(forces[4*ii:]).Add(result).Store(forces[4*ii:])
	fvec.Load(forces[4*jj:]).Sub(result).Store(forces[4*jj:])
}

// excludedIxn subtracts the full-range Coulomb interaction of an excluded
// pair that the reciprocal-space sum implicitly double counts. The force
// removed is the complement of the short-range tabulated term, so the net
// electrostatic contribution of an excluded pair over direct, reciprocal and
// correction terms is zero.
func (e *Evaluator) excludedIxn(i, j int, forces []float32, energy *float64) {
	posI := fvec.Load(e.posq[4*i:])
	posJ := fvec.Load(e.posq[4*j:])
	delta, r2 := geom.Delta(posJ, posI, false, e.box)
	r := math32.Sqrt(r2)
	inverseR := 1 / r
	chargeProd := One4PiEps0 * e.posq[4*i+3] * e.posq[4*j+3]
	alphaR := e.alphaEwald * r
	erfcAlphaR := erfcApprox32(alphaR)

	dEdR := chargeProd * inverseR * inverseR * inverseR
	dEdR *= 1 - erfcAlphaR - twoOverSqrtPi*alphaR*math32.Exp(-alphaR*alphaR)

	// Lane 3 of the packed records holds the charge, not a coordinate.
	result := delta.Scale(dEdR)
	result[3] = 0
	fvec.Load(forces[4*i:]).Sub(result).Store(forces[4*i:])
	fvec.Load(forces[4*j:]).Add(result).Store(forces[4*j:])
	if energy != nil {
		*energy -= float64(chargeProd * inverseR * (1 - erfcAlphaR))
	}
}
