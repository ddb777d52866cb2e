package nonbonded

import (
	"math"

	"github.com/chewxy/math32"

	"github.com/mfellner/nbforce/fvec"
	"github.com/mfellner/nbforce/interpolate"
)

// tabulateEwaldScaleFactor samples the Ewald real-space correction
//
//	f(r) = erfc(alpha r) + (2/sqrt(pi)) alpha r exp(-(alpha r)^2)
//
// over [0, cutoff] plus two intervals of headroom, fits a natural cubic
// spline, and stores per interval the tuple (y0, y1, y2_0 h^2/6, y2_1 h^2/6)
// needed for O(1) cubic interpolation. The table must be rebuilt whenever
// alpha or the cutoff changes and is immutable during evaluation.
func (e *Evaluator) tabulateEwaldScaleFactor() {
	e.ewaldDX = e.cutoffDistance / (numTablePoints - 2)
	e.ewaldDXInv = 1 / e.ewaldDX

	xs := make([]float64, numTablePoints+1)
	ys := make([]float64, numTablePoints+1)
	for i := range xs {
		r := float64(i) * float64(e.cutoffDistance) / (numTablePoints - 2)
		alphaR := float64(e.alphaEwald) * r
		xs[i] = r
		ys[i] = math.Erfc(alphaR) +
			float64(twoOverSqrtPi)*alphaR*math.Exp(-alphaR*alphaR)
	}
	deriv := interpolate.NaturalSecondDerivs(xs, ys)

	h2Over6 := float64(e.ewaldDX) * float64(e.ewaldDX) / 6
	e.ewaldScaleTable = make([]float32, 4*numTablePoints)
	for i := 0; i < numTablePoints; i++ {
		e.ewaldScaleTable[4*i] = float32(ys[i])
		e.ewaldScaleTable[4*i+1] = float32(ys[i+1])
		e.ewaldScaleTable[4*i+2] = float32(deriv[i] * h2Over6)
		e.ewaldScaleTable[4*i+3] = float32(deriv[i+1] * h2Over6)
	}
}

// ewaldScaleFunction interpolates the tabulated real-space correction at four
// distances at once. Lanes whose interval index falls outside the table are
// left at zero; the cutoff test has already masked them out of the result.
func (e *Evaluator) ewaldScaleFunction(r fvec.Float4) fvec.Float4 {
	u := r.Scale(e.ewaldDXInv)
	index := u.FloorInt()

	var c0, c1, c2, c3 fvec.Float4
	c1 = u.Sub(index.Float())
	c0 = fvec.Broadcast(1).Sub(c1)
	c2 = c0.Mul(c0).Mul(c0).Sub(c0)
	c3 = c1.Mul(c1).Mul(c1).Sub(c1)
	fvec.Transpose(&c0, &c1, &c2, &c3)
	coeff := [4]fvec.Float4{c0, c1, c2, c3}

	var y fvec.Float4
	for i := 0; i < 4; i++ {
		if index[i] < numTablePoints {
			y[i] = fvec.Dot4(
				coeff[i], fvec.Load(e.ewaldScaleTable[4*index[i]:]),
			)
		}
	}
	return y
}

// erfcApprox evaluates erfc lane-wise with the Hastings polynomial
// approximation (Abramowitz and Stegun 1964, p. 299). Maximum error 3e-7.
func erfcApprox(x fvec.Float4) fvec.Float4 {
	t := x.Scale(0.0000430638).AddS(0.0002765672).Mul(x).
		AddS(0.0001520143).Mul(x).
		AddS(0.0092705272).Mul(x).
		AddS(0.0422820123).Mul(x).
		AddS(0.0705230784).Mul(x).
		AddS(1)
	t = t.Mul(t)
	t = t.Mul(t)
	t = t.Mul(t)
	return fvec.Broadcast(1).Div(t.Mul(t))
}

// erfcApprox32 is the scalar form of erfcApprox, used by the exclusion
// correction pass.
func erfcApprox32(x float32) float32 {
	t := 1 + x*(0.0705230784+x*(0.0422820123+x*(0.0092705272+
		x*(0.0001520143+x*(0.0002765672+x*0.0000430638)))))
	t *= t
	t *= t
	t *= t
	return 1 / (t * t)
}

// CalculateReciprocal adds the reciprocal-space part of the Ewald or PME
// electrostatics. With PME configured it delegates to the external mesh
// solver; with classic Ewald it runs the k-space sum below. Without periodic
// boundaries and a nonzero separation parameter it contributes nothing.
func (e *Evaluator) CalculateReciprocal(
	numAtoms int, posq []float32, forces []float32, energy *float32,
) error {
	if !e.periodic || e.alphaEwald == 0 {
		return nil
	}

	if e.pme {
		charges := make([]float32, numAtoms)
		for i := range charges {
			charges[i] = posq[4*i+3]
		}
		recipEnergy, _, err := e.solver.Execute(
			numAtoms, posq, charges, e.boxSize,
			e.alphaEwald, e.meshDim, pmeOrder, forces,
		)
		if err != nil {
			return err
		}
		if energy != nil {
			*energy += recipEnergy
		}
		return nil
	}
	if !e.ewald {
		return nil
	}

	kmax := max(e.numRx, e.numRy, e.numRz)
	factorEwald := -1 / (4 * e.alphaEwald * e.alphaEwald)
	recipCoeff := float32(One4PiEps0 * 4 * math.Pi /
		(float64(e.boxSize[0]) * float64(e.boxSize[1]) *
			float64(e.boxSize[2])))
	recipBoxSize := [3]float32{
		2 * math.Pi / e.boxSize[0],
		2 * math.Pi / e.boxSize[1],
		2 * math.Pi / e.boxSize[2],
	}

	// Structure factors exp(i k r) for every atom and axis, built by complex
	// recurrence up to the largest wavevector index.
	eir := make([]complex64, kmax*numAtoms*3)
	at := func(k, n, m int) int { return (k*numAtoms+n)*3 + m }
	for n := 0; n < numAtoms; n++ {
		for m := 0; m < 3; m++ {
			eir[at(0, n, m)] = complex(1, 0)
		}
		if kmax > 1 {
			for m := 0; m < 3; m++ {
				phase := posq[4*n+m] * recipBoxSize[m]
				eir[at(1, n, m)] = complex(
					math32.Cos(phase), math32.Sin(phase),
				)
			}
		}
		for k := 2; k < kmax; k++ {
			for m := 0; m < 3; m++ {
				eir[at(k, n, m)] = eir[at(k-1, n, m)] * eir[at(1, n, m)]
			}
		}
	}

	// Sum over a half-space of wavevectors; the mirror image of each vector
	// is folded in by the factor of two on the forces and by iterating
	// negative ry and rz once rx > 0.
	tabXY := make([]complex64, numAtoms)
	tabQXYZ := make([]complex64, numAtoms)
	lowry, lowrz := 0, 1
	for rx := 0; rx < e.numRx; rx++ {
		kx := float32(rx) * recipBoxSize[0]
		for ry := lowry; ry < e.numRy; ry++ {
			ky := float32(ry) * recipBoxSize[1]
			if ry >= 0 {
				for n := 0; n < numAtoms; n++ {
					tabXY[n] = eir[at(rx, n, 0)] * eir[at(ry, n, 1)]
				}
			} else {
				for n := 0; n < numAtoms; n++ {
					tabXY[n] = eir[at(rx, n, 0)] * conj(eir[at(-ry, n, 1)])
				}
			}
			for rz := lowrz; rz < e.numRz; rz++ {
				if rz >= 0 {
					for n := 0; n < numAtoms; n++ {
						tabQXYZ[n] = scale(
							posq[4*n+3], tabXY[n]*eir[at(rz, n, 2)],
						)
					}
				} else {
					for n := 0; n < numAtoms; n++ {
						tabQXYZ[n] = scale(
							posq[4*n+3], tabXY[n]*conj(eir[at(-rz, n, 2)]),
						)
					}
				}

				cs, ss := float32(0), float32(0)
				for n := 0; n < numAtoms; n++ {
					cs += real(tabQXYZ[n])
					ss += imag(tabQXYZ[n])
				}

				kz := float32(rz) * recipBoxSize[2]
				k2 := kx*kx + ky*ky + kz*kz
				ak := math32.Exp(k2*factorEwald) / k2

				for n := 0; n < numAtoms; n++ {
					force := ak * (cs*imag(tabQXYZ[n]) - ss*real(tabQXYZ[n]))
					forces[4*n] += 2 * recipCoeff * force * kx
					forces[4*n+1] += 2 * recipCoeff * force * ky
					forces[4*n+2] += 2 * recipCoeff * force * kz
				}
				if energy != nil {
					*energy += recipCoeff * ak * (cs*cs + ss*ss)
				}

				lowrz = 1 - e.numRz
			}
			lowry = 1 - e.numRy
		}
	}
	return nil
}

func conj(c complex64) complex64 {
	return complex(real(c), -imag(c))
}

func scale(q float32, c complex64) complex64 {
	return complex(q*real(c), q*imag(c))
}
