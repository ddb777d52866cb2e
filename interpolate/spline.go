/*package interpolate fits natural cubic splines to sampled functions.

The Ewald table builder only needs the knot second derivatives, so those are
exposed directly through NaturalSecondDerivs. The Spline type wraps the same
fit behind an evaluator and is mainly useful for checking tabulated
approximations against their source function.
*/
package interpolate

import (
	"log"
)

// NaturalSecondDerivs fits a natural cubic spline through the given table and
// returns the second derivative of the spline at every knot. The boundary
// values are zero by the natural spline condition.
//
// xs must be strictly increasing and the same length as ys.
func NaturalSecondDerivs(xs, ys []float64) []float64 {
	if len(xs) != len(ys) {
		log.Fatalf(
			"Table given to NaturalSecondDerivs() has len(xs) = %d "+
				"but len(ys) = %d.", len(xs), len(ys),
		)
	} else if len(xs) <= 2 {
		log.Fatalf(
			"Table given to NaturalSecondDerivs() has length of %d.", len(xs),
		)
	}
	for i := 0; i < len(xs)-1; i++ {
		if xs[i+1] <= xs[i] {
			log.Fatal("Table given to NaturalSecondDerivs() not increasing.")
		}
	}

	n := len(xs)
	y2s := make([]float64, n)

	// Solve for everything but the boundaries, which the natural condition
	// pins at zero.
	as, bs := make([]float64, n-2), make([]float64, n-2)
	cs, rs := make([]float64, n-2), make([]float64, n-2)
	for i := range rs {
		// j indexes into xs and ys.
		j := i + 1

		as[i] = (xs[j] - xs[j-1]) / 6
		bs[i] = (xs[j+1] - xs[j-1]) / 3
		cs[i] = (xs[j+1] - xs[j]) / 6
		rs[i] = ((ys[j+1] - ys[j]) / (xs[j+1] - xs[j])) -
			((ys[j] - ys[j-1]) / (xs[j] - xs[j-1]))
	}
	TriDiagAt(as, bs, cs, rs, y2s[1:n-1])

	return y2s
}

// TriDiagAt solves the tridiagonal system
//
//	| b0 c0 ..    |   | out0 |   | r0 |
//	| a1 b1 c1 .. |   | out1 |   | r1 |
//	| ..          | * | ..   | = | .. |
//	| ..    an bn |   | outn |   | rn |
//
// in place in the given slice.
func TriDiagAt(as, bs, cs, rs, out []float64) {
	if len(as) != len(bs) || len(as) != len(cs) ||
		len(as) != len(out) || len(as) != len(rs) {

		log.Fatal("Lengths of arguments to TriDiagAt are unequal.")
	}

	tmp := make([]float64, len(as))

	beta := bs[0]
	if beta == 0 {
		log.Fatal("TriDiagAt cannot solve given system.")
	}
	out[0] = rs[0] / beta

	for i := 1; i < len(out); i++ {
		tmp[i] = cs[i-1] / beta
		beta = bs[i] - as[i]*tmp[i]
		if beta == 0 {
			log.Fatal("TriDiagAt cannot solve given system.")
		}
		out[i] = (rs[i] - as[i]*out[i-1]) / beta
	}

	for i := len(out) - 2; i >= 0; i-- {
		out[i] -= tmp[i+1] * out[i+1]
	}
}

// Spline is a 1D natural cubic spline over a table of x and y values.
type Spline struct {
	xs, ys, y2s []float64

	// Usually the input data is uniform. This is our estimate of the point
	// spacing.
	dx float64
}

// NewSpline creates a spline from a table of x and y values. xs must be
// strictly increasing.
//
// xs and ys must not be modified throughout the lifetime of the Spline.
func NewSpline(xs, ys []float64) *Spline {
	sp := &Spline{
		xs: xs, ys: ys,
		y2s: NaturalSecondDerivs(xs, ys),
		dx:  (xs[len(xs)-1] - xs[0]) / float64(len(xs)-1),
	}
	return sp
}

// Eval computes the value of the spline at the given point.
//
// x must be within the range of x values given to NewSpline().
func (sp *Spline) Eval(x float64) float64 {
	i := sp.bsearch(x)
	h := sp.xs[i+1] - sp.xs[i]
	a := (sp.xs[i+1] - x) / h
	b := 1 - a
	return a*sp.ys[i] + b*sp.ys[i+1] +
		((a*a*a-a)*sp.y2s[i]+(b*b*b-b)*sp.y2s[i+1])*h*h/6
}

// Diff computes the first derivative of the spline at the given point.
//
// x must be within the range of x values given to NewSpline().
func (sp *Spline) Diff(x float64) float64 {
	i := sp.bsearch(x)
	h := sp.xs[i+1] - sp.xs[i]
	a := (sp.xs[i+1] - x) / h
	b := 1 - a
	return (sp.ys[i+1]-sp.ys[i])/h +
		((3*b*b-1)*sp.y2s[i+1]-(3*a*a-1)*sp.y2s[i])*h/6
}

// bsearch returns the index of the interval containing x.
func (sp *Spline) bsearch(x float64) int {
	if x < sp.xs[0] || x > sp.xs[len(sp.xs)-1] {
		log.Fatalf("Point %g given to Spline out of bounds [%g, %g].",
			x, sp.xs[0], sp.xs[len(sp.xs)-1])
	}

	// Guess under the assumption of uniform spacing.
	guess := int((x - sp.xs[0]) / sp.dx)
	if guess >= 0 && guess < len(sp.xs)-1 &&
		sp.xs[guess] <= x && sp.xs[guess+1] >= x {

		return guess
	}

	// Binary search.
	lo, hi := 0, len(sp.xs)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if x >= sp.xs[mid] {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}
