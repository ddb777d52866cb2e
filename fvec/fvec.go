/*package fvec provides fixed four-lane float32 vector arithmetic.

The types here model a single 128-bit SIMD register: every operation acts on
all four lanes at once, and conditional logic is expressed through lane masks
rather than branches. The force kernels are written entirely against this
package, so a port to hardware intrinsics only has to replace these
definitions.
*/
package fvec

import (
	"github.com/chewxy/math32"
)

// Float4 holds four float32 lanes.
type Float4 [4]float32

// Int4 holds four int32 lanes.
type Int4 [4]int32

// Bool4 is a lane mask. A true lane participates in an operation, a false
// lane is suppressed.
type Bool4 [4]bool

// Broadcast returns a vector with x in every lane.
func Broadcast(x float32) Float4 {
	return Float4{x, x, x, x}
}

// Load reads four consecutive values starting at s[0].
func Load(s []float32) Float4 {
	_ = s[3]
	return Float4{s[0], s[1], s[2], s[3]}
}

// Store writes the four lanes to s[0:4].
func (v Float4) Store(s []float32) {
	_ = s[3]
	s[0], s[1], s[2], s[3] = v[0], v[1], v[2], v[3]
}

func (v Float4) Add(o Float4) Float4 {
	return Float4{v[0] + o[0], v[1] + o[1], v[2] + o[2], v[3] + o[3]}
}

func (v Float4) Sub(o Float4) Float4 {
	return Float4{v[0] - o[0], v[1] - o[1], v[2] - o[2], v[3] - o[3]}
}

func (v Float4) Mul(o Float4) Float4 {
	return Float4{v[0] * o[0], v[1] * o[1], v[2] * o[2], v[3] * o[3]}
}

func (v Float4) Div(o Float4) Float4 {
	return Float4{v[0] / o[0], v[1] / o[1], v[2] / o[2], v[3] / o[3]}
}

// Scale multiplies every lane by x.
func (v Float4) Scale(x float32) Float4 {
	return Float4{v[0] * x, v[1] * x, v[2] * x, v[3] * x}
}

// AddS adds x to every lane.
func (v Float4) AddS(x float32) Float4 {
	return Float4{v[0] + x, v[1] + x, v[2] + x, v[3] + x}
}

// SubS subtracts x from every lane.
func (v Float4) SubS(x float32) Float4 {
	return Float4{v[0] - x, v[1] - x, v[2] - x, v[3] - x}
}

// DivS divides every lane by x.
func (v Float4) DivS(x float32) Float4 {
	return Float4{v[0] / x, v[1] / x, v[2] / x, v[3] / x}
}

// Neg negates every lane.
func (v Float4) Neg() Float4 {
	return Float4{-v[0], -v[1], -v[2], -v[3]}
}

func (v Float4) Sqrt() Float4 {
	return Float4{
		math32.Sqrt(v[0]), math32.Sqrt(v[1]),
		math32.Sqrt(v[2]), math32.Sqrt(v[3]),
	}
}

func (v Float4) Exp() Float4 {
	return Float4{
		math32.Exp(v[0]), math32.Exp(v[1]),
		math32.Exp(v[2]), math32.Exp(v[3]),
	}
}

// Round rounds every lane to the nearest integer value.
func (v Float4) Round() Float4 {
	return Float4{
		math32.Round(v[0]), math32.Round(v[1]),
		math32.Round(v[2]), math32.Round(v[3]),
	}
}

func (v Float4) Floor() Float4 {
	return Float4{
		math32.Floor(v[0]), math32.Floor(v[1]),
		math32.Floor(v[2]), math32.Floor(v[3]),
	}
}

// FloorInt truncates every lane toward negative infinity and returns the
// result as integer lanes.
func (v Float4) FloorInt() Int4 {
	return Int4{
		int32(math32.Floor(v[0])), int32(math32.Floor(v[1])),
		int32(math32.Floor(v[2])), int32(math32.Floor(v[3])),
	}
}

// Float converts the integer lanes back to float32.
func (v Int4) Float() Float4 {
	return Float4{
		float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3]),
	}
}

// GreaterS compares every lane against the scalar x.
func (v Float4) GreaterS(x float32) Bool4 {
	return Bool4{v[0] > x, v[1] > x, v[2] > x, v[3] > x}
}

// LessS compares every lane against the scalar x.
func (v Float4) LessS(x float32) Bool4 {
	return Bool4{v[0] < x, v[1] < x, v[2] < x, v[3] < x}
}

// Mask zeroes the lanes where m is false.
func (v Float4) Mask(m Bool4) Float4 {
	var out Float4
	for i := range v {
		if m[i] {
			out[i] = v[i]
		}
	}
	return out
}

// Blend selects a's lane where m is true and b's lane where it is false.
func Blend(m Bool4, a, b Float4) Float4 {
	var out Float4
	for i := range out {
		if m[i] {
			out[i] = a[i]
		} else {
			out[i] = b[i]
		}
	}
	return out
}

// Any reports whether any lane of the mask is set.
func (m Bool4) Any() bool {
	return m[0] || m[1] || m[2] || m[3]
}

// Dot3 computes the dot product of the first three lanes. The fourth lane is
// ignored, which lets packed (x, y, z, charge) records be used directly.
func Dot3(a, b Float4) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Dot4 computes the full four-lane dot product.
func Dot4(a, b Float4) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
}

// Sum adds the four lanes together.
func (v Float4) Sum() float32 {
	return v[0] + v[1] + v[2] + v[3]
}

// Transpose performs an in-place 4x4 transpose of the matrix whose rows are
// a, b, c and d.
func Transpose(a, b, c, d *Float4) {
	a[1], b[0] = b[0], a[1]
	a[2], c[0] = c[0], a[2]
	a[3], d[0] = d[0], a[3]
	b[2], c[1] = c[1], b[2]
	b[3], d[1] = d[1], b[3]
	c[3], d[2] = d[2], c[3]
}
