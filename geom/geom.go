/*package geom computes minimum-image displacements inside a periodic box.

Positions are stored as packed (x, y, z, charge) records, so a single
fvec.Float4 load brings in one atom. The minimum-image convention used here is
only valid when every box dimension is at least twice the interaction cutoff;
the configuration layer enforces that precondition before any of these
functions run.
*/
package geom

import (
	"github.com/mfellner/nbforce/fvec"
)

// Box describes the periodic simulation box. The fourth lane of Size and
// InvSize is unused and kept at zero so that packed position records can be
// wrapped with plain vector arithmetic.
type Box struct {
	Size    fvec.Float4
	InvSize fvec.Float4
}

// NewBox returns a Box with the given x, y and z widths.
func NewBox(x, y, z float32) Box {
	return Box{
		Size:    fvec.Float4{x, y, z, 0},
		InvSize: fvec.Float4{1 / x, 1 / y, 1 / z, 0},
	}
}

// Delta returns the displacement from a to b and its squared length,
// considering only the first three lanes. If periodic is set, the
// displacement is wrapped to the nearest periodic image.
func Delta(a, b fvec.Float4, periodic bool, box Box) (fvec.Float4, float32) {
	delta := b.Sub(a)
	if periodic {
		base := delta.Mul(box.InvSize).Round().Mul(box.Size)
		delta = delta.Sub(base)
	}
	return delta, fvec.Dot3(delta, delta)
}

// DeltaBlock returns the displacements from a single atom at pos to four
// atoms whose coordinates are held lane-wise in x, y and z, along with the
// four squared distances. It is the blocked counterpart of Delta and produces
// the same values up to floating-point reassociation.
func DeltaBlock(
	pos fvec.Float4, x, y, z fvec.Float4, periodic bool, box Box,
) (dx, dy, dz, r2 fvec.Float4) {
	dx = x.SubS(pos[0])
	dy = y.SubS(pos[1])
	dz = z.SubS(pos[2])
	if periodic {
		dx = dx.Sub(dx.Scale(box.InvSize[0]).Round().Scale(box.Size[0]))
		dy = dy.Sub(dy.Scale(box.InvSize[1]).Round().Scale(box.Size[1]))
		dz = dz.Sub(dz.Scale(box.InvSize[2]).Round().Scale(box.Size[2]))
	}
	r2 = dx.Mul(dx).Add(dy.Mul(dy)).Add(dz.Mul(dz))
	return dx, dy, dz, r2
}
