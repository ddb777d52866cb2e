package geom

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mfellner/nbforce/fvec"
)

func TestDeltaNoWrap(t *testing.T) {
	box := NewBox(10, 10, 10)
	a := fvec.Float4{1, 2, 3, 0.5}
	b := fvec.Float4{2, 4, 6, -0.5}

	delta, r2 := Delta(a, b, false, box)
	assert.Equal(t, fvec.Float4{1, 2, 3, -1}, delta)
	// The squared distance ignores the charge lane.
	assert.Equal(t, float32(14), r2)
}

func TestDeltaMinimumImage(t *testing.T) {
	box := NewBox(2, 2, 2)
	a := fvec.Float4{0.1, 0.1, 0.1, 0}
	b := fvec.Float4{1.9, 1.9, 0.5, 0}

	delta, r2 := Delta(a, b, true, box)
	assert.InDelta(t, -0.2, float64(delta[0]), 1e-6)
	assert.InDelta(t, -0.2, float64(delta[1]), 1e-6)
	assert.InDelta(t, 0.4, float64(delta[2]), 1e-6)
	assert.InDelta(t, 0.24, float64(r2), 1e-6)
}

// The blocked form must agree with four scalar calls up to reassociation.
func TestDeltaBlockMatchesScalar(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	box := NewBox(3, 4, 5)

	for trial := 0; trial < 50; trial++ {
		var block [4]fvec.Float4
		var x, y, z fvec.Float4
		for i := 0; i < 4; i++ {
			block[i] = fvec.Float4{
				rng.Float32() * 3, rng.Float32() * 4, rng.Float32() * 5,
				rng.Float32(),
			}
			x[i], y[i], z[i] = block[i][0], block[i][1], block[i][2]
		}
		pos := fvec.Float4{
			rng.Float32() * 3, rng.Float32() * 4, rng.Float32() * 5,
			rng.Float32(),
		}

		for _, periodic := range []bool{false, true} {
			dx, dy, dz, r2 := DeltaBlock(pos, x, y, z, periodic, box)
			for i := 0; i < 4; i++ {
				delta, sr2 := Delta(pos, block[i], periodic, box)
				assert.InDelta(t, float64(delta[0]), float64(dx[i]), 1e-6)
				assert.InDelta(t, float64(delta[1]), float64(dy[i]), 1e-6)
				assert.InDelta(t, float64(delta[2]), float64(dz[i]), 1e-6)
				assert.InDelta(t, float64(sr2), float64(r2[i]), 1e-5)
			}
		}
	}
}
