package scene

import (
	"github.com/chewxy/math32"

	"github.com/milk9111/navmesh/common"
)

// Transform is a similarity transform in the host convention (Z up):
// uniform scale, then a heading rotation about +Z in degrees, then a
// translation.
type Transform struct {
	Pos   common.Vec3
	H     float32
	Scale float32
}

func Identity() Transform {
	return Transform{Scale: 1}
}

func (t Transform) rotate(p common.Vec3, deg float32) common.Vec3 {
	if deg == 0 {
		return p
	}
	s, c := math32.Sincos(common.Deg2Rad(deg))
	return common.Vec3{X: p.X*c - p.Y*s, Y: p.X*s + p.Y*c, Z: p.Z}
}

func (t Transform) Apply(p common.Vec3) common.Vec3 {
	return t.rotate(p.Scale(t.Scale), t.H).Add(t.Pos)
}

// ApplyVector transforms a direction, ignoring translation.
func (t Transform) ApplyVector(v common.Vec3) common.Vec3 {
	return t.rotate(v.Scale(t.Scale), t.H)
}

// Compose returns the transform applying inner first, then t.
func (t Transform) Compose(inner Transform) Transform {
	return Transform{
		Pos:   t.Apply(inner.Pos),
		H:     t.H + inner.H,
		Scale: t.Scale * inner.Scale,
	}
}

func (t Transform) Inverse() Transform {
	if t.Scale == 0 {
		return Identity()
	}
	inv := Transform{H: -t.H, Scale: 1 / t.Scale}
	inv.Pos = inv.rotate(t.Pos.Scale(-inv.Scale), inv.H)
	return inv
}
