package scene

import (
	"github.com/chewxy/math32"

	"github.com/milk9111/navmesh/common"
)

// CollisionHeight casts a ray straight down from origin, given in n's
// space, against the geometry of n's subtree. It returns the height of
// the first surface hit expressed in space.
func (n *Node) CollisionHeight(origin common.Vec3, space *Node) (float32, bool) {
	verts, tris := n.Triangles(n)
	var best float32
	found := false
	for i := 0; i+2 < len(tris); i += 3 {
		z, ok := verticalHit(verts[tris[i]], verts[tris[i+1]], verts[tris[i+2]], origin.X, origin.Y)
		if !ok || z > origin.Z {
			continue
		}
		if !found || z > best {
			best, found = z, true
		}
	}
	if !found {
		return 0, false
	}
	return space.RelativePoint(n, common.V3(origin.X, origin.Y, best)).Z, true
}

// verticalHit returns the height of triangle abc above (x, y).
func verticalHit(a, b, c common.Vec3, x, y float32) (float32, bool) {
	d := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if math32.Abs(d) < 1e-12 {
		return 0, false
	}
	l1 := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / d
	l2 := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / d
	l3 := 1 - l1 - l2
	const eps = -1e-6
	if l1 < eps || l2 < eps || l3 < eps {
		return 0, false
	}
	return l1*a.Z + l2*b.Z + l3*c.Z, true
}
