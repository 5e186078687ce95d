package common

// Polygon helpers on the X/Z ground plane (Y is up).

// PointInPolyXZ reports whether p lies inside the polygon pts, ignoring Y.
func PointInPolyXZ(pts []Vec3, p Vec3) bool {
	inside := false
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		vi, vj := pts[i], pts[j]
		if (vi.Z > p.Z) != (vj.Z > p.Z) &&
			p.X < (vj.X-vi.X)*(p.Z-vi.Z)/(vj.Z-vi.Z)+vi.X {
			inside = !inside
		}
	}
	return inside
}

func Centroid(pts []Vec3) Vec3 {
	var c Vec3
	if len(pts) == 0 {
		return c
	}
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.Scale(1 / float32(len(pts)))
}

// ConvexHullXZ returns the indices of the convex hull of pts by gift
// wrapping, starting from the lowest-leftmost point.
func ConvexHullXZ(pts []Vec3) []int {
	if len(pts) == 0 {
		return nil
	}
	hull := 0
	for i := 1; i < len(pts); i++ {
		if lessXZ(pts[i], pts[hull]) {
			hull = i
		}
	}
	out := make([]int, 0, len(pts))
	for len(out) < len(pts) {
		out = append(out, hull)
		endpt := 0
		for j := 1; j < len(pts); j++ {
			if hull == endpt || leftXZ(pts[hull], pts[endpt], pts[j]) {
				endpt = j
			}
		}
		hull = endpt
		if endpt == out[0] {
			break
		}
	}
	return out
}

func lessXZ(a, b Vec3) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Z < b.Z
}

func leftXZ(a, b, c Vec3) bool {
	u1 := b.X - a.X
	v1 := b.Z - a.Z
	u2 := c.X - a.X
	v2 := c.Z - a.Z
	return u1*v2-v1*u2 < 0
}

// TriHeightXZ returns the height of triangle (a, b, c) above p when p
// projects inside it.
func TriHeightXZ(a, b, c, p Vec3) (float32, bool) {
	v0 := c.Sub(a)
	v1 := b.Sub(a)
	v2 := p.Sub(a)

	denom := v0.X*v1.Z - v0.Z*v1.X
	if denom > -1e-6 && denom < 1e-6 {
		return 0, false
	}
	u := v1.Z*v2.X - v1.X*v2.Z
	v := v0.X*v2.Z - v0.Z*v2.X
	if denom < 0 {
		denom, u, v = -denom, -u, -v
	}

	const eps = 1e-4
	if u >= -eps && v >= -eps && u+v <= denom+eps {
		return a.Y + (v0.Y*u+v1.Y*v)/denom, true
	}
	return 0, false
}
