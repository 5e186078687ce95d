package scene

import (
	"fmt"

	"github.com/milk9111/navmesh/common"
)

// Node is a named element of the host scene graph. It carries a local
// transform relative to its parent and optional triangle geometry in its
// own space.
type Node struct {
	name     string
	parent   *Node
	children []*Node
	local    Transform

	verts []common.Vec3
	tris  []int
}

func NewNode(name string) *Node {
	return &Node{name: name, local: Identity()}
}

func (n *Node) Name() string {
	if n == nil {
		return ""
	}
	return n.name
}

func (n *Node) SetName(name string) {
	if n == nil {
		return
	}
	n.name = name
}

func (n *Node) Parent() *Node {
	if n == nil {
		return nil
	}
	return n.parent
}

func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

func (n *Node) AttachNewNode(name string) *Node {
	child := NewNode(name)
	child.ReparentTo(n)
	return child
}

// ReparentTo moves n under parent keeping its local transform. A nil
// parent detaches it.
func (n *Node) ReparentTo(parent *Node) {
	if n == nil || n.parent == parent {
		return
	}
	for p := parent; p != nil; p = p.parent {
		if p == n {
			return
		}
	}
	n.Detach()
	if parent == nil {
		return
	}
	n.parent = parent
	parent.children = append(parent.children, n)
}

// WrtReparentTo moves n under parent keeping its net transform.
func (n *Node) WrtReparentTo(parent *Node) {
	if n == nil {
		return
	}
	net := n.NetTransform()
	n.ReparentTo(parent)
	if n.parent == parent {
		n.local = parent.NetTransform().Inverse().Compose(net)
	}
}

func (n *Node) Detach() {
	if n == nil || n.parent == nil {
		return
	}
	siblings := n.parent.children
	for i, c := range siblings {
		if c == n {
			n.parent.children = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	n.parent = nil
}

func (n *Node) Transform() Transform {
	if n == nil {
		return Identity()
	}
	return n.local
}

func (n *Node) SetTransform(t Transform) {
	if n == nil {
		return
	}
	n.local = t
}

func (n *Node) Pos() common.Vec3 {
	return n.Transform().Pos
}

func (n *Node) SetPos(p common.Vec3) {
	if n == nil {
		return
	}
	n.local.Pos = p
}

func (n *Node) H() float32 {
	return n.Transform().H
}

func (n *Node) SetH(h float32) {
	if n == nil {
		return
	}
	n.local.H = h
}

func (n *Node) SetScale(s float32) {
	if n == nil {
		return
	}
	n.local.Scale = s
}

// NetTransform maps points in n's space to world space.
func (n *Node) NetTransform() Transform {
	if n == nil {
		return Identity()
	}
	t := n.local
	for p := n.parent; p != nil; p = p.parent {
		t = p.local.Compose(t)
	}
	return t
}

// RelativeTransform maps points in other's space to n's space. A nil
// node stands for world space on either side.
func (n *Node) RelativeTransform(other *Node) Transform {
	return n.NetTransform().Inverse().Compose(other.NetTransform())
}

// RelativePoint converts p from other's space to n's space.
func (n *Node) RelativePoint(other *Node, p common.Vec3) common.Vec3 {
	return n.RelativeTransform(other).Apply(p)
}

// RelativeVector converts a direction from other's space to n's space.
func (n *Node) RelativeVector(other *Node, v common.Vec3) common.Vec3 {
	return n.RelativeTransform(other).ApplyVector(v)
}

// PosWrt returns n's origin expressed in other's space.
func (n *Node) PosWrt(other *Node) common.Vec3 {
	return other.RelativePoint(n, common.Vec3{})
}

// SetPosWrt places n's origin at p given in other's space.
func (n *Node) SetPosWrt(other *Node, p common.Vec3) {
	if n == nil {
		return
	}
	n.local.Pos = n.parent.RelativePoint(other, p)
}

// SetHWrt sets n's heading so that it equals h in other's space.
func (n *Node) SetHWrt(other *Node, h float32) {
	if n == nil {
		return
	}
	n.local.H = other.NetTransform().H + h - n.parent.NetTransform().H
}

func (n *Node) SetGeometry(verts []common.Vec3, tris []int) error {
	if n == nil {
		return fmt.Errorf("scene: set geometry: nil node")
	}
	if len(tris)%3 != 0 {
		return fmt.Errorf("scene: set geometry %s: %d indices is not a multiple of 3", n.name, len(tris))
	}
	for _, i := range tris {
		if i < 0 || i >= len(verts) {
			return fmt.Errorf("scene: set geometry %s: index %d out of range", n.name, i)
		}
	}
	n.verts = append([]common.Vec3(nil), verts...)
	n.tris = append([]int(nil), tris...)
	return nil
}

func (n *Node) HasGeometry() bool {
	found := false
	n.walk(func(c *Node) {
		if len(c.tris) > 0 {
			found = true
		}
	})
	return found
}

// Triangles flattens the geometry of n's subtree into relativeTo's space.
func (n *Node) Triangles(relativeTo *Node) ([]common.Vec3, []int) {
	var verts []common.Vec3
	var tris []int
	n.walk(func(c *Node) {
		if len(c.tris) == 0 {
			return
		}
		xf := relativeTo.RelativeTransform(c)
		base := len(verts)
		for _, v := range c.verts {
			verts = append(verts, xf.Apply(v))
		}
		for _, i := range c.tris {
			tris = append(tris, base+i)
		}
	})
	return verts, tris
}

// TightBounds returns the bounds of n's subtree geometry in other's space.
func (n *Node) TightBounds(other *Node) (min, max common.Vec3, ok bool) {
	verts, tris := n.Triangles(other)
	for _, i := range tris {
		v := verts[i]
		if !ok {
			min, max, ok = v, v, true
			continue
		}
		min = min.Min(v)
		max = max.Max(v)
	}
	return min, max, ok
}

// BoundingDimensions measures the subtree in n's parent space, so n's own
// scale and heading count. Radius is half the largest dimension.
func (n *Node) BoundingDimensions() (dims common.Vec3, radius float32) {
	min, max, ok := n.TightBounds(n.Parent())
	if !ok {
		return common.Vec3{}, 0
	}
	dims = max.Sub(min).Abs()
	radius = dims.X
	if dims.Y > radius {
		radius = dims.Y
	}
	if dims.Z > radius {
		radius = dims.Z
	}
	return dims, radius / 2
}

// Find returns the first node named name in n's subtree, depth first.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.walk(func(c *Node) {
		if found == nil && c.name == name {
			found = c
		}
	})
	return found
}

func (n *Node) walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.children {
		c.walk(fn)
	}
}
