package grid

import (
	"github.com/jakecoffman/cp"

	"github.com/milk9111/navmesh/common"
)

const (
	collisionTypeWall cp.CollisionType = iota + 1
	collisionTypeAgent
)

const (
	wallCategory  uint = 1 << 0
	agentCategory uint = 1 << 1
)

var (
	wallFilter  = cp.NewShapeFilter(cp.NO_GROUP, wallCategory, cp.ALL_CATEGORIES)
	agentFilter = cp.NewShapeFilter(cp.NO_GROUP, agentCategory, cp.ALL_CATEGORIES)
	// wallQuery matches walls only.
	wallQuery = cp.NewShapeFilter(cp.NO_GROUP, cp.ALL_CATEGORIES, wallCategory)
)

// rebuildWalls replaces the wall segments owned by tile t. A passable
// cell owns a wall on every side facing a cell it cannot step onto.
func (m *Mesh) rebuildWalls(t int) {
	for _, s := range m.walls[t] {
		m.space.RemoveShape(s)
	}
	m.walls[t] = m.walls[t][:0]
	if !m.tileOn[t] {
		return
	}

	cs := m.cfg.CellSize
	tx, tz := t%m.tilesX, t/m.tilesX
	i0, j0 := tx*m.tileCells, tz*m.tileCells
	i1 := min(i0+m.tileCells, m.cols)
	j1 := min(j0+m.tileCells, m.rows)

	sides := []struct {
		di, dj         int
		ax, az, bx, bz float32
	}{
		{-1, 0, 0, 0, 0, 1},
		{1, 0, 1, 0, 1, 1},
		{0, -1, 0, 0, 1, 0},
		{0, 1, 0, 1, 1, 1},
	}
	for j := j0; j < j1; j++ {
		for i := i0; i < i1; i++ {
			idx := j*m.cols + i
			if !m.passable(idx) {
				continue
			}
			x0 := m.bmin.X + float32(i)*cs
			z0 := m.bmin.Z + float32(j)*cs
			for _, s := range sides {
				ni, nj := i+s.di, j+s.dj
				if ni >= 0 && nj >= 0 && ni < m.cols && nj < m.rows {
					n := nj*m.cols + ni
					if m.passable(n) && m.climbable(idx, n) {
						continue
					}
				}
				a := cp.Vector{X: float64(x0 + s.ax*cs), Y: float64(z0 + s.az*cs)}
				b := cp.Vector{X: float64(x0 + s.bx*cs), Y: float64(z0 + s.bz*cs)}
				seg := cp.NewSegment(m.space.StaticBody, a, b, 0)
				seg.SetFriction(0)
				seg.SetCollisionType(collisionTypeWall)
				seg.SetFilter(wallFilter)
				m.space.AddShape(seg)
				m.walls[t] = append(m.walls[t], seg)
			}
		}
	}
}

// refreshWalls rebuilds tile t and its neighbours, whose border walls
// depend on t.
func (m *Mesh) refreshWalls(t int) {
	tx, tz := t%m.tilesX, t/m.tilesX
	m.rebuildWalls(t)
	for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		nx, nz := tx+d[0], tz+d[1]
		if nx < 0 || nz < 0 || nx >= m.tilesX || nz >= m.tilesZ {
			continue
		}
		m.rebuildWalls(nz*m.tilesX + nx)
	}
}

func toCP(p common.Vec3) cp.Vector {
	return cp.Vector{X: float64(p.X), Y: float64(p.Z)}
}

func fromCP(v cp.Vector, y float32) common.Vec3 {
	return common.V3(float32(v.X), y, float32(v.Y))
}
