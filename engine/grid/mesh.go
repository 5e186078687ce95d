// Package grid is a cell-grid mesh engine. Each walkable cell of a regular
// grid laid over the input triangles is one polygon; off-mesh connections
// add one polygon each. Walls between walkable and blocked cells live in a
// chipmunk space that answers ray and distance queries and keeps crowd
// agents on the mesh.
package grid

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
)

type cell struct {
	walkable bool
	blocked  bool
	height   float32
	area     int
	flags    uint16
}

// link is the polygon of an off-mesh connection. from and to are the
// cells its endpoints attach to, or -1.
type link struct {
	conn  engine.OffMeshConnection
	from  int
	to    int
	area  int
	flags uint16
}

type Mesh struct {
	variant   engine.Variant
	cfg       engine.Config
	areaFlags map[int]uint16
	geom      *engine.InputGeom

	built     bool
	bmin      common.Vec3
	cols      int
	rows      int
	cells     []cell
	links     []link
	tileCells int
	tilesX    int
	tilesZ    int
	tileOn    []bool

	space *cp.Space
	walls [][]*cp.Shape
	// version changes whenever passability changes so agents replan.
	version int

	query *Query
	crowd *Crowd
	cache *TileCache
	tiler *tiler
}

var _ engine.Mesh = (*Mesh)(nil)

// New is an engine.Factory.
func New(v engine.Variant) (engine.Mesh, error) {
	switch v {
	case engine.VariantSolo, engine.VariantTile, engine.VariantObstacle:
	default:
		return nil, fmt.Errorf("grid: unsupported variant %s", v)
	}
	return &Mesh{
		variant:   v,
		areaFlags: engine.DefaultAreaFlags(),
	}, nil
}

func (m *Mesh) Variant() engine.Variant { return m.variant }

func (m *Mesh) Load(geom *engine.InputGeom) error {
	if geom == nil {
		return fmt.Errorf("grid: load: nil geometry")
	}
	if geom.TriCount() == 0 {
		return fmt.Errorf("grid: load: geometry has no triangles")
	}
	m.geom = geom
	return nil
}

func (m *Mesh) Geom() *engine.InputGeom { return m.geom }

func (m *Mesh) SetConfig(cfg engine.Config) { m.cfg = cfg }

func (m *Mesh) Config() engine.Config { return m.cfg }

func (m *Mesh) SetAreaFlags(table map[int]uint16) {
	m.areaFlags = make(map[int]uint16, len(table))
	for area, flags := range table {
		m.areaFlags[area] = flags
	}
}

func (m *Mesh) Query() engine.Query {
	if m.query == nil {
		return nil
	}
	return m.query
}

func (m *Mesh) TileCache() engine.TileCache {
	if m.cache == nil {
		return nil
	}
	return m.cache
}

func (m *Mesh) Tiler() engine.Tiler {
	if m.tiler == nil {
		return nil
	}
	return m.tiler
}

func (m *Mesh) Close() {
	if m.crowd != nil {
		m.crowd.close()
	}
	m.built = false
	m.cells = nil
	m.links = nil
	m.walls = nil
	m.space = nil
	m.query = nil
	m.crowd = nil
	m.cache = nil
	m.tiler = nil
	m.geom = nil
}

func (m *Mesh) Build() error {
	if m.geom == nil {
		return fmt.Errorf("grid: build: no geometry loaded")
	}
	if err := m.cfg.Validate(); err != nil {
		return fmt.Errorf("grid: build: %w", err)
	}

	bmin, bmax := m.geom.Bounds()
	cols, rows := engine.GridSize(bmin, bmax, m.cfg.CellSize)
	cols = max(cols, 1)
	rows = max(rows, 1)

	tileCells := max(cols, rows)
	if m.variant.Tiled() {
		tileCells = max(int(m.cfg.TileSize), 1)
	}
	tilesX := (cols + tileCells - 1) / tileCells
	tilesZ := (rows + tileCells - 1) / tileCells
	if m.variant.Tiled() {
		if m.cfg.MaxTiles > 0 && tilesX*tilesZ > m.cfg.MaxTiles {
			return fmt.Errorf("grid: build: %d tiles exceed the limit of %d", tilesX*tilesZ, m.cfg.MaxTiles)
		}
		if m.cfg.MaxPolysPerTile > 0 && tileCells*tileCells > m.cfg.MaxPolysPerTile {
			return fmt.Errorf("grid: build: %d polygons per tile exceed the limit of %d", tileCells*tileCells, m.cfg.MaxPolysPerTile)
		}
	}

	m.bmin = bmin
	m.cols, m.rows = cols, rows
	m.tileCells = tileCells
	m.tilesX, m.tilesZ = tilesX, tilesZ
	m.cells = make([]cell, cols*rows)

	m.rasterize()
	m.erode()
	m.markAreas()
	m.linkConnections()

	m.tileOn = make([]bool, tilesX*tilesZ)
	for t := range m.tileOn {
		m.tileOn[t] = m.variant != engine.VariantTile || m.cfg.BuildAllTiles
	}

	m.space = cp.NewSpace()
	m.walls = make([][]*cp.Shape, len(m.tileOn))
	for t := range m.tileOn {
		m.rebuildWalls(t)
	}

	m.query = &Query{mesh: m}
	switch m.variant {
	case engine.VariantObstacle:
		m.cache = newTileCache(m)
	case engine.VariantTile:
		m.tiler = &tiler{mesh: m}
	}
	m.built = true
	m.version++
	return nil
}

// rasterize samples the topmost triangle under every cell center.
func (m *Mesh) rasterize() {
	cs := m.cfg.CellSize
	cosSlope := math32.Cos(common.Deg2Rad(m.cfg.AgentMaxSlope))
	covered := make([]bool, len(m.cells))
	verts, tris := m.geom.Verts(), m.geom.Tris()

	for t := 0; t+2 < len(tris); t += 3 {
		a, b, c := verts[tris[t]], verts[tris[t+1]], verts[tris[t+2]]
		walkable := b.Sub(a).Cross(c.Sub(a)).Normalize().Y > cosSlope
		lo := a.Min(b).Min(c)
		hi := a.Max(b).Max(c)
		i0 := clampInt(int((lo.X-m.bmin.X)/cs), 0, m.cols-1)
		i1 := clampInt(int((hi.X-m.bmin.X)/cs), 0, m.cols-1)
		j0 := clampInt(int((lo.Z-m.bmin.Z)/cs), 0, m.rows-1)
		j1 := clampInt(int((hi.Z-m.bmin.Z)/cs), 0, m.rows-1)
		for j := j0; j <= j1; j++ {
			for i := i0; i <= i1; i++ {
				h, ok := common.TriHeightXZ(a, b, c, m.cellCenter(i, j, 0))
				if !ok {
					continue
				}
				idx := j*m.cols + i
				if !covered[idx] || h > m.cells[idx].height {
					covered[idx] = true
					m.cells[idx].height = h
					m.cells[idx].walkable = walkable
				}
			}
		}
	}
}

// erode removes walkable cells closer than the agent radius to anything
// unwalkable, the grid border included.
func (m *Mesh) erode() {
	r := int(math32.Ceil(m.cfg.AgentRadius / m.cfg.CellSize))
	if r <= 0 {
		return
	}
	const unset = -1
	dist := make([]int, len(m.cells))
	queue := make([]int, 0, len(m.cells))
	for i, c := range m.cells {
		if c.walkable {
			dist[i] = unset
			continue
		}
		queue = append(queue, i)
	}
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		ci, cj := idx%m.cols, idx/m.cols
		for dj := -1; dj <= 1; dj++ {
			for di := -1; di <= 1; di++ {
				ni, nj := ci+di, cj+dj
				if ni < 0 || nj < 0 || ni >= m.cols || nj >= m.rows {
					continue
				}
				n := nj*m.cols + ni
				if dist[n] == unset {
					dist[n] = dist[idx] + 1
					queue = append(queue, n)
				}
			}
		}
	}
	for idx := range m.cells {
		if !m.cells[idx].walkable {
			continue
		}
		i, j := idx%m.cols, idx/m.cols
		d := min(i+1, m.cols-i, j+1, m.rows-j)
		if dist[idx] != unset {
			d = min(d, dist[idx])
		}
		if d <= r {
			m.cells[idx].walkable = false
		}
	}
}

func (m *Mesh) markAreas() {
	for idx := range m.cells {
		if m.cells[idx].walkable {
			m.cells[idx].area = engine.AreaGround
		}
	}
	for k := 0; k < m.geom.ConvexVolumeCount(); k++ {
		vol, _ := m.geom.ConvexVolume(k)
		for idx := range m.cells {
			if m.cells[idx].walkable && vol.Contains(m.cellPos(idx)) {
				m.cells[idx].area = vol.Area
			}
		}
	}
	for idx := range m.cells {
		if m.cells[idx].walkable {
			m.cells[idx].flags = m.flagsFor(m.cells[idx].area)
		}
	}
}

func (m *Mesh) flagsFor(area int) uint16 {
	if f, ok := m.areaFlags[area]; ok {
		return f
	}
	return engine.FlagWalk
}

func (m *Mesh) linkConnections() {
	m.links = m.links[:0]
	for k := 0; k < m.geom.OffMeshConnectionCount(); k++ {
		conn, _ := m.geom.OffMeshConnection(k)
		m.links = append(m.links, link{
			conn:  conn,
			from:  m.attach(conn.Start, conn.Rad),
			to:    m.attach(conn.End, conn.Rad),
			area:  conn.Area,
			flags: conn.Flags,
		})
	}
}

// attach finds the walkable cell nearest p on the ground plane within rad
// and within climbing height.
func (m *Mesh) attach(p common.Vec3, rad float32) int {
	best, bestDist := -1, float32(0)
	reach := math32.Max(rad, m.cfg.CellSize/2)
	m.eachCellIn(p, common.V3(reach, 0, reach), func(idx int) {
		c := m.cells[idx]
		if !c.walkable || math32.Abs(c.height-p.Y) > m.cfg.AgentMaxClimb+m.cfg.CellHeight {
			return
		}
		d := m.closestOnCell(idx, p).Dist2D(p)
		if d <= reach && (best < 0 || d < bestDist) {
			best, bestDist = idx, d
		}
	})
	return best
}

func (m *Mesh) tileOf(idx int) int {
	i, j := idx%m.cols, idx/m.cols
	return (j/m.tileCells)*m.tilesX + i/m.tileCells
}

func (m *Mesh) passable(idx int) bool {
	c := m.cells[idx]
	return c.walkable && !c.blocked && m.tileOn[m.tileOf(idx)]
}

func (m *Mesh) cellCenter(i, j int, y float32) common.Vec3 {
	cs := m.cfg.CellSize
	return common.V3(m.bmin.X+(float32(i)+0.5)*cs, y, m.bmin.Z+(float32(j)+0.5)*cs)
}

func (m *Mesh) cellPos(idx int) common.Vec3 {
	return m.cellCenter(idx%m.cols, idx/m.cols, m.cells[idx].height)
}

// cellAt returns the cell under p, or -1 outside the grid.
func (m *Mesh) cellAt(p common.Vec3) int {
	cs := m.cfg.CellSize
	fx := (p.X - m.bmin.X) / cs
	fz := (p.Z - m.bmin.Z) / cs
	if fx < 0 || fz < 0 {
		return -1
	}
	i, j := int(fx), int(fz)
	if i >= m.cols || j >= m.rows {
		return -1
	}
	return j*m.cols + i
}

func (m *Mesh) closestOnCell(idx int, p common.Vec3) common.Vec3 {
	cs := m.cfg.CellSize
	i, j := idx%m.cols, idx/m.cols
	x0 := m.bmin.X + float32(i)*cs
	z0 := m.bmin.Z + float32(j)*cs
	return common.V3(
		common.Clamp(p.X, x0, x0+cs),
		m.cells[idx].height,
		common.Clamp(p.Z, z0, z0+cs),
	)
}

// eachCellIn visits the cells whose squares overlap center +- ext on the
// ground plane.
func (m *Mesh) eachCellIn(center, ext common.Vec3, fn func(idx int)) {
	cs := m.cfg.CellSize
	i0 := int(math32.Floor((center.X - ext.X - m.bmin.X) / cs))
	i1 := int(math32.Floor((center.X + ext.X - m.bmin.X) / cs))
	j0 := int(math32.Floor((center.Z - ext.Z - m.bmin.Z) / cs))
	j1 := int(math32.Floor((center.Z + ext.Z - m.bmin.Z) / cs))
	i0, j0 = max(i0, 0), max(j0, 0)
	i1, j1 = min(i1, m.cols-1), min(j1, m.rows-1)
	for j := j0; j <= j1; j++ {
		for i := i0; i <= i1; i++ {
			fn(j*m.cols + i)
		}
	}
}

func (m *Mesh) climbable(a, b int) bool {
	return math32.Abs(m.cells[a].height-m.cells[b].height) <= m.cfg.AgentMaxClimb
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
