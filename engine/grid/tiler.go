package grid

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
)

type tiler struct {
	mesh *Mesh
}

var _ engine.Tiler = (*tiler)(nil)

func (t *tiler) TilePos(pos common.Vec3) (int, int) {
	return t.mesh.tilePos(pos)
}

func (m *Mesh) tilePos(pos common.Vec3) (int, int) {
	span := float32(m.tileCells) * m.cfg.CellSize
	return int(math32.Floor((pos.X - m.bmin.X) / span)), int(math32.Floor((pos.Z - m.bmin.Z) / span))
}

func (t *tiler) tileAt(pos common.Vec3) (int, error) {
	tx, tz := t.TilePos(pos)
	if tx < 0 || tz < 0 || tx >= t.mesh.tilesX || tz >= t.mesh.tilesZ {
		return -1, fmt.Errorf("%w: tile (%d, %d) is outside the mesh", engine.ErrInvalidParam, tx, tz)
	}
	return tz*t.mesh.tilesX + tx, nil
}

func (t *tiler) BuildTile(pos common.Vec3) error {
	return t.set(pos, true)
}

func (t *tiler) RemoveTile(pos common.Vec3) error {
	return t.set(pos, false)
}

func (t *tiler) set(pos common.Vec3, on bool) error {
	idx, err := t.tileAt(pos)
	if err != nil {
		return err
	}
	t.mesh.tileOn[idx] = on
	t.mesh.refreshWalls(idx)
	t.mesh.version++
	return nil
}

func (t *tiler) BuildAllTiles() error {
	t.setAll(true)
	return nil
}

func (t *tiler) RemoveAllTiles() {
	t.setAll(false)
}

func (t *tiler) setAll(on bool) {
	m := t.mesh
	for i := range m.tileOn {
		m.tileOn[i] = on
	}
	for i := range m.tileOn {
		m.rebuildWalls(i)
	}
	m.version++
}
