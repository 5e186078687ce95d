package engine

import (
	"github.com/milk9111/navmesh/common"
)

// PolyRefBits is the width shared by tile and polygon indices in a
// polygon reference.
const (
	PolyRefBits = 22
	MaxTileBits = 14
)

// MaxTouchedTiles bounds how many tiles one obstacle change can touch,
// and so how many cache updates commit it.
const MaxTouchedTiles = 8

// GridSize returns the cell grid dimensions on the X/Z plane.
func GridSize(bmin, bmax common.Vec3, cellSize float32) (w, h int) {
	w = int((bmax.X-bmin.X)/cellSize + 0.5)
	h = int((bmax.Z-bmin.Z)/cellSize + 0.5)
	return w, h
}

// TileBudget splits the reference bits between tile and polygon indices
// for a mesh covering bmin..bmax with tiles of tileSize cells.
type TileBudget struct {
	TilesX, TilesZ  int
	TileBits        int
	PolyBits        int
	MaxTiles        int
	MaxPolysPerTile int
}

func ComputeTileBudget(bmin, bmax common.Vec3, cellSize, tileSize float32) TileBudget {
	gw, gh := GridSize(bmin, bmax, cellSize)
	ts := int(tileSize)
	if ts < 1 {
		ts = 1
	}
	tw := (gw + ts - 1) / ts
	th := (gh + ts - 1) / ts
	tileBits := int(common.Ilog2(common.NextPow2(uint32(tw * th))))
	if tileBits > MaxTileBits {
		tileBits = MaxTileBits
	}
	polyBits := PolyRefBits - tileBits
	return TileBudget{
		TilesX:          tw,
		TilesZ:          th,
		TileBits:        tileBits,
		PolyBits:        polyBits,
		MaxTiles:        1 << tileBits,
		MaxPolysPerTile: 1 << polyBits,
	}
}
