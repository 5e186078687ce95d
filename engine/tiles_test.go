package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/milk9111/navmesh/common"
)

func TestComputeTileBudget(t *testing.T) {
	tests := []struct {
		name     string
		extent   float32
		tileSize float32
		tiles    int
		tileBits int
	}{
		{"10x10 tiles", 96, 32, 10, 7},
		{"single tile", 9, 32, 1, 0},
		{"2x2 tiles", 19, 32, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ComputeTileBudget(common.V3(0, 0, 0), common.V3(tt.extent, 1, tt.extent), 0.3, tt.tileSize)
			assert.Equal(t, tt.tiles, b.TilesX)
			assert.Equal(t, tt.tiles, b.TilesZ)
			assert.Equal(t, tt.tileBits, b.TileBits)
			assert.Equal(t, PolyRefBits, b.TileBits+b.PolyBits)
			assert.LessOrEqual(t, b.TileBits, MaxTileBits)
			assert.GreaterOrEqual(t, b.MaxTiles, tt.tiles*tt.tiles)
			assert.Equal(t, 1<<b.PolyBits, b.MaxPolysPerTile)
		})
	}
}

func TestComputeTileBudgetCapsTileBits(t *testing.T) {
	b := ComputeTileBudget(common.V3(0, 0, 0), common.V3(1000, 1, 1000), 0.3, 1)
	assert.Equal(t, MaxTileBits, b.TileBits)
	assert.Equal(t, PolyRefBits-MaxTileBits, b.PolyBits)
}
