package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
)

func drain(t *testing.T, tc engine.TileCache) {
	t.Helper()
	upToDate := false
	for i := 0; i < engine.MaxTouchedTiles && !upToDate; i++ {
		var err error
		upToDate, err = tc.Update(0)
		require.NoError(t, err)
	}
	require.True(t, upToDate)
}

func TestTileCacheCarvesObstacle(t *testing.T) {
	m := buildMesh(t, engine.VariantObstacle, planeGeom(t, 10), testConfig())
	tc := m.TileCache()
	require.NotNil(t, tc)
	q := m.Query()
	f := engine.NewFilter()
	at := common.V3(0, 0, 0)

	ref, _, _ := q.FindNearestPoly(at, probe, f)
	require.NotZero(t, ref)

	obRef, err := tc.AddObstacle(at, 1, 2)
	require.NoError(t, err)
	require.NotZero(t, obRef)

	// nothing changes until the cache is updated
	ref, _, _ = q.FindNearestPoly(at, probe, f)
	assert.NotZero(t, ref)

	drain(t, tc)
	ref, _, _ = q.FindNearestPoly(at, probe, f)
	assert.Zero(t, ref)
	assert.Equal(t, 1, tc.ObstacleCount())

	start := common.V3(-5, 0, 0)
	sref, _, _ := q.FindNearestPoly(start, probe, f)
	hit, err := q.Raycast(sref, start, common.V3(5, 0, 0), f)
	require.NoError(t, err)
	assert.Less(t, hit.T, float32(1))

	require.NoError(t, tc.RemoveObstacle(obRef))
	drain(t, tc)
	ref, _, _ = q.FindNearestPoly(at, probe, f)
	assert.NotZero(t, ref)
	assert.Zero(t, tc.ObstacleCount())

	assert.Error(t, tc.RemoveObstacle(obRef))
	assert.NoError(t, tc.RemoveObstacle(0))
	_, err = tc.AddObstacle(at, 0, 2)
	assert.Error(t, err)
}

func TestTileCacheObstacleOnTileCorner(t *testing.T) {
	cfg := testConfig()
	cfg.TileSize = 8
	m := buildMesh(t, engine.VariantObstacle, planeGeom(t, 10), cfg)
	tc := m.TileCache()

	// 8 cells of 0.3 per tile: x = -10 + 2.4*4 = -0.4 is a tile border
	corner := common.V3(-0.4, 0, -0.4)
	_, err := tc.AddObstacle(corner, 0.5, 2)
	require.NoError(t, err)

	upToDate, err := tc.Update(0)
	require.NoError(t, err)
	assert.False(t, upToDate)
	drain(t, tc)

	ref, _, _ := m.Query().FindNearestPoly(corner, probe, engine.NewFilter())
	assert.Zero(t, ref)
}

func TestTilerBuildsTilesOnDemand(t *testing.T) {
	cfg := testConfig()
	cfg.BuildAllTiles = false
	m := buildMesh(t, engine.VariantTile, planeGeom(t, 10), cfg)
	tl := m.Tiler()
	require.NotNil(t, tl)
	q := m.Query()
	f := engine.NewFilter()
	at := common.V3(0, 0, 0)

	ref, _, _ := q.FindNearestPoly(at, probe, f)
	assert.Zero(t, ref)

	tx, tz := tl.TilePos(at)
	assert.Equal(t, 1, tx)
	assert.Equal(t, 1, tz)

	require.NoError(t, tl.BuildTile(at))
	ref, _, _ = q.FindNearestPoly(at, probe, f)
	assert.NotZero(t, ref)

	require.NoError(t, tl.RemoveTile(at))
	ref, _, _ = q.FindNearestPoly(at, probe, f)
	assert.Zero(t, ref)

	require.NoError(t, tl.BuildAllTiles())
	ref, _, _ = q.FindNearestPoly(common.V3(8, 0, 8), probe, f)
	assert.NotZero(t, ref)
	tl.RemoveAllTiles()
	ref, _, _ = q.FindNearestPoly(common.V3(8, 0, 8), probe, f)
	assert.Zero(t, ref)

	assert.Error(t, tl.BuildTile(common.V3(100, 0, 0)))
}
