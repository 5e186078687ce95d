package navmesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
	"github.com/milk9111/navmesh/scene"
)

func builtPlane(t *testing.T, opts ...Option) *NavMesh {
	t.Helper()
	n := configured(t, opts...)
	require.NoError(t, n.Build(scene.Plane("ground", 20, 1)))
	return n
}

func TestQueriesNeedBuiltMesh(t *testing.T) {
	n := configured(t)
	start, end := common.V3(-5, 0, 0), common.V3(5, 0, 0)

	_, err := n.PathFindStraight(start, end, engine.StraightNone)
	assert.ErrorIs(t, err, ErrNotBuilt)
	_, err = n.PathFindFollow(start, end)
	assert.ErrorIs(t, err, ErrNotBuilt)
	got, err := n.Raycast(start, end)
	assert.ErrorIs(t, err, ErrNotBuilt)
	assert.Equal(t, end, got)
	_, err = n.DistanceToWall(start)
	assert.ErrorIs(t, err, ErrNotBuilt)
	_, _, err = n.TilePos(start)
	assert.ErrorIs(t, err, ErrNotBuilt)
	assert.ErrorIs(t, n.BuildTile(start), ErrNotBuilt)
	assert.ErrorIs(t, n.RemoveAllTiles(), ErrNotBuilt)
}

func TestPathFindStraight(t *testing.T) {
	n := builtPlane(t)
	start, end := common.V3(-5, 1, 0), common.V3(5, -1, 0)

	path, err := n.PathFindStraight(start, end, engine.StraightNone)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(path), 2)

	first, last := path[0], path[len(path)-1]
	assert.Equal(t, engine.StraightPathStart, first.Flags)
	assert.Equal(t, engine.StraightPathEnd, last.Flags)
	assert.True(t, first.Pos.ApproxEqual(start, 1e-4), "start %s", first.Pos)
	assert.True(t, last.Pos.ApproxEqual(end, 1e-4), "end %s", last.Pos)
	assert.Equal(t, engine.FlagWalk, first.PolyFlags)
}

func TestPathFindStraightOffMesh(t *testing.T) {
	n := builtPlane(t)
	_, err := n.PathFindStraight(common.V3(-5, 0, 0), common.V3(30, 0, 0), engine.StraightNone)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPathFindFollow(t *testing.T) {
	n := builtPlane(t)
	start, end := common.V3(-4, 0, 0), common.V3(4, 0, 0)

	pts, err := n.PathFindFollow(start, end)
	require.NoError(t, err)
	require.Greater(t, len(pts), 10)
	assert.True(t, pts[0].ApproxEqual(start, 1e-4))
	assert.True(t, pts[len(pts)-1].ApproxEqual(end, 1e-4))
	for i := 1; i < len(pts); i++ {
		assert.LessOrEqual(t, pts[i-1].Dist(pts[i]), float32(followStep+1e-3))
		assert.InDelta(t, 0, pts[i].Z, 1e-4)
	}
}

func TestRaycast(t *testing.T) {
	n := builtPlane(t)

	end := common.V3(3, 2, 0)
	got, err := n.Raycast(common.V3(-3, 0, 0), end)
	require.NoError(t, err)
	assert.Equal(t, end, got)

	// the surface is eroded by the agent radius at the plane border
	got, err = n.Raycast(common.V3(0, 0, 0), common.V3(15, 0, 0))
	require.NoError(t, err)
	assert.Greater(t, got.X, float32(8.5))
	assert.Less(t, got.X, float32(10))
	assert.InDelta(t, 0, got.Y, 1e-4)
}

func TestDistanceToWall(t *testing.T) {
	n := builtPlane(t)

	d, err := n.DistanceToWall(common.V3(8, 0, 0))
	require.NoError(t, err)
	assert.InDelta(t, 1.4, d, 0.5)

	far, err := n.DistanceToWall(common.V3(0, 0, 0))
	require.NoError(t, err)
	assert.Greater(t, far, d)
}

func TestTileOpsOnSoloMesh(t *testing.T) {
	n := builtPlane(t)
	tx, ty, err := n.TilePos(common.V3(5, 5, 0))
	require.NoError(t, err)
	assert.Zero(t, tx)
	assert.Zero(t, ty)
	assert.NoError(t, n.BuildTile(common.Vec3{}))
	assert.NoError(t, n.RemoveTile(common.Vec3{}))
	assert.NoError(t, n.BuildAllTiles())
	assert.NoError(t, n.RemoveAllTiles())
}

func TestTileOpsOnTileMesh(t *testing.T) {
	n := builtPlane(t, WithVariant(engine.VariantTile))
	start, end := common.V3(0, 0, 0), common.V3(2, 0, 0)

	tx, ty, err := n.TilePos(common.V3(9.5, -9.5, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, tx)
	assert.Equal(t, 2, ty)

	// no tiles are built by default
	_, err = n.PathFindStraight(start, end, engine.StraightNone)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, n.BuildTile(start))
	_, err = n.PathFindStraight(start, end, engine.StraightNone)
	require.NoError(t, err)

	require.NoError(t, n.RemoveTile(start))
	_, err = n.PathFindStraight(start, end, engine.StraightNone)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, n.BuildTile(common.V3(50, 0, 0)), ErrEngineRejected)

	require.NoError(t, n.BuildAllTiles())
	_, err = n.PathFindStraight(common.V3(-8, 8, 0), common.V3(8, -8, 0), engine.StraightNone)
	require.NoError(t, err)

	require.NoError(t, n.RemoveAllTiles())
	_, err = n.PathFindStraight(start, end, engine.StraightNone)
	assert.ErrorIs(t, err, ErrNotFound)
}
