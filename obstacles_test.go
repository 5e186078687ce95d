package navmesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
	"github.com/milk9111/navmesh/scene"
)

func box(name string, at common.Vec3) *scene.Node {
	b := scene.Box(name, 1, 1, 2)
	b.SetPos(at)
	return b
}

func TestObstaclesNeedObstacleVariant(t *testing.T) {
	n := configured(t)
	_, err := n.AddObstacle(box("crate", common.Vec3{}))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestObstacleRegistry(t *testing.T) {
	n := configured(t, WithVariant(engine.VariantObstacle))
	crate := box("crate", common.V3(3, 3, 0))

	_, err := n.AddObstacle(nil)
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	ref, err := n.AddObstacle(crate)
	require.NoError(t, err)
	assert.Zero(t, ref)
	_, err = n.AddObstacle(crate)
	assert.ErrorIs(t, err, ErrAlreadyBound)
	assert.Equal(t, 1, n.ObstacleCount())

	require.NoError(t, n.Build(scene.Plane("ground", 20, 1)))
	require.Equal(t, 1, n.ObstacleCount())
	committed := n.obstacles[0].ref
	assert.NotZero(t, committed)
	assert.Same(t, crate, n.ObstacleByRef(committed))
	assert.Equal(t, 1, n.mesh.TileCache().ObstacleCount())
	assert.Same(t, n.Reference(), crate.Parent())

	n.Teardown()
	assert.Equal(t, 1, n.ObstacleCount())
	assert.Zero(t, n.obstacles[0].ref)
	assert.Nil(t, n.ObstacleByRef(committed))
	// teardown leaves the node in place
	assert.Same(t, n.Reference(), crate.Parent())
}

func TestObstacleCarvesMeshWhenBuilt(t *testing.T) {
	n := configured(t, WithVariant(engine.VariantObstacle))
	require.NoError(t, n.Build(scene.Plane("ground", 20, 1)))
	q := n.mesh.Query()
	filter := n.crowd.Filter()
	at := toEngine(common.V3(3, 3, 0))

	ref, _, err := q.FindNearestPoly(at, common.V3(0.1, 1, 0.1), filter)
	require.NoError(t, err)
	require.NotZero(t, ref)

	crate := box("crate", common.V3(3, 3, 0))
	obRef, err := n.AddObstacle(crate)
	require.NoError(t, err)
	require.NotZero(t, obRef)

	// committed before AddObstacle returns
	ref, _, err = q.FindNearestPoly(at, common.V3(0.1, 1, 0.1), filter)
	require.NoError(t, err)
	assert.Zero(t, ref)

	got, err := n.RemoveObstacle(crate)
	require.NoError(t, err)
	assert.Equal(t, obRef, got)
	assert.Nil(t, crate.Parent())
	assert.Equal(t, 0, n.ObstacleCount())

	ref, _, err = q.FindNearestPoly(at, common.V3(0.1, 1, 0.1), filter)
	require.NoError(t, err)
	assert.NotZero(t, ref)

	_, err = n.RemoveObstacle(crate)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveAllObstacles(t *testing.T) {
	n := configured(t, WithVariant(engine.VariantObstacle))
	require.NoError(t, n.Build(scene.Plane("ground", 20, 1)))
	for i, p := range []common.Vec3{common.V3(-4, 4, 0), common.V3(4, 4, 0), common.V3(4, -4, 0)} {
		_, err := n.AddObstacle(box("crate"+string(rune('a'+i)), p))
		require.NoError(t, err)
	}
	assert.Len(t, n.Obstacles(), 3)
	require.NoError(t, n.RemoveAllObstacles())
	assert.Equal(t, 0, n.ObstacleCount())
	assert.Equal(t, 0, n.mesh.TileCache().ObstacleCount())
}

func TestObstacleInsideVolumeKeepsVolumeFlags(t *testing.T) {
	n := configured(t, WithVariant(engine.VariantObstacle))
	strip := []common.Vec3{
		common.V3(-1, -10, 0), common.V3(1, -10, 0),
		common.V3(1, 10, 0), common.V3(-1, 10, 0),
	}
	_, err := n.AddConvexVolume(strip, engine.AreaWater)
	require.NoError(t, err)
	_, err = n.AddObstacle(box("crate", common.V3(0, 2, 0)))
	require.NoError(t, err)
	require.NoError(t, n.Build(scene.Plane("ground", 20, 1)))

	path, err := n.PathFindStraight(common.V3(-5, 0, 0), common.V3(5, 0, 0), engine.StraightAreaCrossings)
	require.NoError(t, err)

	var swim bool
	for _, p := range path {
		if p.PolyFlags&engine.FlagSwim != 0 && p.Area == engine.AreaWater {
			swim = true
		}
	}
	assert.True(t, swim, "path %v never enters the water strip", path)
}

func TestFailedObstacleCommitLeavesEngineClean(t *testing.T) {
	var fm *flakyMesh
	n := configured(t, WithVariant(engine.VariantObstacle), WithEngine(flakyEngine(&fm)))
	require.NoError(t, n.Build(scene.Plane("ground", 20, 1)))

	fm.failUpdates = 1
	_, err := n.AddObstacle(box("crate", common.V3(4, 4, 0)))
	require.ErrorIs(t, err, ErrEngineRejected)
	assert.Equal(t, 0, n.ObstacleCount())
	assert.Equal(t, 0, n.mesh.TileCache().ObstacleCount())

	ref, err := n.AddObstacle(box("barrel", common.V3(-4, -4, 0)))
	require.NoError(t, err)
	assert.NotZero(t, ref)
	assert.Equal(t, 1, n.mesh.TileCache().ObstacleCount())
}
