package navmesh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
	"github.com/milk9111/navmesh/engine/grid"
	"github.com/milk9111/navmesh/scene"
)

func configured(t *testing.T, opts ...Option) *NavMesh {
	t.Helper()
	n := New(opts...)
	require.NoError(t, n.Configure(DefaultSettings()))
	return n
}

func square(half float32) []common.Vec3 {
	return []common.Vec3{
		common.V3(-half, -half, 0), common.V3(half, -half, 0),
		common.V3(half, half, 0), common.V3(-half, half, 0),
	}
}

func TestLifecycleStates(t *testing.T) {
	n := New(WithName("test"))
	assert.Equal(t, StateUnconfigured, n.State())
	assert.Equal(t, "test", n.Name())

	err := n.Build(scene.Plane("ground", 20, 1))
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, n.Configure(DefaultSettings()))
	assert.Equal(t, StateConfigured, n.State())
	assert.ErrorIs(t, n.Configure(DefaultSettings()), ErrInvalidState)
	assert.ErrorIs(t, n.Build(nil), ErrInvalidState)

	require.NoError(t, n.Build(scene.Plane("ground", 20, 1)))
	assert.Equal(t, StateBuilt, n.State())
	assert.Equal(t, "ground_NavMesh", n.Name())
	assert.ErrorIs(t, n.Configure(DefaultSettings()), ErrAlreadyBuilt)
	assert.ErrorIs(t, n.Build(scene.Plane("other", 20, 1)), ErrAlreadyBuilt)
	assert.ErrorIs(t, n.SetMeshType(engine.VariantTile), ErrAlreadyBuilt)
	assert.ErrorIs(t, n.SetTileSettings(DefaultTileSettings()), ErrAlreadyBuilt)
	assert.ErrorIs(t, n.SetAreaFlags(engine.AreaWater, engine.FlagWalk), ErrAlreadyBuilt)

	n.Teardown()
	assert.Equal(t, StateUnconfigured, n.State())
	assert.Equal(t, "test", n.Name())
	assert.Nil(t, n.Owner())

	n.Teardown()
	assert.Equal(t, StateUnconfigured, n.State())
}

func TestBuildParentsOwnerUnderReference(t *testing.T) {
	n := configured(t)
	ground := scene.Plane("ground", 20, 1)
	require.NoError(t, n.Build(ground))
	assert.Same(t, n.Reference(), ground.Parent())
	assert.Same(t, ground, n.Owner())
}

func TestBuildTeardownKeepsRegistries(t *testing.T) {
	n := configured(t)
	require.NoError(t, n.SetAreaFlags(engine.AreaGrass, engine.FlagWalk|engine.FlagDoor))
	n.SetCrowdAreaCost(engine.AreaWater, 4)
	n.SetCrowdIncludeFlags(engine.FlagWalk | engine.FlagSwim)

	volRef, err := n.AddConvexVolume(square(2), engine.AreaWater)
	require.NoError(t, err)
	connRef, err := n.AddOffMeshConnection([]common.Vec3{common.V3(-4, 0, 0), common.V3(4, 0, 0)}, true)
	require.NoError(t, err)
	agent := NewAgent(scene.Box("walker", 1, 1, 2), DefaultAgentParams())
	require.NoError(t, n.AddAgent(agent))

	before := n.record()
	require.NoError(t, n.Build(scene.Plane("ground", 20, 1)))
	assert.True(t, agent.Index() >= 0)
	n.Teardown()
	after := n.record()

	assert.Equal(t, before.Name, after.Name)
	assert.Equal(t, before.Settings, after.Settings)
	assert.Equal(t, before.Tiles, after.Tiles)
	assert.Equal(t, before.AreaFlags, after.AreaFlags)
	assert.Equal(t, before.AreaCosts, after.AreaCosts)
	assert.Equal(t, before.Include, after.Include)
	assert.Equal(t, before.Exclude, after.Exclude)
	assert.Equal(t, before.RefCounter, after.RefCounter)
	assert.Equal(t, before.Agents, after.Agents)

	require.Len(t, after.Volumes, 1)
	assert.Equal(t, volRef, after.Volumes[0].Settings.Ref)
	assert.ElementsMatch(t, before.Volumes[0].Points, after.Volumes[0].Points)
	require.Len(t, after.Connections, 1)
	assert.Equal(t, before.Connections[0], after.Connections[0])
	assert.Equal(t, connRef, after.Connections[0].Settings.Ref)

	assert.Equal(t, -1, agent.Index())
	assert.Same(t, n, agent.NavMesh())

	// teardown twice changes nothing
	n.Teardown()
	assert.Equal(t, after, n.record())
}

func TestBuildDropsRejectedFeatures(t *testing.T) {
	n := configured(t)
	kept, err := n.AddConvexVolume(square(2), engine.AreaWater)
	require.NoError(t, err)
	collinear, err := n.AddConvexVolume([]common.Vec3{
		common.V3(0, 0, 0), common.V3(1, 0, 0), common.V3(2, 0, 0),
	}, engine.AreaWater)
	require.NoError(t, err)
	zero, err := n.AddOffMeshConnection([]common.Vec3{common.V3(1, 1, 0), common.V3(1, 1, 0)}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n.ConvexVolumeCount())
	assert.Equal(t, 1, n.OffMeshConnectionCount())

	require.NoError(t, n.Build(scene.Plane("ground", 20, 1)))
	assert.Equal(t, 1, n.ConvexVolumeCount())
	assert.Equal(t, 0, n.OffMeshConnectionCount())
	assert.NotNil(t, n.ConvexVolumeByRef(kept))
	assert.Nil(t, n.ConvexVolumeByRef(collinear))
	assert.Nil(t, n.OffMeshConnectionByRef(zero))

	_, err = n.ConvexVolumeSettingsByRef(collinear)
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingMesh struct {
	engine.Mesh
}

func (failingMesh) Build() error { return errors.New("no walkable surface") }

// flakyMesh passes everything to a real engine except the failAt-th
// SetPolyFlags call and the next failUpdates tile cache updates, which
// fail.
type flakyMesh struct {
	engine.Mesh
	failAt      int
	flagCalls   int
	failUpdates int
}

func flakyEngine(out **flakyMesh) engine.Factory {
	return func(v engine.Variant) (engine.Mesh, error) {
		m, err := grid.New(v)
		if err != nil {
			return nil, err
		}
		*out = &flakyMesh{Mesh: m}
		return *out, nil
	}
}

func (m *flakyMesh) Query() engine.Query {
	q := m.Mesh.Query()
	if q == nil {
		return nil
	}
	return flakyQuery{Query: q, mesh: m}
}

func (m *flakyMesh) TileCache() engine.TileCache {
	c := m.Mesh.TileCache()
	if c == nil {
		return nil
	}
	return flakyCache{TileCache: c, mesh: m}
}

type flakyQuery struct {
	engine.Query
	mesh *flakyMesh
}

func (q flakyQuery) SetPolyFlags(ref engine.PolyRef, flags uint16) error {
	q.mesh.flagCalls++
	if q.mesh.flagCalls == q.mesh.failAt {
		return errors.New("poly flags locked")
	}
	return q.Query.SetPolyFlags(ref, flags)
}

type flakyCache struct {
	engine.TileCache
	mesh *flakyMesh
}

func (c flakyCache) Update(dt float32) (bool, error) {
	if c.mesh.failUpdates > 0 {
		c.mesh.failUpdates--
		return false, errors.New("tile cache stalled")
	}
	return c.TileCache.Update(dt)
}

func TestBuildFailureTearsDown(t *testing.T) {
	factory := func(v engine.Variant) (engine.Mesh, error) {
		m, err := grid.New(v)
		return failingMesh{m}, err
	}
	n := configured(t, WithEngine(factory), WithName("broken"))
	_, err := n.AddConvexVolume(square(2), engine.AreaWater)
	require.NoError(t, err)
	agent := NewAgent(scene.Box("walker", 1, 1, 2), DefaultAgentParams())
	require.NoError(t, n.AddAgent(agent))

	err = n.Build(scene.Plane("ground", 20, 1))
	require.ErrorIs(t, err, ErrBuildFailed)
	assert.Contains(t, err.Error(), "no walkable surface")
	assert.Equal(t, StateUnconfigured, n.State())
	assert.Equal(t, "broken", n.Name())
	assert.Nil(t, n.Owner())
	assert.Equal(t, 1, n.ConvexVolumeCount())
	assert.Equal(t, 1, n.AgentCount())
	assert.Equal(t, -1, agent.Index())
}

func TestTileBudgetDerivedForObstacleVariant(t *testing.T) {
	n := configured(t, WithVariant(engine.VariantObstacle))
	require.NoError(t, n.Build(scene.Plane("ground", 96, 1)))

	b := n.TileBudget()
	assert.Equal(t, 10, b.TilesX)
	assert.Equal(t, 10, b.TilesZ)
	assert.Equal(t, engine.PolyRefBits, b.TileBits+b.PolyBits)
	assert.GreaterOrEqual(t, 1<<b.TileBits, 100)
	assert.Equal(t, b.MaxTiles, n.mesh.Config().MaxTiles)
	assert.Equal(t, b.MaxPolysPerTile, n.mesh.Config().MaxPolysPerTile)

	// caller tile settings are left as they were
	assert.Equal(t, DefaultTileSettings(), n.TileSettings())
}

func TestSettingsMutation(t *testing.T) {
	n := New()
	s := DefaultSettings()
	s.AgentRadius = 0.4
	n.SetNavMeshSettings(s)
	assert.Equal(t, s, n.Settings())

	require.NoError(t, n.SetMeshType(engine.VariantTile))
	assert.Equal(t, engine.VariantTile, n.Variant())

	assert.ErrorIs(t, n.SetAreaFlags(-1, engine.FlagWalk), ErrInvalidGeometry)
	require.NoError(t, n.SetAreaFlags(engine.AreaRoad, engine.FlagWalk|engine.FlagDoor))
	assert.Equal(t, engine.FlagWalk|engine.FlagDoor, n.AreaFlags()[engine.AreaRoad])

	// returned tables are copies
	n.AreaFlags()[engine.AreaRoad] = 0
	assert.Equal(t, engine.FlagWalk|engine.FlagDoor, n.AreaFlags()[engine.AreaRoad])
}

func TestCrowdFilterFollowsSetters(t *testing.T) {
	n := configured(t)
	n.SetCrowdAreaCost(engine.AreaGrass, 7)
	require.NoError(t, n.Build(scene.Plane("ground", 20, 1)))

	f := n.crowd.Filter()
	assert.Equal(t, float32(7), f.AreaCost(engine.AreaGrass))
	assert.Equal(t, DefaultIncludeFlags, f.IncludeFlags)
	assert.Equal(t, DefaultExcludeFlags, f.ExcludeFlags)

	n.SetCrowdAreaCost(engine.AreaGrass, 3)
	n.SetCrowdExcludeFlags(engine.FlagSwim)
	assert.Equal(t, float32(3), f.AreaCost(engine.AreaGrass))
	assert.Equal(t, engine.FlagSwim, f.ExcludeFlags)
	assert.Equal(t, float32(3), n.AreaCosts()[engine.AreaGrass])
}
