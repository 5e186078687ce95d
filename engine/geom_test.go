package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/navmesh/common"
)

func TestInputGeomBounds(t *testing.T) {
	g, err := NewInputGeom([]common.Vec3{{X: -1, Y: 0, Z: 2}, {X: 3, Y: 1, Z: -4}, {X: 0, Y: -2, Z: 0}}, []int{0, 1, 2})
	require.NoError(t, err)
	bmin, bmax := g.Bounds()
	assert.Equal(t, common.V3(-1, -2, -4), bmin)
	assert.Equal(t, common.V3(3, 1, 2), bmax)
	assert.Equal(t, 1, g.TriCount())

	_, err = NewInputGeom([]common.Vec3{{}}, []int{0, 1, 2})
	assert.Error(t, err)
	_, err = NewInputGeom(nil, []int{0})
	assert.Error(t, err)
}

func TestConvexVolumeIndexing(t *testing.T) {
	g, err := NewInputGeom(nil, nil)
	require.NoError(t, err)

	square := []common.Vec3{{X: 1, Y: 0, Z: 1}, {X: 3, Y: 0, Z: 1}, {X: 3, Y: 0, Z: 3}, {X: 1, Y: 0, Z: 3}}
	assert.Equal(t, 0, g.AddConvexVolume(square, AreaWater))

	collinear := []common.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 0}}
	assert.Equal(t, -1, g.AddConvexVolume(collinear, AreaWater))

	other := []common.Vec3{{X: 5, Y: 0, Z: 5}, {X: 7, Y: 0, Z: 5}, {X: 6, Y: 0, Z: 7}}
	assert.Equal(t, 1, g.AddConvexVolume(other, AreaRoad))

	v, ok := g.ConvexVolume(0)
	require.True(t, ok)
	assert.Len(t, v.Verts, 4)
	assert.InDelta(t, -1, v.HMin, 1e-6)
	assert.InDelta(t, 5, v.HMax, 1e-6)

	assert.Equal(t, -1, g.ConvexVolumeAt(common.V3(2, 10, 2)))
	assert.Equal(t, 0, g.DeleteConvexVolumeAt(common.V3(2, 0, 2)))
	assert.Equal(t, 1, g.ConvexVolumeCount())

	// the remaining volume shifted down to index 0
	v, ok = g.ConvexVolume(0)
	require.True(t, ok)
	assert.Equal(t, AreaRoad, v.Area)
}

func TestOffMeshConnections(t *testing.T) {
	g, err := NewInputGeom(nil, nil)
	require.NoError(t, err)

	a, b := common.V3(0, 0, 0), common.V3(4, 0, 0)
	assert.Equal(t, 0, g.AddOffMeshConnection(a, b, 0.6, true, AreaJump, FlagJump))
	assert.Equal(t, -1, g.AddOffMeshConnection(a, a, 0.6, true, AreaJump, FlagJump))

	i, d := g.NearestOffMeshConnection(common.V3(4, 0, 0.3))
	assert.Equal(t, 0, i)
	assert.InDelta(t, 0.3, d, 1e-6)

	assert.Equal(t, -1, g.DeleteOffMeshConnectionAt(common.V3(2, 0, 0)))
	assert.Equal(t, 0, g.DeleteOffMeshConnectionAt(common.V3(0.1, 0, 0)))
	assert.Zero(t, g.OffMeshConnectionCount())
}

func TestFilter(t *testing.T) {
	f := NewFilter()
	assert.True(t, f.Pass(FlagWalk))
	assert.False(t, f.Pass(0))

	f.ExcludeFlags = FlagDisabled
	assert.False(t, f.Pass(FlagWalk|FlagDisabled))

	f.IncludeFlags = FlagSwim
	assert.False(t, f.Pass(FlagWalk))

	f.SetAreaCost(AreaWater, 10)
	assert.Equal(t, float32(10), f.AreaCost(AreaWater))
	assert.Equal(t, float32(1), f.AreaCost(MaxAreas))
	assert.Equal(t, float32(1), f.MinAreaCost())
}
