package navmesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/scene"
)

func TestAddRemoveAgentKeepsCount(t *testing.T) {
	for _, built := range []bool{false, true} {
		n := configured(t)
		if built {
			require.NoError(t, n.Build(scene.Plane("ground", 20, 1)))
		}
		before := n.AgentCount()
		a := NewAgent(scene.Box("walker", 1, 1, 2), DefaultAgentParams())
		require.NoError(t, n.AddAgent(a))
		assert.Equal(t, before+1, n.AgentCount())
		assert.Equal(t, built, a.Index() >= 0)

		require.NoError(t, n.RemoveAgent(a))
		assert.Equal(t, before, n.AgentCount())
		assert.Nil(t, a.NavMesh())
		assert.Equal(t, -1, a.Index())
		if built {
			assert.Equal(t, 0, n.crowd.AgentCount())
		}
	}
}

func TestAgentRegistryErrors(t *testing.T) {
	n := configured(t)
	other := configured(t)
	a := NewAgent(scene.Box("walker", 1, 1, 2), DefaultAgentParams())

	assert.ErrorIs(t, n.AddAgent(nil), ErrInvalidGeometry)
	require.NoError(t, n.AddAgent(a))
	assert.ErrorIs(t, n.AddAgent(a), ErrAlreadyBound)
	assert.ErrorIs(t, other.AddAgent(a), ErrAlreadyBound)
	assert.ErrorIs(t, other.RemoveAgent(a), ErrNotFound)
	assert.Equal(t, []*Agent{a}, n.Agents())
}

func TestAgentSizedFromGeometry(t *testing.T) {
	n := configured(t)
	require.NoError(t, n.Build(scene.Plane("ground", 20, 1)))

	a := NewAgent(scene.Box("walker", 1, 1, 2), DefaultAgentParams())
	require.NoError(t, n.AddAgent(a))

	assert.Equal(t, float32(1), a.Params().Radius)
	assert.Equal(t, float32(2), a.Params().Height)
	assert.Equal(t, common.V3(0, 0, 2), a.HeightCorrection())
	// the mesh-wide settings are restored after the agent is sized
	assert.Equal(t, DefaultSettings(), n.Settings())
	assert.Equal(t, DefaultSettings().AgentRadius, n.mesh.Config().AgentRadius)

	p := DefaultAgentParams()
	p.MaxSpeed = 1
	require.NoError(t, a.SetParams(p))
	assert.Equal(t, float32(1), a.Params().MaxSpeed)
	assert.Equal(t, float32(1), a.Params().Radius)
}

func TestAgentStateLatchedUntilBind(t *testing.T) {
	n := configured(t)
	a := NewAgent(scene.Box("walker", 1, 1, 2), DefaultAgentParams())
	require.NoError(t, n.AddAgent(a))

	require.NoError(t, a.SetMoveVelocity(common.V3(1, 0, 0)))
	require.NoError(t, a.SetMoveTarget(common.V3(4, 0, 0)))
	assert.Equal(t, common.Vec3{}, a.MoveVelocity())
	assert.Equal(t, common.V3(4, 0, 0), a.MoveTarget())
	assert.Equal(t, -1, a.Index())

	require.NoError(t, n.Build(scene.Plane("ground", 20, 1)))
	require.True(t, a.Index() >= 0)
	for range 60 {
		n.Update(0.1)
	}
	assert.InDelta(t, 4, a.Position().X, 0.5)
	assert.InDelta(t, 4, a.Node().PosWrt(n.Reference()).X, 0.5)
}

func TestUpdateMovesAgentAndTurnsIt(t *testing.T) {
	n := configured(t)
	require.NoError(t, n.Build(scene.Plane("ground", 20, 1)))
	a := NewAgent(scene.Box("walker", 1, 1, 2), DefaultAgentParams())
	require.NoError(t, n.AddAgent(a))
	require.NoError(t, a.SetMoveVelocity(common.V3(2, 0, 0)))

	for range 5 {
		n.Update(0.1)
	}
	assert.Greater(t, a.Position().X, float32(0.1))
	assert.Greater(t, a.Velocity().X, float32(0))
	// facing +X turns the -Y forward axis by 90 degrees
	assert.InDelta(t, 90, a.Node().H(), 1)
}

func TestUpdateBeforeBuildIsNoop(t *testing.T) {
	n := configured(t)
	a := NewAgent(scene.Box("walker", 1, 1, 2), DefaultAgentParams())
	require.NoError(t, n.AddAgent(a))
	n.Update(1)
	assert.Equal(t, common.Vec3{}, a.Position())
}

func TestAddAgentToFullCrowd(t *testing.T) {
	n := configured(t, WithMaxAgents(1))
	require.NoError(t, n.Build(scene.Plane("ground", 20, 1)))
	first := NewAgent(scene.Box("first", 1, 1, 2), DefaultAgentParams())
	require.NoError(t, n.AddAgent(first))

	second := NewAgent(scene.Box("second", 2, 2, 3), DefaultAgentParams())
	err := n.AddAgent(second)
	require.ErrorIs(t, err, ErrEngineRejected)
	assert.Equal(t, -1, second.Index())
	assert.Same(t, n, second.NavMesh())
	assert.Equal(t, 2, n.AgentCount())
	assert.Nil(t, second.Node().Parent())
	assert.Same(t, n.Reference(), first.Node().Parent())

	// the per-agent dimensions do not leak into the mesh
	assert.Equal(t, DefaultSettings(), n.Settings())
	assert.Equal(t, DefaultSettings().AgentRadius, n.mesh.Config().AgentRadius)
	assert.Equal(t, DefaultSettings().AgentHeight, n.mesh.Config().AgentHeight)

	require.NoError(t, n.RemoveAgent(first))
	assert.Nil(t, first.Node().Parent())
	require.NoError(t, n.RemoveAgent(second))
	assert.Equal(t, 0, n.AgentCount())
}

func TestBuildDropsRefusedAgents(t *testing.T) {
	n := configured(t, WithMaxAgents(1))
	kept := NewAgent(scene.Box("kept", 1, 1, 2), DefaultAgentParams())
	dropped := NewAgent(scene.Box("dropped", 1, 1, 2), DefaultAgentParams())
	require.NoError(t, n.AddAgent(kept))
	require.NoError(t, n.AddAgent(dropped))

	require.NoError(t, n.Build(scene.Plane("ground", 20, 1)))
	assert.Equal(t, []*Agent{kept}, n.Agents())
	assert.True(t, kept.Index() >= 0)
	assert.Nil(t, dropped.NavMesh())
	assert.Equal(t, -1, dropped.Index())
	assert.Nil(t, dropped.Node().Parent())

	// a dropped agent can join another mesh
	other := configured(t)
	require.NoError(t, other.AddAgent(dropped))
}
