package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/navmesh/common"
	"github.com/milk9111/navmesh/engine"
)

func agentParams() engine.AgentParams {
	return engine.AgentParams{
		MaxAcceleration:       8,
		MaxSpeed:              3.5,
		CollisionQueryRange:   12,
		PathOptimizationRange: 30,
		SeparationWeight:      2,
		UpdateFlags:           0x1b,
		ObstacleAvoidanceType: 3,
	}
}

func TestCrowdMovesAgentToTarget(t *testing.T) {
	m := buildMesh(t, engine.VariantSolo, planeGeom(t, 10), testConfig())
	c, err := m.NewCrowd(4, 0.6)
	require.NoError(t, err)

	idx := c.AddAgent(common.V3(-5, 0, 0), agentParams())
	require.Equal(t, 0, idx)
	require.NoError(t, c.SetMoveTarget(idx, common.V3(5, 0, 2)))

	for i := 0; i < 200; i++ {
		c.Update(0.05)
	}
	st, ok := c.Agent(idx)
	require.True(t, ok)
	assert.True(t, st.Active)
	assert.Less(t, st.Pos.Dist2D(common.V3(5, 0, 2)), float32(0.5))
	assert.InDelta(t, 0, st.Pos.Y, 1e-5)
}

func TestCrowdVelocityMode(t *testing.T) {
	m := buildMesh(t, engine.VariantSolo, planeGeom(t, 10), testConfig())
	c, err := m.NewCrowd(4, 0.6)
	require.NoError(t, err)

	idx := c.AddAgent(common.V3(0, 0, 0), agentParams())
	require.NoError(t, c.SetMoveVelocity(idx, common.V3(1, 0, 0)))
	for i := 0; i < 20; i++ {
		c.Update(0.05)
	}
	st, _ := c.Agent(idx)
	assert.Greater(t, st.Pos.X, float32(0.3))
	assert.InDelta(t, 1, st.Vel.X, 0.05)
}

func TestCrowdSlots(t *testing.T) {
	m := buildMesh(t, engine.VariantSolo, planeGeom(t, 10), testConfig())
	c, err := m.NewCrowd(2, 0.6)
	require.NoError(t, err)

	assert.Equal(t, -1, c.AddAgent(common.V3(50, 0, 50), agentParams()))
	a := c.AddAgent(common.V3(-3, 0, 0), agentParams())
	b := c.AddAgent(common.V3(3, 0, 0), agentParams())
	assert.Equal(t, []int{0, 1}, []int{a, b})
	assert.Equal(t, -1, c.AddAgent(common.V3(0, 0, 3), agentParams()))
	assert.Equal(t, 2, c.AgentCount())

	c.RemoveAgent(a)
	assert.Equal(t, 1, c.AgentCount())
	_, ok := c.Agent(a)
	assert.False(t, ok)
	assert.Error(t, c.SetMoveTarget(a, common.V3(0, 0, 0)))
	assert.Error(t, c.SetMoveTarget(b, common.V3(50, 0, 50)))
	assert.Equal(t, 0, c.AddAgent(common.V3(0, 0, 3), agentParams()))

	_, err = m.NewCrowd(0, 0.6)
	assert.Error(t, err)
}

func TestCrowdTakesMeshAgentRadius(t *testing.T) {
	m := buildMesh(t, engine.VariantSolo, planeGeom(t, 10), testConfig())
	cr, err := m.NewCrowd(2, 0.6)
	require.NoError(t, err)
	c := cr.(*Crowd)

	cfg := m.Config()
	cfg.AgentRadius = 1.5
	cfg.AgentHeight = 3
	m.SetConfig(cfg)

	idx := c.AddAgent(common.V3(0, 0, 0), agentParams())
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, float32(1.5), c.agents[idx].params.Radius)
	assert.Equal(t, float32(3), c.agents[idx].params.Height)

	p := agentParams()
	p.MaxSpeed = 1
	p.Radius = 9
	require.NoError(t, c.UpdateAgentParams(idx, p))
	assert.Equal(t, float32(1), c.agents[idx].params.MaxSpeed)
	assert.Equal(t, float32(1.5), c.agents[idx].params.Radius)
}
