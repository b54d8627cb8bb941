package controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"controlcore/pkg/controller"
	"controlcore/pkg/handle"
	"controlcore/pkg/types"
)

func newBoundSetpoint(t *testing.T, slewRate float64, downstream handle.CommandHandle) *Setpoint {
	t.Helper()
	sp, err := NewSetpoint("setpoint1", slewRate)
	require.NoError(t, err)
	require.NoError(t, sp.BindDownstream(downstream))
	return sp
}

func TestSetpointWritesDownstream(t *testing.T) {
	var downstream float64
	h, err := handle.NewCommandHandle("pid1", types.InterfaceVelocity, &downstream)
	require.NoError(t, err)

	sp := newBoundSetpoint(t, 0, h)
	ctrl := controller.NewChainable("setpoint1", sp)

	sp.SetTarget(1.5)
	require.Equal(t, types.ReturnOK, ctrl.Update(time.Now(), 10*time.Millisecond))

	assert.InDelta(t, 1.5, downstream, 1e-9)
	assert.InDelta(t, 1.5, sp.Current(), 1e-9)
}

func TestSetpointSlewLimiting(t *testing.T) {
	var downstream float64
	h, err := handle.NewCommandHandle("pid1", types.InterfaceVelocity, &downstream)
	require.NoError(t, err)

	sp := newBoundSetpoint(t, 1.0, h)
	ctrl := controller.NewChainable("setpoint1", sp)

	sp.SetTarget(10.0)
	now := time.Now()

	// 1.0/s slew over 100ms cycles: 0.1 per cycle
	for i := 1; i <= 5; i++ {
		require.Equal(t, types.ReturnOK, ctrl.Update(now, 100*time.Millisecond))
		assert.InDelta(t, 0.1*float64(i), downstream, 1e-9)
		now = now.Add(100 * time.Millisecond)
	}
}

func TestSetpointChainsIntoPID(t *testing.T) {
	p := &plant{inertia: 0.01, damping: 0.05}
	state, cmd := newPlantHandles(t, p)

	pid, err := NewPID("pid1", types.PIDGains{P: 0.5, I: 2.0}, 5.0, state, cmd)
	require.NoError(t, err)
	pidCtrl := controller.NewChainable("pid1", pid)

	refs, err := pidCtrl.ExportReferenceInterfaces()
	require.NoError(t, err)
	require.Len(t, refs, 1)
	ref, ok := pidCtrl.ReferenceInterface("pid1/velocity")
	require.True(t, ok)
	require.True(t, pidCtrl.SetChainedMode(true))

	sp := newBoundSetpoint(t, 0, ref)
	spCtrl := controller.NewChainable("setpoint1", sp)

	sp.SetTarget(2.0)

	const dt = time.Millisecond
	now := time.Now()
	for i := 0; i < 5000; i++ {
		// upstream before downstream, the chain's execution order
		require.Equal(t, types.ReturnOK, spCtrl.Update(now, dt))
		require.Equal(t, types.ReturnOK, pidCtrl.Update(now, dt))
		p.step(dt.Seconds())
		now = now.Add(dt)
	}

	assert.InDelta(t, 2.0, p.velocity, 0.05)
}

func TestSetpointIsItselfChainable(t *testing.T) {
	var downstream float64
	h, err := handle.NewCommandHandle("pid1", types.InterfaceVelocity, &downstream)
	require.NoError(t, err)

	sp := newBoundSetpoint(t, 0, h)
	ctrl := controller.NewChainable("setpoint1", sp)

	refs, err := ctrl.ExportReferenceInterfaces()
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "setpoint1/velocity", refs[0].Name())

	require.True(t, ctrl.SetChainedMode(true))
	sp.SetTarget(99.0) // ignored while chained
	refs[0].SetValue(0.25)
	require.Equal(t, types.ReturnOK, ctrl.Update(time.Now(), 10*time.Millisecond))

	assert.InDelta(t, 0.25, downstream, 1e-9)
}

func TestSetpointUnboundCycleFails(t *testing.T) {
	sp, err := NewSetpoint("setpoint1", 0)
	require.NoError(t, err)
	ctrl := controller.NewChainable("setpoint1", sp)

	sp.SetTarget(1.0)
	assert.Equal(t, types.ReturnError, ctrl.Update(time.Now(), 10*time.Millisecond))
}

func TestSetpointConstructionValidation(t *testing.T) {
	_, err := NewSetpoint("", 0)
	assert.Error(t, err)

	_, err = NewSetpoint("setpoint1", -1)
	assert.Error(t, err)

	sp, err := NewSetpoint("setpoint1", 0)
	require.NoError(t, err)
	assert.Error(t, sp.BindDownstream(handle.CommandHandle{}))
}
