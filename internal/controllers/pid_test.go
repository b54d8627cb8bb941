package controllers

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"controlcore/pkg/controller"
	"controlcore/pkg/handle"
	"controlcore/pkg/types"
)

// plant is a first-order rotor the PID tests close the loop around.
type plant struct {
	inertia  float64
	damping  float64
	velocity float64
	effort   float64
}

func (p *plant) step(dt float64) {
	accel := (p.effort - p.damping*p.velocity) / p.inertia
	p.velocity += accel * dt
}

func newPlantHandles(t *testing.T, p *plant) (handle.StateHandle, handle.CommandHandle) {
	t.Helper()
	state, err := handle.NewStateHandle("joint1", types.InterfaceVelocity, &p.velocity)
	require.NoError(t, err)
	cmd, err := handle.NewCommandHandle("joint1", types.InterfaceEffort, &p.effort)
	require.NoError(t, err)
	return state, cmd
}

func TestPIDConvergesOnVelocityTarget(t *testing.T) {
	p := &plant{inertia: 0.01, damping: 0.05}
	state, cmd := newPlantHandles(t, p)

	pid, err := NewPID("pid1", types.PIDGains{P: 0.5, I: 2.0, D: 0.0}, 5.0, state, cmd)
	require.NoError(t, err)

	ctrl := controller.NewChainable("pid1", pid)
	pid.SetTarget(2.0)

	const dt = time.Millisecond
	now := time.Now()
	for i := 0; i < 5000; i++ {
		require.Equal(t, types.ReturnOK, ctrl.Update(now, dt))
		p.step(dt.Seconds())
		now = now.Add(dt)
	}

	assert.InDelta(t, 2.0, p.velocity, 0.05)
}

func TestPIDExportsReferenceAndOutput(t *testing.T) {
	p := &plant{inertia: 0.01, damping: 0.05}
	state, cmd := newPlantHandles(t, p)

	pid, err := NewPID("pid1", types.PIDGains{P: 1.0}, 0, state, cmd)
	require.NoError(t, err)
	ctrl := controller.NewChainable("pid1", pid)

	refs, err := ctrl.ExportReferenceInterfaces()
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "pid1/velocity", refs[0].Name())

	states, err := ctrl.ExportStateInterfaces()
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "pid1/output", states[0].Name())

	// writing the exported reference steers the controller once chained
	require.True(t, ctrl.SetChainedMode(true))
	refs[0].SetValue(3.0)
	require.Equal(t, types.ReturnOK, ctrl.Update(time.Now(), time.Millisecond))

	// P-only response to a 3.0 rad/s error from rest
	assert.InDelta(t, 3.0, p.effort, 1e-9)
	assert.InDelta(t, 3.0, states[0].Value(), 1e-9)
}

func TestPIDIgnoresExternalTargetWhenChained(t *testing.T) {
	p := &plant{inertia: 0.01, damping: 0.05}
	state, cmd := newPlantHandles(t, p)

	pid, err := NewPID("pid1", types.PIDGains{P: 1.0}, 0, state, cmd)
	require.NoError(t, err)
	ctrl := controller.NewChainable("pid1", pid)

	refs, err := ctrl.ExportReferenceInterfaces()
	require.NoError(t, err)
	require.True(t, ctrl.SetChainedMode(true))

	pid.SetTarget(100.0)
	refs[0].SetValue(1.0)
	require.Equal(t, types.ReturnOK, ctrl.Update(time.Now(), time.Millisecond))

	assert.InDelta(t, 1.0, p.effort, 1e-9)
}

func TestPIDIntegratorClamp(t *testing.T) {
	p := &plant{inertia: 1e9, damping: 0} // immovable: error never shrinks
	state, cmd := newPlantHandles(t, p)

	pid, err := NewPID("pid1", types.PIDGains{I: 1.0}, 0.5, state, cmd)
	require.NoError(t, err)
	ctrl := controller.NewChainable("pid1", pid)
	pid.SetTarget(10.0)

	now := time.Now()
	for i := 0; i < 1000; i++ {
		require.Equal(t, types.ReturnOK, ctrl.Update(now, 10*time.Millisecond))
		now = now.Add(10 * time.Millisecond)
	}

	// integral term saturates at the clamp
	assert.InDelta(t, 0.5, pid.Output(), 1e-9)
}

func TestPIDSkipsZeroPeriod(t *testing.T) {
	p := &plant{inertia: 0.01, damping: 0.05}
	state, cmd := newPlantHandles(t, p)

	pid, err := NewPID("pid1", types.PIDGains{P: 1.0}, 0, state, cmd)
	require.NoError(t, err)
	pid.SetTarget(2.0)

	require.Equal(t, types.ReturnOK, pid.UpdateReferenceFromSubscribers(time.Now(), 0))
	require.Equal(t, types.ReturnOK, pid.UpdateAndWriteCommands(time.Now(), 0))
	assert.Zero(t, p.effort)
}

func TestPIDConstructionValidation(t *testing.T) {
	p := &plant{inertia: 0.01}
	state, cmd := newPlantHandles(t, p)

	_, err := NewPID("", types.PIDGains{}, 0, state, cmd)
	assert.Error(t, err)

	_, err = NewPID("pid1", types.PIDGains{}, -1, state, cmd)
	assert.Error(t, err)

	_, err = NewPID("pid1", types.PIDGains{}, 0, handle.StateHandle{}, cmd)
	assert.Error(t, err)

	_, err = NewPID("pid1", types.PIDGains{}, 0, state, handle.CommandHandle{})
	assert.Error(t, err)
}

func TestPIDResetOnModeSwitch(t *testing.T) {
	p := &plant{inertia: 1e9, damping: 0}
	state, cmd := newPlantHandles(t, p)

	pid, err := NewPID("pid1", types.PIDGains{I: 1.0}, 0, state, cmd)
	require.NoError(t, err)
	ctrl := controller.NewChainable("pid1", pid)
	pid.SetTarget(1.0)

	now := time.Now()
	for i := 0; i < 100; i++ {
		require.Equal(t, types.ReturnOK, ctrl.Update(now, 10*time.Millisecond))
		now = now.Add(10 * time.Millisecond)
	}
	require.False(t, math.Abs(pid.Output()) < 1e-12)

	// switching modes drops the accumulated integral
	require.True(t, ctrl.SetChainedMode(true))
	_, err = ctrl.ExportReferenceInterfaces()
	require.NoError(t, err)
	require.Equal(t, types.ReturnOK, ctrl.Update(now, 10*time.Millisecond))

	// reference defaults to zero, measurement is zero: first post-reset
	// cycle accumulates nothing
	assert.InDelta(t, 0.0, pid.Output(), 1e-9)
}
