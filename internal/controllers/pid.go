// Package controllers holds the built-in controller logics. Each logic plugs
// into the chainable controller shell and is assembled into a chain by the
// control binary: an upstream setpoint source feeding a downstream PID that
// commands a joint drive.
package controllers

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"controlcore/pkg/controller"
	"controlcore/pkg/handle"
	"controlcore/pkg/types"
)

// PID is a joint velocity controller. Its reference interface carries the
// desired joint velocity; each cycle it compares the reference against the
// measured joint velocity and writes an effort command to the drive.
//
// When the controller is not chained, the reference is fed from an external
// target that can be set from any goroutine.
type PID struct {
	controller.Base

	name    string
	gains   types.PIDGains
	iLimit  float64
	measure handle.StateHandle
	output  handle.CommandHandle

	reference float64
	target    atomic.Uint64

	integral  float64
	lastError float64
	primed    bool

	lastOutput float64
}

// NewPID builds a PID logic reading the measured velocity from measure and
// writing efforts through output. iLimit bounds the integral term; zero
// disables integration clamping.
func NewPID(name string, gains types.PIDGains, iLimit float64, measure handle.StateHandle, output handle.CommandHandle) (*PID, error) {
	if name == "" {
		return nil, fmt.Errorf("pid controller requires a name")
	}
	if !measure.Valid() {
		return nil, fmt.Errorf("pid controller %q: invalid measurement handle", name)
	}
	if !output.Valid() {
		return nil, fmt.Errorf("pid controller %q: invalid output handle", name)
	}
	if iLimit < 0 {
		return nil, fmt.Errorf("pid controller %q: integral limit must not be negative", name)
	}

	return &PID{
		name:    name,
		gains:   gains,
		iLimit:  iLimit,
		measure: measure,
		output:  output,
	}, nil
}

// SetTarget stores an external velocity target. It is picked up on the next
// cycle when the controller runs unchained; in chained mode the upstream
// controller owns the reference and the target is ignored.
func (p *PID) SetTarget(value float64) {
	p.target.Store(math.Float64bits(value))
}

// Output returns the effort written on the last cycle.
func (p *PID) Output() float64 { return p.lastOutput }

func (p *PID) OnExportStateInterfaces() []handle.StateHandle {
	h, err := handle.NewStateHandle(p.name, "output", &p.lastOutput)
	if err != nil {
		return nil
	}
	return []handle.StateHandle{h}
}

func (p *PID) OnExportReferenceInterfaces() []handle.CommandHandle {
	h, err := handle.NewCommandHandle(p.name, types.InterfaceVelocity, &p.reference)
	if err != nil {
		return nil
	}
	return []handle.CommandHandle{h}
}

func (p *PID) OnSetChainedMode(chained bool) bool {
	// entering chained mode hands the reference to the upstream controller;
	// reset the accumulated state so stale integral does not kick
	p.reset()
	return true
}

func (p *PID) UpdateReferenceFromSubscribers(t time.Time, period time.Duration) types.ReturnCode {
	p.reference = math.Float64frombits(p.target.Load())
	return types.ReturnOK
}

func (p *PID) UpdateAndWriteCommands(t time.Time, period time.Duration) types.ReturnCode {
	dt := period.Seconds()
	if dt <= 0 {
		return types.ReturnOK
	}

	err := p.reference - p.measure.Value()

	p.integral += err * dt
	if p.iLimit > 0 {
		if p.integral > p.iLimit {
			p.integral = p.iLimit
		} else if p.integral < -p.iLimit {
			p.integral = -p.iLimit
		}
	}

	derivative := 0.0
	if p.primed {
		derivative = (err - p.lastError) / dt
	}
	p.lastError = err
	p.primed = true

	p.lastOutput = p.gains.P*err + p.gains.I*p.integral + p.gains.D*derivative
	p.output.SetValue(p.lastOutput)
	return types.ReturnOK
}

func (p *PID) reset() {
	p.reference = 0
	p.integral = 0
	p.lastError = 0
	p.primed = false
}

var _ controller.Logic = (*PID)(nil)
