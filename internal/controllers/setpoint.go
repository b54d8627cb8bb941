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

// Setpoint is an upstream reference source. It takes a velocity target from
// outside the control cycle, rate-limits it, and writes the result into a
// downstream controller's reference interface each cycle.
//
// The downstream interface is bound after construction, once the downstream
// controller has exported it. A setpoint must be bound before its first
// cycle.
//
// Setpoint is itself chainable: it exports its own reference interface, so a
// further upstream controller can drive it instead of the external target.
type Setpoint struct {
	controller.Base

	name       string
	slewRate   float64
	downstream handle.CommandHandle

	reference float64
	target    atomic.Uint64

	current float64
}

// NewSetpoint builds an unbound setpoint source. slewRate bounds the change
// of the emitted reference per second; zero disables limiting.
func NewSetpoint(name string, slewRate float64) (*Setpoint, error) {
	if name == "" {
		return nil, fmt.Errorf("setpoint controller requires a name")
	}
	if slewRate < 0 {
		return nil, fmt.Errorf("setpoint controller %q: slew rate must not be negative", name)
	}

	return &Setpoint{
		name:     name,
		slewRate: slewRate,
	}, nil
}

// BindDownstream attaches the reference interface the setpoint writes each
// cycle.
func (s *Setpoint) BindDownstream(downstream handle.CommandHandle) error {
	if !downstream.Valid() {
		return fmt.Errorf("setpoint controller %q: invalid downstream handle", s.name)
	}
	s.downstream = downstream
	return nil
}

// SetTarget stores the velocity target applied on the next cycle. Safe to
// call from any goroutine.
func (s *Setpoint) SetTarget(value float64) {
	s.target.Store(math.Float64bits(value))
}

// Current returns the rate-limited reference emitted on the last cycle.
func (s *Setpoint) Current() float64 { return s.current }

func (s *Setpoint) OnExportStateInterfaces() []handle.StateHandle {
	h, err := handle.NewStateHandle(s.name, types.InterfaceVelocity, &s.current)
	if err != nil {
		return nil
	}
	return []handle.StateHandle{h}
}

func (s *Setpoint) OnExportReferenceInterfaces() []handle.CommandHandle {
	h, err := handle.NewCommandHandle(s.name, types.InterfaceVelocity, &s.reference)
	if err != nil {
		return nil
	}
	return []handle.CommandHandle{h}
}

func (s *Setpoint) UpdateReferenceFromSubscribers(t time.Time, period time.Duration) types.ReturnCode {
	s.reference = math.Float64frombits(s.target.Load())
	return types.ReturnOK
}

func (s *Setpoint) UpdateAndWriteCommands(t time.Time, period time.Duration) types.ReturnCode {
	if !s.downstream.Valid() {
		return types.ReturnError
	}

	next := s.reference
	if s.slewRate > 0 {
		maxStep := s.slewRate * period.Seconds()
		if delta := next - s.current; delta > maxStep {
			next = s.current + maxStep
		} else if delta < -maxStep {
			next = s.current - maxStep
		}
	}
	s.current = next

	s.downstream.SetValue(s.current)
	return types.ReturnOK
}

var _ controller.Logic = (*Setpoint)(nil)
