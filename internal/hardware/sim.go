package hardware

import (
	"context"
	"fmt"
	"time"

	"controlcore/pkg/types"
)

// SimConfig parameterizes the built-in actuator model: a rotor with inertia
// and viscous damping, stepped at a fixed internal rate.
type SimConfig struct {
	Inertia  float64
	Damping  float64
	StepRate time.Duration
}

func simConfigFromParams(params map[string]string) SimConfig {
	return SimConfig{
		Inertia:  paramFloat(params, "inertia", 0.01),
		Damping:  paramFloat(params, "damping", 0.05),
		StepRate: paramDuration(params, "step_rate", time.Millisecond),
	}
}

// SimActuator is an in-process actuator model used by the simulator binary
// and the tests. Effort commands accelerate the rotor, velocity and position
// commands are tracked through a simple servo. The model advances on each
// ReadState call by the time elapsed since the previous one.
type SimActuator struct {
	config SimConfig

	connected bool
	lastStep  time.Time

	position float64
	velocity float64
	effort   float64

	command     ActuatorCommand
	haveCommand bool
}

// NewSimActuator creates a simulated actuator at rest.
func NewSimActuator(config SimConfig) *SimActuator {
	if config.Inertia <= 0 {
		config.Inertia = 0.01
	}
	return &SimActuator{config: config}
}

// Connect marks the simulator ready.
func (a *SimActuator) Connect(ctx context.Context) error {
	a.connected = true
	a.lastStep = time.Now()
	return nil
}

// Disconnect stops the model.
func (a *SimActuator) Disconnect() error {
	a.connected = false
	return nil
}

// ReadState advances the model and returns the new state.
func (a *SimActuator) ReadState() (ActuatorState, error) {
	if !a.connected {
		return ActuatorState{}, fmt.Errorf("sim actuator is not connected")
	}

	now := time.Now()
	dt := now.Sub(a.lastStep).Seconds()
	a.lastStep = now
	a.step(dt)

	return ActuatorState{Position: a.position, Velocity: a.velocity, Effort: a.effort}, nil
}

// WriteCommand stores the command applied on the next model step.
func (a *SimActuator) WriteCommand(cmd ActuatorCommand) error {
	if !a.connected {
		return fmt.Errorf("sim actuator is not connected")
	}
	a.command = cmd
	a.haveCommand = true
	return nil
}

// Step advances the model by an explicit time delta. Tests use this instead
// of the wall clock.
func (a *SimActuator) Step(dt float64) {
	a.step(dt)
}

func (a *SimActuator) step(dt float64) {
	if dt <= 0 || !a.haveCommand {
		return
	}

	switch a.command.Quantity {
	case types.QuantityEffort:
		a.effort = a.command.Value
		accel := (a.effort - a.config.Damping*a.velocity) / a.config.Inertia
		a.velocity += accel * dt
		a.position += a.velocity * dt
	case types.QuantityVelocity:
		a.velocity = a.command.Value
		a.effort = a.config.Damping * a.velocity
		a.position += a.velocity * dt
	case types.QuantityPosition:
		a.velocity = (a.command.Value - a.position) / dt
		a.position = a.command.Value
		a.effort = 0
	}
}

var _ Actuator = (*SimActuator)(nil)
