package hardware

import (
	"context"
	"fmt"
	"time"

	"controlcore/internal/logging"
	"controlcore/pkg/handle"
	"controlcore/pkg/transmission"
	"controlcore/pkg/types"
)

// JointDrive couples one actuator with a transmission and exposes the joint
// side through named interfaces. During the read phase of a cycle it converts
// the actuator state into joint space behind its exported state handles; in
// the write phase it converts the joint command from its command handle back
// into actuator space. The conversion buffers are preallocated so the cycle
// path does not allocate.
type JointDrive struct {
	joint    string
	actuator Actuator
	trans    transmission.Transmission
	command  types.Quantity
	logger   *logging.Logger

	// joint-space storage backing the exported handles
	position     float64
	velocity     float64
	effort       float64
	commandValue float64

	states        []handle.StateHandle
	commandHandle handle.CommandHandle

	actBuf   []float64
	jointBuf []float64
}

// NewJointDrive wires an actuator through a 1:1 transmission to a named
// joint. command selects the quantity the drive accepts on its command
// interface.
func NewJointDrive(joint string, actuator Actuator, trans transmission.Transmission, command types.Quantity) (*JointDrive, error) {
	if joint == "" {
		return nil, fmt.Errorf("joint drive requires a joint name")
	}
	if trans.NumActuators() != 1 || trans.NumJoints() != 1 {
		return nil, fmt.Errorf("joint %q: joint drive requires a 1:1 transmission, got %d:%d",
			joint, trans.NumActuators(), trans.NumJoints())
	}

	d := &JointDrive{
		joint:    joint,
		actuator: actuator,
		trans:    trans,
		command:  command,
		logger:   logging.GetLogger("hardware").With("joint", joint),
		actBuf:   make([]float64, 1),
		jointBuf: make([]float64, 1),
	}

	for _, export := range []struct {
		iface string
		value *float64
	}{
		{types.InterfacePosition, &d.position},
		{types.InterfaceVelocity, &d.velocity},
		{types.InterfaceEffort, &d.effort},
	} {
		h, err := handle.NewStateHandle(joint, export.iface, export.value)
		if err != nil {
			return nil, err
		}
		d.states = append(d.states, h)
	}

	commandHandle, err := handle.NewCommandHandle(joint, command.String(), &d.commandValue)
	if err != nil {
		return nil, err
	}
	d.commandHandle = commandHandle

	return d, nil
}

// Joint returns the joint name.
func (d *JointDrive) Joint() string { return d.joint }

// StateInterfaces returns the drive's exported joint-space state handles, in
// position, velocity, effort order. Stable across calls.
func (d *JointDrive) StateInterfaces() []handle.StateHandle { return d.states }

// CommandInterface returns the drive's joint-space command handle.
func (d *JointDrive) CommandInterface() handle.CommandHandle { return d.commandHandle }

// Connect brings up the actuator backend.
func (d *JointDrive) Connect(ctx context.Context) error {
	if err := d.actuator.Connect(ctx); err != nil {
		return fmt.Errorf("joint %q: %w", d.joint, err)
	}
	d.logger.Info("Joint drive connected")
	return nil
}

// Disconnect shuts the actuator backend down.
func (d *JointDrive) Disconnect() error {
	if err := d.actuator.Disconnect(); err != nil {
		return fmt.Errorf("joint %q: %w", d.joint, err)
	}
	return nil
}

// Read samples the actuator and publishes the joint-space state through the
// exported handles.
func (d *JointDrive) Read(t time.Time, period time.Duration) types.ReturnCode {
	state, err := d.actuator.ReadState()
	if err != nil {
		d.logger.Error("Actuator read failed", "error", err)
		return types.ReturnError
	}

	if rc := d.convert(types.QuantityPosition, state.Position, &d.position); rc != types.ReturnOK {
		return rc
	}
	if rc := d.convert(types.QuantityVelocity, state.Velocity, &d.velocity); rc != types.ReturnOK {
		return rc
	}
	return d.convert(types.QuantityEffort, state.Effort, &d.effort)
}

func (d *JointDrive) convert(q types.Quantity, in float64, out *float64) types.ReturnCode {
	d.actBuf[0] = in
	if err := d.trans.ActuatorToJoint(q, d.actBuf, d.jointBuf); err != nil {
		d.logger.Error("Transmission conversion failed", "error", err)
		return types.ReturnError
	}
	*out = d.jointBuf[0]
	return types.ReturnOK
}

// Write converts the joint command to actuator space and sends it to the
// actuator.
func (d *JointDrive) Write(t time.Time, period time.Duration) types.ReturnCode {
	d.jointBuf[0] = d.commandValue
	if err := d.trans.JointToActuator(d.command, d.jointBuf, d.actBuf); err != nil {
		d.logger.Error("Transmission conversion failed", "error", err)
		return types.ReturnError
	}

	if err := d.actuator.WriteCommand(ActuatorCommand{Quantity: d.command, Value: d.actBuf[0]}); err != nil {
		d.logger.Error("Actuator write failed", "error", err)
		return types.ReturnError
	}
	return types.ReturnOK
}
