// Package transmission implements the mapping between actuator space and
// joint space introduced by mechanical gearing. A transmission is constructed
// once from a parsed description, is immutable afterwards, and converts
// position, velocity and effort in both directions as pure arithmetic on
// caller-owned slices. Hardware components invoke the conversions inside
// their read/write cycle, so nothing here allocates or blocks.
package transmission

import (
	"fmt"

	"controlcore/pkg/types"
)

// Transmission converts between actuator-space and joint-space vectors. The
// slices are sized to the transmission's actuator and joint counts and are
// owned by the caller; an error is returned only for a size or quantity
// mismatch, never from the conversion itself.
type Transmission interface {
	NumActuators() int
	NumJoints() int

	// ActuatorToJoint reads actuator and writes joint.
	ActuatorToJoint(q types.Quantity, actuator, joint []float64) error

	// JointToActuator reads joint and writes actuator.
	JointToActuator(q types.Quantity, joint, actuator []float64) error
}

func checkSizes(name string, t Transmission, actuator, joint []float64) error {
	if len(actuator) != t.NumActuators() {
		return fmt.Errorf("%s: actuator vector has %d values, want %d", name, len(actuator), t.NumActuators())
	}
	if len(joint) != t.NumJoints() {
		return fmt.Errorf("%s: joint vector has %d values, want %d", name, len(joint), t.NumJoints())
	}
	return nil
}

func unknownQuantity(name string, q types.Quantity) error {
	return fmt.Errorf("%s: unknown quantity %d", name, q)
}
