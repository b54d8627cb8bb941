package transmission

import (
	"fmt"

	"controlcore/pkg/types"
)

// Simple is the reducer/amplifier transmission: one actuator geared to one
// joint. Conversions follow from the reduction r and joint offset o:
//
//	joint position = actuator position / r + o
//	joint velocity = actuator velocity / r
//	joint effort   = actuator effort * r
//
// and the joint-to-actuator direction is the exact inverse, so a round trip
// reproduces the original value up to floating-point precision.
type Simple struct {
	reduction float64
	offset    float64
}

// NewSimple creates a simple transmission. A zero reduction is physically
// invalid (it would divide the velocity and effort conversions by zero) and
// is rejected.
func NewSimple(reduction, offset float64) (*Simple, error) {
	if reduction == 0 {
		return nil, fmt.Errorf("simple transmission: mechanical reduction must be nonzero")
	}
	return &Simple{reduction: reduction, offset: offset}, nil
}

// Reduction returns the actuator reduction.
func (t *Simple) Reduction() float64 { return t.reduction }

// Offset returns the joint offset.
func (t *Simple) Offset() float64 { return t.offset }

func (t *Simple) NumActuators() int { return 1 }
func (t *Simple) NumJoints() int    { return 1 }

func (t *Simple) ActuatorToJoint(q types.Quantity, actuator, joint []float64) error {
	if err := checkSizes("simple transmission", t, actuator, joint); err != nil {
		return err
	}

	switch q {
	case types.QuantityPosition:
		joint[0] = actuator[0]/t.reduction + t.offset
	case types.QuantityVelocity:
		joint[0] = actuator[0] / t.reduction
	case types.QuantityEffort:
		joint[0] = actuator[0] * t.reduction
	default:
		return unknownQuantity("simple transmission", q)
	}
	return nil
}

func (t *Simple) JointToActuator(q types.Quantity, joint, actuator []float64) error {
	if err := checkSizes("simple transmission", t, actuator, joint); err != nil {
		return err
	}

	switch q {
	case types.QuantityPosition:
		actuator[0] = (joint[0] - t.offset) * t.reduction
	case types.QuantityVelocity:
		actuator[0] = joint[0] * t.reduction
	case types.QuantityEffort:
		actuator[0] = joint[0] / t.reduction
	default:
		return unknownQuantity("simple transmission", q)
	}
	return nil
}
