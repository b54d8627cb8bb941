package transmission

import (
	"fmt"

	"controlcore/pkg/types"
)

// Differential couples two actuators to two joints through a differential
// gear: the first joint follows the sum of the actuator motions, the second
// their difference. ar and jr are the per-side actuator and joint reductions,
// o the joint offsets:
//
//	joint velocity[0] = (act[0]/ar[0] + act[1]/ar[1]) / (2 * jr[0])
//	joint velocity[1] = (act[0]/ar[0] - act[1]/ar[1]) / (2 * jr[1])
//
// positions add the offsets, efforts use the transposed relation. All
// conversions are exact inverses of each other for nonzero reductions.
type Differential struct {
	actuatorReduction [2]float64
	jointReduction    [2]float64
	jointOffset       [2]float64
}

// NewDifferential creates a differential transmission. Every reduction must
// be nonzero.
func NewDifferential(actuatorReduction, jointReduction, jointOffset [2]float64) (*Differential, error) {
	for i, r := range actuatorReduction {
		if r == 0 {
			return nil, fmt.Errorf("differential transmission: actuator %d reduction must be nonzero", i)
		}
	}
	for i, r := range jointReduction {
		if r == 0 {
			return nil, fmt.Errorf("differential transmission: joint %d reduction must be nonzero", i)
		}
	}
	return &Differential{
		actuatorReduction: actuatorReduction,
		jointReduction:    jointReduction,
		jointOffset:       jointOffset,
	}, nil
}

// ActuatorReductions returns the per-side actuator reductions.
func (t *Differential) ActuatorReductions() [2]float64 { return t.actuatorReduction }

// JointReductions returns the per-side joint reductions.
func (t *Differential) JointReductions() [2]float64 { return t.jointReduction }

// JointOffsets returns the joint offsets.
func (t *Differential) JointOffsets() [2]float64 { return t.jointOffset }

func (t *Differential) NumActuators() int { return 2 }
func (t *Differential) NumJoints() int    { return 2 }

func (t *Differential) ActuatorToJoint(q types.Quantity, actuator, joint []float64) error {
	if err := checkSizes("differential transmission", t, actuator, joint); err != nil {
		return err
	}

	ar := t.actuatorReduction
	jr := t.jointReduction

	switch q {
	case types.QuantityPosition:
		joint[0] = (actuator[0]/ar[0]+actuator[1]/ar[1])/(2.0*jr[0]) + t.jointOffset[0]
		joint[1] = (actuator[0]/ar[0]-actuator[1]/ar[1])/(2.0*jr[1]) + t.jointOffset[1]
	case types.QuantityVelocity:
		joint[0] = (actuator[0]/ar[0] + actuator[1]/ar[1]) / (2.0 * jr[0])
		joint[1] = (actuator[0]/ar[0] - actuator[1]/ar[1]) / (2.0 * jr[1])
	case types.QuantityEffort:
		joint[0] = jr[0] * (actuator[0]*ar[0] + actuator[1]*ar[1])
		joint[1] = jr[1] * (actuator[0]*ar[0] - actuator[1]*ar[1])
	default:
		return unknownQuantity("differential transmission", q)
	}
	return nil
}

func (t *Differential) JointToActuator(q types.Quantity, joint, actuator []float64) error {
	if err := checkSizes("differential transmission", t, actuator, joint); err != nil {
		return err
	}

	ar := t.actuatorReduction
	jr := t.jointReduction

	switch q {
	case types.QuantityPosition:
		j0 := joint[0] - t.jointOffset[0]
		j1 := joint[1] - t.jointOffset[1]
		actuator[0] = (j0*jr[0] + j1*jr[1]) * ar[0]
		actuator[1] = (j0*jr[0] - j1*jr[1]) * ar[1]
	case types.QuantityVelocity:
		actuator[0] = (joint[0]*jr[0] + joint[1]*jr[1]) * ar[0]
		actuator[1] = (joint[0]*jr[0] - joint[1]*jr[1]) * ar[1]
	case types.QuantityEffort:
		actuator[0] = (joint[0]/jr[0] + joint[1]/jr[1]) / (2.0 * ar[0])
		actuator[1] = (joint[0]/jr[0] - joint[1]/jr[1]) / (2.0 * ar[1])
	default:
		return unknownQuantity("differential transmission", q)
	}
	return nil
}
