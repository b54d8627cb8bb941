package transmission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"controlcore/pkg/types"
)

func TestNewDifferentialRejectsZeroReductions(t *testing.T) {
	_, err := NewDifferential([2]float64{0, 1}, [2]float64{1, 1}, [2]float64{})
	assert.Error(t, err)

	_, err = NewDifferential([2]float64{1, 1}, [2]float64{1, 0}, [2]float64{})
	assert.Error(t, err)
}

func TestDifferentialSumDifferenceCoupling(t *testing.T) {
	tr, err := NewDifferential([2]float64{1, 1}, [2]float64{1, 1}, [2]float64{})
	require.NoError(t, err)

	assert.Equal(t, 2, tr.NumActuators())
	assert.Equal(t, 2, tr.NumJoints())

	// equal actuator velocities drive only the sum joint
	joint := make([]float64, 2)
	require.NoError(t, tr.ActuatorToJoint(types.QuantityVelocity, []float64{1.0, 1.0}, joint))
	assert.InDelta(t, 1.0, joint[0], eps)
	assert.InDelta(t, 0.0, joint[1], eps)

	// opposite actuator velocities drive only the difference joint
	require.NoError(t, tr.ActuatorToJoint(types.QuantityVelocity, []float64{1.0, -1.0}, joint))
	assert.InDelta(t, 0.0, joint[0], eps)
	assert.InDelta(t, 1.0, joint[1], eps)
}

func TestDifferentialRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		ar   [2]float64
		jr   [2]float64
		o    [2]float64
	}{
		{"unit", [2]float64{1, 1}, [2]float64{1, 1}, [2]float64{}},
		{"geared", [2]float64{50, 50}, [2]float64{2, 4}, [2]float64{}},
		{"asymmetric with offsets", [2]float64{40, -20}, [2]float64{1, 3}, [2]float64{0.5, -1.0}},
	}

	quantities := []types.Quantity{types.QuantityPosition, types.QuantityVelocity, types.QuantityEffort}
	samples := [][2]float64{{0, 0}, {1.5, -0.5}, {-3.0, 2.0}, {0.001, 1000}}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := NewDifferential(tc.ar, tc.jr, tc.o)
			require.NoError(t, err)

			joint := make([]float64, 2)
			act := make([]float64, 2)
			back := make([]float64, 2)

			for _, q := range quantities {
				for _, s := range samples {
					joint[0], joint[1] = s[0], s[1]
					require.NoError(t, tr.JointToActuator(q, joint, act))
					require.NoError(t, tr.ActuatorToJoint(q, act, back))
					assert.InDelta(t, s[0], back[0], 1e-6, "quantity %v", q)
					assert.InDelta(t, s[1], back[1], 1e-6, "quantity %v", q)
				}
			}
		})
	}
}

func TestDifferentialSizeMismatch(t *testing.T) {
	tr, err := NewDifferential([2]float64{1, 1}, [2]float64{1, 1}, [2]float64{})
	require.NoError(t, err)

	err = tr.ActuatorToJoint(types.QuantityPosition, []float64{1}, make([]float64, 2))
	assert.Error(t, err)

	err = tr.JointToActuator(types.QuantityEffort, make([]float64, 2), []float64{1, 2, 3})
	assert.Error(t, err)
}
