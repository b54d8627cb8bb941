package hardware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"controlcore/pkg/types"
)

func TestNewActuatorSelectsBackend(t *testing.T) {
	modbusDrive := types.DriveConfig{
		Name:     "drive1",
		Protocol: "modbus",
		Parameters: map[string]string{
			"address": "192.168.1.10",
		},
	}
	actuator, err := NewActuator(modbusDrive)
	require.NoError(t, err)
	assert.IsType(t, &ModbusActuator{}, actuator)

	serialDrive := types.DriveConfig{
		Name:     "drive2",
		Protocol: "serial",
		Parameters: map[string]string{
			"port_name": "/dev/ttyUSB0",
		},
	}
	actuator, err = NewActuator(serialDrive)
	require.NoError(t, err)
	assert.IsType(t, &SerialActuator{}, actuator)

	simDrive := types.DriveConfig{Name: "drive3", Protocol: "sim"}
	actuator, err = NewActuator(simDrive)
	require.NoError(t, err)
	assert.IsType(t, &SimActuator{}, actuator)
}

func TestNewActuatorUnknownProtocol(t *testing.T) {
	_, err := NewActuator(types.DriveConfig{Name: "drive1", Protocol: "canopen"})
	assert.Error(t, err)
}

func TestNewActuatorMissingRequiredParams(t *testing.T) {
	_, err := NewActuator(types.DriveConfig{Name: "drive1", Protocol: "modbus"})
	assert.Error(t, err)

	_, err = NewActuator(types.DriveConfig{Name: "drive1", Protocol: "serial"})
	assert.Error(t, err)
}

func TestModbusConfigDefaults(t *testing.T) {
	config, err := modbusConfigFromParams(map[string]string{"address": "10.0.0.2"})
	require.NoError(t, err)

	assert.Equal(t, "tcp", config.Type)
	assert.Equal(t, 502, config.Port)
	assert.Equal(t, byte(1), config.SlaveID)
	assert.Equal(t, 10*time.Second, config.Timeout)
	assert.Equal(t, uint16(0), config.PositionRegister)
	assert.Equal(t, uint16(16), config.CommandRegister)
	assert.Equal(t, 1000.0, config.CountsPerUnit)
}

func TestModbusConfigRejectsZeroScale(t *testing.T) {
	_, err := modbusConfigFromParams(map[string]string{
		"address":         "10.0.0.2",
		"counts_per_unit": "0",
	})
	assert.Error(t, err)
}

func TestParamHelpersDegradeToDefaults(t *testing.T) {
	params := map[string]string{
		"rate":    "not-a-number",
		"timeout": "soon",
	}

	assert.Equal(t, 100, paramInt(params, "rate", 100))
	assert.Equal(t, 0.5, paramFloat(params, "rate", 0.5))
	assert.Equal(t, time.Second, paramDuration(params, "timeout", time.Second))
	assert.Equal(t, "tcp", paramString(params, "type", "tcp"))
}

func TestSimActuatorModel(t *testing.T) {
	sim := NewSimActuator(SimConfig{Inertia: 0.01, Damping: 0.05})
	require.NoError(t, sim.Connect(context.Background()))

	// effort command accelerates the rotor
	require.NoError(t, sim.WriteCommand(ActuatorCommand{Quantity: types.QuantityEffort, Value: 0.5}))
	sim.Step(0.1)
	state, err := sim.ReadState()
	require.NoError(t, err)
	assert.Greater(t, state.Velocity, 0.0)

	// velocity command is tracked directly
	require.NoError(t, sim.WriteCommand(ActuatorCommand{Quantity: types.QuantityVelocity, Value: 2.0}))
	sim.Step(0.1)
	state, err = sim.ReadState()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, state.Velocity, 1e-9)

	require.NoError(t, sim.Disconnect())
	_, err = sim.ReadState()
	assert.Error(t, err)
}
