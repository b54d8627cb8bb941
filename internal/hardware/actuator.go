// Package hardware provides the actuator backends and the joint drive that
// couples an actuator to a transmission. Actuator backends speak the motor's
// own units and protocol (Modbus registers, a serial line, or the built-in
// simulator); the joint drive converts between that actuator space and the
// joint space the controllers work in.
package hardware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"controlcore/pkg/types"
)

// ActuatorState is one sample of an actuator in actuator space.
type ActuatorState struct {
	Position float64
	Velocity float64
	Effort   float64
}

// ActuatorCommand is one actuator-space command: a value for a single
// commanded quantity.
type ActuatorCommand struct {
	Quantity types.Quantity
	Value    float64
}

// Actuator is the capability interface every backend implements. ReadState
// and WriteCommand run once per control cycle and must not retry or sleep;
// connection management happens outside the cycle.
type Actuator interface {
	Connect(ctx context.Context) error
	Disconnect() error
	ReadState() (ActuatorState, error)
	WriteCommand(cmd ActuatorCommand) error
}

// NewActuator constructs a backend from a drive's protocol and parameter map.
func NewActuator(drive types.DriveConfig) (Actuator, error) {
	switch drive.Protocol {
	case "modbus":
		config, err := modbusConfigFromParams(drive.Parameters)
		if err != nil {
			return nil, fmt.Errorf("drive %q: %w", drive.Name, err)
		}
		return NewModbusActuator(config), nil
	case "serial":
		config, err := serialConfigFromParams(drive.Parameters)
		if err != nil {
			return nil, fmt.Errorf("drive %q: %w", drive.Name, err)
		}
		return NewSerialActuator(config), nil
	case "sim":
		return NewSimActuator(simConfigFromParams(drive.Parameters)), nil
	default:
		return nil, fmt.Errorf("drive %q: unknown protocol %q", drive.Name, drive.Protocol)
	}
}

func paramString(params map[string]string, key, def string) string {
	if v, ok := params[key]; ok && v != "" {
		return v
	}
	return def
}

func paramInt(params map[string]string, key string, def int) int {
	raw, ok := params[key]
	if !ok {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func paramFloat(params map[string]string, key string, def float64) float64 {
	raw, ok := params[key]
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func paramDuration(params map[string]string, key string, def time.Duration) time.Duration {
	raw, ok := params[key]
	if !ok {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return v
}
