package hardware

import (
	"context"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
)

// ModbusConfig describes a drive reachable over Modbus TCP or RTU. State is
// read from three consecutive holding registers, commands go to a single
// register; CountsPerUnit scales between register counts and physical units.
type ModbusConfig struct {
	Type     string // "tcp", "rtu"
	Address  string // host for tcp, device path for rtu
	Port     int    // tcp port
	BaudRate int    // rtu only
	DataBits int    // rtu only
	StopBits int    // rtu only
	Parity   string // rtu only: "N", "E", "O"
	SlaveID  byte
	Timeout  time.Duration

	PositionRegister uint16
	VelocityRegister uint16
	EffortRegister   uint16
	CommandRegister  uint16
	CountsPerUnit    float64
}

func modbusConfigFromParams(params map[string]string) (ModbusConfig, error) {
	config := ModbusConfig{
		Type:             paramString(params, "type", "tcp"),
		Address:          params["address"],
		Port:             paramInt(params, "port", 502),
		BaudRate:         paramInt(params, "baud_rate", 115200),
		DataBits:         paramInt(params, "data_bits", 8),
		StopBits:         paramInt(params, "stop_bits", 1),
		Parity:           paramString(params, "parity", "N"),
		SlaveID:          byte(paramInt(params, "slave_id", 1)),
		Timeout:          paramDuration(params, "timeout", 10*time.Second),
		PositionRegister: uint16(paramInt(params, "position_register", 0)),
		VelocityRegister: uint16(paramInt(params, "velocity_register", 1)),
		EffortRegister:   uint16(paramInt(params, "effort_register", 2)),
		CommandRegister:  uint16(paramInt(params, "command_register", 16)),
		CountsPerUnit:    paramFloat(params, "counts_per_unit", 1000.0),
	}

	if config.Address == "" {
		return ModbusConfig{}, fmt.Errorf("modbus actuator requires an address")
	}
	if config.CountsPerUnit == 0 {
		return ModbusConfig{}, fmt.Errorf("counts_per_unit must be nonzero")
	}
	return config, nil
}

// ModbusActuator talks to a motor drive over Modbus.
type ModbusActuator struct {
	config  ModbusConfig
	handler modbus.ClientHandler
	client  modbus.Client
	closer  interface{ Close() error }
}

// NewModbusActuator creates an unconnected Modbus actuator.
func NewModbusActuator(config ModbusConfig) *ModbusActuator {
	return &ModbusActuator{config: config}
}

// Connect opens the Modbus connection.
func (a *ModbusActuator) Connect(ctx context.Context) error {
	switch a.config.Type {
	case "tcp":
		handler := modbus.NewTCPClientHandler(fmt.Sprintf("%s:%d", a.config.Address, a.config.Port))
		handler.Timeout = a.config.Timeout
		handler.SlaveId = a.config.SlaveID
		if err := handler.Connect(); err != nil {
			return fmt.Errorf("failed to connect TCP modbus: %w", err)
		}
		a.handler = handler
		a.closer = handler
	case "rtu":
		handler := modbus.NewRTUClientHandler(a.config.Address)
		handler.BaudRate = a.config.BaudRate
		handler.DataBits = a.config.DataBits
		handler.StopBits = a.config.StopBits
		handler.Parity = a.config.Parity
		handler.SlaveId = a.config.SlaveID
		handler.Timeout = a.config.Timeout
		if err := handler.Connect(); err != nil {
			return fmt.Errorf("failed to connect RTU modbus: %w", err)
		}
		a.handler = handler
		a.closer = handler
	default:
		return fmt.Errorf("unsupported modbus type: %s", a.config.Type)
	}

	a.client = modbus.NewClient(a.handler)
	return nil
}

// Disconnect closes the Modbus connection.
func (a *ModbusActuator) Disconnect() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.handler = nil
	a.client = nil
	a.closer = nil
	if err != nil {
		return fmt.Errorf("failed to close modbus connection: %w", err)
	}
	return nil
}

// ReadState reads the position, velocity and effort registers.
func (a *ModbusActuator) ReadState() (ActuatorState, error) {
	if a.client == nil {
		return ActuatorState{}, fmt.Errorf("modbus actuator is not connected")
	}

	position, err := a.readRegister(a.config.PositionRegister)
	if err != nil {
		return ActuatorState{}, err
	}
	velocity, err := a.readRegister(a.config.VelocityRegister)
	if err != nil {
		return ActuatorState{}, err
	}
	effort, err := a.readRegister(a.config.EffortRegister)
	if err != nil {
		return ActuatorState{}, err
	}

	return ActuatorState{Position: position, Velocity: velocity, Effort: effort}, nil
}

// WriteCommand writes the command register. The commanded quantity is fixed
// by the drive's configuration; the register interpretation is the slave's.
func (a *ModbusActuator) WriteCommand(cmd ActuatorCommand) error {
	if a.client == nil {
		return fmt.Errorf("modbus actuator is not connected")
	}

	counts := int16(cmd.Value * a.config.CountsPerUnit)
	if _, err := a.client.WriteSingleRegister(a.config.CommandRegister, uint16(counts)); err != nil {
		return fmt.Errorf("failed to write command register %d: %w", a.config.CommandRegister, err)
	}
	return nil
}

func (a *ModbusActuator) readRegister(register uint16) (float64, error) {
	data, err := a.client.ReadHoldingRegisters(register, 1)
	if err != nil {
		return 0, fmt.Errorf("failed to read register %d: %w", register, err)
	}
	if len(data) < 2 {
		return 0, fmt.Errorf("short read from register %d: %d bytes", register, len(data))
	}

	counts := int16(uint16(data[0])<<8 | uint16(data[1]))
	return float64(counts) / a.config.CountsPerUnit, nil
}

var _ Actuator = (*ModbusActuator)(nil)
