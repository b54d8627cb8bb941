package hardware

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jacobsa/go-serial/serial"

	"controlcore/pkg/types"
)

// SerialConfig describes a drive on a serial line speaking a newline-
// delimited ASCII protocol: "S" requests a "<position> <velocity> <effort>"
// status line, "P|V|E <value>" commands the respective quantity.
type SerialConfig struct {
	PortName    string // e.g. "/dev/ttyUSB0"
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      string // "N", "E", "O"
	FlowControl bool
}

func serialConfigFromParams(params map[string]string) (SerialConfig, error) {
	config := SerialConfig{
		PortName:    params["port_name"],
		BaudRate:    paramInt(params, "baud_rate", 115200),
		DataBits:    paramInt(params, "data_bits", 8),
		StopBits:    paramInt(params, "stop_bits", 1),
		Parity:      paramString(params, "parity", "N"),
		FlowControl: paramString(params, "flow_control", "false") == "true",
	}

	if config.PortName == "" {
		return SerialConfig{}, fmt.Errorf("serial actuator requires a port_name")
	}
	return config, nil
}

// SerialActuator talks to a motor drive over a serial port.
type SerialActuator struct {
	config SerialConfig

	mu     sync.Mutex
	port   io.ReadWriteCloser
	reader *bufio.Reader
}

// NewSerialActuator creates an unconnected serial actuator.
func NewSerialActuator(config SerialConfig) *SerialActuator {
	return &SerialActuator{config: config}
}

// Connect opens the serial port.
func (a *SerialActuator) Connect(ctx context.Context) error {
	options := serial.OpenOptions{
		PortName:        a.config.PortName,
		BaudRate:        uint(a.config.BaudRate),
		DataBits:        uint(a.config.DataBits),
		StopBits:        uint(a.config.StopBits),
		MinimumReadSize: 1,
	}

	switch a.config.Parity {
	case "E", "e":
		options.ParityMode = serial.PARITY_EVEN
	case "O", "o":
		options.ParityMode = serial.PARITY_ODD
	default:
		options.ParityMode = serial.PARITY_NONE
	}

	if a.config.FlowControl {
		options.RTSCTSFlowControl = true
	}

	port, err := serial.Open(options)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", a.config.PortName, err)
	}

	a.mu.Lock()
	a.port = port
	a.reader = bufio.NewReader(port)
	a.mu.Unlock()
	return nil
}

// Disconnect closes the serial port.
func (a *SerialActuator) Disconnect() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return nil
	}
	err := a.port.Close()
	a.port = nil
	a.reader = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// ReadState requests and parses one status line.
func (a *SerialActuator) ReadState() (ActuatorState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return ActuatorState{}, fmt.Errorf("serial actuator is not connected")
	}

	if _, err := fmt.Fprintf(a.port, "S\n"); err != nil {
		return ActuatorState{}, fmt.Errorf("failed to request status: %w", err)
	}

	line, err := a.reader.ReadString('\n')
	if err != nil {
		return ActuatorState{}, fmt.Errorf("failed to read status line: %w", err)
	}

	var state ActuatorState
	if _, err := fmt.Sscanf(line, "%f %f %f", &state.Position, &state.Velocity, &state.Effort); err != nil {
		return ActuatorState{}, fmt.Errorf("malformed status line %q: %w", line, err)
	}
	return state, nil
}

// WriteCommand sends one command line for the commanded quantity.
func (a *SerialActuator) WriteCommand(cmd ActuatorCommand) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return fmt.Errorf("serial actuator is not connected")
	}

	var verb string
	switch cmd.Quantity {
	case types.QuantityPosition:
		verb = "P"
	case types.QuantityVelocity:
		verb = "V"
	case types.QuantityEffort:
		verb = "E"
	default:
		return fmt.Errorf("unknown command quantity %d", cmd.Quantity)
	}

	if _, err := fmt.Fprintf(a.port, "%s %.6f\n", verb, cmd.Value); err != nil {
		return fmt.Errorf("failed to write command: %w", err)
	}
	return nil
}

var _ Actuator = (*SerialActuator)(nil)
