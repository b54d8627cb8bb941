// Package types defines the fundamental data structures shared across the
// control framework: return codes for the real-time update path, physical
// quantities, and the already-parsed robot description that transmission
// loaders, hardware drives, and controllers are configured from.
package types

// ReturnCode is the status of one real-time control step. It crosses the
// update boundary as a plain value; nothing on the update path may panic or
// return an allocated error.
type ReturnCode int

const (
	ReturnOK ReturnCode = iota
	ReturnError
)

func (rc ReturnCode) String() string {
	switch rc {
	case ReturnOK:
		return "ok"
	case ReturnError:
		return "error"
	default:
		return "unknown"
	}
}

// Quantity identifies which physical quantity a conversion or interface
// refers to.
type Quantity int

const (
	QuantityPosition Quantity = iota
	QuantityVelocity
	QuantityEffort
)

func (q Quantity) String() string {
	switch q {
	case QuantityPosition:
		return InterfacePosition
	case QuantityVelocity:
		return InterfaceVelocity
	case QuantityEffort:
		return InterfaceEffort
	default:
		return "unknown"
	}
}

// Standard interface names used when exporting joint values.
const (
	InterfacePosition = "position"
	InterfaceVelocity = "velocity"
	InterfaceEffort   = "effort"
)

// JointInfo describes one joint binding of a transmission. Numeric parameters
// such as "mechanical_reduction" and "offset" stay strings until a loader
// parses them, so that loaders own the found/not-found and
// parseable-as-number decisions.
type JointInfo struct {
	Name       string            `yaml:"name"`
	Role       string            `yaml:"role"`
	Interfaces []string          `yaml:"interfaces,omitempty"`
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

// ActuatorInfo describes one actuator binding of a transmission.
type ActuatorInfo struct {
	Name       string            `yaml:"name"`
	Role       string            `yaml:"role"`
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

// TransmissionInfo is the parsed description of one transmission: which
// implementation to instantiate (a "namespace/ClassName" type identifier) and
// its joint and actuator bindings.
type TransmissionInfo struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"`
	Joints     []JointInfo       `yaml:"joints"`
	Actuators  []ActuatorInfo    `yaml:"actuators,omitempty"`
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

// PIDGains holds proportional, integral and derivative gains.
type PIDGains struct {
	P float64 `yaml:"p"`
	I float64 `yaml:"i"`
	D float64 `yaml:"d"`
}

// ControllerConfig describes one controller instance to assemble.
type ControllerConfig struct {
	Name       string            `yaml:"name"`
	Type       string            `yaml:"type"`
	Joint      string            `yaml:"joint,omitempty"`
	Gains      PIDGains          `yaml:"gains,omitempty"`
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

// DriveConfig describes one hardware drive: which actuator backend talks to
// the motor and which transmission maps it into joint space.
type DriveConfig struct {
	Name         string            `yaml:"name"`
	Joint        string            `yaml:"joint"`
	Protocol     string            `yaml:"protocol"` // "modbus", "serial", "sim"
	Transmission string            `yaml:"transmission"`
	Command      string            `yaml:"command,omitempty"` // commanded quantity, default "effort"
	Parameters   map[string]string `yaml:"parameters,omitempty"`
}

// Description is the root of a parsed robot description file.
type Description struct {
	Name          string             `yaml:"name"`
	UpdateRate    int                `yaml:"update_rate"` // control cycles per second
	Transmissions []TransmissionInfo `yaml:"transmissions,omitempty"`
	Drives        []DriveConfig      `yaml:"drives,omitempty"`
	Controllers   []ControllerConfig `yaml:"controllers,omitempty"`
}
