// Command control assembles and runs a description-driven control chain:
// hardware drives read joint states, controllers run upstream to downstream,
// and the drives write the resulting commands back out, all at a fixed rate.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"controlcore/internal/config"
	"controlcore/internal/controllers"
	"controlcore/internal/hardware"
	"controlcore/internal/logging"
	"controlcore/internal/runtime"
	"controlcore/pkg/controller"
	"controlcore/pkg/handle"
	"controlcore/pkg/registry"
	"controlcore/pkg/transmission"
	"controlcore/pkg/types"
)

// ControlSystem owns everything assembled from the robot description: the
// hardware drives, the controller chain and the loop that cycles them.
type ControlSystem struct {
	description types.Description
	registry    *registry.Registry
	drives      []*hardware.JointDrive
	controllers []*controller.Chainable
	loop        *runtime.Loop
	logger      *logging.Logger
	running     bool
}

// NewControlSystem loads the description and builds the full chain.
func NewControlSystem(configPath string) (*ControlSystem, error) {
	manager := config.NewManager(configPath)
	if err := manager.Load(); err != nil {
		return nil, fmt.Errorf("failed to load robot description: %w", err)
	}

	system := &ControlSystem{
		description: manager.Description(),
		registry:    registry.New(),
		logger:      logging.GetLogger("control"),
	}

	if err := system.assemble(); err != nil {
		return nil, err
	}
	return system, nil
}

func (cs *ControlSystem) assemble() error {
	transmissions, err := cs.loadTransmissions()
	if err != nil {
		return err
	}
	if err := cs.buildDrives(transmissions); err != nil {
		return err
	}
	if err := cs.buildControllers(); err != nil {
		return err
	}
	return cs.buildLoop()
}

func (cs *ControlSystem) loadTransmissions() (map[string]transmission.Transmission, error) {
	transmissions := make(map[string]transmission.Transmission, len(cs.description.Transmissions))
	for _, info := range cs.description.Transmissions {
		trans, err := transmission.Load(info)
		if err != nil {
			return nil, fmt.Errorf("failed to load transmission %q: %w", info.Name, err)
		}
		transmissions[info.Name] = trans
		cs.logger.Info("Transmission loaded", "name", info.Name, "type", info.Type)
	}
	return transmissions, nil
}

func (cs *ControlSystem) buildDrives(transmissions map[string]transmission.Transmission) error {
	for _, driveConfig := range cs.description.Drives {
		actuator, err := hardware.NewActuator(driveConfig)
		if err != nil {
			return fmt.Errorf("failed to create actuator for drive %q: %w", driveConfig.Name, err)
		}

		trans, ok := transmissions[driveConfig.Transmission]
		if driveConfig.Transmission == "" {
			// drives without a transmission map 1:1 into joint space
			trans, err = transmission.NewSimple(1.0, 0)
			if err != nil {
				return err
			}
		} else if !ok {
			return fmt.Errorf("drive %q references unknown transmission %q", driveConfig.Name, driveConfig.Transmission)
		}

		quantity, err := quantityFromName(driveConfig.Command)
		if err != nil {
			return fmt.Errorf("drive %q: %w", driveConfig.Name, err)
		}

		drive, err := hardware.NewJointDrive(driveConfig.Joint, actuator, trans, quantity)
		if err != nil {
			return fmt.Errorf("failed to create drive %q: %w", driveConfig.Name, err)
		}

		if err := cs.registry.RegisterStates(drive.StateInterfaces()); err != nil {
			return fmt.Errorf("failed to register drive %q: %w", driveConfig.Name, err)
		}
		if err := cs.registry.RegisterCommand(drive.CommandInterface()); err != nil {
			return fmt.Errorf("failed to register drive %q: %w", driveConfig.Name, err)
		}

		cs.drives = append(cs.drives, drive)
		cs.logger.Info("Drive assembled", "name", driveConfig.Name,
			"joint", driveConfig.Joint, "protocol", driveConfig.Protocol)
	}
	return nil
}

// buildControllers constructs the controllers in description order, which is
// also their per-cycle execution order: upstream controllers come first so
// their outputs are in place before downstream controllers compute.
//
// Assembly runs in two phases. The first constructs every controller and
// registers its exported interfaces; the second resolves downstream bindings
// against the registry and switches driven controllers into chained mode.
// Cross-controller references are therefore independent of description order.
func (cs *ControlSystem) buildControllers() error {
	setpoints := make(map[string]*controllers.Setpoint)

	for _, ctrlConfig := range cs.description.Controllers {
		ctrl, err := cs.buildController(ctrlConfig, setpoints)
		if err != nil {
			return fmt.Errorf("failed to build controller %q: %w", ctrlConfig.Name, err)
		}

		states, err := ctrl.ExportStateInterfaces()
		if err != nil {
			return err
		}
		if err := cs.registry.RegisterStates(states); err != nil {
			return err
		}

		references, err := ctrl.ExportReferenceInterfaces()
		if err != nil {
			return err
		}
		if err := cs.registry.RegisterCommands(references); err != nil {
			return err
		}

		cs.controllers = append(cs.controllers, ctrl)
		cs.logger.Info("Controller assembled", "name", ctrlConfig.Name, "type", ctrlConfig.Type)
	}

	return cs.wireChain(setpoints)
}

func (cs *ControlSystem) buildController(ctrlConfig types.ControllerConfig, setpoints map[string]*controllers.Setpoint) (*controller.Chainable, error) {
	switch ctrlConfig.Type {
	case "pid":
		if ctrlConfig.Joint == "" {
			return nil, fmt.Errorf("pid controller requires a joint")
		}
		measure, ok := cs.registry.State(ctrlConfig.Joint + handle.Delimiter + types.InterfaceVelocity)
		if !ok {
			return nil, fmt.Errorf("no velocity state for joint %q", ctrlConfig.Joint)
		}
		output, ok := cs.registry.Command(ctrlConfig.Joint + handle.Delimiter + types.InterfaceEffort)
		if !ok {
			return nil, fmt.Errorf("no effort command for joint %q", ctrlConfig.Joint)
		}

		iLimit := paramFloat(ctrlConfig.Parameters, "i_limit", 0)
		logic, err := controllers.NewPID(ctrlConfig.Name, ctrlConfig.Gains, iLimit, measure, output)
		if err != nil {
			return nil, err
		}
		if raw, ok := ctrlConfig.Parameters["target"]; ok {
			target, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("bad target %q: %w", raw, err)
			}
			logic.SetTarget(target)
		}
		return controller.NewChainable(ctrlConfig.Name, logic), nil

	case "setpoint":
		if _, ok := ctrlConfig.Parameters["downstream"]; !ok {
			return nil, fmt.Errorf("setpoint controller requires a downstream parameter")
		}

		slewRate := paramFloat(ctrlConfig.Parameters, "slew_rate", 0)
		logic, err := controllers.NewSetpoint(ctrlConfig.Name, slewRate)
		if err != nil {
			return nil, err
		}
		if raw, ok := ctrlConfig.Parameters["target"]; ok {
			target, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("bad target %q: %w", raw, err)
			}
			logic.SetTarget(target)
		}
		setpoints[ctrlConfig.Name] = logic
		return controller.NewChainable(ctrlConfig.Name, logic), nil

	default:
		return nil, fmt.Errorf("unknown controller type %q", ctrlConfig.Type)
	}
}

// wireChain resolves every setpoint's downstream reference now that all
// controllers have registered their exported interfaces, then switches every
// controller whose reference interfaces are driven by another controller into
// chained mode.
func (cs *ControlSystem) wireChain(setpoints map[string]*controllers.Setpoint) error {
	driven := make(map[string]struct{})
	for _, ctrlConfig := range cs.description.Controllers {
		name, ok := ctrlConfig.Parameters["downstream"]
		if !ok {
			continue
		}

		if logic, isSetpoint := setpoints[ctrlConfig.Name]; isSetpoint {
			downstream, found := cs.registry.Command(name)
			if !found {
				return fmt.Errorf("controller %q: unknown downstream interface %q", ctrlConfig.Name, name)
			}
			if err := logic.BindDownstream(downstream); err != nil {
				return err
			}
		}
		driven[name] = struct{}{}
	}

	for _, ctrl := range cs.controllers {
		references, err := ctrl.ExportReferenceInterfaces()
		if err != nil {
			return err
		}
		for _, ref := range references {
			if _, ok := driven[ref.Name()]; !ok {
				continue
			}
			if !ctrl.SetChainedMode(true) {
				return fmt.Errorf("controller %q refused chained mode", ctrl.Name())
			}
			cs.logger.Info("Controller chained", "name", ctrl.Name(), "reference", ref.Name())
			break
		}
	}
	return nil
}

func (cs *ControlSystem) buildLoop() error {
	period := time.Second / time.Duration(cs.description.UpdateRate)
	cs.loop = runtime.NewLoop(period)

	for _, drive := range cs.drives {
		if err := cs.loop.Register(runtime.ModuleFunc(drive.Joint()+"/read", drive.Read)); err != nil {
			return err
		}
	}
	for _, ctrl := range cs.controllers {
		if err := cs.loop.Register(runtime.ModuleFunc(ctrl.Name(), ctrl.Update)); err != nil {
			return err
		}
	}
	for _, drive := range cs.drives {
		if err := cs.loop.Register(runtime.ModuleFunc(drive.Joint()+"/write", drive.Write)); err != nil {
			return err
		}
	}
	return nil
}

// Start connects the hardware and launches the control loop.
func (cs *ControlSystem) Start(ctx context.Context) error {
	if cs.running {
		return fmt.Errorf("control system is already running")
	}

	for _, drive := range cs.drives {
		if err := drive.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect drive: %w", err)
		}
	}

	if err := cs.loop.Start(ctx); err != nil {
		return err
	}

	cs.running = true
	cs.logger.Info("Control system started", "robot", cs.description.Name,
		"update_rate", cs.description.UpdateRate,
		"states", cs.registry.StateNames(), "commands", cs.registry.CommandNames())
	return nil
}

// Stop halts the loop and disconnects the hardware.
func (cs *ControlSystem) Stop() error {
	if !cs.running {
		return fmt.Errorf("control system is not running")
	}

	if err := cs.loop.Stop(); err != nil {
		cs.logger.Error("Failed to stop control loop", "error", err)
	}

	for _, drive := range cs.drives {
		if err := drive.Disconnect(); err != nil {
			cs.logger.Error("Failed to disconnect drive", "error", err)
		}
	}

	cs.running = false
	cs.logger.Info("Control system stopped")
	return nil
}

func quantityFromName(name string) (types.Quantity, error) {
	switch name {
	case types.InterfacePosition:
		return types.QuantityPosition, nil
	case types.InterfaceVelocity:
		return types.QuantityVelocity, nil
	case types.InterfaceEffort, "":
		return types.QuantityEffort, nil
	default:
		return 0, fmt.Errorf("unknown command quantity %q", name)
	}
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

func main() {
	configPath := flag.String("config", "configs/robot.yaml", "path to the robot description file")
	flag.Parse()

	logger := logging.GetLogger("main")

	system, err := NewControlSystem(*configPath)
	if err != nil {
		logger.Error("Failed to assemble control system", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := system.Start(ctx); err != nil {
		logger.Error("Failed to start control system", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig.String())

	done := make(chan error, 1)
	go func() {
		done <- system.Stop()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("Shutdown finished with errors", "error", err)
			os.Exit(1)
		}
	case <-time.After(10 * time.Second):
		logger.Error("Shutdown timed out")
		os.Exit(1)
	}
}
