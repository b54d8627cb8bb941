// Command simulator runs the control chain against the built-in actuator
// model: a setpoint source feeding a velocity PID that drives a simulated
// rotor through a reduction. It needs no hardware and no description file and
// doubles as an end-to-end smoke check of the framework.
package main

import (
	"context"
	"flag"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"controlcore/internal/controllers"
	"controlcore/internal/hardware"
	"controlcore/internal/logging"
	"controlcore/internal/runtime"
	"controlcore/pkg/controller"
	"controlcore/pkg/registry"
	"controlcore/pkg/transmission"
	"controlcore/pkg/types"
)

// Simulator owns the assembled chain and the target generator that exercises
// it.
type Simulator struct {
	drive    *hardware.JointDrive
	setpoint *controllers.Setpoint
	loop     *runtime.Loop
	registry *registry.Registry
	logger   *logging.Logger

	amplitude float64
	interval  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSimulator assembles the chain: sim actuator behind a 10:1 reduction,
// PID on the joint velocity, rate-limited setpoint source on top.
func NewSimulator(rate int, amplitude float64, interval time.Duration) (*Simulator, error) {
	sim := &Simulator{
		registry:  registry.New(),
		logger:    logging.GetLogger("simulator"),
		amplitude: amplitude,
		interval:  interval,
	}

	trans, err := transmission.NewSimple(10.0, 0)
	if err != nil {
		return nil, err
	}
	actuator := hardware.NewSimActuator(hardware.SimConfig{Inertia: 0.01, Damping: 0.05})

	drive, err := hardware.NewJointDrive("joint1", actuator, trans, types.QuantityEffort)
	if err != nil {
		return nil, err
	}
	sim.drive = drive

	if err := sim.registry.RegisterStates(drive.StateInterfaces()); err != nil {
		return nil, err
	}
	if err := sim.registry.RegisterCommand(drive.CommandInterface()); err != nil {
		return nil, err
	}

	measure, _ := sim.registry.State("joint1/velocity")
	output, _ := sim.registry.Command("joint1/effort")

	pidLogic, err := controllers.NewPID("pid1", types.PIDGains{P: 0.5, I: 2.0}, 5.0, measure, output)
	if err != nil {
		return nil, err
	}
	pid := controller.NewChainable("pid1", pidLogic)

	references, err := pid.ExportReferenceInterfaces()
	if err != nil {
		return nil, err
	}
	if err := sim.registry.RegisterCommands(references); err != nil {
		return nil, err
	}
	pid.SetChainedMode(true)

	reference, _ := pid.ReferenceInterface("pid1/velocity")
	setpointLogic, err := controllers.NewSetpoint("setpoint1", 5.0)
	if err != nil {
		return nil, err
	}
	if err := setpointLogic.BindDownstream(reference); err != nil {
		return nil, err
	}
	sim.setpoint = setpointLogic
	setpoint := controller.NewChainable("setpoint1", setpointLogic)

	sim.loop = runtime.NewLoop(time.Second / time.Duration(rate))
	for _, register := range []error{
		sim.loop.Register(runtime.ModuleFunc("joint1/read", drive.Read)),
		sim.loop.Register(runtime.ModuleFunc("setpoint1", setpoint.Update)),
		sim.loop.Register(runtime.ModuleFunc("pid1", pid.Update)),
		sim.loop.Register(runtime.ModuleFunc("joint1/write", drive.Write)),
	} {
		if register != nil {
			return nil, register
		}
	}

	return sim, nil
}

// Start connects the model and launches the loop, the target generator and
// the state reporter.
func (s *Simulator) Start() error {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if err := s.drive.Connect(s.ctx); err != nil {
		return err
	}
	if err := s.loop.Start(s.ctx); err != nil {
		return err
	}

	go s.generateTargets()
	go s.reportState()

	s.logger.Info("Simulator started", "amplitude", s.amplitude, "interval", s.interval)
	return nil
}

// Stop halts the loop and the model.
func (s *Simulator) Stop() error {
	s.cancel()
	if err := s.loop.Stop(); err != nil {
		return err
	}
	return s.drive.Disconnect()
}

// generateTargets toggles the velocity target between +amplitude and
// -amplitude, exercising the setpoint slew limit and the PID response.
func (s *Simulator) generateTargets() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	target := s.amplitude
	s.setpoint.SetTarget(target)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			target = -target
			s.setpoint.SetTarget(target)
			s.logger.Info("New velocity target", "target", target)
		}
	}
}

func (s *Simulator) reportState() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	position, _ := s.registry.State("joint1/position")
	velocity, _ := s.registry.State("joint1/velocity")

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.logger.Info("Joint state",
				"position", math.Round(position.Value()*1000)/1000,
				"velocity", math.Round(velocity.Value()*1000)/1000,
				"reference", s.setpoint.Current())
		}
	}
}

func main() {
	rate := flag.Int("rate", 200, "control cycles per second")
	amplitude := flag.Float64("amplitude", 2.0, "velocity target amplitude in rad/s")
	interval := flag.Duration("interval", 5*time.Second, "time between target reversals")
	flag.Parse()

	logger := logging.GetLogger("main")

	simulator, err := NewSimulator(*rate, *amplitude, *interval)
	if err != nil {
		logger.Error("Failed to assemble simulator", "error", err)
		os.Exit(1)
	}

	if err := simulator.Start(); err != nil {
		logger.Error("Failed to start simulator", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	if err := simulator.Stop(); err != nil {
		logger.Error("Shutdown finished with errors", "error", err)
		os.Exit(1)
	}
	logger.Info("Simulator stopped")
}
