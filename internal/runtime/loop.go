// Package runtime drives registered modules through fixed-period control
// cycles. It plays the controller-manager role for this framework's demos:
// modules run once per cycle in registration order, so callers register a
// chain upstream-first and hardware reads before / writes after the
// controllers. Scheduling and the response to per-cycle failures stay here,
// outside the controllers themselves.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"controlcore/internal/logging"
	"controlcore/pkg/types"
)

// Module is one participant in the control cycle. Cycle receives the time at
// the start of the iteration and the measured duration of the previous one,
// and must not block.
type Module interface {
	Name() string
	Cycle(t time.Time, period time.Duration) types.ReturnCode
}

// ModuleFunc adapts a plain function to the Module interface.
func ModuleFunc(name string, fn func(t time.Time, period time.Duration) types.ReturnCode) Module {
	return &funcModule{name: name, fn: fn}
}

type funcModule struct {
	name string
	fn   func(t time.Time, period time.Duration) types.ReturnCode
}

func (m *funcModule) Name() string { return m.name }

func (m *funcModule) Cycle(t time.Time, period time.Duration) types.ReturnCode {
	return m.fn(t, period)
}

// Loop executes the registered modules at a fixed period on a single
// goroutine.
type Loop struct {
	period  time.Duration
	modules []Module
	names   map[string]struct{}
	logger  *logging.Logger

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	lastTick time.Time
}

// NewLoop creates a control loop with the given cycle period.
func NewLoop(period time.Duration) *Loop {
	return &Loop{
		period: period,
		names:  make(map[string]struct{}),
		logger: logging.GetLogger("runtime"),
	}
}

// Register appends a module to the cycle order. Registration is refused once
// the loop is running; the order is fixed for the loop's lifetime.
func (l *Loop) Register(m Module) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return fmt.Errorf("cannot register module %q while the loop is running", m.Name())
	}
	if _, exists := l.names[m.Name()]; exists {
		return fmt.Errorf("module %q already registered", m.Name())
	}

	l.names[m.Name()] = struct{}{}
	l.modules = append(l.modules, m)
	return nil
}

// Start launches the loop goroutine.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return fmt.Errorf("control loop is already running")
	}

	l.ctx, l.cancel = context.WithCancel(ctx)
	l.running = true
	l.lastTick = time.Now()

	l.wg.Add(1)
	go l.run()

	l.logger.Info("Control loop started", "period", l.period, "modules", len(l.modules))
	return nil
}

// Stop halts the loop and waits for the current cycle to finish.
func (l *Loop) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return fmt.Errorf("control loop is not running")
	}
	l.cancel()
	l.mu.Unlock()

	l.wg.Wait()

	l.mu.Lock()
	l.running = false
	l.mu.Unlock()

	l.logger.Info("Control loop stopped")
	return nil
}

func (l *Loop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case now := <-ticker.C:
			period := now.Sub(l.lastTick)
			l.lastTick = now
			l.RunCycle(now, period)
		}
	}
}

// RunCycle executes one control cycle: every module once, in order. A failing
// module is logged and the cycle continues; each module runs exactly once per
// cycle regardless of its position or the others' results.
func (l *Loop) RunCycle(t time.Time, period time.Duration) {
	for _, m := range l.modules {
		if rc := m.Cycle(t, period); rc != types.ReturnOK {
			l.logger.Error("Module cycle failed", "module", m.Name(), "status", rc.String())
		}
	}
}
