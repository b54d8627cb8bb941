// Package controller provides the update protocol and interface-export
// machinery shared by all controllers that can be preceded by another
// controller, for example the inner loop of a control cascade. The
// orchestrator owns the fixed per-cycle sequence and delegates the variant
// steps to a Logic implementation, so concrete controllers only declare
// their interfaces and their computation.
package controller

import (
	"fmt"
	"time"

	"controlcore/pkg/handle"
	"controlcore/pkg/types"
)

// Logic is the capability interface a concrete chainable controller
// implements.
type Logic interface {
	// OnExportStateInterfaces declares the read-only values the controller
	// exposes to other controllers. Invoked once, on the first export; the
	// returned set and order are fixed for the controller's lifetime.
	OnExportStateInterfaces() []handle.StateHandle

	// OnExportReferenceInterfaces declares the read/write inputs an upstream
	// controller may drive while this controller is chained. Invoked once, on
	// the first export.
	OnExportReferenceInterfaces() []handle.CommandHandle

	// OnSetChainedMode is consulted before every mode switch. Returning false
	// refuses the switch and leaves the current mode in place. Controllers
	// that disable external input paths while chained do so here; the hook
	// must apply its changes atomically since the core performs no rollback.
	OnSetChainedMode(chained bool) bool

	// UpdateReferenceFromSubscribers pulls fresh reference values from
	// external input. Skipped while in chained mode, when the reference
	// interfaces are already populated by the upstream controller.
	UpdateReferenceFromSubscribers(t time.Time, period time.Duration) types.ReturnCode

	// UpdateAndWriteCommands runs the control computation and writes the
	// results to the command interfaces. The reference interfaces hold the
	// values for the current control step when this is called.
	UpdateAndWriteCommands(t time.Time, period time.Duration) types.ReturnCode
}

// Base provides the default hook implementations: no exported interfaces and
// a mode switch that always succeeds. Embed it to implement only the hooks a
// controller needs.
type Base struct{}

func (Base) OnExportStateInterfaces() []handle.StateHandle { return nil }

func (Base) OnExportReferenceInterfaces() []handle.CommandHandle { return nil }

func (Base) OnSetChainedMode(bool) bool { return true }

// Chainable wraps a Logic with the shared chaining machinery: interface
// export with stable naming and ordering, the chained-mode flag, and the
// final per-cycle update composition.
type Chainable struct {
	name  string
	logic Logic

	chained bool

	statesExported bool
	orderedStates  []handle.StateHandle
	statesByName   map[string]handle.StateHandle

	referencesExported bool
	orderedReferences  []handle.CommandHandle
	referencesByName   map[string]handle.CommandHandle
}

// NewChainable creates the chaining core for a named controller.
func NewChainable(name string, logic Logic) *Chainable {
	return &Chainable{
		name:  name,
		logic: logic,
	}
}

// Name returns the controller name.
func (c *Chainable) Name() string { return c.name }

// IsChainable reports that this controller may be preceded by another. Always
// true for this family.
func (c *Chainable) IsChainable() bool { return true }

// ExportStateInterfaces returns the controller's read-only interfaces. The
// list is built through the OnExportStateInterfaces hook on the first call
// and cached, so repeated calls return the identical ordered list.
func (c *Chainable) ExportStateInterfaces() ([]handle.StateHandle, error) {
	if !c.statesExported {
		states := c.logic.OnExportStateInterfaces()
		byName := make(map[string]handle.StateHandle, len(states))
		for _, h := range states {
			if !h.Valid() {
				return nil, fmt.Errorf("controller %q exported an unbound state interface", c.name)
			}
			if _, dup := byName[h.Name()]; dup {
				return nil, fmt.Errorf("controller %q exported duplicate state interface %q", c.name, h.Name())
			}
			byName[h.Name()] = h
		}
		c.orderedStates = states
		c.statesByName = byName
		c.statesExported = true
	}
	return c.orderedStates, nil
}

// ExportReferenceInterfaces returns the controller's read/write reference
// interfaces, built lazily like the state interfaces.
func (c *Chainable) ExportReferenceInterfaces() ([]handle.CommandHandle, error) {
	if !c.referencesExported {
		references := c.logic.OnExportReferenceInterfaces()
		byName := make(map[string]handle.CommandHandle, len(references))
		for _, h := range references {
			if !h.Valid() {
				return nil, fmt.Errorf("controller %q exported an unbound reference interface", c.name)
			}
			if _, dup := byName[h.Name()]; dup {
				return nil, fmt.Errorf("controller %q exported duplicate reference interface %q", c.name, h.Name())
			}
			byName[h.Name()] = h
		}
		c.orderedReferences = references
		c.referencesByName = byName
		c.referencesExported = true
	}
	return c.orderedReferences, nil
}

// StateInterface looks up an exported state interface by full name.
func (c *Chainable) StateInterface(name string) (handle.StateHandle, bool) {
	h, ok := c.statesByName[name]
	return h, ok
}

// ReferenceInterface looks up an exported reference interface by full name.
func (c *Chainable) ReferenceInterface(name string) (handle.CommandHandle, bool) {
	h, ok := c.referencesByName[name]
	return h, ok
}

// SetChainedMode requests a switch between external and chained operation.
// The switch is gated by the OnSetChainedMode hook; on refusal the current
// mode is left unchanged and false is returned.
func (c *Chainable) SetChainedMode(chained bool) bool {
	if !c.logic.OnSetChainedMode(chained) {
		return false
	}
	c.chained = chained
	return true
}

// IsInChainedMode reports whether the controller currently takes its
// reference from an upstream controller.
func (c *Chainable) IsInChainedMode() bool { return c.chained }

// Update is the real-time control step and is called exactly once per control
// cycle. Outside chained mode the reference is first refreshed from external
// input; if that fails the compute step is skipped and the failure is
// propagated. In chained mode the upstream controller has already written the
// reference interfaces and only the compute step runs. Nothing here
// allocates, locks or blocks.
func (c *Chainable) Update(t time.Time, period time.Duration) types.ReturnCode {
	if !c.chained {
		if rc := c.logic.UpdateReferenceFromSubscribers(t, period); rc != types.ReturnOK {
			return rc
		}
	}
	return c.logic.UpdateAndWriteCommands(t, period)
}

// ReleaseInterfaces drops the cached export sets, for controller
// deactivation. The backing storage stays with the Logic that created it; the
// next export rebuilds the sets through the hooks.
func (c *Chainable) ReleaseInterfaces() {
	c.statesExported = false
	c.orderedStates = nil
	c.statesByName = nil

	c.referencesExported = false
	c.orderedReferences = nil
	c.referencesByName = nil
}
