// Package registry keeps the process-wide tables of exported interface
// handles so that controllers and hardware components can bind each other's
// interfaces by name. Registration happens at configuration time; lookups on
// the control path return plain handle copies and take no locks afterwards.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"controlcore/pkg/handle"
)

// Registry maps full interface names to exported handles. State and command
// interfaces live in separate namespaces: a joint typically exports both a
// "joint1/velocity" state and a "joint1/velocity" command.
type Registry struct {
	mu       sync.RWMutex
	states   map[string]handle.StateHandle
	commands map[string]handle.CommandHandle
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		states:   make(map[string]handle.StateHandle),
		commands: make(map[string]handle.CommandHandle),
	}
}

// RegisterState publishes a state interface. Names must be unique across all
// exporters in the process; a duplicate is a wiring error, not a runtime
// condition.
func (r *Registry) RegisterState(h handle.StateHandle) error {
	if !h.Valid() {
		return fmt.Errorf("cannot register unbound state interface %q", h.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.states[h.Name()]; exists {
		return fmt.Errorf("state interface %q already registered", h.Name())
	}
	r.states[h.Name()] = h
	return nil
}

// RegisterCommand publishes a command interface.
func (r *Registry) RegisterCommand(h handle.CommandHandle) error {
	if !h.Valid() {
		return fmt.Errorf("cannot register unbound command interface %q", h.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[h.Name()]; exists {
		return fmt.Errorf("command interface %q already registered", h.Name())
	}
	r.commands[h.Name()] = h
	return nil
}

// RegisterStates publishes a list of state interfaces, stopping at the first
// duplicate. The caller unwinds with UnregisterPrefix on failure.
func (r *Registry) RegisterStates(handles []handle.StateHandle) error {
	for _, h := range handles {
		if err := r.RegisterState(h); err != nil {
			return err
		}
	}
	return nil
}

// RegisterCommands publishes a list of command interfaces.
func (r *Registry) RegisterCommands(handles []handle.CommandHandle) error {
	for _, h := range handles {
		if err := r.RegisterCommand(h); err != nil {
			return err
		}
	}
	return nil
}

// State looks up a state interface by full name.
func (r *Registry) State(name string) (handle.StateHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.states[name]
	return h, ok
}

// Command looks up a command interface by full name.
func (r *Registry) Command(name string) (handle.CommandHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.commands[name]
	return h, ok
}

// UnregisterPrefix removes every interface exported under the given prefix,
// for exporter deactivation. Consumers holding copies must be rebound before
// the owner tears down the backing storage.
func (r *Registry) UnregisterPrefix(prefix string) {
	head := prefix + handle.Delimiter

	r.mu.Lock()
	defer r.mu.Unlock()

	for name := range r.states {
		if strings.HasPrefix(name, head) {
			delete(r.states, name)
		}
	}
	for name := range r.commands {
		if strings.HasPrefix(name, head) {
			delete(r.commands, name)
		}
	}
}

// StateNames returns the sorted names of all registered state interfaces.
func (r *Registry) StateNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.states))
	for name := range r.states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CommandNames returns the sorted names of all registered command interfaces.
func (r *Registry) CommandNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
