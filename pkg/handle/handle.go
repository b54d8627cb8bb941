// Package handle provides named read and write views over single scalar
// values. The component that creates a handle owns the backing storage;
// consumers obtained through a registry hold non-owning copies. A state
// handle is read-only, a command handle is read/write.
package handle

import "fmt"

// Delimiter separates the owner prefix from the interface name in a full
// handle name, e.g. "joint1/velocity".
const Delimiter = "/"

// StateHandle is a read-only view over one float64 owned by the exporting
// component. Handles are plain values and safe to copy; reads never allocate.
type StateHandle struct {
	prefix string
	iface  string
	full   string
	value  *float64
}

// NewStateHandle creates a read-only handle named "<prefix>/<iface>" over the
// given storage. The storage must outlive every copy of the handle.
func NewStateHandle(prefix, iface string, value *float64) (StateHandle, error) {
	if prefix == "" || iface == "" {
		return StateHandle{}, fmt.Errorf("handle requires a prefix and an interface name, got %q/%q", prefix, iface)
	}
	if value == nil {
		return StateHandle{}, fmt.Errorf("handle %s%s%s has no backing storage", prefix, Delimiter, iface)
	}
	return StateHandle{
		prefix: prefix,
		iface:  iface,
		full:   prefix + Delimiter + iface,
		value:  value,
	}, nil
}

// Prefix returns the owner part of the handle name.
func (h StateHandle) Prefix() string { return h.prefix }

// InterfaceName returns the interface part of the handle name.
func (h StateHandle) InterfaceName() string { return h.iface }

// Name returns the full "<prefix>/<iface>" name. Computed at construction so
// cycle-time callers do not allocate.
func (h StateHandle) Name() string { return h.full }

// Valid reports whether the handle is bound to storage. The zero value is
// not valid.
func (h StateHandle) Valid() bool { return h.value != nil }

// Value reads the current value.
func (h StateHandle) Value() float64 { return *h.value }

// CommandHandle is a read/write handle. It embeds the read-only view so a
// command interface can be inspected the same way a state interface can.
type CommandHandle struct {
	StateHandle
}

// NewCommandHandle creates a read/write handle named "<prefix>/<iface>" over
// the given storage.
func NewCommandHandle(prefix, iface string, value *float64) (CommandHandle, error) {
	sh, err := NewStateHandle(prefix, iface, value)
	if err != nil {
		return CommandHandle{}, err
	}
	return CommandHandle{StateHandle: sh}, nil
}

// SetValue writes a new value into the backing storage.
func (h CommandHandle) SetValue(v float64) { *h.value = v }
