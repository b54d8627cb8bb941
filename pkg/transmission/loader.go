package transmission

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"controlcore/pkg/types"
)

// Loader validates a parsed transmission description and constructs the
// matching Transmission. A configuration error yields a nil transmission and
// an error; malformed optional parameters degrade to their defaults instead.
type Loader interface {
	Load(info types.TransmissionInfo) (Transmission, error)
}

// Type identifiers resolved through the loader table. The format is
// "namespace/ClassName" so that descriptions written for other stacks map
// over directly.
const (
	SimpleType       = "controlcore/SimpleTransmission"
	DifferentialType = "controlcore/DifferentialTransmission"
)

var (
	loadersMu sync.RWMutex
	loaders   = make(map[string]func() Loader)
)

func init() {
	Register(SimpleType, func() Loader { return SimpleLoader{} })
	Register(DifferentialType, func() Loader { return DifferentialLoader{} })
}

// Register adds a loader factory for a transmission type identifier.
// Registration happens at process start; a duplicate identifier is a
// programming error.
func Register(typeName string, factory func() Loader) {
	loadersMu.Lock()
	defer loadersMu.Unlock()

	if _, exists := loaders[typeName]; exists {
		panic(fmt.Sprintf("transmission loader %q registered twice", typeName))
	}
	loaders[typeName] = factory
}

// LoaderFor resolves a type identifier to a fresh loader instance.
func LoaderFor(typeName string) (Loader, error) {
	loadersMu.RLock()
	factory, ok := loaders[typeName]
	loadersMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown transmission type %q", typeName)
	}
	return factory(), nil
}

// Types returns the sorted registered type identifiers.
func Types() []string {
	loadersMu.RLock()
	defer loadersMu.RUnlock()

	names := make([]string, 0, len(loaders))
	for name := range loaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load resolves and runs the loader for the description's type in one step.
func Load(info types.TransmissionInfo) (Transmission, error) {
	loader, err := LoaderFor(info.Type)
	if err != nil {
		return nil, fmt.Errorf("transmission %q: %w", info.Name, err)
	}
	return loader.Load(info)
}

// parseOrDefault returns the named parameter as a float64, or def when the
// parameter is absent or not parseable as a number. Ill-defined optional
// values degrade rather than abort construction.
func parseOrDefault(params map[string]string, key string, def float64) float64 {
	raw, ok := params[key]
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return def
	}
	return v
}

// SimpleLoader builds a Simple transmission from a one-joint description.
//
// "mechanical_reduction" defaults to 1.0 when absent or non-numeric but
// fails the load when it parses to zero; "offset" defaults to 0.0.
type SimpleLoader struct{}

func (SimpleLoader) Load(info types.TransmissionInfo) (Transmission, error) {
	if len(info.Joints) != 1 {
		return nil, fmt.Errorf("transmission %q: simple transmission requires exactly one joint, got %d", info.Name, len(info.Joints))
	}

	joint := info.Joints[0]
	if joint.Role == "" {
		return nil, fmt.Errorf("transmission %q: joint %q has no role", info.Name, joint.Name)
	}

	reduction := parseOrDefault(joint.Parameters, "mechanical_reduction", 1.0)
	if reduction == 0 {
		return nil, fmt.Errorf("transmission %q: mechanical_reduction must be nonzero", info.Name)
	}
	offset := parseOrDefault(joint.Parameters, "offset", 0.0)

	return NewSimple(reduction, offset)
}

// DifferentialLoader builds a Differential transmission from a description
// with exactly two joints and two actuators. Joint reductions and offsets
// come from the joint parameters, actuator reductions from the actuator
// parameters, with the same defaulting rules as the simple loader.
type DifferentialLoader struct{}

func (DifferentialLoader) Load(info types.TransmissionInfo) (Transmission, error) {
	if len(info.Joints) != 2 {
		return nil, fmt.Errorf("transmission %q: differential transmission requires exactly two joints, got %d", info.Name, len(info.Joints))
	}
	if len(info.Actuators) != 2 {
		return nil, fmt.Errorf("transmission %q: differential transmission requires exactly two actuators, got %d", info.Name, len(info.Actuators))
	}

	var jointReduction, jointOffset, actuatorReduction [2]float64

	for i, joint := range info.Joints {
		if joint.Role == "" {
			return nil, fmt.Errorf("transmission %q: joint %q has no role", info.Name, joint.Name)
		}
		jointReduction[i] = parseOrDefault(joint.Parameters, "mechanical_reduction", 1.0)
		if jointReduction[i] == 0 {
			return nil, fmt.Errorf("transmission %q: joint %q mechanical_reduction must be nonzero", info.Name, joint.Name)
		}
		jointOffset[i] = parseOrDefault(joint.Parameters, "offset", 0.0)
	}

	for i, actuator := range info.Actuators {
		actuatorReduction[i] = parseOrDefault(actuator.Parameters, "mechanical_reduction", 1.0)
		if actuatorReduction[i] == 0 {
			return nil, fmt.Errorf("transmission %q: actuator %q mechanical_reduction must be nonzero", info.Name, actuator.Name)
		}
	}

	return NewDifferential(actuatorReduction, jointReduction, jointOffset)
}
