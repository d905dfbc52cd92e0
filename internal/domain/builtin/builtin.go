// Package builtin holds the components compiled into the host binary.
package builtin

import (
	"fmt"
	"slices"

	"github.com/GriffinCanCode/bundlehost/internal/domain/component"
	"github.com/GriffinCanCode/bundlehost/internal/domain/registry"
)

// NativeType is a component type implemented in Go. Its handle is the host
// handle, so it never has an origin and cannot be downloaded.
type NativeType struct {
	name    string
	methods []string
	ctor    func() (any, error)
}

// NewNativeType declares a Go type exposing methods.
func NewNativeType(name string, methods []string, ctor func() (any, error)) *NativeType {
	return &NativeType{name: name, methods: slices.Clone(methods), ctor: ctor}
}

// SimpleName is the Go type name.
func (t *NativeType) SimpleName() string { return t.name }

// Handle is always the host handle.
func (t *NativeType) Handle() component.Handle { return component.HostHandle }

// New calls the constructor.
func (t *NativeType) New() (any, error) { return t.ctor() }

// Satisfies reports whether the type declares every method of c.
func (t *NativeType) Satisfies(c component.Contract) bool {
	return len(c.Missing(t.methods)) == 0
}

// Passthrough is a topology that forwards records unchanged.
type Passthrough struct{}

// Topology describes the processing graph.
func (Passthrough) Topology() string { return "source -> sink" }

// Definition pairs a native type with its registration options.
type Definition struct {
	Type    *NativeType
	Options component.Options
}

// Definitions returns the built-in component set.
func Definitions() []Definition {
	return []Definition{
		{
			Type: NewNativeType("PassthroughTopology", component.TopologyProvider.Methods, func() (any, error) {
				return Passthrough{}, nil
			}),
			Options: component.Options{
				Aliases: []string{"passthrough"},
				Version: "1.0",
				Scope:   component.ScopeApplication,
				Tags:    map[string]string{"kind": "topology"},
			},
		},
	}
}

// Register adds the built-in components to f.
func Register(f *registry.Factory) error {
	for _, def := range Definitions() {
		d, err := f.NewDescriptor(def.Type, def.Options)
		if err != nil {
			return fmt.Errorf("built-in %s: %w", def.Type.SimpleName(), err)
		}
		if err := f.Register(d); err != nil {
			return fmt.Errorf("built-in %s: %w", def.Type.SimpleName(), err)
		}
	}
	return nil
}
