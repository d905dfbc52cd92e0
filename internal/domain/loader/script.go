package loader

import (
	"fmt"
	"slices"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/bundlehost/internal/domain/component"
)

// ScriptType is a component type backed by a constructor of a module.
type ScriptType struct {
	module  *Module
	name    string
	ctor    *goja.Object
	methods []string
}

// SimpleName is the constructor's export name.
func (t *ScriptType) SimpleName() string { return t.name }

// Handle returns the owning module.
func (t *ScriptType) Handle() component.Handle { return t.module }

// Module returns the owning module.
func (t *ScriptType) Module() *Module { return t.module }

// Methods returns the method names of the type, sorted.
func (t *ScriptType) Methods() []string { return slices.Clone(t.methods) }

// Satisfies reports whether the prototype defines every method of c.
func (t *ScriptType) Satisfies(c component.Contract) bool {
	return len(c.Missing(t.methods)) == 0
}

// New invokes the constructor with no arguments.
func (t *ScriptType) New() (any, error) {
	m := t.module
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, err := m.rt.New(t.ctor)
	if err != nil {
		return nil, fmt.Errorf("constructor %s failed: %w", t.name, err)
	}
	return &Instance{typ: t, obj: obj}, nil
}

func (t *ScriptType) String() string {
	return fmt.Sprintf("%s(%s)", t.name, t.module.ID())
}

// Instance is an object created by a ScriptType.
type Instance struct {
	typ *ScriptType
	obj *goja.Object
}

// Type returns the type the instance was created from.
func (i *Instance) Type() *ScriptType { return i.typ }

// Call invokes a method of the instance and exports the result to a Go value.
func (i *Instance) Call(method string, args ...any) (any, error) {
	m := i.typ.module
	m.mu.Lock()
	defer m.mu.Unlock()

	fn, ok := goja.AssertFunction(i.obj.Get(method))
	if !ok {
		return nil, fmt.Errorf("%s has no method %q", i.typ.name, method)
	}

	values := make([]goja.Value, len(args))
	for n, a := range args {
		values[n] = m.rt.ToValue(a)
	}

	res, err := fn(i.obj, values...)
	if err != nil {
		return nil, fmt.Errorf("%s.%s failed: %w", i.typ.name, method, err)
	}
	return res.Export(), nil
}

// Get reads a property of the instance.
func (i *Instance) Get(property string) any {
	m := i.typ.module
	m.mu.Lock()
	defer m.mu.Unlock()

	v := i.obj.Get(property)
	if v == nil {
		return nil
	}
	return v.Export()
}
