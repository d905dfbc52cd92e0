package loader

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/GriffinCanCode/bundlehost/internal/domain/component"
	"github.com/GriffinCanCode/bundlehost/internal/shared/id"
)

// Unit is one component type produced by a module, with the metadata the
// bundle declared for it.
type Unit struct {
	Type    *ScriptType
	Name    string
	Aliases []string
	Version string
	Scope   component.Scope
	Tags    map[string]string
}

// Module is the isolated namespace of one loaded bundle. It implements
// component.Locator.
type Module struct {
	id       id.ModuleID
	location string
	checksum string
	size     int64
	manifest *Manifest
	files    map[string][]byte
	logger   *zap.Logger

	mu      sync.Mutex
	rt      *goja.Runtime
	modules map[string]*goja.Object
	units   []Unit
}

func newModule(mid id.ModuleID, location, checksum string, size int64, manifest *Manifest, files map[string][]byte, logger *zap.Logger) *Module {
	return &Module{
		id:       mid,
		location: location,
		checksum: checksum,
		size:     size,
		manifest: manifest,
		files:    files,
		logger:   logger.With(zap.String("module", string(mid)), zap.String("bundle", location)),
		rt:       goja.New(),
		modules:  make(map[string]*goja.Object),
	}
}

// ID is the module handle, unique per load.
func (m *Module) ID() string { return string(m.id) }

// Location is the absolute path of the bundle file.
func (m *Module) Location() string { return m.location }

// Checksum is the hex BLAKE2b-256 digest of the bundle file.
func (m *Module) Checksum() string { return m.checksum }

// Size is the bundle file size in bytes.
func (m *Module) Size() int64 { return m.size }

// Manifest returns a copy of the decoded manifest.
func (m *Module) Manifest() Manifest { return *m.manifest }

// Units returns the component types found in the bundle, in declaration order.
func (m *Module) Units() []Unit { return slices.Clone(m.units) }

// init evaluates the entry point and resolves the component types. ctx
// cancellation interrupts a running script.
func (m *Module) init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
			m.rt.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	defer func() {
		close(done)
		<-stopped
		m.rt.ClearInterrupt()
	}()

	m.setupGlobals()

	entry := m.manifest.EntryPoint()
	if _, ok := m.files[entry]; !ok {
		return fmt.Errorf("%w: %s", ErrEntryPointMissing, entry)
	}

	exports, err := m.evaluate(entry)
	if err != nil {
		return err
	}

	units, err := m.resolveUnits(exports)
	if err != nil {
		return err
	}
	if len(units) == 0 {
		return component.ErrNoLoadableUnit
	}
	m.units = units
	return nil
}

func (m *Module) setupGlobals() {
	console := m.rt.NewObject()
	_ = console.Set("log", m.consoleFunc(zap.InfoLevel))
	_ = console.Set("info", m.consoleFunc(zap.InfoLevel))
	_ = console.Set("debug", m.consoleFunc(zap.DebugLevel))
	_ = console.Set("warn", m.consoleFunc(zap.WarnLevel))
	_ = console.Set("error", m.consoleFunc(zap.ErrorLevel))
	_ = m.rt.Set("console", console)

	// No event loop: timers are no-ops.
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	_ = m.rt.Set("setTimeout", noop)
	_ = m.rt.Set("setInterval", noop)
}

func (m *Module) consoleFunc(level zapcore.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		m.logger.Log(level, strings.Join(parts, " "), zap.String("source", "console"))
		return goja.Undefined()
	}
}

// evaluate runs a script of the bundle as a CommonJS module and returns its
// exports. Results are cached per file; a cycle sees the partial exports.
func (m *Module) evaluate(name string) (goja.Value, error) {
	if mod, ok := m.modules[name]; ok {
		return mod.Get("exports"), nil
	}

	src, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}

	wrapped := "(function (exports, require, module, __filename, __dirname) {" + string(src) + "\n})"
	prog, err := goja.Compile(name, wrapped, false)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", name, err)
	}
	fnVal, err := m.rt.RunProgram(prog)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %s: %w", name, err)
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, fmt.Errorf("failed to evaluate %s: wrapper is not a function", name)
	}

	mod := m.rt.NewObject()
	exports := m.rt.NewObject()
	_ = mod.Set("exports", exports)
	m.modules[name] = mod

	_, err = fn(goja.Undefined(),
		exports,
		m.rt.ToValue(m.requireFrom(name)),
		mod,
		m.rt.ToValue(name),
		m.rt.ToValue(path.Dir(name)),
	)
	if err != nil {
		delete(m.modules, name)
		return nil, fmt.Errorf("script %s failed: %w", name, err)
	}
	return mod.Get("exports"), nil
}

// requireFrom returns the require function seen by the script at from.
// Only relative paths inside the bundle resolve.
func (m *Module) requireFrom(from string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		spec := call.Argument(0).String()
		if !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") {
			panic(m.rt.NewGoError(fmt.Errorf("%w: %q (only relative paths inside the bundle are supported)", ErrModuleNotFound, spec)))
		}

		joined := path.Join(path.Dir(from), spec)
		if strings.HasPrefix(joined, "../") || joined == ".." {
			panic(m.rt.NewGoError(fmt.Errorf("%w: %q escapes the bundle", ErrModuleNotFound, spec)))
		}
		name := cleanName(joined)
		if _, ok := m.files[name]; !ok && path.Ext(name) != ".js" {
			name += ".js"
		}

		exports, err := m.evaluate(name)
		if err != nil {
			panic(m.rt.NewGoError(err))
		}
		return exports
	}
}

// resolveUnits turns the entry exports into component types, either from
// the manifest declarations or from every exported constructor.
func (m *Module) resolveUnits(exports goja.Value) ([]Unit, error) {
	if len(m.manifest.Components) > 0 {
		units := make([]Unit, 0, len(m.manifest.Components))
		for _, spec := range m.manifest.Components {
			ctor, err := m.lookupExport(exports, spec.Type)
			if err != nil {
				return nil, err
			}
			u, err := m.newUnit(spec.Type, ctor, spec)
			if err != nil {
				return nil, err
			}
			units = append(units, u)
		}
		return units, nil
	}

	// module.exports = class Foo {}
	if ctor, ok := asConstructor(exports); ok {
		name := ctor.Get("name").String()
		if name == "" {
			name = strings.TrimSuffix(path.Base(m.manifest.EntryPoint()), ".js")
		}
		u, err := m.newUnit(name, ctor, UnitSpec{})
		if err != nil {
			return nil, err
		}
		return []Unit{u}, nil
	}

	obj, ok := exports.(*goja.Object)
	if !ok {
		return nil, nil
	}
	keys := obj.Keys()
	slices.Sort(keys)

	var units []Unit
	for _, key := range keys {
		if !isExportedTypeName(key) {
			continue
		}
		ctor, ok := asConstructor(obj.Get(key))
		if !ok {
			continue
		}
		u, err := m.newUnit(key, ctor, UnitSpec{})
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

func (m *Module) lookupExport(exports goja.Value, name string) (*goja.Object, error) {
	var v goja.Value
	if obj, ok := exports.(*goja.Object); ok {
		v = obj.Get(name)
	}
	// A bundle exporting a single class may still name it in the manifest.
	if v == nil || goja.IsUndefined(v) {
		if ctor, ok := asConstructor(exports); ok && ctor.Get("name").String() == name {
			return ctor, nil
		}
		return nil, fmt.Errorf("%w: %q is not exported", ErrNotConstructor, name)
	}
	ctor, ok := asConstructor(v)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotConstructor, name)
	}
	return ctor, nil
}

// newUnit builds a Unit; manifest values win over static constructor
// properties (version, alias, scope).
func (m *Module) newUnit(name string, ctor *goja.Object, spec UnitSpec) (Unit, error) {
	t := &ScriptType{
		module:  m,
		name:    name,
		ctor:    ctor,
		methods: prototypeMethods(ctor),
	}

	var err error
	version := spec.Version
	if version == "" {
		if version, err = staticString(ctor, "version"); err != nil {
			return Unit{}, fmt.Errorf("component %s: %w", name, err)
		}
	}
	if version == "" {
		version = m.manifest.Version
	}

	aliases := slices.Clone(spec.Aliases)
	if len(aliases) == 0 {
		aliases = staticStrings(ctor, "alias")
	}

	rawScope := spec.Scope
	if rawScope == "" {
		if rawScope, err = staticString(ctor, "scope"); err != nil {
			return Unit{}, fmt.Errorf("component %s: %w", name, err)
		}
	}
	scope, err := component.ParseScope(rawScope)
	if err != nil {
		return Unit{}, fmt.Errorf("component %s: %w", name, err)
	}

	return Unit{
		Type:    t,
		Name:    spec.Name,
		Aliases: aliases,
		Version: version,
		Scope:   scope,
		Tags:    spec.Tags,
	}, nil
}

func asConstructor(v goja.Value) (*goja.Object, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	if _, ok := goja.AssertConstructor(obj); !ok {
		return nil, false
	}
	return obj, true
}

// isExportedTypeName reports whether an export key names a type. Exported
// helper functions conventionally start with a lower-case letter.
func isExportedTypeName(key string) bool {
	return key != "" && key[0] >= 'A' && key[0] <= 'Z'
}

// prototypeMethods collects the function-valued properties of the
// constructor's prototype chain, stopping before Object.prototype.
func prototypeMethods(ctor *goja.Object) []string {
	proto, ok := ctor.Get("prototype").(*goja.Object)
	if !ok {
		return nil
	}

	var methods []string
	for p := proto; p != nil && p.Prototype() != nil; p = p.Prototype() {
		for _, key := range p.GetOwnPropertyNames() {
			if key == "constructor" || slices.Contains(methods, key) {
				continue
			}
			if _, ok := goja.AssertFunction(p.Get(key)); ok {
				methods = append(methods, key)
			}
		}
	}
	slices.Sort(methods)
	return methods
}

// staticString reads a string property of ctor. Any other non-function
// value is an error.
func staticString(ctor *goja.Object, key string) (string, error) {
	v := ctor.Get(key)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", nil
	}
	if _, ok := goja.AssertFunction(v); ok {
		return "", nil
	}
	s, ok := v.Export().(string)
	if !ok {
		return "", fmt.Errorf("%w: static %s must be a string, got %s", ErrInvalidStatic, key, v.String())
	}
	return strings.TrimSpace(s), nil
}

func staticStrings(ctor *goja.Object, key string) []string {
	v := ctor.Get(key)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	switch exported := v.Export().(type) {
	case string:
		return []string{exported}
	case []any:
		out := make([]string, 0, len(exported))
		for _, e := range exported {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
