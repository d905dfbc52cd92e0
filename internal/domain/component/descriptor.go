package component

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Scope governs instance sharing when a component is instantiated.
type Scope string

const (
	// ScopeApplication shares one instance for the process lifetime.
	ScopeApplication Scope = "application"
	// ScopeEnvironment shares one instance per descriptor, like application.
	ScopeEnvironment Scope = "environment"
	// ScopeInstance creates a fresh instance on every request.
	ScopeInstance Scope = "instance"
)

// ParseScope converts a manifest or constructor value into a Scope. An empty
// string yields ScopeApplication.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ScopeApplication):
		return ScopeApplication, nil
	case string(ScopeEnvironment):
		return ScopeEnvironment, nil
	case string(ScopeInstance), "prototype", "streams":
		return ScopeInstance, nil
	default:
		return "", fmt.Errorf("unknown scope: %q", s)
	}
}

// Shared reports whether instances of this scope are cached.
func (s Scope) Shared() bool {
	return s != ScopeInstance
}

// Handle identifies the isolated namespace a type was loaded into.
type Handle interface {
	ID() string
}

// Locator is implemented by handles of externally loaded bundles.
type Locator interface {
	Handle
	Location() string
}

type hostHandle struct{}

func (hostHandle) ID() string { return "host" }

// HostHandle is the handle of components compiled into the host binary.
var HostHandle Handle = hostHandle{}

// IsExternal reports whether h was produced by loading an external bundle.
func IsExternal(h Handle) bool {
	_, ok := h.(Locator)
	return ok
}

// Contract names a set of methods a component type must expose.
type Contract struct {
	Name    string
	Methods []string
}

// Type is a loaded component implementation.
type Type interface {
	// SimpleName is the type's own identifier, e.g. "WordCountTopology".
	SimpleName() string
	// Handle is the namespace that owns the type.
	Handle() Handle
	// Satisfies reports whether the type conforms to c.
	Satisfies(c Contract) bool
	// New constructs a new instance.
	New() (any, error)
}

// Options configure a new Descriptor.
type Options struct {
	Name     string
	Aliases  []string
	Version  string
	Scope    Scope
	Tags     map[string]string
	Origin   string
	Checksum string
}

// Descriptor is the immutable metadata of one component type.
type Descriptor struct {
	typ      Type
	name     string
	aliases  []string
	version  string
	scope    Scope
	tags     map[string]string
	origin   string
	checksum string
}

// NewDescriptor builds a descriptor for t. When o.Name is empty the name is
// derived with DefaultNameGenerator. An origin is only accepted for types
// whose handle is external.
func NewDescriptor(t Type, o Options) (*Descriptor, error) {
	return NewDescriptorWithGenerator(t, o, DefaultNameGenerator)
}

// NewDescriptorWithGenerator is NewDescriptor with a custom naming policy.
func NewDescriptorWithGenerator(t Type, o Options, gen NameGenerator) (*Descriptor, error) {
	if t == nil {
		return nil, fmt.Errorf("component type cannot be nil")
	}
	if t.Handle() == nil {
		return nil, fmt.Errorf("component type %s has no handle", t.SimpleName())
	}
	if o.Origin != "" && !IsExternal(t.Handle()) {
		return nil, fmt.Errorf("component type %s is not externally loaded but has origin %s", t.SimpleName(), o.Origin)
	}

	name := strings.TrimSpace(o.Name)
	if name == "" {
		if gen == nil {
			gen = DefaultNameGenerator
		}
		name = gen.Generate(t)
	}
	if name == "" {
		return nil, fmt.Errorf("cannot derive a name for component type %q", t.SimpleName())
	}

	scope := o.Scope
	if scope == "" {
		scope = ScopeApplication
	}

	aliases := []string{name}
	for _, a := range o.Aliases {
		a = strings.TrimSpace(a)
		if a != "" && !slices.Contains(aliases, a) {
			aliases = append(aliases, a)
		}
	}

	return &Descriptor{
		typ:      t,
		name:     name,
		aliases:  aliases,
		version:  strings.TrimSpace(o.Version),
		scope:    scope,
		tags:     maps.Clone(o.Tags),
		origin:   o.Origin,
		checksum: o.Checksum,
	}, nil
}

// Type is the component type the descriptor instantiates.
func (d *Descriptor) Type() Type { return d.typ }

// Name is the canonical name, also the first alias.
func (d *Descriptor) Name() string { return d.name }

// Version is the declared version, possibly empty.
func (d *Descriptor) Version() string { return d.version }

// Scope controls whether instances are shared.
func (d *Descriptor) Scope() Scope { return d.scope }

// Handle identifies the module that owns the type.
func (d *Descriptor) Handle() Handle { return d.typ.Handle() }

// Origin is the bundle location, empty for built-in components.
func (d *Descriptor) Origin() string { return d.origin }

// Checksum is the hex BLAKE2b-256 digest of the originating bundle.
func (d *Descriptor) Checksum() string { return d.checksum }

// Aliases returns every lookup key of the descriptor, name first.
func (d *Descriptor) Aliases() []string { return slices.Clone(d.aliases) }

// Tags returns a copy of the descriptor tags.
func (d *Descriptor) Tags() map[string]string { return maps.Clone(d.tags) }

// Tag returns a single tag value.
func (d *Descriptor) Tag(key string) (string, bool) {
	v, ok := d.tags[key]
	return v, ok
}

// HasAlias reports whether alias is the name or one of the aliases.
func (d *Descriptor) HasAlias(alias string) bool {
	return slices.Contains(d.aliases, alias)
}

// External reports whether the descriptor came from an uploaded or scanned bundle.
func (d *Descriptor) External() bool {
	return d.origin != "" && IsExternal(d.Handle())
}

// Equal compares descriptors by name, version and handle.
func (d *Descriptor) Equal(o *Descriptor) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.name == o.name && d.version == o.version && d.Handle().ID() == o.Handle().ID()
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s@%s[%s]", d.name, d.version, d.Handle().ID())
}
