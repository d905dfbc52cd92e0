package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/GriffinCanCode/bundlehost/internal/domain/component"
	"github.com/GriffinCanCode/bundlehost/internal/infrastructure/monitoring"
)

// ErrComponentNotFound is returned when no descriptor matches a lookup.
var ErrComponentNotFound = errors.New("component not found")

// Policy decides what happens when an (alias, version) pair is registered twice.
type Policy string

const (
	// PolicyLenient lets the newest registration shadow the older one.
	PolicyLenient Policy = "lenient"
	// PolicyStrict rejects the second registration.
	PolicyStrict Policy = "strict"
)

// ParsePolicy parses a policy name; empty means lenient.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyLenient:
		return PolicyLenient, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy: %q", s)
	}
}

// index is an immutable snapshot of the registry contents.
type index struct {
	byAlias map[string][]*component.Descriptor
	all     []*component.Descriptor
}

var emptyIndex = &index{byAlias: map[string][]*component.Descriptor{}}

// Factory is the process-wide component registry: it indexes descriptors by
// alias and creates instances according to their scope.
//
// Lookups read an immutable snapshot and never block. Registrations are
// serialized and publish a new snapshot atomically.
type Factory struct {
	logger  *zap.Logger
	policy  Policy
	names   component.NameGenerator
	metrics *monitoring.Metrics

	mu       sync.Mutex
	snapshot atomic.Pointer[index]

	instances sync.Map // *component.Descriptor -> instance
	creating  singleflight.Group
}

// Option configures a Factory.
type Option func(*Factory)

// WithPolicy sets the duplicate registration policy.
func WithPolicy(p Policy) Option {
	return func(f *Factory) { f.policy = p }
}

// WithNameGenerator sets the naming policy for descriptors created by the factory.
func WithNameGenerator(g component.NameGenerator) Option {
	return func(f *Factory) {
		if g != nil {
			f.names = g
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(f *Factory) { f.metrics = m }
}

// NewFactory creates an empty registry.
func NewFactory(logger *zap.Logger, opts ...Option) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Factory{
		logger: logger,
		policy: PolicyLenient,
		names:  component.DefaultNameGenerator,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.snapshot.Store(emptyIndex)
	return f
}

// Policy returns the duplicate registration policy.
func (f *Factory) Policy() Policy { return f.policy }

// NewDescriptor builds a descriptor using the factory's name generator.
func (f *Factory) NewDescriptor(t component.Type, o component.Options) (*component.Descriptor, error) {
	return component.NewDescriptorWithGenerator(t, o, f.names)
}

// Register adds d under each of its aliases.
func (f *Factory) Register(d *component.Descriptor) error {
	if d == nil {
		return fmt.Errorf("descriptor cannot be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	old := f.snapshot.Load()
	aliases := d.Aliases()

	var shadowed []*component.Descriptor
	for _, alias := range aliases {
		for _, existing := range old.byAlias[alias] {
			if existing.Version() != d.Version() {
				continue
			}
			if f.policy == PolicyStrict {
				return &component.DuplicateComponentError{Alias: alias, Version: d.Version()}
			}
			if !slices.Contains(shadowed, existing) {
				shadowed = append(shadowed, existing)
			}
		}
	}

	next := &index{byAlias: make(map[string][]*component.Descriptor, len(old.byAlias)+len(aliases))}
	for alias, list := range old.byAlias {
		next.byAlias[alias] = list
	}
	for _, alias := range aliases {
		list := slices.DeleteFunc(slices.Clone(old.byAlias[alias]), func(e *component.Descriptor) bool {
			return e.Version() == d.Version()
		})
		next.byAlias[alias] = append(list, d)
	}

	next.all = make([]*component.Descriptor, 0, len(old.all)+1)
	for _, e := range old.all {
		if e == d {
			continue
		}
		if !slices.Contains(shadowed, e) || stillIndexed(next, e) {
			next.all = append(next.all, e)
		}
	}
	next.all = append(next.all, d)

	f.snapshot.Store(next)

	for _, s := range shadowed {
		f.logger.Warn("Component shadowed by newer registration",
			zap.String("component", s.String()),
			zap.String("by", d.String()),
			zap.String("origin", d.Origin()))
	}
	f.logger.Debug("Registered component",
		zap.String("name", d.Name()),
		zap.Strings("aliases", aliases),
		zap.String("version", d.Version()),
		zap.String("scope", string(d.Scope())),
		zap.String("handle", d.Handle().ID()))
	f.metrics.SetComponents(len(next.all))
	return nil
}

func stillIndexed(idx *index, d *component.Descriptor) bool {
	for _, alias := range d.Aliases() {
		if slices.Contains(idx.byAlias[alias], d) {
			return true
		}
	}
	return false
}

// FindAllDescriptorsByAlias returns every descriptor registered under alias
// that matches the qualifiers, in registration order.
func (f *Factory) FindAllDescriptorsByAlias(alias string, qualifiers ...component.Qualifier) []*component.Descriptor {
	return component.Match(f.snapshot.Load().byAlias[alias], qualifiers...)
}

// FindDescriptorByAlias returns the most recently registered descriptor for
// alias that matches the qualifiers.
func (f *Factory) FindDescriptorByAlias(alias string, qualifiers ...component.Qualifier) (*component.Descriptor, bool) {
	matches := f.FindAllDescriptorsByAlias(alias, qualifiers...)
	if len(matches) == 0 {
		return nil, false
	}
	return matches[len(matches)-1], true
}

// Descriptors returns every reachable descriptor in registration order.
func (f *Factory) Descriptors() []*component.Descriptor {
	return slices.Clone(f.snapshot.Load().all)
}

// Size returns the number of reachable descriptors.
func (f *Factory) Size() int {
	return len(f.snapshot.Load().all)
}

// GetOrCreate returns an instance of d. Shared scopes construct at most once
// per descriptor; a failed construction is not cached.
func (f *Factory) GetOrCreate(d *component.Descriptor) (any, error) {
	if d == nil {
		return nil, fmt.Errorf("descriptor cannot be nil")
	}
	if !d.Scope().Shared() {
		return f.construct(d)
	}

	if v, ok := f.instances.Load(d); ok {
		return v, nil
	}

	v, err, _ := f.creating.Do(fmt.Sprintf("%p", d), func() (any, error) {
		if v, ok := f.instances.Load(d); ok {
			return v, nil
		}
		obj, err := f.construct(d)
		if err != nil {
			return nil, err
		}
		f.instances.Store(d, obj)
		return obj, nil
	})
	return v, err
}

// GetComponent finds a descriptor and returns an instance of it.
func (f *Factory) GetComponent(alias string, qualifiers ...component.Qualifier) (any, error) {
	d, ok := f.FindDescriptorByAlias(alias, qualifiers...)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, alias)
	}
	return f.GetOrCreate(d)
}

func (f *Factory) construct(d *component.Descriptor) (obj any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("constructor panicked: %v", r)
		}
		if err != nil {
			f.metrics.RecordInstantiation(string(d.Scope()), monitoring.StatusFailure)
			f.logger.Warn("Component instantiation failed",
				zap.String("component", d.String()),
				zap.Error(err))
			err = &component.InstantiationError{Name: d.Name(), Version: d.Version(), Err: err}
			obj = nil
			return
		}
		f.metrics.RecordInstantiation(string(d.Scope()), monitoring.StatusSuccess)
	}()

	return d.Type().New()
}
