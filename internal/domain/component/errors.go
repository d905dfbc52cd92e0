package component

import (
	"errors"
	"fmt"
)

var (
	// ErrLoad classifies every bundle loading failure.
	ErrLoad = errors.New("bundle load failed")
	// ErrNoLoadableUnit is returned when a bundle exports no component type.
	ErrNoLoadableUnit = errors.New("bundle defines no loadable component")
	// ErrDuplicateComponent classifies strict-policy registration conflicts.
	ErrDuplicateComponent = errors.New("duplicate component")
	// ErrInstantiation classifies constructor failures.
	ErrInstantiation = errors.New("component instantiation failed")
)

// LoadError reports a bundle that could not be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load bundle %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}

// NewLoadError wraps err for the bundle at path.
func NewLoadError(path string, err error) *LoadError {
	return &LoadError{Path: path, Err: err}
}

// DuplicateComponentError is returned by a strict registry when the
// (alias, version) pair is already registered.
type DuplicateComponentError struct {
	Alias   string
	Version string
}

func (e *DuplicateComponentError) Error() string {
	return fmt.Sprintf("component already registered for alias '%s', version '%s'", e.Alias, e.Version)
}

func (e *DuplicateComponentError) Unwrap() error {
	return ErrDuplicateComponent
}

// InstantiationError is returned when a component constructor fails. The
// descriptor stays usable; a later attempt may succeed.
type InstantiationError struct {
	Name    string
	Version string
	Err     error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to create component '%s' (version '%s'): %v", e.Name, e.Version, e.Err)
}

func (e *InstantiationError) Unwrap() []error {
	return []error{ErrInstantiation, e.Err}
}
