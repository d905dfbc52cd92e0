package loader

import "errors"

var (
	// ErrLoadInProgress is returned when the same path is already being loaded.
	ErrLoadInProgress = errors.New("bundle is already being loaded")
	// ErrNotBundle is returned for files that are not zip archives.
	ErrNotBundle = errors.New("not a bundle archive")
	// ErrEntryPointMissing is returned when the entry script is absent.
	ErrEntryPointMissing = errors.New("entry point not found in bundle")
	// ErrInvalidManifest is returned for manifests that cannot be decoded.
	ErrInvalidManifest = errors.New("invalid bundle manifest")
	// ErrNotConstructor is returned when a declared component type is not a constructor.
	ErrNotConstructor = errors.New("export is not a constructor")
	// ErrInvalidStatic is returned when a static constructor property has the wrong type.
	ErrInvalidStatic = errors.New("invalid static property")
	// ErrEntryTooLarge is returned when a bundle entry inflates past the entry limit.
	ErrEntryTooLarge = errors.New("bundle entry too large")
	// ErrModuleNotFound is thrown inside scripts requiring an unknown file.
	ErrModuleNotFound = errors.New("module not found")
)
