// Package component defines the metadata model shared by every part of the
// component registry.
//
// A Descriptor is the immutable record of one loadable component type: its
// name and aliases, version, instance scope, the isolation handle of the
// module that produced it, and (for bundle-loaded types) the location of the
// originating bundle.
//
// Components:
//   - Descriptor: immutable metadata, built with NewDescriptor
//   - Type: the loaded implementation (simple name, handle, contracts, constructor)
//   - Handle: isolation namespace of a type (HostHandle for built-ins)
//   - Qualifier: filters used by lookups (ByName, ByVersion, ByTag, ...)
//   - NameGenerator: default naming policy for unnamed components
//
// Example Usage:
//
//	d, err := component.NewDescriptor(typ, component.Options{Version: "1.0"})
//	matches := component.Match(candidates, component.ByVersion("1.0"))
package component
