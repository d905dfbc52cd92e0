/*
Package loader loads bundles into isolated modules.

A bundle is a zip archive holding CommonJS scripts and an optional manifest
(bundle.yaml, bundle.toml or bundle.json). Every loaded bundle gets its own
Module: a private JavaScript runtime, its own module cache and its own set of
component types. Two bundles that define a constructor with the same name, or
keep module-level state, never observe each other.

	l := loader.New(logger)
	m, err := l.Load(ctx, "/srv/components/wordcount.bundle")
	for _, u := range m.Units() {
		// u.Type implements component.Type
	}

The runtime of a module is single-threaded; every access goes through the
module's mutex.
*/
package loader
