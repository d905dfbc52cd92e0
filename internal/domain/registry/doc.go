// Package registry indexes component descriptors and discovers bundles.
//
// Components:
//   - Factory: alias index, duplicate policy, scope-driven instantiation
//   - Scanner: finds bundle files, loads them and registers their components
//
// A Factory is populated by the built-in bootstrap and the startup scan
// before the server accepts requests; uploads add to it at runtime. Nothing
// is ever removed: a newer registration of the same (alias, version) shadows
// the older one under the lenient policy and fails under the strict one.
//
// Example Usage:
//
//	factory := registry.NewFactory(logger, registry.WithPolicy(registry.PolicyStrict))
//	scanner := registry.NewScanner(factory, loader.New(logger), registry.DefaultExtensionPolicy(), logger, nil)
//	report, err := scanner.ScanRoots(ctx, []string{"/srv/components"})
//	d, ok := factory.FindDescriptorByAlias("wordCount", component.ByLatestVersion())
//	instance, err := factory.GetOrCreate(d)
package registry
