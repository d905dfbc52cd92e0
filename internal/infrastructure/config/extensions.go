package config

// ExtensionPrefix prefixes every REST extension property.
const ExtensionPrefix = "rest.extensions.management."

// Extension identifiers.
const (
	ExtensionComponents      = "components"
	ExtensionTopologyBundles = "topologies.bundles"
	ExtensionPathProperty    = "path"
	DefaultComponentsPath    = "/tmp/bundlehost/components/"
	extensionEnableProperty  = "enable"
)

// Extensions answers which optional REST extensions are enabled.
type Extensions struct {
	props *Properties
}

// NewExtensions creates an extension view over props.
func NewExtensions(props *Properties) *Extensions {
	if props == nil {
		props = NewProperties(nil)
	}
	return &Extensions{props: props}
}

// IsExtensionEnabled reports whether ext is enabled; extensions are enabled
// unless configured otherwise.
func (e *Extensions) IsExtensionEnabled(ext string) bool {
	return e.props.GetBool(ExtensionPrefix+ext+"."+extensionEnableProperty, true)
}

// ExtensionProperty returns an extension-specific property.
func (e *Extensions) ExtensionProperty(ext, prop string) (string, bool) {
	return e.props.Lookup(ExtensionPrefix + ext + "." + prop)
}

// ComponentsPath is the directory receiving uploaded bundles.
func (e *Extensions) ComponentsPath() string {
	if v, ok := e.ExtensionProperty(ExtensionComponents, ExtensionPathProperty); ok && v != "" {
		return v
	}
	return DefaultComponentsPath
}
