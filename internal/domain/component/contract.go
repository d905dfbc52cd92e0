package component

import "slices"

// TopologyProvider is the contract of components whose bundle may be
// downloaded: they must expose a topology() method.
var TopologyProvider = Contract{
	Name:    "TopologyProvider",
	Methods: []string{"topology"},
}

// Missing returns the methods of c not found in methods.
func (c Contract) Missing(methods []string) []string {
	var missing []string
	for _, m := range c.Methods {
		if !slices.Contains(methods, m) {
			missing = append(missing, m)
		}
	}
	return missing
}
