package loader

import (
	"fmt"
	"path"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// DefaultEntryPoint is evaluated when the manifest does not name one.
const DefaultEntryPoint = "index.js"

// Manifest describes a bundle.
type Manifest struct {
	Name       string     `json:"name" yaml:"name" toml:"name"`
	Version    string     `json:"version" yaml:"version" toml:"version"`
	Main       string     `json:"main" yaml:"main" toml:"main"`
	Components []UnitSpec `json:"components" yaml:"components" toml:"components"`
}

// UnitSpec declares one component type exported by the entry script.
type UnitSpec struct {
	// Type is the export name of the constructor.
	Type    string            `json:"type" yaml:"type" toml:"type"`
	Name    string            `json:"name" yaml:"name" toml:"name"`
	Aliases []string          `json:"aliases" yaml:"aliases" toml:"aliases"`
	Version string            `json:"version" yaml:"version" toml:"version"`
	Scope   string            `json:"scope" yaml:"scope" toml:"scope"`
	Tags    map[string]string `json:"tags" yaml:"tags" toml:"tags"`
}

// EntryPoint returns the normalized entry script path.
func (m *Manifest) EntryPoint() string {
	if m == nil || strings.TrimSpace(m.Main) == "" {
		return DefaultEntryPoint
	}
	return cleanName(m.Main)
}

type manifestDecoder func(data []byte, v any) error

var manifestFiles = []struct {
	name   string
	decode manifestDecoder
}{
	{"bundle.yaml", decodeYAML},
	{"bundle.yml", decodeYAML},
	{"bundle.toml", toml.Unmarshal},
	{"bundle.json", sonic.Unmarshal},
}

// yamlVersions mirrors the version fields of a Manifest without coercion.
type yamlVersions struct {
	Version    any `yaml:"version"`
	Components []struct {
		Version any `yaml:"version"`
	} `yaml:"components"`
}

// decodeYAML rejects unquoted numeric versions. YAML reads 2.10 as the float
// 2.1, which would collide with a real 2.1.
func decodeYAML(data []byte, v any) error {
	var raw yamlVersions
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := checkVersionScalar("version", raw.Version); err != nil {
		return err
	}
	for i, c := range raw.Components {
		if err := checkVersionScalar(fmt.Sprintf("components[%d].version", i), c.Version); err != nil {
			return err
		}
	}
	return yaml.Unmarshal(data, v)
}

func checkVersionScalar(field string, v any) error {
	switch v.(type) {
	case nil, string:
		return nil
	default:
		return fmt.Errorf("%s must be a quoted string, got %v", field, v)
	}
}

// parseManifest decodes the first manifest found in files. A bundle without
// a manifest yields an empty one.
func parseManifest(files map[string][]byte) (*Manifest, error) {
	for _, mf := range manifestFiles {
		data, ok := files[mf.name]
		if !ok {
			continue
		}
		var m Manifest
		if err := mf.decode(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, mf.name, err)
		}
		for i, c := range m.Components {
			if strings.TrimSpace(c.Type) == "" {
				return nil, fmt.Errorf("%w: %s: component #%d has no type", ErrInvalidManifest, mf.name, i)
			}
		}
		return &m, nil
	}
	return &Manifest{}, nil
}

// cleanName normalizes an archive or require path to a slash path relative
// to the bundle root.
func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}
