package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Properties resolves dotted keys such as "rest.extensions.management.components.path".
// The environment wins over file values: the key is upper-cased with dots
// and dashes turned into underscores.
type Properties struct {
	v *viper.Viper
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// NewProperties creates properties backed by values and the process environment.
func NewProperties(values map[string]string) *Properties {
	v := newViper()
	// Defaults rank below the environment.
	for key, value := range values {
		v.SetDefault(key, value)
	}
	return &Properties{v: v}
}

// LoadProperties reads a YAML properties file. An empty path yields
// environment-only properties.
func LoadProperties(path string) (*Properties, error) {
	if path == "" {
		return NewProperties(nil), nil
	}

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read properties file %s: %w", path, err)
	}
	return &Properties{v: v}, nil
}

// Lookup returns the value of key. Lists are joined with commas.
func (p *Properties) Lookup(key string) (string, bool) {
	if !p.v.IsSet(key) {
		return "", false
	}
	if list, ok := p.v.Get(key).([]any); ok {
		return strings.Join(cast.ToStringSlice(list), ","), true
	}
	return p.v.GetString(key), true
}

// Get returns the value of key or def.
func (p *Properties) Get(key, def string) string {
	if v, ok := p.Lookup(key); ok {
		return v
	}
	return def
}

// GetBool returns the boolean value of key, or def when it is absent or
// not a boolean.
func (p *Properties) GetBool(key string, def bool) bool {
	if !p.v.IsSet(key) {
		return def
	}
	b, err := cast.ToBoolE(p.v.Get(key))
	if err != nil {
		return def
	}
	return b
}
