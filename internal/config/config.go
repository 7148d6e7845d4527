// Package config is the generic viper-backed loader config/loader.go builds
// janode.Configuration on top of: scope env var binding to an explicit
// prefix (JANODE_ for this module's own loader) instead of the global,
// unscoped AutomaticEnv a process running several independently-configured
// services in one binary would need.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// NewViper returns a viper instance whose env var binding is scoped to
// envPrefix, with "." in config keys mapped to "_" so nested fields like
// ws_options.ping_wait_secs line up with a flat env var
// (envPrefix + "_WS_OPTIONS_PING_WAIT_SECS").
func NewViper(envPrefix string) *viper.Viper {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	return v
}

// Load builds a viper instance scoped to envPrefix, lets configure set
// defaults and bind an optional config file, then unmarshals the result
// into c.
func Load[T any](c *T, envPrefix string, configure func(v *viper.Viper)) (*T, error) {
	v := NewViper(envPrefix)

	configure(v)
	return c, v.Unmarshal(c)
}
