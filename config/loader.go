// Package config loads a janode.Configuration from file and/or environment,
// for callers who don't want to build one by hand in code. Built on the
// generic viper-backed internal/config.Load[T] helper, scoped to the
// JANODE_ env var prefix.
package config

import (
	"github.com/spf13/viper"

	janode "github.com/meetecho/janode-sub000"
	internalconfig "github.com/meetecho/janode-sub000/internal/config"
)

const envPrefix = "JANODE"

// Load reads a janode.Configuration from configFile (if non-empty) merged
// with JANODE_-prefixed environment variables, applying the library's own
// defaults for anything left unset. It does not validate — validation
// happens inside janode.Connect so callers get one consistent error kind.
func Load(configFile string) (janode.Configuration, error) {
	var cfg janode.Configuration
	var readErr error
	_, err := internalconfig.Load(&cfg, envPrefix, func(v *viper.Viper) {
		setDefaults(v)
		if configFile != "" {
			v.SetConfigFile(configFile)
			readErr = v.ReadInConfig()
		}
	})
	if readErr != nil {
		return janode.Configuration{}, readErr
	}
	if err != nil {
		return janode.Configuration{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("retry_time_secs", 10)
	v.SetDefault("max_retries", 5)
	v.SetDefault("ka_interval_secs", 30)
	v.SetDefault("is_admin", false)
	v.SetDefault("ws_options.ping_interval_secs", 10)
	v.SetDefault("ws_options.ping_wait_secs", 5)
}
