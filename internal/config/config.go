// Package config loads netrecon's run configuration: flags (bound via
// pflag/cobra) override environment (NETRECON_* prefix) override a
// netrecon.yaml file override built-in defaults, using viper the way the
// teacher's own cmd/ layer wires configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds everything a scan run needs beyond the CORE's own
// contracts: the store path, log level, and the port-scan timeout that the
// port core's listener treats as its caller-supplied deadline.
type Config struct {
	Targets         []string      `mapstructure:"targets"`
	Ports           []int         `mapstructure:"ports"`
	StorePath       string        `mapstructure:"db"`
	PortScanTimeout time.Duration `mapstructure:"port-timeout"`
	LogLevel        string        `mapstructure:"log-level"`
}

// Default returns the built-in defaults, before flags/env/file overrides
// are layered on.
func Default() Config {
	return Config{
		StorePath:       "netrecon.db",
		PortScanTimeout: 5 * time.Second,
		LogLevel:        "info",
	}
}

// Load binds flags, then NETRECON_*-prefixed environment variables, then an
// optional netrecon.yaml in the working directory, over the built-in
// defaults, and returns the merged Config.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("db", def.StorePath)
	v.SetDefault("port-timeout", def.PortScanTimeout)
	v.SetDefault("log-level", def.LogLevel)

	v.SetEnvPrefix("NETRECON")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("netrecon")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("config: read netrecon.yaml: %w", err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
