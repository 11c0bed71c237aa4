package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Bind resolves flags into out. Precedence, highest first: flags set on the
// command line, GOSEK_* environment variables, the optional config file,
// flag defaults. Environment keys replace "-" with "_", so --max-backoff is
// read from GOSEK_MAX_BACKOFF.
func Bind(flags *pflag.FlagSet, configFile string, out interface{}) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	return nil
}
