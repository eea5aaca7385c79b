// Package config registers the configuration fields and loads them through viper.
package config

import (
	"errors"
	"strings"

	"github.com/njyeung/kplay/constant"
	"github.com/njyeung/kplay/filesystem"
	"github.com/njyeung/kplay/where"
	"github.com/spf13/viper"
)

// EnvKeyReplacer maps config keys to environment variable names
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup registers defaults and env bindings, then reads kplay.toml from the
// config directory if there is one.
func Setup() error {
	viper.SetConfigName(constant.App)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.App)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	return nil
}
