package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MrEthical07/authsession"
)

const envPrefix = "AUTHSESSION"

// envKeys are the settings that may be overridden from the environment, for
// example AUTHSESSION_API_BASEURL.
var envKeys = []string{
	"api.baseURL",
	"api.timeout",
	"storage.backend",
	"storage.sqlitePath",
	"storage.redisAddr",
	"storage.redisPassword",
	"refresh.proactive",
	"log.level",
	"log.format",
}

// loadConfig layers defaults, the config file, the environment and bound
// flags, in that order of precedence from lowest to highest.
func loadConfig(path string, flags *pflag.FlagSet) (authsession.Config, error) {
	v := viper.New()
	v.SetDefault("storage.backend", authsession.StorageSQLite)
	v.SetDefault("storage.sqlitePath", defaultSessionPath())
	v.SetDefault("log.format", "console")
	v.SetDefault("log.level", "warn")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "authsession"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("authsession")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return authsession.Config{}, err
		}
	}

	if flags != nil {
		if f := flags.Lookup("base-url"); f != nil {
			if err := v.BindPFlag("api.baseURL", f); err != nil {
				return authsession.Config{}, err
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return authsession.Config{}, err
		}
	}

	cfg := authsession.DefaultConfig()
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return authsession.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return authsession.Config{}, err
	}
	return cfg, nil
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "authsession.db"
	}
	return filepath.Join(dir, "authsession", "session.db")
}
