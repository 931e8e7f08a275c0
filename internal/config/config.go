package config

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/tcfw/blockmesh/pkg/peering"
)

const (
	Cfg_verbose          = "verbose"
	Cfg_stateDir         = "state_dir"
	Cfg_storageHighWater = "registry.storage_high_water"
)

var (
	defaults = map[string]interface{}{
		Cfg_verbose:          false,
		Cfg_stateDir:         "./blockmesh.db",
		Cfg_storageHighWater: peering.DefaultStorageHighWater,
	}
)

func init() {
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}

func GetConfig() (*Config, error) {
	viper.SetConfigType("yaml")
	viper.SetConfigName("blockmesh")
	viper.AddConfigPath("/etc/blockmesh/")
	viper.AddConfigPath("$HOME/.blockmesh")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("BLOCKMESH")
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error
		} else {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	c := &Config{
		StateDir:         viper.GetString(Cfg_stateDir),
		StorageHighWater: viper.GetInt64(Cfg_storageHighWater),
	}

	if viper.GetBool(Cfg_verbose) {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.WithField("level", "debug").Debug("setting log level")
	}

	return c, nil
}

type Config struct {
	StateDir         string
	StorageHighWater int64
}
