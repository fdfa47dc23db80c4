package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	BackendFile   = "file"
	BackendBadger = "badger"

	DefaultDataFile     = "employees.txt"
	DefaultBadgerDBPath = "./badger_data"
	DefaultLogLevel     = "warn"
)

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables.
type Config struct {
	DataFile       string `mapstructure:"DATA_FILE"`
	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	BadgerDBPath   string `mapstructure:"BADGERDB_PATH"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error: every field has a default.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Unmarshal only sees env vars for keys viper already knows about.
	for _, key := range []string{"DATA_FILE", "STORAGE_BACKEND", "BADGERDB_PATH", "LOG_LEVEL"} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// --- Defaults and validation ---
	if config.DataFile == "" {
		config.DataFile = DefaultDataFile
	}
	if config.StorageBackend == "" {
		config.StorageBackend = BackendFile
	}
	config.StorageBackend = strings.ToLower(config.StorageBackend)
	if config.StorageBackend != BackendFile && config.StorageBackend != BackendBadger {
		return Config{}, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendFile, BackendBadger, config.StorageBackend)
	}
	if config.BadgerDBPath == "" {
		config.BadgerDBPath = DefaultBadgerDBPath
	}
	if config.LogLevel == "" {
		config.LogLevel = DefaultLogLevel
	}
	if _, err := logrus.ParseLevel(config.LogLevel); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return config, nil
}

// Level returns the parsed log level; LoadConfig has already validated it.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.WarnLevel
	}
	return lvl
}
