package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all terminal configuration.
type Config struct {
	Environment string        `mapstructure:"environment"`
	Backend     BackendConfig `mapstructure:"backend"`
	Sync        SyncConfig    `mapstructure:"sync"`
	Polling     PollingConfig `mapstructure:"polling"`
	Device      DeviceConfig  `mapstructure:"device"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// BackendConfig points at the shared backend.
type BackendConfig struct {
	RestURL        string        `mapstructure:"rest_url"`
	SocketURL      string        `mapstructure:"socket_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SyncConfig tunes the real-time client.
type SyncConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	MaxRetries        int           `mapstructure:"max_retries"`
	BackoffMin        time.Duration `mapstructure:"backoff_min"`
	BackoffMax        time.Duration `mapstructure:"backoff_max"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
}

// PollingConfig tunes the REST fallback poll.
type PollingConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Limit    int           `mapstructure:"limit"`
}

// DeviceConfig locates the persisted device identity.
type DeviceConfig struct {
	IDFile string `mapstructure:"id_file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AddConfigPath(path)
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine; ENV vars and defaults carry the rest.
	}

	v.SetEnvPrefix("COUNTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for configuration. The sync values are
// the platform's reference behavior.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("backend.rest_url", "http://localhost:3000/api")
	v.SetDefault("backend.socket_url", "ws://localhost:3000/socket")
	v.SetDefault("backend.request_timeout", "10s")

	v.SetDefault("sync.heartbeat_interval", "15s")
	v.SetDefault("sync.max_retries", 10)
	v.SetDefault("sync.backoff_min", "1s")
	v.SetDefault("sync.backoff_max", "5s")
	v.SetDefault("sync.connect_timeout", "20s")

	v.SetDefault("polling.interval", "30s")
	v.SetDefault("polling.limit", 50)

	v.SetDefault("device.id_file", "device.json")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
