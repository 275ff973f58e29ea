package config

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Timeplus TimeplusConfig `mapstructure:"timeplus"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Stats    StatsConfig    `mapstructure:"stats"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port            string `mapstructure:"port"`
	AllowedOrigins  string `mapstructure:"allowedOrigins"`
	ShutdownTimeout int    `mapstructure:"shutdownTimeout"`
}

// TimeplusConfig holds the Timeplus connection configuration
type TimeplusConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	Username  string `mapstructure:"username"`
	Workspace string `mapstructure:"workspace"`
}

// RelayConfig holds the notification relay configuration
type RelayConfig struct {
	// WindowSeconds is how far back a pending alert still counts as "new"
	WindowSeconds int `mapstructure:"windowSeconds"`
	// Sound is the audio cue hint sent with each toast
	Sound string `mapstructure:"sound"`
}

// StatsConfig holds the analytics snapshot configuration
type StatsConfig struct {
	// Schedule is a cron spec for recomputing the dashboard stats snapshot
	Schedule string `mapstructure:"schedule"`
}

// LoadConfig loads the application configuration from file or environment variables
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	// Set default values
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.allowedOrigins", "*")
	viper.SetDefault("server.shutdownTimeout", 10)
	viper.SetDefault("relay.windowSeconds", 60)
	viper.SetDefault("relay.sound", "sos-chime")
	viper.SetDefault("stats.schedule", "@every 1m")

	// Allow environment variables to override config file
	viper.SetEnvPrefix("WISECARE")
	viper.AutomaticEnv()

	// If config file is provided, read it
	if configPath != "" {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			logrus.Warnf("Error reading config file: %v", err)
		}
	}

	// Unmarshal config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
