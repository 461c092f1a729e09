package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type SweeperConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type InvitationConfig struct {
	// ValidityHours is the fallback window applied at approval when the
	// plan row carries no validity of its own.
	ValidityHours int `mapstructure:"validity_hours"`
}

type Config struct {
	DatabaseURL string           `mapstructure:"database_url"`
	ServerPort  string           `mapstructure:"server_port"`
	JWTSecret   string           `mapstructure:"jwt_secret"`
	CORSOrigins []string         `mapstructure:"cors_origins"`
	Sweeper     SweeperConfig    `mapstructure:"sweeper"`
	Invitation  InvitationConfig `mapstructure:"invitation"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}
	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}
	if config.Sweeper.Interval <= 0 {
		config.Sweeper.Interval = time.Minute
	}
	if config.Invitation.ValidityHours <= 0 {
		config.Invitation.ValidityHours = 360
	}
	if len(config.CORSOrigins) == 0 {
		config.CORSOrigins = []string{"http://localhost:3000"}
	}

	return &config
}
