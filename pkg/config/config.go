package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config captures runtime settings for the generation pipeline. Provider
// tokens are passed explicitly to constructors; nothing in the core reads
// the process environment.
type Config struct {
	ReplicateToken      string `mapstructure:"replicate_token"`
	MeshyToken          string `mapstructure:"meshy_token"`
	ReplicateBaseURL    string `mapstructure:"replicate_base_url"`
	MeshyBaseURL        string `mapstructure:"meshy_base_url"`
	AllowAnonymousHosts bool   `mapstructure:"allow_anonymous_hosts"`
	APIKey              string `mapstructure:"api_key"`
	OutputDir           string `mapstructure:"output_dir"`
	RedisURL            string `mapstructure:"redis_url"`
	ListenAddr          string `mapstructure:"listen_addr"`
}

// Load reads configuration from defaults, an optional config file, and
// BABYGEN_-prefixed env vars.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath("./configs")
	v.SetEnvPrefix("BABYGEN")
	v.AutomaticEnv()

	// Registering every key is what lets AutomaticEnv feed Unmarshal.
	v.SetDefault("replicate_token", "")
	v.SetDefault("meshy_token", "")
	v.SetDefault("api_key", "")
	v.SetDefault("replicate_base_url", "https://api.replicate.com/v1")
	v.SetDefault("meshy_base_url", "https://api.meshy.ai")
	v.SetDefault("allow_anonymous_hosts", false)
	v.SetDefault("output_dir", "output")
	v.SetDefault("redis_url", "redis://localhost:6379")
	v.SetDefault("listen_addr", ":8080")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate checks that both provider tokens are present.
func (c Config) Validate() error {
	if c.ReplicateToken == "" {
		return fmt.Errorf("replicate_token is required")
	}
	if c.MeshyToken == "" {
		return fmt.Errorf("meshy_token is required")
	}
	return nil
}
