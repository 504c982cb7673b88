package config

import "time"

// Config holds all kanalyze configuration. It is decoded from the config
// file by Load and validated with go-playground/validator tags before
// Load returns.
type Config struct {
	Source SourceConfig `mapstructure:"source" yaml:"source" validate:"required"`
	Server ServerConfig `mapstructure:"server" yaml:"server" validate:"required"`
	Cache  CacheConfig  `mapstructure:"cache" yaml:"cache" validate:"required"`
}

// SourceConfig describes the source tree kanalyze analyzes.
type SourceConfig struct {
	Root       string   `mapstructure:"root" yaml:"root" validate:"required"`
	Workers    int      `mapstructure:"workers" yaml:"workers" validate:"required,gt=0"`
	Extensions []string `mapstructure:"extensions" yaml:"extensions,omitempty" validate:"omitempty,dive,required"`
}

// ServerConfig configures the request/response server.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen" yaml:"listen" validate:"required"`
	TickInterval time.Duration `mapstructure:"tick_interval" yaml:"tick_interval" validate:"omitempty,gt=0"`
}

// CacheConfig configures the badger-backed extraction result cache.
type CacheConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir" validate:"required"`
}
