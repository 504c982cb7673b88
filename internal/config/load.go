package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Load reads path (YAML, or a flat key: value file) into a Config and
// validates it. Unset optional fields get the defaults set below before
// validation runs.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("server.listen", "127.0.0.1::3141")
	v.SetDefault("server.tick_interval", 30*time.Second)
	v.SetDefault("source.workers", 4)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: %s failed validation: %w", path, err)
	}

	return &cfg, nil
}

// Source wraps the loaded file for callers that only want GetString.
type Source struct {
	v *viper.Viper
}

// LoadSource is like Load, but returns a Source exposing only GetString,
// for the callers that want the distilled spec's minimal config contract
// instead of the typed struct.
func LoadSource(path string) (*Source, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return &Source{v: v}, nil
}

// GetString returns the string value at key, or "" if the key is absent.
func (s *Source) GetString(key string) string {
	return s.v.GetString(key)
}

// Example renders a starter config file with placeholder values and the
// same defaults Load applies, so `kanalyze config init` can hand an
// operator something that loads as-is. It's built with yaml.v3 directly
// rather than Load's viper round trip, since there's no file on disk yet
// to read from.
func Example() ([]byte, error) {
	cfg := Config{
		Source: SourceConfig{
			Root:    "./src",
			Workers: 4,
		},
		Server: ServerConfig{
			Listen:       "127.0.0.1::3141",
			TickInterval: 30 * time.Second,
		},
		Cache: CacheConfig{
			Dir: "./kanalyze-cache",
		},
	}
	return yaml.Marshal(cfg)
}
