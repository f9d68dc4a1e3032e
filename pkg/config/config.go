// Package config loads the service configuration from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the explicit configuration threaded through the service; nothing
// else reads the environment directly.
type Config struct {
	ListenAddr  string        `mapstructure:"listen_addr"`
	DatabaseURL string        `mapstructure:"database_url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	OutputDir   string        `mapstructure:"output_dir"`

	Chainalysis Provider `mapstructure:"chainalysis"`
	TRM         Provider `mapstructure:"trm"`

	// OpenAPIDocs maps a provider prefix to the path of an OpenAPI document
	// used to build the live dynamic node-definition registry.
	OpenAPIDocs map[string]string `mapstructure:"openapi_docs"`

	// CORSOrigin is the allowed frontend origin.
	CORSOrigin string `mapstructure:"cors_origin"`
}

// Provider holds one upstream provider's credentials and endpoint.
type Provider struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// Load reads configuration from CHAINFLOW_* environment variables and, when
// path is non-empty, a YAML file. File values lose to the environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("output_dir", "exports")
	v.SetDefault("cors_origin", "http://localhost:3003")

	v.SetEnvPrefix("chainflow")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// DATABASE_URL is conventionally unprefixed.
	v.BindEnv("database_url", "DATABASE_URL", "CHAINFLOW_DATABASE_URL")
	v.BindEnv("chainalysis.api_key", "CHAINALYSIS_API_KEY")
	v.BindEnv("chainalysis.base_url", "CHAINALYSIS_API_URL")
	v.BindEnv("trm.api_key", "TRM_API_KEY")
	v.BindEnv("trm.base_url", "TRM_API_URL")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
