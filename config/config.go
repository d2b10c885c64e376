// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package config loads the per-service credentials and URLs the backend
// clients need. Configuration comes from the SAILOR_CONFIG_JSON environment
// variable (a JSON blob, convenient in hosted notebooks), or from a YAML
// file named by SAILOR_CONFIG_PATH, or from ./config.yml.
package config

import (
	"bytes"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Service names as they appear in the configuration.
const (
	ServiceAssetCentral = "asset_central"
	ServiceIoT          = "sap_iot"
	ServicePAI          = "predictive_asset_insights"
	ServiceDMC          = "dmc"
)

// EnvConfigJSON and EnvConfigPath are the environment variables consulted by
// Load, in that order.
const (
	EnvConfigJSON = "SAILOR_CONFIG_JSON"
	EnvConfigPath = "SAILOR_CONFIG_PATH"
)

// ServiceConfig holds the connection settings for one backend service.
type ServiceConfig struct {
	ClientID              string `mapstructure:"client_id"`
	ClientSecret          string `mapstructure:"client_secret"`
	AccessTokenURL        string `mapstructure:"access_token_url"`
	Subdomain             string `mapstructure:"subdomain"`
	ApplicationURL        string `mapstructure:"application_url"`
	DeviceConnectivityURL string `mapstructure:"device_connectivity_url"`
}

func (c *ServiceConfig) validate(name string) error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.AccessTokenURL == "" {
		missing = append(missing, "access_token_url")
	}
	if c.Subdomain == "" {
		missing = append(missing, "subdomain")
	}
	if len(missing) > 0 {
		return errors.Errorf("service %q is missing configuration keys: %s",
			name, strings.Join(missing, ", "))
	}
	return nil
}

// Config is the loaded configuration for all services.
type Config struct {
	services map[string]*ServiceConfig
}

// Service returns the configuration for one service by name.
func (c *Config) Service(name string) (*ServiceConfig, error) {
	sc, ok := c.services[name]
	if !ok || sc == nil {
		return nil, errors.Errorf("you have not configured credentials for %q", name)
	}
	if err := sc.validate(name); err != nil {
		return nil, err
	}
	return sc, nil
}

var (
	mu     sync.Mutex
	cached *Config
)

// Get returns the process-wide configuration, loading it on first use.
func Get() (*Config, error) {
	mu.Lock()
	defer mu.Unlock()
	if cached != nil {
		return cached, nil
	}
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	cached = cfg
	return cached, nil
}

// Set replaces the process-wide configuration. Tests use it to inject
// settings without touching the environment.
func Set(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	cached = cfg
}

// New builds a Config from explicit service settings.
func New(services map[string]*ServiceConfig) *Config {
	return &Config{services: services}
}

// Load reads the configuration from the environment or a YAML file, without
// caching. Environment JSON wins; a load error from one source fails the
// call rather than falling through to the next source.
func Load() (*Config, error) {
	v := viper.New()

	if blob := os.Getenv(EnvConfigJSON); blob != "" {
		v.SetConfigType("json")
		if err := v.ReadConfig(bytes.NewBufferString(blob)); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", EnvConfigJSON)
		}
		return unmarshal(v)
	}

	if path := os.Getenv(EnvConfigPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "reading sailor configuration")
	}
	return unmarshal(v)
}

// LoadFile reads the configuration from an explicit file path, bypassing
// the environment lookup.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading sailor configuration from %s", path)
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	services := map[string]*ServiceConfig{}
	if err := v.Unmarshal(&services); err != nil {
		return nil, errors.Wrap(err, "interpreting sailor configuration")
	}
	return &Config{services: services}, nil
}
