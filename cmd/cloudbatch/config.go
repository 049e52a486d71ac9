package main

import (
	"os"

	"github.com/kbukum/cloudbatch/batch"
	"github.com/kbukum/cloudbatch/config"
	"github.com/kbukum/cloudbatch/errors"
	"github.com/kbukum/cloudbatch/observability"
	"github.com/kbukum/cloudbatch/transport"
	"github.com/kbukum/cloudbatch/validation"
)

const serviceName = "cloudbatch"

// Config is the CLI configuration file layout.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Storage       transport.Config     `yaml:"storage" mapstructure:"storage"`
	Batch         batch.Config         `yaml:"batch" mapstructure:"batch"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Storage.ApplyDefaults()
	if c.Storage.UserAgent == "cloudbatch" && c.Version != "" {
		c.Storage.UserAgent = "cloudbatch/" + c.Version
	}
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(c)
}

// overrides are the flag values that win over the loaded configuration.
type overrides struct {
	configFile  string
	envFile     string
	storageURL  string
	cdnURL      string
	token       string
	maxParallel int
	debug       bool
	output      string
}

func loadConfig(o overrides) (*Config, error) {
	var opts []config.LoaderOption
	if o.configFile != "" {
		if _, err := os.Stat(o.configFile); err != nil {
			return nil, errors.InvalidArgument("config", err.Error())
		}
		opts = append(opts, config.WithConfigFile(o.configFile))
	}
	if o.envFile != "" {
		if _, err := os.Stat(o.envFile); err != nil {
			return nil, errors.InvalidArgument("env-file", err.Error())
		}
		opts = append(opts, config.WithEnvFile(o.envFile))
	}
	cfg := &Config{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}

	if o.storageURL != "" {
		cfg.Storage.StorageURL = o.storageURL
	}
	if o.cdnURL != "" {
		cfg.Storage.CDNURL = o.cdnURL
	}
	if o.token != "" {
		cfg.Storage.Token = o.token
	}
	if o.maxParallel > 0 {
		cfg.Batch.MaxParallel = o.maxParallel
	}
	if o.debug {
		cfg.Debug = true
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
