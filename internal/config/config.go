// Package config loads the environment-variable configuration spec §6
// describes, using kelseyhightower/envconfig the way the rest of this
// corpus's AWS-integrated services do.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full set of environment-variable inputs spec §6 lists.
// Required fields are validated in Validate after decoding.
type Config struct {
	// ClusterARN identifies the target cluster resource.
	ClusterARN string `envconfig:"PGGW_CLUSTER_ARN"`
	// SecretARN identifies the credentials secret used to authenticate
	// against the managed SQL backend.
	SecretARN string `envconfig:"PGGW_SECRET_ARN"`
	// DatabaseName is the database the backend executes statements against.
	DatabaseName string `envconfig:"PGGW_DATABASE_NAME"`

	Region          string `envconfig:"PGGW_AWS_REGION"`
	AccessKeyID     string `envconfig:"PGGW_AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"PGGW_AWS_SECRET_ACCESS_KEY"`

	ListenHost string `envconfig:"PGGW_LISTEN_HOST" default:"127.0.0.1"`
	ListenPort int    `envconfig:"PGGW_LISTEN_PORT" default:"5432"`

	HealthEnabled bool `envconfig:"PGGW_HEALTH_ENABLED" default:"false"`
	HealthPort    int  `envconfig:"PGGW_HEALTH_PORT" default:"8080"`

	LogLevel string `envconfig:"PGGW_LOG_LEVEL" default:"info"`

	// ServerVersion is the mock server_version string advertised to
	// clients and returned by version()/SHOW server_version.
	ServerVersion string `envconfig:"PGGW_SERVER_VERSION" default:"PostgreSQL 14.9 (pgwire-gateway)"`
}

// Load decodes Config from the process environment and validates the
// required fields.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("loading configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the three fields spec §6 marks required: cluster
// identifier, credentials identifier, and database name.
func (c Config) Validate() error {
	var missing []string
	if c.ClusterARN == "" {
		missing = append(missing, "PGGW_CLUSTER_ARN")
	}
	if c.SecretARN == "" {
		missing = append(missing, "PGGW_SECRET_ARN")
	}
	if c.DatabaseName == "" {
		missing = append(missing, "PGGW_DATABASE_NAME")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v", missing)
	}

	return nil
}

// ListenAddress formats the host:port pair the connection manager binds to.
func (c Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.ListenPort)
}

// HealthAddress formats the host:port pair the admin HTTP server binds to.
func (c Config) HealthAddress() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.HealthPort)
}
