package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"PGGW_CLUSTER_ARN", "PGGW_SECRET_ARN", "PGGW_DATABASE_NAME",
		"PGGW_LISTEN_HOST", "PGGW_LISTEN_PORT", "PGGW_HEALTH_ENABLED",
	} {
		os.Unsetenv(key)
	}
}

func TestLoadMissingRequiredFieldsFails(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("PGGW_CLUSTER_ARN", "arn:aws:rds:us-east-1:1:cluster:test")
	os.Setenv("PGGW_SECRET_ARN", "arn:aws:secretsmanager:us-east-1:1:secret:test")
	os.Setenv("PGGW_DATABASE_NAME", "appdb")
	defer clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5432", cfg.ListenAddress())
	assert.False(t, cfg.HealthEnabled)
}
