package bootstrap

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"ENV_NAME", "SERVER_ADDRESS", "REPLICA_ID", "REQUEST_TIMEOUT_MILLIS",
		"REPLICATION_MAX_LOG_COUNT", "WRITE_QUOTA_PER_REPOSITORY",
	} {
		os.Unsetenv(key)
	}
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.EqualValues(t, 5000, cfg.RequestTimeoutMillis)
	assert.EqualValues(t, 10000, cfg.MaxLogCount)
	assert.Equal(t, 5*time.Second, cfg.requestTimeout())
}

func TestLoadConfigReplicaIDFallsBackToServerAddress(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SERVER_ADDRESS", "0.0.0.0:8080")

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.ReplicaID)
}

func TestLoadConfigReplicaIDExplicitOverride(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SERVER_ADDRESS", "0.0.0.0:8080")
	t.Setenv("REPLICA_ID", "replica-7")

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "replica-7", cfg.ReplicaID)
}

func TestConfigDurationHelpers(t *testing.T) {
	cfg := &Config{
		RequestTimeoutMillis:          1000,
		IdleTimeoutMillis:             2000,
		QuotaWindowMs:                 3000,
		MinLogAgeMs:                   4000,
		GracefulShutdownTimeoutMillis: 5000,
	}

	assert.Equal(t, time.Second, cfg.requestTimeout())
	assert.Equal(t, 2*time.Second, cfg.idleTimeout())
	assert.Equal(t, 3*time.Second, cfg.quotaWindow())
	assert.Equal(t, 4*time.Second, cfg.minLogAge())
	assert.Equal(t, 5*time.Second, cfg.gracefulShutdownTimeout())
}
