// Package bootstrap wires one replica's process together: it reads
// Config from the environment, dials every adapter, and composes the
// engine/executor/replog/watch services into the *fiber.App the replica
// actually listens with.
package bootstrap

import (
	"time"

	"github.com/LerianStudio/confdogma/internal/pkg/config"
)

// ApplicationName is the service name reported in logs, telemetry, and the
// root "/" welcome endpoint.
const ApplicationName = "confdogma"

// Config is the top level configuration struct for one replica process.
// Every field is loaded from the environment variable named by its `env`
// tag; see config.FromEnv.
type Config struct {
	EnvName  string `env:"ENV_NAME"`
	LogLevel string `env:"LOG_LEVEL"`

	ServerAddress        string `env:"SERVER_ADDRESS"`
	GRPCAddress          string `env:"GRPC_ADDRESS"`
	RequestTimeoutMillis int64  `env:"REQUEST_TIMEOUT_MILLIS"`
	IdleTimeoutMillis    int64  `env:"IDLE_TIMEOUT_MILLIS"`
	MaxFrameLength       int64  `env:"MAX_FRAME_LENGTH_BYTES"`
	NumRepositoryWorkers int64  `env:"NUM_REPOSITORY_WORKERS"`
	WebAppEnabled        bool   `env:"WEB_APP_ENABLED"`

	GracefulShutdownTimeoutMillis int64 `env:"GRACEFUL_SHUTDOWN_TIMEOUT_MILLIS"`

	DataDir string `env:"DATA_DIR"`

	RegistryDSN string `env:"REGISTRY_DSN"`

	EtcdEndpoints  string `env:"ETCD_ENDPOINTS"`
	ReplicaID      string `env:"REPLICA_ID"`
	PathPrefix     string `env:"REPLICATION_PATH_PREFIX"`
	MaxLogCount    int64  `env:"REPLICATION_MAX_LOG_COUNT"`
	MinLogAgeMs    int64  `env:"REPLICATION_MIN_LOG_AGE_MILLIS"`
	PruneCron      string `env:"REPLICATION_PRUNE_CRON"`
	WriteQuotaRepo int64  `env:"WRITE_QUOTA_PER_REPOSITORY"`
	QuotaWindowMs  int64  `env:"QUOTA_WINDOW_MILLIS"`

	CacheMaxEntries int64  `env:"CACHE_MAX_ENTRIES"`
	RedisAddr       string `env:"REDIS_ADDR"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int64  `env:"REDIS_DB"`

	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE"`

	RabbitMQURL string `env:"RABBITMQ_URL"`

	OtelServiceName    string `env:"OTEL_RESOURCE_SERVICE_NAME"`
	OtelServiceVersion string `env:"OTEL_RESOURCE_SERVICE_VERSION"`

	AuthProviderFactory string `env:"AUTH_PROVIDER_FACTORY"`
	PluginConfigPaths   string `env:"PLUGIN_CONFIG_PATHS"`
}

// LoadConfig reads Config from the environment, loading a local .env file
// first when ENV_NAME=local.
func LoadConfig() (*Config, error) {
	if config.GetenvOrDefault("ENV_NAME", "") == "local" {
		config.LoadDotEnv()
	}

	cfg := &Config{
		RequestTimeoutMillis:          5000,
		IdleTimeoutMillis:             120000,
		MaxFrameLength:                4 << 20,
		NumRepositoryWorkers:          8,
		GracefulShutdownTimeoutMillis: 30000,
		MaxLogCount:                   10000,
		MinLogAgeMs:                   int64(24 * time.Hour / time.Millisecond),
		PruneCron:                     "@every 5m",
		WriteQuotaRepo:                1000,
		QuotaWindowMs:                 int64(time.Minute / time.Millisecond),
		CacheMaxEntries:               10000,
	}

	if err := config.FromEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.ReplicaID == "" {
		cfg.ReplicaID = cfg.ServerAddress
	}

	return cfg, nil
}

func (c *Config) requestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMillis) * time.Millisecond
}

func (c *Config) idleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMillis) * time.Millisecond
}

func (c *Config) quotaWindow() time.Duration {
	return time.Duration(c.QuotaWindowMs) * time.Millisecond
}

func (c *Config) minLogAge() time.Duration {
	return time.Duration(c.MinLogAgeMs) * time.Millisecond
}

func (c *Config) gracefulShutdownTimeout() time.Duration {
	return time.Duration(c.GracefulShutdownTimeoutMillis) * time.Millisecond
}
