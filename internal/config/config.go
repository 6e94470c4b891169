package config

import (
	"encoding/json"
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database  *dbConfig
	Service   *svcConfig
	Registry  *registryConfig
	Reconcile *reconcileConfig
	Report    *reportConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"membership"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	LogLevel         string        `envconfig:"RECONCILER_LOG_LEVEL" default:"info"`
	MetricsAddress   string        `envconfig:"RECONCILER_METRICS_ADDRESS" default:""`
	MigrationFolder  string        `envconfig:"RECONCILER_MIGRATIONS_FOLDER" default:"pkg/migrations/sql"`
	ProgressInterval time.Duration `envconfig:"RECONCILER_PROGRESS_INTERVAL" default:"30s"`
}

type registryConfig struct {
	BaseUrl     string        `envconfig:"REGISTRY_BASE_URL" default:"http://localhost:8090"`
	ApiKey      string        `envconfig:"REGISTRY_API_KEY" default:""`
	CallTimeout time.Duration `envconfig:"REGISTRY_CALL_TIMEOUT" default:"10s"`
	KeyLength   int           `envconfig:"REGISTRY_KEY_LENGTH" default:"10"`
}

type reconcileConfig struct {
	BatchSize    int           `envconfig:"RECONCILER_BATCH_SIZE" default:"100"`
	RateLimit    int           `envconfig:"RECONCILER_RATE_LIMIT" default:"60"`
	BatchPause   time.Duration `envconfig:"RECONCILER_BATCH_PAUSE" default:"5s"`
	MaxRetries   int           `envconfig:"RECONCILER_MAX_RETRIES" default:"3"`
	RetryDelay   time.Duration `envconfig:"RECONCILER_RETRY_DELAY" default:"2s"`
	SentinelCode string        `envconfig:"RECONCILER_SENTINEL_LOCATION_CODE" default:"0000"`
}

type reportConfig struct {
	Bucket    string `envconfig:"RECONCILER_REPORT_BUCKET" default:""`
	Endpoint  string `envconfig:"RECONCILER_REPORT_S3_ENDPOINT" default:""`
	AccessKey string `envconfig:"RECONCILER_REPORT_S3_ACCESS_KEY" default:""`
	SecretKey string `envconfig:"RECONCILER_REPORT_S3_SECRET_KEY" default:""`
	UseSSL    bool   `envconfig:"RECONCILER_REPORT_S3_USE_SSL" default:"true"`
}

// New loads the configuration from the environment once per process.
func New() (*Config, error) {
	if singleConfig == nil {
		cfg := new(Config)
		if err := envconfig.Process("", cfg); err != nil {
			return nil, err
		}
		singleConfig = cfg
	}
	return singleConfig, nil
}

// NewDefault returns a fresh configuration backed by an in-memory sqlite database.
func NewDefault() *Config {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		panic(err)
	}
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = "file::memory:?cache=shared"
	return cfg
}

func (c *Config) String() string {
	redacted := *c
	if c.Database != nil {
		db := *c.Database
		db.Password = "*****"
		redacted.Database = &db
	}
	if c.Registry != nil {
		reg := *c.Registry
		if reg.ApiKey != "" {
			reg.ApiKey = "*****"
		}
		redacted.Registry = &reg
	}
	if c.Report != nil {
		rep := *c.Report
		rep.SecretKey = "*****"
		redacted.Report = &rep
	}
	val, _ := json.Marshal(redacted)
	return string(val)
}
