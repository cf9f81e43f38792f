package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/locking"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
)

// Config keys double as environment variable names
type Config struct {
	AppName                       string `mapstructure:"app_name"`
	Port                          int    `mapstructure:"port"`
	LogLevel                      string `mapstructure:"log_level"`
	PrettyLogs                    bool   `mapstructure:"pretty_logs"`
	HttpServerWriteTimeoutSeconds int    `mapstructure:"http_server_write_timeout_seconds"`
	HttpServerReadTimeoutSeconds  int    `mapstructure:"http_server_read_timeout_seconds"`
	HttpServerIdleTimeoutSeconds  int    `mapstructure:"http_server_idle_timeout_seconds"`
	StartupMaxAttempts            int    `mapstructure:"startup_max_attempts"`

	// Database driver, postgres or sqlite
	DatabaseDriver string `mapstructure:"db_driver"`
	// Database file for the sqlite driver
	DatabaseSQLitePath string `mapstructure:"db_sqlite_path"`
	DatabaseHost       string `mapstructure:"db_host"`
	DatabasePort       string `mapstructure:"db_port"`
	DatabaseUserName   string `mapstructure:"db_user_name"`
	DatabasePassword   string `mapstructure:"db_password"`
	DatabaseName       string `mapstructure:"db_name"`
	DatabaseSSLMode    string `mapstructure:"db_ssl_mode"`
	// Max Open Conns
	DatabaseMaxOpenConns int `mapstructure:"db_max_open_conns"`
	// Max Idle Conns
	DatabaseMaxIdleConns int `mapstructure:"db_max_idle_conns"`
	// Conn Max Lifetime
	DatabaseConnMaxLifetime time.Duration `mapstructure:"db_conn_max_lifetime"`
	// Database Migration Version, 0 migrates to the latest
	DatabaseMigrationVersion int `mapstructure:"db_migration_version"`
	// Database Migration Force
	DatabaseMigrationForce int `mapstructure:"db_migration_force"`
	// Database Migration Auto Rollback
	DatabaseMigrationAutoRollback bool `mapstructure:"db_migration_auto_rollback"`

	// Lock serializing resolutions: local, file or redis
	LockBackend string `mapstructure:"lock_backend"`
	// Directory holding lock files for the file backend
	LockFilePath string `mapstructure:"lock_file_path"`
	// Expiry of a redis lock held by a crashed process
	LockTTL time.Duration `mapstructure:"lock_ttl"`
	// How long a resolution waits for the lock
	LockTimeout time.Duration `mapstructure:"lock_timeout"`

	// Publish contact events to Kafka
	EventsEnabled bool `mapstructure:"events_enabled"`
	// Kafka brokers (comma-separated)
	KafkaBrokers      string        `mapstructure:"kafka_brokers"`
	KafkaContactTopic string        `mapstructure:"kafka_contact_topic"`
	KafkaCompression  string        `mapstructure:"kafka_compression"`
	KafkaBatchSize    int           `mapstructure:"kafka_batch_size"`
	KafkaBatchTimeout time.Duration `mapstructure:"kafka_batch_timeout"`

	RedisHost     string `mapstructure:"redis_host"`
	RedisPort     int    `mapstructure:"redis_port"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// How long an undecided resolution is kept
	ResolutionSessionTTL time.Duration `mapstructure:"resolution_session_ttl"`

	MatchInclusionThreshold float64 `mapstructure:"match_inclusion_threshold"`
	MatchNameThreshold      float64 `mapstructure:"match_name_threshold"`
	MatchCompanyThreshold   float64 `mapstructure:"match_company_threshold"`

	MergeNotesSeparator string `mapstructure:"merge_notes_separator"`

	// OTLP collector endpoint, tracing export is off when empty
	OTLPEndpoint string `mapstructure:"otel_exporter_otlp_endpoint"`
	// OTLP protocol (grpc or http)
	OTLPProtocol string `mapstructure:"otel_exporter_otlp_protocol"`
	// Disable TLS for OTLP (for local development)
	OTLPInsecure bool `mapstructure:"otel_exporter_otlp_insecure"`
}

var defaults = map[string]any{
	"app_name":                          "fern",
	"port":                              3000,
	"log_level":                         "info",
	"pretty_logs":                       false,
	"http_server_write_timeout_seconds": 10,
	"http_server_read_timeout_seconds":  10,
	"http_server_idle_timeout_seconds":  10,
	"startup_max_attempts":              5,

	"db_driver":                  database.DriverSQLite,
	"db_sqlite_path":             "fern.db",
	"db_host":                    "",
	"db_port":                    "5432",
	"db_user_name":               "",
	"db_password":                "",
	"db_name":                    "fern",
	"db_ssl_mode":                "disable",
	"db_max_open_conns":          25,
	"db_max_idle_conns":          10,
	"db_conn_max_lifetime":       "10s",
	"db_migration_version":       0,
	"db_migration_force":         0,
	"db_migration_auto_rollback": true,

	"lock_backend":   locking.BackendLocal,
	"lock_file_path": os.TempDir(),
	"lock_ttl":       "30s",
	"lock_timeout":   "10s",

	"events_enabled":      false,
	"kafka_brokers":       "localhost:9092",
	"kafka_contact_topic": "fern.contacts",
	"kafka_compression":   "snappy",
	"kafka_batch_size":    100,
	"kafka_batch_timeout": "10ms",

	"redis_host":     "localhost",
	"redis_port":     6379,
	"redis_password": "",
	"redis_db":       0,

	"resolution_session_ttl": "15m",

	"match_inclusion_threshold": matching.DefaultConfig().InclusionThreshold,
	"match_name_threshold":      matching.DefaultConfig().NameThreshold,
	"match_company_threshold":   matching.DefaultConfig().CompanyThreshold,

	"merge_notes_separator": "\n\n",

	"otel_exporter_otlp_endpoint": "",
	"otel_exporter_otlp_protocol": "grpc",
	"otel_exporter_otlp_insecure": true,
}

// Load reads an optional .env file, then configFile (or fern.yaml in the
// working directory when empty), then the environment. Later sources win.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("fern")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate rejects settings no component can run with
func (c *Config) Validate() error {
	if !slices.Contains([]string{database.DriverPostgres, database.DriverSQLite}, c.DatabaseDriver) {
		return fmt.Errorf("db driver must be '%s' or '%s', got: %s", database.DriverPostgres, database.DriverSQLite, c.DatabaseDriver)
	}
	if c.DatabaseDriver == database.DriverPostgres && c.DatabaseHost == "" {
		return fmt.Errorf("DB_HOST is required when the db driver is '%s'", database.DriverPostgres)
	}

	if !slices.Contains([]string{locking.BackendLocal, locking.BackendFile, locking.BackendRedis}, c.LockBackend) {
		return fmt.Errorf("lock backend must be one of local, file or redis, got: %s", c.LockBackend)
	}
	if c.LockTimeout <= 0 {
		return fmt.Errorf("LOCK_TIMEOUT must be positive, got: %s", c.LockTimeout)
	}

	if c.EventsEnabled && len(c.KafkaBrokerList()) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when events are enabled")
	}

	for name, threshold := range map[string]float64{
		"MATCH_INCLUSION_THRESHOLD": c.MatchInclusionThreshold,
		"MATCH_NAME_THRESHOLD":      c.MatchNameThreshold,
		"MATCH_COMPANY_THRESHOLD":   c.MatchCompanyThreshold,
	} {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got: %v", name, threshold)
		}
	}

	return nil
}

// KafkaBrokerList splits KAFKA_BROKERS
func (c *Config) KafkaBrokerList() []string {
	var brokers []string
	for _, broker := range strings.Split(c.KafkaBrokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func (c *Config) Database() database.ConnectionConfig {
	return database.ConnectionConfig{
		Driver:          c.DatabaseDriver,
		Host:            c.DatabaseHost,
		Port:            c.DatabasePort,
		UserName:        c.DatabaseUserName,
		Password:        c.DatabasePassword,
		Name:            c.DatabaseName,
		SSLMode:         c.DatabaseSSLMode,
		SQLitePath:      c.DatabaseSQLitePath,
		MaxOpenConns:    c.DatabaseMaxOpenConns,
		MaxIdleConns:    c.DatabaseMaxIdleConns,
		ConnMaxLifetime: c.DatabaseConnMaxLifetime,
	}
}

func (c *Config) Kafka() kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:      c.KafkaBrokerList(),
		Topic:        c.KafkaContactTopic,
		BatchSize:    c.KafkaBatchSize,
		BatchTimeout: c.KafkaBatchTimeout,
		RequiredAcks: 1,
		Compression:  c.KafkaCompression,
	}
}

func (c *Config) Redis() redis.Config {
	return redis.Config{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

func (c *Config) Matching() matching.Config {
	m := matching.DefaultConfig()
	m.InclusionThreshold = c.MatchInclusionThreshold
	m.NameThreshold = c.MatchNameThreshold
	m.CompanyThreshold = c.MatchCompanyThreshold
	return m
}

func (c *Config) OTLP() exporters.OTLPConfig {
	return exporters.OTLPConfig{
		Endpoint: c.OTLPEndpoint,
		Protocol: c.OTLPProtocol,
		Insecure: c.OTLPInsecure,
		Timeout:  10 * time.Second,
	}
}
