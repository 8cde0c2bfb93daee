// Package config provides configuration structures and validation for the hold service.
// It covers the HTTP server, PostgreSQL, Kafka, MongoDB, the outbox publisher, the
// expiry scanner and the hold business rules.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration with settings for all components.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Metrics     MetricsConfig
	Tracing     TracingConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Outbox      OutboxConfig
	Hold        HoldConfig
	Expiry      ExpiryConfig
	WorkerPool  WorkerPoolConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or text
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// MetricsConfig contains the processor's Prometheus listener settings
type MetricsConfig struct {
	Port int
}

// TracingConfig contains OpenTelemetry settings
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	Insecure     bool
	SampleRatio  float64
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers                    string
	NumPartitions              int // Number of partitions for created topics
	ReplicationFactor          int // Replication factor for created topics
	ConsumerGroup              string
	MinBytes                   int
	MaxBytes                   int
	MaxWait                    time.Duration
	TransactionAuthorizedTopic string
	TransactionPostedTopic     string
	TransactionFailedTopic     string
	HoldEventsTopic            string // Outbound hold.created / hold.expired
	DLQTopic                   string // Undecodable inbound messages
}

// InboundTopics maps each consumed topic to the event kind it carries
func (k KafkaConfig) InboundTopics() map[string]string {
	return map[string]string{
		k.TransactionAuthorizedTopic: "transaction.authorized",
		k.TransactionPostedTopic:     "transaction.posted",
		k.TransactionFailedTopic:     "transaction.failed",
	}
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Minimum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
	ArchiveEnabled  bool
}

// OutboxConfig contains outbox publisher configuration
type OutboxConfig struct {
	PollingInterval time.Duration
	BatchSize       int
}

// HoldConfig contains hold creation rules
type HoldConfig struct {
	ExpiryHorizon   time.Duration
	FraudCeiling    decimal.Decimal
	DefaultCurrency string
}

// ExpiryConfig contains expiry scanner configuration
type ExpiryConfig struct {
	CheckInterval time.Duration
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of concurrent inbound event workers
}

// validate checks every configuration value and reports all violations at once
func (c *Config) validate() error {
	var validationErrors []string

	// Server
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}
	if c.Metrics.Port <= 0 {
		validationErrors = append(validationErrors, "METRICS_PORT must be greater than 0")
	}

	// Logging
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		validationErrors = append(validationErrors, "LOG_FORMAT must be json or text")
	}

	// Tracing
	if c.Tracing.Enabled && c.Tracing.OTLPEndpoint == "" {
		validationErrors = append(validationErrors, "TRACING_OTLP_ENDPOINT is required when tracing is enabled")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		validationErrors = append(validationErrors, "TRACING_SAMPLE_RATIO must be between 0 and 1")
	}

	// Kafka
	if c.Kafka.Brokers == "" {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.TransactionAuthorizedTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_TRANSACTION_AUTHORIZED_TOPIC is required")
	}
	if c.Kafka.TransactionPostedTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_TRANSACTION_POSTED_TOPIC is required")
	}
	if c.Kafka.TransactionFailedTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_TRANSACTION_FAILED_TOPIC is required")
	}
	if len(c.Kafka.InboundTopics()) != 3 {
		validationErrors = append(validationErrors, "inbound transaction topics must be distinct")
	}
	if c.Kafka.HoldEventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_HOLD_EVENTS_TOPIC is required")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// PostgreSQL
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// MongoDB is only required when the archive is on
	if c.MongoDB.ArchiveEnabled {
		if c.MongoDB.URI == "" {
			validationErrors = append(validationErrors, "MONGO_URI is required")
		}
		if c.MongoDB.Database == "" {
			validationErrors = append(validationErrors, "MONGO_DATABASE is required")
		}
		if c.MongoDB.Timeout <= 0 {
			validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
		}
		if c.MongoDB.MaxPoolSize <= 0 {
			validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
		}
		if c.MongoDB.MaxConnIdleTime <= 0 {
			validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
		}
	}

	// Outbox
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}

	// Hold rules
	if c.Hold.ExpiryHorizon <= 0 {
		validationErrors = append(validationErrors, "HOLD_EXPIRY_HORIZON must be greater than 0")
	}
	if !c.Hold.FraudCeiling.IsPositive() {
		validationErrors = append(validationErrors, "HOLD_FRAUD_CEILING must be a positive decimal")
	}
	if len(c.Hold.DefaultCurrency) != 3 {
		validationErrors = append(validationErrors, "HOLD_DEFAULT_CURRENCY must be a 3-letter code")
	}

	// Expiry
	if c.Expiry.CheckInterval <= 0 {
		validationErrors = append(validationErrors, "EXPIRY_CHECK_INTERVAL must be greater than 0")
	}

	// WorkerPool
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
