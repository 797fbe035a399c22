package kafka_config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"cowork/pkg/logger"
)

var validCompressions = []string{"none", "gzip", "snappy", "lz4", "zstd"}

type Config struct {
	Brokers  []string
	ClientID string

	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerRequireAcks  int
	ProducerCompression  string
	ProducerAsync        bool

	ConsumerStartOffset       int64
	ConsumerMinBytes          int
	ConsumerMaxBytes          int
	ConsumerMaxWait           time.Duration
	ConsumerCommitInterval    time.Duration
	ConsumerHeartbeatInterval time.Duration
	ConsumerSessionTimeout    time.Duration
	ConsumerRebalanceTimeout  time.Duration
	ConsumerMaxRetries        int

	EnableMiddleware bool
}

// Load reads the Kafka settings from the environment. A value that is set
// but does not parse is an error rather than a silent fallback.
func Load(serviceName string) (*Config, error) {
	env := &envReader{}

	cfg := &Config{
		Brokers:  splitBrokers(env.str(EnvKafkaBrokers, DefaultKafkaBrokers)),
		ClientID: env.str(EnvKafkaClientID, serviceName),

		ProducerMaxAttempts:  env.int(EnvKafkaProducerMaxAttempts, DefaultProducerMaxAttempts),
		ProducerBatchTimeout: env.duration(EnvKafkaProducerBatchTimeout, DefaultProducerBatchTimeout),
		ProducerRequireAcks:  env.int(EnvKafkaProducerRequireAcks, DefaultProducerRequireAcks),
		ProducerCompression:  env.str(EnvKafkaProducerCompression, DefaultProducerCompression),
		ProducerAsync:        env.bool(EnvKafkaProducerAsync, DefaultProducerAsync),

		ConsumerStartOffset:       int64(env.int(EnvKafkaConsumerStartOffset, DefaultConsumerStartOffset)),
		ConsumerMinBytes:          env.int(EnvKafkaConsumerMinBytes, DefaultConsumerMinBytes),
		ConsumerMaxBytes:          env.int(EnvKafkaConsumerMaxBytes, DefaultConsumerMaxBytes),
		ConsumerMaxWait:           env.duration(EnvKafkaConsumerMaxWait, DefaultConsumerMaxWait),
		ConsumerCommitInterval:    env.duration(EnvKafkaConsumerCommitInterval, DefaultConsumerCommitInterval),
		ConsumerHeartbeatInterval: env.duration(EnvKafkaConsumerHeartbeatInterval, DefaultConsumerHeartbeatInterval),
		ConsumerSessionTimeout:    env.duration(EnvKafkaConsumerSessionTimeout, DefaultConsumerSessionTimeout),
		ConsumerRebalanceTimeout:  env.duration(EnvKafkaConsumerRebalanceTimeout, DefaultConsumerRebalanceTimeout),
		ConsumerMaxRetries:        env.int(EnvKafkaConsumerMaxRetries, DefaultConsumerMaxRetries),

		EnableMiddleware: env.bool(EnvKafkaEnableMiddleware, DefaultEnableMiddleware),
	}

	if err := errors.Join(env.err(), cfg.Validate()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, broker := range strings.Split(raw, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func (cfg *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(len(cfg.Brokers) > 0, "at least one Kafka broker is required")
	for i, broker := range cfg.Brokers {
		check(strings.Contains(broker, ":"), "broker %d must be host:port, got %q", i, broker)
	}
	check(cfg.ClientID != "", "client id cannot be empty")

	check(cfg.ProducerMaxAttempts > 0, "producer max attempts must be positive, got %d", cfg.ProducerMaxAttempts)
	check(cfg.ProducerBatchTimeout > 0, "producer batch timeout must be positive, got %s", cfg.ProducerBatchTimeout)
	check(slices.Contains(validCompressions, cfg.ProducerCompression),
		"producer compression must be one of %v, got %q", validCompressions, cfg.ProducerCompression)
	check(cfg.ProducerRequireAcks >= -1 && cfg.ProducerRequireAcks <= 1,
		"producer require acks must be -1, 0 or 1, got %d", cfg.ProducerRequireAcks)

	check(cfg.ConsumerStartOffset >= -2, "consumer start offset must be -1 (newest), -2 (oldest) or >= 0, got %d", cfg.ConsumerStartOffset)
	check(cfg.ConsumerMinBytes > 0, "consumer min bytes must be positive, got %d", cfg.ConsumerMinBytes)
	check(cfg.ConsumerMaxBytes >= cfg.ConsumerMinBytes,
		"consumer max bytes (%d) must be at least min bytes (%d)", cfg.ConsumerMaxBytes, cfg.ConsumerMinBytes)
	for name, d := range map[string]time.Duration{
		"max wait":           cfg.ConsumerMaxWait,
		"commit interval":    cfg.ConsumerCommitInterval,
		"heartbeat interval": cfg.ConsumerHeartbeatInterval,
		"session timeout":    cfg.ConsumerSessionTimeout,
		"rebalance timeout":  cfg.ConsumerRebalanceTimeout,
	} {
		check(d > 0, "consumer %s must be positive, got %s", name, d)
	}
	check(cfg.ConsumerHeartbeatInterval < cfg.ConsumerSessionTimeout,
		"consumer heartbeat interval (%s) must be shorter than session timeout (%s)", cfg.ConsumerHeartbeatInterval, cfg.ConsumerSessionTimeout)
	check(cfg.ConsumerMaxRetries >= 0, "consumer max retries cannot be negative, got %d", cfg.ConsumerMaxRetries)

	if len(problems) == 0 {
		return nil
	}
	slices.Sort(problems)
	return fmt.Errorf("invalid Kafka configuration: %s", strings.Join(problems, "; "))
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	log.Info("Kafka configuration loaded",
		"brokers", cfg.Brokers,
		"client_id", cfg.ClientID,
		"producer_require_acks", cfg.ProducerRequireAcks,
		"producer_compression", cfg.ProducerCompression,
		"producer_async", cfg.ProducerAsync,
		"consumer_start_offset", cfg.ConsumerStartOffset,
		"consumer_commit_interval", cfg.ConsumerCommitInterval,
		"consumer_max_retries", cfg.ConsumerMaxRetries,
		"enable_middleware", cfg.EnableMiddleware,
	)
}

// envReader looks up settings and remembers every malformed value.
type envReader struct {
	malformed []string
}

func (r *envReader) lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	return strings.TrimSpace(value), ok && strings.TrimSpace(value) != ""
}

func (r *envReader) bad(key, value, want string) {
	r.malformed = append(r.malformed, fmt.Sprintf("%s=%q is not a valid %s", key, value, want))
}

func (r *envReader) str(key, fallback string) string {
	if value, ok := r.lookup(key); ok {
		return value
	}
	return fallback
}

func (r *envReader) int(key string, fallback int) int {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		r.bad(key, value, "integer")
		return fallback
	}
	return n
}

func (r *envReader) bool(key string, fallback bool) bool {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		r.bad(key, value, "boolean")
		return fallback
	}
	return b
}

func (r *envReader) duration(key string, fallback time.Duration) time.Duration {
	value, ok := r.lookup(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		r.bad(key, value, "duration")
		return fallback
	}
	return d
}

func (r *envReader) err() error {
	if len(r.malformed) == 0 {
		return nil
	}
	return fmt.Errorf("malformed Kafka environment: %s", strings.Join(r.malformed, "; "))
}
