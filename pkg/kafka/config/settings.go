package kafka_config

import "time"

// Environment keys and their defaults, grouped by the client they tune.
const (
	EnvKafkaBrokers     = "KAFKA_BROKERS"
	DefaultKafkaBrokers = "localhost:9092"

	// EnvKafkaClientID overrides the client id, which defaults to the
	// service name passed to Load.
	EnvKafkaClientID = "KAFKA_CLIENT_ID"

	EnvKafkaEnableMiddleware = "KAFKA_ENABLE_MIDDLEWARE"
	DefaultEnableMiddleware  = true
)

// Producer.
const (
	EnvKafkaProducerMaxAttempts = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	DefaultProducerMaxAttempts  = 3

	EnvKafkaProducerBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	DefaultProducerBatchTimeout  = 10 * time.Millisecond

	// -1 waits for all in-sync replicas; a lost reservation.created event
	// means an unbilled reservation.
	EnvKafkaProducerRequireAcks = "KAFKA_PRODUCER_REQUIRE_ACKS"
	DefaultProducerRequireAcks  = -1

	EnvKafkaProducerCompression = "KAFKA_PRODUCER_COMPRESSION"
	DefaultProducerCompression  = "snappy"

	EnvKafkaProducerAsync = "KAFKA_PRODUCER_ASYNC"
	DefaultProducerAsync  = false
)

// Consumer.
const (
	// -2 is the oldest offset, so a new billing group starts from the
	// first reservation on the topic.
	EnvKafkaConsumerStartOffset = "KAFKA_CONSUMER_START_OFFSET"
	DefaultConsumerStartOffset  = -2

	EnvKafkaConsumerMinBytes = "KAFKA_CONSUMER_MIN_BYTES"
	DefaultConsumerMinBytes  = 1

	EnvKafkaConsumerMaxBytes = "KAFKA_CONSUMER_MAX_BYTES"
	DefaultConsumerMaxBytes  = 10 * 1024 * 1024

	EnvKafkaConsumerMaxWait = "KAFKA_CONSUMER_MAX_WAIT"
	DefaultConsumerMaxWait  = 500 * time.Millisecond

	EnvKafkaConsumerCommitInterval = "KAFKA_CONSUMER_COMMIT_INTERVAL"
	DefaultConsumerCommitInterval  = time.Second

	EnvKafkaConsumerHeartbeatInterval = "KAFKA_CONSUMER_HEARTBEAT_INTERVAL"
	DefaultConsumerHeartbeatInterval  = 3 * time.Second

	EnvKafkaConsumerSessionTimeout = "KAFKA_CONSUMER_SESSION_TIMEOUT"
	DefaultConsumerSessionTimeout  = 10 * time.Second

	EnvKafkaConsumerRebalanceTimeout = "KAFKA_CONSUMER_REBALANCE_TIMEOUT"
	DefaultConsumerRebalanceTimeout  = 60 * time.Second

	EnvKafkaConsumerMaxRetries = "KAFKA_CONSUMER_MAX_RETRIES"
	DefaultConsumerMaxRetries  = 3
)
