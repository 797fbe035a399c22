package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"cowork/pkg/client"
	"cowork/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	PostgresDSN string
	RedisURL    string

	StorageBackend string
	LockBackend    string

	LockWaitTimeout   time.Duration
	LockTTL           time.Duration
	LockRetryInterval time.Duration

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	MaxConflictsReported   int
	OccupancyWindow        time.Duration
	OccupancySweepInterval time.Duration
	InvoiceDueDays         int
	OverdueScanInterval    time.Duration
	LowStockThreshold      int
	AccessHistoryDays      int

	EventsEnabled        bool
	ReservationsTopic    string
	ReservationsDLQTopic string
	BillingGroupID       string

	Log    *logger.Logger
	Client *client.Client
}

// Load reads an optional .env file, then the process environment, and exits
// on an invalid configuration. Callers need not validate again.
func Load(serviceName string) *Config {
	cfg, err := load(serviceName)
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func load(serviceName string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		PostgresDSN: getEnvStr(EnvPostgresDSN, DefaultPostgresDSN),
		RedisURL:    getEnvStr(EnvRedisURL, DefaultRedisURL),

		StorageBackend: getEnvStr(EnvStorageBackend, DefaultStorageBackend),
		LockBackend:    getEnvStr(EnvLockBackend, DefaultLockBackend),

		LockWaitTimeout:   getEnvDuration(EnvLockWaitTimeout, DefaultLockWaitTimeout),
		LockTTL:           getEnvDuration(EnvLockTTL, DefaultLockTTL),
		LockRetryInterval: getEnvDuration(EnvLockRetryInterval, DefaultLockRetryInterval),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		MaxConflictsReported:   getEnvNum(EnvMaxConflictsReported, DefaultMaxConflictsReported),
		OccupancyWindow:        getEnvDuration(EnvOccupancyWindow, DefaultOccupancyWindow),
		OccupancySweepInterval: getEnvDuration(EnvOccupancySweepInterval, DefaultOccupancySweepInterval),
		InvoiceDueDays:         getEnvNum(EnvInvoiceDueDays, DefaultInvoiceDueDays),
		OverdueScanInterval:    getEnvDuration(EnvOverdueScanInterval, DefaultOverdueScanInterval),
		LowStockThreshold:      getEnvNum(EnvLowStockThreshold, DefaultLowStockThreshold),
		AccessHistoryDays:      getEnvNum(EnvAccessHistoryDays, DefaultAccessHistoryDays),

		EventsEnabled:        getEnvBool(EnvEventsEnabled, DefaultEventsEnabled),
		ReservationsTopic:    getEnvStr(EnvReservationsTopic, DefaultReservationsTopic),
		ReservationsDLQTopic: getEnvStr(EnvReservationsDLQTopic, DefaultReservationsDLQTopic),
		BillingGroupID:       getEnvStr(EnvBillingGroupID, DefaultBillingGroupID),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	return cfg, cfg.Validate()
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisURL, cfg.MongoConnTimeout)
}

func (cfg *Config) SetPostgres() {
	cfg.Client.SetPostgres(cfg.Log, cfg.PostgresDSN, cfg.MongoConnTimeout)
}

// SetStores connects every backend the selected storage and lock modes need.
func (cfg *Config) SetStores() {
	cfg.SetMongo()
	if cfg.StorageBackend == StoragePostgres {
		cfg.SetPostgres()
	}
	if cfg.LockBackend == LockRedis {
		cfg.SetRedis()
	}
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !mongoURIRegex.MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	switch cfg.StorageBackend {
	case StorageMongo, StorageMemory:
	case StoragePostgres:
		if cfg.PostgresDSN == "" {
			errors = append(errors, "PostgresDSN is required when StorageBackend is postgres")
		}
	default:
		errors = append(errors, fmt.Sprintf("StorageBackend must be one of [mongo, postgres, memory], got: %s", cfg.StorageBackend))
	}

	switch cfg.LockBackend {
	case LockLocal, LockMongo:
	case LockRedis:
		if !redisURLRegex.MatchString(cfg.RedisURL) {
			errors = append(errors, fmt.Sprintf("RedisURL must start with 'redis://' or 'rediss://', got: %s", redactURI(cfg.RedisURL)))
		}
	default:
		errors = append(errors, fmt.Sprintf("LockBackend must be one of [local, mongo, redis], got: %s", cfg.LockBackend))
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"LockWaitTimeout", cfg.LockWaitTimeout},
		{"LockTTL", cfg.LockTTL},
		{"LockRetryInterval", cfg.LockRetryInterval},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"OccupancyWindow", cfg.OccupancyWindow},
		{"OccupancySweepInterval", cfg.OccupancySweepInterval},
		{"OverdueScanInterval", cfg.OverdueScanInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.LockTTL > 0 && cfg.LockTTL <= cfg.RequestTimeout/10 {
		errors = append(errors, fmt.Sprintf("LockTTL (%s) is too short for RequestTimeout (%s)", cfg.LockTTL, cfg.RequestTimeout))
	}

	numbers := []struct {
		name  string
		value int
	}{
		{"RateLimitRequests", cfg.RateLimitRequests},
		{"MaxRequestSize", cfg.MaxRequestSize},
		{"MaxConflictsReported", cfg.MaxConflictsReported},
		{"InvoiceDueDays", cfg.InvoiceDueDays},
		{"AccessHistoryDays", cfg.AccessHistoryDays},
	}
	for _, n := range numbers {
		if n.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %d", n.name, n.value))
		}
	}
	if cfg.LowStockThreshold < 0 {
		errors = append(errors, fmt.Sprintf("LowStockThreshold cannot be negative, got: %d", cfg.LowStockThreshold))
	}

	if cfg.EventsEnabled && cfg.ReservationsTopic == "" {
		errors = append(errors, "ReservationsTopic cannot be empty when events are enabled")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"postgres_dsn", redactURI(cfg.PostgresDSN),
		"redis_url", redactURI(cfg.RedisURL),
		"storage_backend", cfg.StorageBackend,
		"lock_backend", cfg.LockBackend,
		"lock_wait_timeout", cfg.LockWaitTimeout,
		"lock_ttl", cfg.LockTTL,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"max_conflicts_reported", cfg.MaxConflictsReported,
		"occupancy_window", cfg.OccupancyWindow,
		"occupancy_sweep_interval", cfg.OccupancySweepInterval,
		"invoice_due_days", cfg.InvoiceDueDays,
		"low_stock_threshold", cfg.LowStockThreshold,
		"events_enabled", cfg.EventsEnabled,
		"reservations_topic", cfg.ReservationsTopic,
	)
}

var (
	mongoURIRegex   = regexp.MustCompile(`^mongodb(\+srv)?://`)
	redisURLRegex   = regexp.MustCompile(`^rediss?://`)
	credentialRegex = regexp.MustCompile(`([a-z+]+://)[^:/@]+:[^@]+@`)
)

func redactURI(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = DefaultPaginationLimit
	} else if limit > MaxPaginationLimit {
		limit = MaxPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
