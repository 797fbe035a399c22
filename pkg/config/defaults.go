package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "cowork"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPostgresDSN = ""
	DefaultRedisURL    = "redis://localhost:6379/0"

	DefaultStorageBackend = StorageMongo
	DefaultLockBackend    = LockMongo

	DefaultLockWaitTimeout   = 5 * time.Second
	DefaultLockTTL           = 10 * time.Second
	DefaultLockRetryInterval = 25 * time.Millisecond

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultMaxConflictsReported   = 10
	DefaultOccupancyWindow        = 1 * time.Hour
	DefaultOccupancySweepInterval = 5 * time.Minute
	DefaultInvoiceDueDays         = 14
	DefaultOverdueScanInterval    = 1 * time.Hour
	DefaultLowStockThreshold      = 5
	DefaultAccessHistoryDays      = 30

	DefaultEventsEnabled        = false
	DefaultReservationsTopic    = "cowork.reservations"
	DefaultReservationsDLQTopic = "cowork.reservations.dlq"
	DefaultBillingGroupID       = "cowork-billing"

	DefaultPaginationLimit = 10
	MaxPaginationLimit     = 100
)

const (
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	LockLocal = "local"
	LockMongo = "mongo"
	LockRedis = "redis"
)
