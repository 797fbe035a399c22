package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPostgresDSN = "POSTGRES_DSN"
	EnvRedisURL    = "REDIS_URL"

	EnvStorageBackend = "STORAGE_BACKEND"
	EnvLockBackend    = "LOCK_BACKEND"

	EnvLockWaitTimeout   = "LOCK_WAIT_TIMEOUT"
	EnvLockTTL           = "LOCK_TTL"
	EnvLockRetryInterval = "LOCK_RETRY_INTERVAL"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvMaxConflictsReported   = "MAX_CONFLICTS_REPORTED"
	EnvOccupancyWindow        = "OCCUPANCY_WINDOW"
	EnvOccupancySweepInterval = "OCCUPANCY_SWEEP_INTERVAL"
	EnvInvoiceDueDays         = "INVOICE_DUE_DAYS"
	EnvOverdueScanInterval    = "OVERDUE_SCAN_INTERVAL"
	EnvLowStockThreshold      = "LOW_STOCK_THRESHOLD"
	EnvAccessHistoryDays      = "ACCESS_HISTORY_DAYS"

	EnvEventsEnabled        = "EVENTS_ENABLED"
	EnvReservationsTopic    = "RESERVATIONS_TOPIC"
	EnvReservationsDLQTopic = "RESERVATIONS_DLQ_TOPIC"
	EnvBillingGroupID       = "BILLING_GROUP_ID"
)
