package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPostgresURL          = "POSTGRES_URL"
	EnvPostgresMaxOpenConns = "POSTGRES_MAX_OPEN_CONNS"
	EnvPostgresMaxIdleConns = "POSTGRES_MAX_IDLE_CONNS"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvTimeZone           = "TIME_ZONE"
	EnvOfficeOpen         = "OFFICE_OPEN"
	EnvOfficeClose        = "OFFICE_CLOSE"
	EnvDayLimit           = "DAY_LIMIT"
	EnvSlotGranularityMin = "SLOT_GRANULARITY_MIN"
	EnvIDMaxAttempts      = "ID_MAX_ATTEMPTS"

	EnvStoreBackend  = "STORE_BACKEND"
	EnvCSVPath       = "CSV_PATH"
	EnvCSVHardDelete = "CSV_HARD_DELETE"

	EnvLockBackend = "LOCK_BACKEND"
	EnvLockTTL     = "LOCK_TTL"

	EnvNotifier         = "NOTIFIER"
	EnvNotifyTimeout    = "NOTIFY_TIMEOUT"
	EnvBookingsTopic    = "BOOKINGS_TOPIC"
	EnvBookingsDLQTopic = "BOOKINGS_DLQ_TOPIC"
	EnvRabbitMQURL      = "RABBITMQ_URL"
	EnvRabbitMQQueue    = "RABBITMQ_QUEUE"

	EnvSMTPHost     = "SMTP_HOST"
	EnvSMTPPort     = "SMTP_PORT"
	EnvSMTPUsername = "SMTP_USERNAME"
	EnvSMTPPassword = "SMTP_PASSWORD"
	EnvSMTPFrom     = "SMTP_FROM"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
