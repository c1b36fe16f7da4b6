package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"roombook/pkg/client"
	"roombook/pkg/logger"
	"roombook/pkg/slots"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	PostgresURL          string
	PostgresMaxOpenConns int
	PostgresMaxIdleConns int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port string

	TimeZone           string
	OfficeOpen         string
	OfficeClose        string
	DayLimit           string
	SlotGranularityMin int
	IDMaxAttempts      int

	StoreBackend  string
	CSVPath       string
	CSVHardDelete bool

	LockBackend string
	LockTTL     time.Duration

	Notifier         string
	NotifyTimeout    time.Duration
	BookingsTopic    string
	BookingsDLQTopic string
	RabbitMQURL      string
	RabbitMQQueue    string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client

	location *time.Location
}

// Load reads an optional .env file and the environment, validates the
// result and exits on invalid configuration.
func Load(serviceName string) *Config {
	_ = godotenv.Load()

	cfg := FromEnv(serviceName)
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv builds a Config from environment variables without validating it.
func FromEnv(serviceName string) *Config {
	return &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		PostgresURL:          getEnvStr(EnvPostgresURL, DefaultPostgresURL),
		PostgresMaxOpenConns: getEnvNum(EnvPostgresMaxOpenConns, DefaultPostgresMaxOpenConns),
		PostgresMaxIdleConns: getEnvNum(EnvPostgresMaxIdleConns, DefaultPostgresMaxIdleConns),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		Port: getEnvStr(EnvPort, DefaultPort),

		TimeZone:           getEnvStr(EnvTimeZone, DefaultTimeZone),
		OfficeOpen:         getEnvStr(EnvOfficeOpen, DefaultOfficeOpen),
		OfficeClose:        getEnvStr(EnvOfficeClose, DefaultOfficeClose),
		DayLimit:           getEnvStr(EnvDayLimit, DefaultDayLimit),
		SlotGranularityMin: getEnvNum(EnvSlotGranularityMin, DefaultSlotGranularityMin),
		IDMaxAttempts:      getEnvNum(EnvIDMaxAttempts, DefaultIDMaxAttempts),

		StoreBackend:  strings.ToLower(getEnvStr(EnvStoreBackend, DefaultStoreBackend)),
		CSVPath:       getEnvStr(EnvCSVPath, DefaultCSVPath),
		CSVHardDelete: getEnvBool(EnvCSVHardDelete, DefaultCSVHardDelete),

		LockBackend: strings.ToLower(getEnvStr(EnvLockBackend, DefaultLockBackend)),
		LockTTL:     getEnvDuration(EnvLockTTL, DefaultLockTTL),

		Notifier:         strings.ToLower(getEnvStr(EnvNotifier, DefaultNotifier)),
		NotifyTimeout:    getEnvDuration(EnvNotifyTimeout, DefaultNotifyTimeout),
		BookingsTopic:    getEnvStr(EnvBookingsTopic, DefaultBookingsTopic),
		BookingsDLQTopic: getEnvStr(EnvBookingsDLQTopic, DefaultBookingsDLQTopic),
		RabbitMQURL:      getEnvStr(EnvRabbitMQURL, DefaultRabbitMQURL),
		RabbitMQQueue:    getEnvStr(EnvRabbitMQQueue, DefaultRabbitMQQueue),

		SMTPHost:     getEnvStr(EnvSMTPHost, ""),
		SMTPPort:     getEnvNum(EnvSMTPPort, DefaultSMTPPort),
		SMTPUsername: getEnvStr(EnvSMTPUsername, ""),
		SMTPPassword: getEnvStr(EnvSMTPPassword, ""),
		SMTPFrom:     getEnvStr(EnvSMTPFrom, DefaultSMTPFrom),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetPostgres() {
	cfg.Client.SetPostgres(cfg.Log, cfg.PostgresURL, cfg.PostgresMaxOpenConns, cfg.PostgresMaxIdleConns)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

// Location is the timezone that defines "today" and "now" for bookings.
func (cfg *Config) Location() *time.Location {
	if cfg.location != nil {
		return cfg.location
	}
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return time.UTC
	}
	cfg.location = loc
	return loc
}

// Generator builds the slot generator for the configured office hours.
// Call it only on a validated Config.
func (cfg *Config) Generator() *slots.Generator {
	return slots.NewGenerator(
		slots.MustParse(cfg.OfficeOpen),
		slots.MustParse(cfg.OfficeClose),
		slots.MustParse(cfg.DayLimit),
		cfg.SlotGranularityMin,
	)
}

func (cfg *Config) UsesMongo() bool {
	return cfg.StoreBackend == StoreMongo || cfg.LockBackend == LockMongo
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		errors = append(errors, fmt.Sprintf("TimeZone must be a valid IANA zone, got: %s", cfg.TimeZone))
	}

	open, openErr := slots.Parse(cfg.OfficeOpen)
	if openErr != nil {
		errors = append(errors, fmt.Sprintf("OfficeOpen must be in HH:MM format (00:00-23:59), got: %s", cfg.OfficeOpen))
	}
	closing, closeErr := slots.Parse(cfg.OfficeClose)
	if closeErr != nil {
		errors = append(errors, fmt.Sprintf("OfficeClose must be in HH:MM format (00:00-23:59), got: %s", cfg.OfficeClose))
	}
	limit, limitErr := slots.Parse(cfg.DayLimit)
	if limitErr != nil {
		errors = append(errors, fmt.Sprintf("DayLimit must be in HH:MM format (00:00-23:59), got: %s", cfg.DayLimit))
	}
	if openErr == nil && closeErr == nil && open > closing {
		errors = append(errors, fmt.Sprintf("OfficeOpen (%s) must not be after OfficeClose (%s)", cfg.OfficeOpen, cfg.OfficeClose))
	}
	if closeErr == nil && limitErr == nil && closing > limit {
		errors = append(errors, fmt.Sprintf("OfficeClose (%s) must not be after DayLimit (%s)", cfg.OfficeClose, cfg.DayLimit))
	}

	if cfg.SlotGranularityMin <= 0 || slots.MinutesPerDay%cfg.SlotGranularityMin != 0 {
		errors = append(errors, fmt.Sprintf("SlotGranularityMin must be a positive divisor of 1440, got: %d", cfg.SlotGranularityMin))
	}
	if cfg.IDMaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("IDMaxAttempts must be positive, got: %d", cfg.IDMaxAttempts))
	}

	switch cfg.StoreBackend {
	case StoreCSV:
		if cfg.CSVPath == "" {
			errors = append(errors, "CSVPath cannot be empty when StoreBackend is csv")
		}
	case StoreMongo:
	case StorePostgres:
		if !regexp.MustCompile(`^postgres(ql)?://`).MatchString(cfg.PostgresURL) {
			errors = append(errors, fmt.Sprintf("PostgresURL must start with 'postgres://' or 'postgresql://', got: %s", redactURI(cfg.PostgresURL)))
		}
		if cfg.PostgresMaxOpenConns <= 0 {
			errors = append(errors, fmt.Sprintf("PostgresMaxOpenConns must be positive, got: %d", cfg.PostgresMaxOpenConns))
		}
	default:
		errors = append(errors, fmt.Sprintf("StoreBackend must be one of [csv, mongo, postgres], got: %s", cfg.StoreBackend))
	}

	switch cfg.LockBackend {
	case LockLocal, LockMongo:
	case LockRedis:
		if cfg.RedisAddr == "" {
			errors = append(errors, "RedisAddr cannot be empty when LockBackend is redis")
		}
	default:
		errors = append(errors, fmt.Sprintf("LockBackend must be one of [local, mongo, redis], got: %s", cfg.LockBackend))
	}
	if cfg.LockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("LockTTL must be positive, got: %s", cfg.LockTTL))
	}

	if cfg.UsesMongo() {
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
		if cfg.MongoConnTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
		}
	}

	switch cfg.Notifier {
	case NotifierLog:
	case NotifierKafka:
		if cfg.BookingsTopic == "" {
			errors = append(errors, "BookingsTopic cannot be empty when Notifier is kafka")
		}
	case NotifierRabbitMQ:
		if !regexp.MustCompile(`^amqps?://`).MatchString(cfg.RabbitMQURL) {
			errors = append(errors, fmt.Sprintf("RabbitMQURL must start with 'amqp://' or 'amqps://', got: %s", redactURI(cfg.RabbitMQURL)))
		}
		if cfg.RabbitMQQueue == "" {
			errors = append(errors, "RabbitMQQueue cannot be empty when Notifier is rabbitmq")
		}
	default:
		errors = append(errors, fmt.Sprintf("Notifier must be one of [log, kafka, rabbitmq], got: %s", cfg.Notifier))
	}
	if cfg.NotifyTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("NotifyTimeout must be positive, got: %s", cfg.NotifyTimeout))
	}

	if cfg.SMTPHost != "" && (cfg.SMTPPort < 1 || cfg.SMTPPort > 65535) {
		errors = append(errors, fmt.Sprintf("SMTPPort must be between 1 and 65535, got: %d", cfg.SMTPPort))
	}

	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
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
		"port", cfg.Port,
		"time_zone", cfg.TimeZone,
		"office_open", cfg.OfficeOpen,
		"office_close", cfg.OfficeClose,
		"day_limit", cfg.DayLimit,
		"slot_granularity_min", cfg.SlotGranularityMin,
		"id_max_attempts", cfg.IDMaxAttempts,
		"store_backend", cfg.StoreBackend,
		"csv_path", cfg.CSVPath,
		"csv_hard_delete", cfg.CSVHardDelete,
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"postgres_url", redactURI(cfg.PostgresURL),
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"lock_backend", cfg.LockBackend,
		"lock_ttl", cfg.LockTTL,
		"notifier", cfg.Notifier,
		"notify_timeout", cfg.NotifyTimeout,
		"bookings_topic", cfg.BookingsTopic,
		"rabbitmq_url", redactURI(cfg.RabbitMQURL),
		"smtp_host", cfg.SMTPHost,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

var credentialRegex = regexp.MustCompile(`([a-z][a-z0-9+.-]*://)[^:/@]+:[^@]+@`)

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
