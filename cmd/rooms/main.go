package main

import (
	"roombook/internal/bookings/handler"
	"roombook/internal/bookings/notifier"
	"roombook/internal/bookings/repository"
	"roombook/internal/bookings/service"
	"roombook/internal/bookings/validator"
	"roombook/pkg/app"
	"roombook/pkg/config"
	"roombook/pkg/kafka"
	kafkaconfig "roombook/pkg/kafka/config"
	kafkamiddleware "roombook/pkg/kafka/middleware"
	"roombook/pkg/model"
)

const ServiceName = "rooms"

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting Rooms service")
	store := initStore(cfg)
	locker := initLocker(cfg)
	bookingNotifier := initNotifier(cfg)

	bookingValidator := validator.NewBookingValidator(cfg.Generator(), model.DefaultCatalog(), cfg.Location(), cfg.Log)
	bookingService := service.NewBookingService(store, locker, bookingNotifier, bookingValidator, cfg)
	cfg.Log.Info("Booking service initialized", "store", cfg.StoreBackend, "lock", cfg.LockBackend, "notifier", cfg.Notifier)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewBookingHandler(bookingService, cfg.Log),
		handler.NewHealthHandler(store, cfg.Log),
	)
	serverApp.OnShutdown(bookingNotifier)
	serverApp.Run()
}

func initStore(cfg *config.Config) repository.BookingStore {
	if cfg.UsesMongo() {
		cfg.SetMongo()
	}

	switch cfg.StoreBackend {
	case config.StoreMongo:
		return repository.NewMongoBookingStore(cfg)
	case config.StorePostgres:
		cfg.SetPostgres()
		return repository.NewPostgresBookingStore(cfg)
	default:
		return repository.NewCSVBookingStore(cfg.CSVPath, cfg.CSVHardDelete, cfg.Log)
	}
}

func initLocker(cfg *config.Config) repository.SlotLocker {
	switch cfg.LockBackend {
	case config.LockMongo:
		return repository.NewMongoSlotLocker(cfg)
	case config.LockRedis:
		cfg.SetRedis()
		return repository.NewRedisSlotLocker(cfg.Client.Redis)
	default:
		return repository.NewLocalSlotLocker()
	}
}

func initNotifier(cfg *config.Config) notifier.Notifier {
	switch cfg.Notifier {
	case config.NotifierKafka:
		kafkaCfg, err := kafkaconfig.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		kafkaCfg.LogConfiguration(cfg.Log)

		producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingsTopic, cfg.BookingsDLQTopic, cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		if kafkaCfg.EnableMiddleware {
			producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
		}
		return notifier.NewKafkaNotifier(producer, ServiceName)

	case config.NotifierRabbitMQ:
		n, err := notifier.DialRabbitMQ(cfg.RabbitMQURL, cfg.RabbitMQQueue)
		if err != nil {
			cfg.Log.Fatal("Failed to connect to RabbitMQ", "error", err)
		}
		return n

	default:
		return notifier.NewLogNotifier(cfg.Log)
	}
}
