package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roombook/internal/bookings/notifier"
	"roombook/internal/mailer"
	"roombook/pkg/config"
	"roombook/pkg/kafka"
	kafkaconfig "roombook/pkg/kafka/config"
	kafkamiddleware "roombook/pkg/kafka/middleware"

	amqp "github.com/rabbitmq/amqp091-go"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)

	m := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, cfg.Log)
	dispatcher := notifier.NewEmailDispatcher(m, cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Notifier {
	case config.NotifierRabbitMQ:
		runRabbitMQ(ctx, cfg, dispatcher)
	default:
		runKafka(ctx, cfg, dispatcher)
	}

	cfg.Log.Info("Notifier stopped")
}

func runKafka(ctx context.Context, cfg *config.Config, dispatcher *notifier.EmailDispatcher) {
	kafkaCfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.BookingsTopic, cfg.BookingsDLQTopic, dispatcher.HandleMessage, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}

	metrics := kafkamiddleware.NewMetrics()
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafkamiddleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(metrics.ConsumerMiddleware())
	}

	cfg.Log.Info("Consuming booking events", "topic", cfg.BookingsTopic)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Kafka consumer stopped with error", "error", err)
	}
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}

	s := metrics.Snapshot()
	cfg.Log.Info("Kafka consumer summary", "consumed", s.Consumed, "failed", s.ConsumeFailed)
}

func runRabbitMQ(ctx context.Context, cfg *config.Config, dispatcher *notifier.EmailDispatcher) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		cfg.Log.Fatal("Failed to connect to RabbitMQ", "error", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		cfg.Log.Fatal("Failed to open RabbitMQ channel", "error", err)
	}
	defer ch.Close()

	handle := func(ctx context.Context, event notifier.BookingEvent) error {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return dispatcher.HandleEvent(ctx, event)
	}

	if err := notifier.ConsumeRabbitMQ(ctx, ch, cfg.RabbitMQQueue, handle, cfg.Log); err != nil {
		cfg.Log.Error("RabbitMQ consumer stopped with error", "error", err)
	}
}
