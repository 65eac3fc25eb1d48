package main

import (
	"spotbook/internal/bookings/handler"
	"spotbook/internal/bookings/repository"
	"spotbook/internal/bookings/service"
	"spotbook/internal/bookings/validator"
	"spotbook/internal/events"
	"spotbook/pkg/app"
	"spotbook/pkg/config"
	"spotbook/pkg/kafka"
	kafka_config "spotbook/pkg/kafka/config"
	kafkamw "spotbook/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	cfg.LogConfiguration()
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Bookings service")

	publisher, producer := initPublisher(cfg)
	if producer != nil {
		defer producer.Close()
	}

	bookingService := initServices(cfg, publisher)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log))
	serverApp.Run()
}

// initPublisher wires the Kafka producer if brokers are reachable by config.
// The service runs without eventing rather than refuse to start.
func initPublisher(cfg *config.Config) (events.Publisher, *kafka.Producer) {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Warn("Kafka disabled, invalid configuration", "error", err)
		return events.NoopPublisher{}, nil
	}

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQ)
	if err != nil {
		cfg.Log.Warn("Kafka disabled, producer setup failed", "error", err)
		return events.NoopPublisher{}, nil
	}

	producer.Use(kafkamw.ProducerLogging(cfg.Log))
	cfg.Log.Info("Booking events enabled", "topic", cfg.BookingEventsTopic)
	return events.NewKafkaPublisher(producer), producer
}

func initServices(cfg *config.Config, publisher events.Publisher) service.BookingService {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	spotRepo := repository.NewMongoSpotRepository(cfg)
	userRepo := repository.NewMongoUserRepository(cfg)
	lockRepo := repository.NewMongoSpotLockRepository(cfg)

	bookingService := service.NewBookingService(
		bookingRepo,
		spotRepo,
		userRepo,
		lockRepo,
		bookingValidator,
		publisher,
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}
