package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"spotbook/internal/events"
	"spotbook/pkg/config"
	"spotbook/pkg/kafka"
	kafka_config "spotbook/pkg/kafka/config"
	kafkamw "spotbook/pkg/kafka/middleware"
)

const ServiceName = "notifier"

const consumerGroup = "notifier"

func main() {
	cfg := config.Load(ServiceName)

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.BookingEventsTopic, consumerGroup, cfg.BookingEventsDLQ)
	if err != nil {
		cfg.Log.Fatal("Failed to create consumer", "error", err)
	}
	defer consumer.Close()

	consumer.Use(kafkamw.ConsumerLogging(cfg.Log))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		cfg.Log.Info("Shutdown signal received", "signal", sig)
		cancel()
	}()

	cfg.Log.Info("Starting notifier", "topic", cfg.BookingEventsTopic, "group", consumerGroup)

	err = consumer.Consume(ctx, func(ctx context.Context, msg kafka.Message) error {
		var event events.BookingEvent
		if err := msg.DecodeValue(&event); err != nil {
			return err
		}
		notify(cfg, event)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Fatal("Consumer stopped", "error", err)
	}

	cfg.Log.Info("Notifier stopped gracefully")
}

// notify is where delivery channels (email, push) plug in. For now the event
// is recorded so downstream teams can tail the log stream.
func notify(cfg *config.Config, event events.BookingEvent) {
	cfg.Log.Info("Booking event received",
		"type", event.Type,
		"booking_id", event.BookingID,
		"spot_id", event.SpotID,
		"user_id", event.UserID,
		"start_date", event.StartDate,
		"end_date", event.EndDate,
	)
}
