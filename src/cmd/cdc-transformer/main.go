package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"florencia/src/adapters/kafka/consumers"
	"florencia/src/domain"
	"florencia/src/helper/env"
	"florencia/src/infra/debezium"
	"florencia/src/infra/kafka"
	"florencia/src/services/events"
)

func main() {
	log.SetOutput(os.Stdout)
	log.Println("Starting records CDC transformer with Uber Fx...")

	app := fx.New(
		// Providers
		fx.Provide(
			newLogger,
			newKafkaClient,
			newCDCClient,
			newCDCTransformer,
			newChangePublisher,
			newCDCConsumer,
		),

		// Invocations
		fx.Invoke(startConsumer),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start CDC transformer application: %v", err)
	}

	// encerra com o sinal ou quando o consumer pede shutdown
	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}

	log.Println("CDC transformer shutdown complete")
}

func newLogger() *slog.Logger {
	logLevel := env.GetString("LOG_LEVEL", "info")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func newKafkaClient(logger *slog.Logger) (*kafka.KafkaClient, error) {
	brokers := env.MustGetString("KAFKA_BROKERS")
	groupID := env.MustGetString("KAFKA_CDC_CONSUMER_GROUP_ID")
	batchSize := env.MustGetInt("KAFKA_BATCH_SIZE")

	return kafka.NewKafkaClient(brokers, groupID, batchSize, logger)
}

func newCDCClient(logger *slog.Logger, kafkaClient *kafka.KafkaClient) *debezium.CDCClient {
	topic := env.MustGetString("KAFKA_CDC_TOPIC")
	tables := env.GetStrings("KAFKA_CDC_TABLES", domain.TableRecords)

	return debezium.NewCDCClient(logger, topic, kafkaClient, tables)
}

func newCDCTransformer(logger *slog.Logger) *events.RecordChangeTransformer {
	return events.NewRecordChangeTransformer(logger)
}

func newChangePublisher(
	logger *slog.Logger,
	kafkaClient *kafka.KafkaClient,
) *events.ChangePublisher {
	topic := env.MustGetString("KAFKA_RECORD_CHANGES_TOPIC")
	return events.NewChangePublisher(logger, kafkaClient, topic)
}

func newCDCConsumer(
	logger *slog.Logger,
	cdcClient *debezium.CDCClient,
	transformer *events.RecordChangeTransformer,
	publisher *events.ChangePublisher,
) *consumers.CDCConsumer {
	return consumers.NewCDCConsumer(logger, cdcClient, transformer, publisher)
}

// startConsumer roda o consumer com um contexto próprio, cancelado no OnStop.
// Uma falha definitiva derruba a aplicação para o orquestrador reiniciá-la.
func startConsumer(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	logger *slog.Logger,
	cdcConsumer *consumers.CDCConsumer,
) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("starting records CDC transformer")

			go func() {
				defer close(done)
				if err := cdcConsumer.Start(ctx); err != nil && ctx.Err() == nil {
					logger.Error("CDC consumer failed", "error", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()

			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()

			select {
			case <-done:
			case <-stopCtx.Done():
				logger.Warn("CDC consumer did not stop in time")
			}

			if err := cdcConsumer.Close(); err != nil {
				logger.Error("failed to close CDC consumer", "error", err)
				return err
			}
			logger.Info("CDC consumer shut down gracefully")
			return nil
		},
	})
}
