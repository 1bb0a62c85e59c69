package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.uber.org/fx"
	"golang.org/x/crypto/bcrypt"

	httpadapter "florencia/src/adapters/http"
	"florencia/src/adapters/kafka/consumers"
	"florencia/src/domain"
	"florencia/src/helper/config"
	"florencia/src/helper/env"
	"florencia/src/infra/cloudinary"
	"florencia/src/infra/kafka"
	"florencia/src/infra/postgres"
	"florencia/src/infra/redis"
	"florencia/src/repositories"
	"florencia/src/services/catalog"
	"florencia/src/services/feed"
	"florencia/src/services/identity"
	"florencia/src/services/synchronization"
	"florencia/src/services/validation"
)

func main() {
	log.SetOutput(os.Stdout)
	log.Println("Starting Florencia API server with Uber Fx...")

	app := fx.New(
		// Providers
		fx.Provide(
			newLogger,
			newCatalogSettings,
			newRemoteTimeout,
			newReadWriteClient,
			newRedisClient,
			newKafkaClient,
			newRecordRepository,
			newCachedRecordRepository,
			newAccountRepository,
			newSessionRepository,
			newBroadcaster,
			newLiveRecordStore,
			newMediaUploader,
			newIdentityProvider,
			newProfileRegistry,
			newIdentityService,
			newCatalogService,
			newCatalogController,
			newRecordChangesConsumer,
			newServer,
		),

		// Invocations
		fx.Invoke(registerServerHooks, registerConsumerHooks),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	<-app.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Printf("Failed to stop application gracefully: %v", err)
	}
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

func newCatalogSettings() (config.Catalog, error) {
	return config.LoadCatalog(env.GetString("CATALOG_CONFIG", ""))
}

type remoteTimeout time.Duration

func newRemoteTimeout() remoteTimeout {
	return remoteTimeout(env.GetDuration("REMOTE_TIMEOUT_MS", synchronization.DefaultRemoteTimeout))
}

// newReadWriteClient abre os pools e aplica as migrações pendentes no banco de escrita.
func newReadWriteClient(lc fx.Lifecycle, logger *slog.Logger) (*postgres.ReadWriteClient, error) {
	dbWriteHost := env.MustGetString("DB_WRITE_HOST")
	dbReadHost := env.GetString("DB_READ_HOST", dbWriteHost)
	dbReadPort := env.GetString("DB_READ_PORT", "5432")
	dbWritePort := env.GetString("DB_WRITE_PORT", "5432")
	dbname := env.MustGetString("DB_NAME")
	dbUser := env.MustGetString("DB_USER")
	dbPassword := env.MustGetString("DB_PASSWORD")
	maxConnections := env.GetInt("DB_MAX_POOL_CONNECTIONS", 25)

	client, err := postgres.NewReadWriteClient(dbReadHost, dbWriteHost, dbReadPort, dbWritePort, dbname, dbUser, dbPassword, maxConnections)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.HealthCheck(ctx); err != nil {
				return err
			}
			if !env.GetBool("DB_MIGRATE", true) {
				return nil
			}
			return postgres.Migrate(ctx, client.GetWritePool(), logger)
		},
		OnStop: func(ctx context.Context) error {
			client.Close()
			return nil
		},
	})

	return client, nil
}

func newRedisClient(lc fx.Lifecycle) *redis.RedisClient {
	redisHosts := env.MustGetString("REDIS_HOSTS")
	redisPoolSize := env.GetInt("REDIS_POOL_SIZE", 50)
	redisDefaultTTLSeconds := env.GetInt("REDIS_DEFAULT_TTL_SECONDS", 120)
	redisDefaultTTL := time.Duration(redisDefaultTTLSeconds) * time.Second

	client := redis.NewRedisClient(redisHosts, redisPoolSize, redisDefaultTTL)
	lc.Append(fx.Hook{
		OnStart: client.HealthCheck,
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

// newKafkaClient usa um grupo por instância: cada processo precisa de todas as mudanças para o seu feed local.
func newKafkaClient(logger *slog.Logger) (*kafka.KafkaClient, error) {
	brokers := env.MustGetString("KAFKA_BROKERS")
	hostname, _ := os.Hostname()
	groupID := env.GetString("KAFKA_RECORD_CHANGES_GROUP_ID", fmt.Sprintf("florencia-server-%s", hostname))
	batchSize := env.GetInt("KAFKA_BATCH_SIZE", 100)

	return kafka.NewKafkaClient(brokers, groupID, batchSize, logger)
}

func newRecordRepository(readWriteClient *postgres.ReadWriteClient) *repositories.RecordRepository {
	return repositories.NewRecordRepository(readWriteClient.GetReadPool(), readWriteClient.GetWritePool())
}

func newCachedRecordRepository(
	recordRepository *repositories.RecordRepository,
	redisClient *redis.RedisClient,
	logger *slog.Logger,
) *repositories.CachedRecordRepository {
	return repositories.NewCachedRecordRepository(recordRepository, redisClient, logger)
}

func newAccountRepository(readWriteClient *postgres.ReadWriteClient) *repositories.AccountRepository {
	return repositories.NewAccountRepository(readWriteClient.GetReadPool(), readWriteClient.GetWritePool())
}

func newSessionRepository(redisClient *redis.RedisClient) *repositories.SessionRepository {
	ttl := env.GetDuration("SESSION_TTL", 24*time.Hour)
	return repositories.NewSessionRepository(redisClient, ttl)
}

func newBroadcaster(logger *slog.Logger) *feed.Broadcaster {
	return feed.NewBroadcaster(logger)
}

func newLiveRecordStore(
	cached *repositories.CachedRecordRepository,
	broadcaster *feed.Broadcaster,
	timeout remoteTimeout,
	logger *slog.Logger,
) *repositories.LiveRecordStore {
	return repositories.NewLiveRecordStore(cached, broadcaster, time.Duration(timeout), logger)
}

func newMediaUploader(settings config.Catalog, logger *slog.Logger) *cloudinary.Client {
	return cloudinary.NewClient(cloudinary.Config{
		BaseURL:       env.GetString("CLOUDINARY_BASE_URL", cloudinary.DefaultBaseURL),
		CloudName:     env.MustGetString("CLOUDINARY_CLOUD_NAME"),
		UploadPreset:  env.MustGetString("CLOUDINARY_UPLOAD_PRESET"),
		RatePerSecond: settings.Upload.RatePerSecond,
		Burst:         settings.Upload.Burst,
		Timeout:       settings.Upload.Timeout,
	}, logger)
}

func secretPolicy(settings config.Catalog) validation.SecretPolicy {
	return validation.SecretPolicy{RequireSpecial: settings.Password.RequireSpecial}
}

func newIdentityProvider(
	accounts *repositories.AccountRepository,
	sessions *repositories.SessionRepository,
	settings config.Catalog,
	logger *slog.Logger,
) *identity.LocalProvider {
	cost := env.GetInt("BCRYPT_COST", bcrypt.DefaultCost)
	return identity.NewLocalProvider(accounts, sessions, secretPolicy(settings), cost, logger)
}

func noticeLogger(logger *slog.Logger) domain.Notifier {
	return func(notice domain.Notice) {
		logger.Debug("notice", "kind", notice.Kind, "title", notice.Title, "message", notice.Message)
	}
}

func newProfileRegistry(
	lc fx.Lifecycle,
	cached *repositories.CachedRecordRepository,
	uploader *cloudinary.Client,
	timeout remoteTimeout,
	logger *slog.Logger,
) *synchronization.ProfileRegistry {
	registry := synchronization.NewProfileRegistry(synchronization.ProfileDeps{
		Store:    cached,
		Uploader: uploader,
		Logger:   logger,
		Notifier: noticeLogger(logger),
		Timeout:  time.Duration(timeout),
	})

	maxIdle := env.GetDuration("PROFILE_IDLE_TTL", 30*time.Minute)
	sweepInterval := env.GetDuration("PROFILE_SWEEP_INTERVAL", time.Minute)
	sweepCtx, stopSweep := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go registry.RunEviction(sweepCtx, sweepInterval, maxIdle)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopSweep()
			registry.CloseAll()
			return nil
		},
	})
	return registry
}

func newIdentityService(
	provider *identity.LocalProvider,
	cached *repositories.CachedRecordRepository,
	registry *synchronization.ProfileRegistry,
	settings config.Catalog,
	timeout remoteTimeout,
	logger *slog.Logger,
) *identity.IdentityService {
	return identity.NewIdentityService(provider, cached, registry, secretPolicy(settings), time.Duration(timeout), logger)
}

func newCatalogService(
	cached *repositories.CachedRecordRepository,
	uploader *cloudinary.Client,
	settings config.Catalog,
	timeout remoteTimeout,
	logger *slog.Logger,
) *catalog.CatalogService {
	return catalog.NewCatalogService(cached, uploader, settings, time.Duration(timeout), logger)
}

// newCatalogController só assina a coleção no OnStart. O hook do ReadWriteClient
// é registrado antes (dependência), então a assinatura lê um banco já migrado.
func newCatalogController(
	lc fx.Lifecycle,
	_ *postgres.ReadWriteClient,
	live *repositories.LiveRecordStore,
	timeout remoteTimeout,
	logger *slog.Logger,
) *synchronization.CatalogController {
	controller := synchronization.NewLazyCatalogController(synchronization.CatalogDeps{
		Store:    live,
		Logger:   logger,
		Notifier: noticeLogger(logger),
		Timeout:  time.Duration(timeout),
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return controller.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			controller.Close()
			return nil
		},
	})
	return controller
}

func newRecordChangesConsumer(
	logger *slog.Logger,
	broadcaster *feed.Broadcaster,
	cached *repositories.CachedRecordRepository,
) *consumers.RecordChangesConsumer {
	return consumers.NewRecordChangesConsumer(logger, broadcaster, cached)
}

func newServer(
	logger *slog.Logger,
	identityService *identity.IdentityService,
	registry *synchronization.ProfileRegistry,
	catalogService *catalog.CatalogService,
	catalogController *synchronization.CatalogController,
) *httpadapter.Server {
	port := env.GetInt("SERVER_PORT", 8888)
	return httpadapter.NewServer(logger, port, identityService, registry, catalogService, catalogController)
}

// registerServerHooks registers lifecycle hooks for the HTTP server
func registerServerHooks(lc fx.Lifecycle, shutdowner fx.Shutdowner, logger *slog.Logger, srv *httpadapter.Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", "error", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server forced to shutdown", "error", err)
				return err
			}
			logger.Info("server exited gracefully")
			return nil
		},
	})
}

// registerConsumerHooks liga o tópico de mudanças ao feed local das assinaturas.
func registerConsumerHooks(
	lc fx.Lifecycle,
	logger *slog.Logger,
	kafkaClient *kafka.KafkaClient,
	consumer *consumers.RecordChangesConsumer,
) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			topic := env.MustGetString("KAFKA_RECORD_CHANGES_TOPIC")

			go func() {
				if err := consumer.Start(ctx, kafkaClient, topic); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("record changes consumer failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			if err := kafkaClient.Close(); err != nil {
				logger.Error("failed to close Kafka client", "error", err)
				return err
			}
			return nil
		},
	})
}
