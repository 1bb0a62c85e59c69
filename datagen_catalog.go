//go:build datagen_catalog
// +build datagen_catalog

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/go-faker/faker/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/helper/config"
	"florencia/src/helper/env"
	"florencia/src/infra/kafka"
	"florencia/src/infra/postgres"
	"florencia/src/repositories"
	"florencia/src/services/events"
	"florencia/src/services/merge"
)

func newReadWriteClient() (*postgres.ReadWriteClient, error) {
	dbHost := env.MustGetString("DB_WRITE_HOST")
	dbPort := env.GetString("DB_WRITE_PORT", "5432")
	dbname := env.MustGetString("DB_NAME")
	dbUser := env.MustGetString("DB_USER")
	dbPassword := env.MustGetString("DB_PASSWORD")

	return postgres.NewReadWriteClient(dbHost, dbHost, dbPort, dbPort, dbname, dbUser, dbPassword, 50)
}

// generateProduct cria um produto com categoria do catálogo e alguns campos opcionais vazios.
func generateProduct(categories []string) entities.Fields {
	name := strings.TrimSpace(fmt.Sprintf("%s %s", cases.Title(language.Spanish).String(faker.Word()), faker.Word()))
	fields := entities.Fields{
		entities.FieldName:        name,
		entities.FieldPrice:       gofakeit.Price(100, 25000),
		entities.FieldQuantity:    float64(gofakeit.Number(0, 200)),
		entities.FieldCategory:    categories[rand.Intn(len(categories))],
		entities.FieldDescription: "",
		entities.FieldMediaRef:    "",
		entities.FieldActive:      true,
	}
	if rand.Intn(3) > 0 {
		fields[entities.FieldDescription] = faker.Sentence()
	}
	return merge.Merge(entities.ProductSchema, merge.Sources{Navigation: &entities.Record{Fields: fields}}).Fields
}

func main() {
	numProducts := flag.Int("products", 200, "Número de produtos a criar")
	workers := flag.Int("workers", 8, "Gravações concorrentes")
	publish := flag.Bool("publish", false, "Publica cada produto no tópico de mudanças (ambientes sem Debezium)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	settings, err := config.LoadCatalog(env.GetString("CATALOG_CONFIG", ""))
	if err != nil {
		log.Fatalf("Failed to load catalog settings: %v", err)
	}

	client, err := newReadWriteClient()
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	if err := postgres.Migrate(ctx, client.GetWritePool(), logger); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	store := repositories.NewRecordRepository(client.GetReadPool(), client.GetWritePool())

	var publisher *events.ChangePublisher
	if *publish {
		kafkaClient, err := kafka.NewKafkaClient(env.MustGetString("KAFKA_BROKERS"), "florencia-datagen", 1, logger)
		if err != nil {
			log.Fatalf("Failed to create Kafka client: %v", err)
		}
		defer kafkaClient.Close()
		publisher = events.NewChangePublisher(logger, kafkaClient, env.MustGetString("KAFKA_RECORD_CHANGES_TOPIC"))
	}

	var created, failed int64
	startTime := time.Now()

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(*workers)

	for i := 0; i < *numProducts; i++ {
		if groupCtx.Err() != nil {
			break
		}

		group.Go(func() error {
			identity := uuid.NewString()
			fields := generateProduct(settings.Categories)

			if err := store.PutRecord(groupCtx, entities.CollectionProducts, identity, fields, false); err != nil {
				atomic.AddInt64(&failed, 1)
				log.Printf("❌ failed to insert product %s: %v", identity, err)
				return nil
			}
			atomic.AddInt64(&created, 1)

			if publisher == nil {
				return nil
			}
			return publisher.PublishChanges(groupCtx, []domain.RecordChange{{
				EventID:    uuid.NewString(),
				Collection: entities.CollectionProducts,
				Identity:   identity,
				Operation:  domain.OperationInsert,
				Fields:     fields,
				OccurredAt: time.Now().UTC(),
			}})
		})
	}

	if err := group.Wait(); err != nil {
		log.Printf("Stopped with error: %v", err)
	}

	fmt.Printf("📊 Created: %d | Errors: %d | Elapsed: %v\n", created, failed, time.Since(startTime).Round(time.Millisecond))
}
