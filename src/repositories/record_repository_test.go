package repositories_test

import (
	"context"
	"errors"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/helper/env"
	"florencia/src/infra/postgres"
	"florencia/src/infra/redis"
	"florencia/src/repositories"
	"florencia/src/test_artefacts/comparer"
	"florencia/src/test_artefacts/stubs"
	"florencia/src/test_artefacts/test_seeder"
)

// Testes de integração: rodam apenas com TEST_DB_* (e TEST_REDIS_HOSTS para o cache) definidos.
var _ = Describe("Postgres repositories", func() {
	var (
		readWriteClient  *postgres.ReadWriteClient
		seeder           test_seeder.TestSeeder
		recordRepository *repositories.RecordRepository
		ctx              context.Context
		err              error
	)

	dbWriteHost := env.GetString("TEST_DB_WRITE_HOST", "")
	dbReadHost := env.GetString("TEST_DB_READ_HOST", dbWriteHost)
	dbReadPort := env.GetString("TEST_DB_READ_PORT", "5432")
	dbWritePort := env.GetString("TEST_DB_WRITE_PORT", "5432")
	dbname := env.GetString("TEST_DB_NAME", "")
	dbUser := env.GetString("TEST_DB_USER", "")
	dbPassword := env.GetString("TEST_DB_PASSWORD", "")
	maxConnections := env.GetInt("TEST_DB_MAX_POOL_CONNECTIONS", 5)

	redisAddrs := env.GetString("TEST_REDIS_HOSTS", "")
	redisPoolSize := env.GetInt("TEST_REDIS_POOL_SIZE", 10)
	redisTTL := env.GetInt("TEST_REDIS_TTL_SECONDS", 60)

	BeforeEach(func() {
		if dbWriteHost == "" || dbname == "" {
			Skip("TEST_DB_WRITE_HOST and TEST_DB_NAME are not set")
		}
		ctx = context.Background()

		readWriteClient, err = postgres.NewReadWriteClient(dbReadHost, dbWriteHost, dbReadPort, dbWritePort, dbname, dbUser, dbPassword, maxConnections)
		Expect(err).NotTo(HaveOccurred())

		recordRepository = repositories.NewRecordRepository(readWriteClient.GetReadPool(), readWriteClient.GetWritePool())
		seeder = test_seeder.New(readWriteClient.GetWritePool())

		seeder.Migrate(ctx)
		seeder.TruncateTables(ctx)
	})

	AfterEach(func() {
		if readWriteClient == nil {
			return
		}
		readWriteClient.Close()
	})

	Describe("RecordRepository", func() {
		When("putting with mergeExisting", func() {
			It("keeps the stored fields that the update does not carry", func() {
				// ARRANGE
				profile := stubs.NewProfileStub().WithField(entities.FieldAddress, "Main St").Get()
				seeder.InsertRecord(ctx, profile)

				// ACT
				err := recordRepository.PutRecord(ctx, entities.CollectionUsers, profile.Identity, entities.Fields{entities.FieldPhone: "555"}, true)

				// ASSERT
				Expect(err).NotTo(HaveOccurred())
				fields, err := seeder.SelectFields(ctx, entities.CollectionUsers, profile.Identity)
				Expect(err).NotTo(HaveOccurred())
				Expect(fields[entities.FieldAddress]).To(Equal("Main St"))
				Expect(fields[entities.FieldPhone]).To(Equal("555"))
				Expect(fields).To(HaveLen(len(profile.Fields)))
			})
		})

		When("putting without mergeExisting", func() {
			It("replaces the document and keeps createdAt", func() {
				// ARRANGE
				createdAt := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
				product := stubs.NewProductStub().WithCreatedAt(createdAt).Get()
				seeder.InsertRecord(ctx, product)

				// ACT
				err := recordRepository.PutRecord(ctx, entities.CollectionProducts, product.Identity, entities.Fields{entities.FieldName: "Agua"}, false)

				// ASSERT
				Expect(err).NotTo(HaveOccurred())
				stored, found, err := recordRepository.GetRecord(ctx, entities.CollectionProducts, product.Identity)
				Expect(err).NotTo(HaveOccurred())
				Expect(found).To(BeTrue())
				Expect(stored.Fields).To(BeComparableTo(entities.Fields{entities.FieldName: "Agua"}))
				Expect(stored.CreatedAt).To(BeComparableTo(createdAt, comparer.TimeWithinTolerance(time.Millisecond)))
			})
		})

		It("reports a missing record as not found", func() {
			// ACT
			_, found, err := recordRepository.GetRecord(ctx, entities.CollectionUsers, "missing")

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})

		It("lists a collection newest first", func() {
			// ARRANGE
			base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
			older := stubs.NewProductStub().WithCreatedAt(base).Get()
			newer := stubs.NewProductStub().WithCreatedAt(base.Add(time.Hour)).Get()
			seeder.InsertRecord(ctx, older)
			seeder.InsertRecord(ctx, newer)
			seeder.InsertRecord(ctx, stubs.NewProfileStub().Get())

			// ACT
			records, err := recordRepository.QueryAll(ctx, entities.CollectionProducts)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].Identity).To(Equal(newer.Identity))
			Expect(records[1].Identity).To(Equal(older.Identity))
			Expect(records[0]).To(BeComparableTo(newer, comparer.IgnoreRecordTimestamps(), comparer.FieldsAsJSON()))
		})

		It("deletes exactly one record", func() {
			// ARRANGE
			kept := stubs.NewProductStub().Get()
			removed := stubs.NewProductStub().Get()
			seeder.InsertRecord(ctx, kept)
			seeder.InsertRecord(ctx, removed)

			// ACT
			err := recordRepository.DeleteRecord(ctx, entities.CollectionProducts, removed.Identity)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			count, err := seeder.CountRecords(ctx, entities.CollectionProducts)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))

			err = recordRepository.DeleteRecord(ctx, entities.CollectionProducts, removed.Identity)
			Expect(errors.Is(err, domain.ErrRecordNotFound)).To(BeTrue())
		})
	})

	Describe("AccountRepository", func() {
		It("stores accounts and rejects a duplicated email", func() {
			// ARRANGE
			accountRepository := repositories.NewAccountRepository(readWriteClient.GetReadPool(), readWriteClient.GetWritePool())
			account := entities.Account{ID: "uid-1", Email: "a@b.com", SecretHash: "hash", Name: "Ana"}

			// ACT
			err := accountRepository.CreateAccount(ctx, account)
			duplicateErr := accountRepository.CreateAccount(ctx, entities.Account{ID: "uid-2", Email: "a@b.com", SecretHash: "hash"})

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(duplicateErr).To(MatchError(domain.ErrEmailTaken))

			stored, found, err := accountRepository.FindAccountByEmail(ctx, "a@b.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(stored.ID).To(Equal("uid-1"))
			Expect(stored.Name).To(Equal("Ana"))
			Expect(stored.LastName).To(BeEmpty())
		})
	})

	Describe("CachedRecordRepository", func() {
		var (
			redisClient *redis.RedisClient
			cached      *repositories.CachedRecordRepository
		)

		BeforeEach(func() {
			if redisAddrs == "" {
				Skip("TEST_REDIS_HOSTS is not set")
			}

			redisClient = redis.NewRedisClient(redisAddrs, redisPoolSize, time.Duration(redisTTL)*time.Second).WithPrefix("test:")
			Expect(redisClient.FlushByPrefix(ctx)).To(Succeed())
			cached = repositories.NewCachedRecordRepository(recordRepository, redisClient, slog.New(slog.NewTextHandler(GinkgoWriter, nil)))
		})

		It("serves a saved record fresh right after the write", func() {
			// ARRANGE
			profile := stubs.NewProfileStub().Get()
			seeder.InsertRecord(ctx, profile)
			_, _, err := cached.GetRecord(ctx, entities.CollectionUsers, profile.Identity)
			Expect(err).NotTo(HaveOccurred())

			// ACT
			err = cached.PutRecord(ctx, entities.CollectionUsers, profile.Identity, entities.Fields{entities.FieldPhone: "999"}, true)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			stored, found, err := cached.GetRecord(ctx, entities.CollectionUsers, profile.Identity)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(stored.Text(entities.FieldPhone)).To(Equal("999"))
		})

		It("drops the cached collection when a record is deleted", func() {
			// ARRANGE
			product := stubs.NewProductStub().Get()
			seeder.InsertRecord(ctx, product)
			records, err := cached.QueryAll(ctx, entities.CollectionProducts)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))

			// ACT
			err = cached.DeleteRecord(ctx, entities.CollectionProducts, product.Identity)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			records, err = cached.QueryAll(ctx, entities.CollectionProducts)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("keeps sessions until they are deleted", func() {
			// ARRANGE
			sessions := repositories.NewSessionRepository(redisClient, time.Minute)
			session := entities.Session{Token: "token-1", UID: "uid-1", Email: "a@b.com"}

			// ACT
			Expect(sessions.SaveSession(ctx, session)).To(Succeed())
			stored, found, err := sessions.FindSession(ctx, "token-1")

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(stored.UID).To(Equal("uid-1"))

			Expect(sessions.DeleteSession(ctx, "token-1")).To(Succeed())
			_, found, err = sessions.FindSession(ctx, "token-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())
		})
	})
})
