package synchronization_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/repositories"
	"florencia/src/services/feed"
	"florencia/src/services/synchronization"
	"florencia/src/test_artefacts/stubs"
)

type failingDeleteStore struct {
	*repositories.LiveRecordStore
	err error
}

func (s *failingDeleteStore) DeleteRecord(ctx context.Context, collection string, identity string) error {
	return s.err
}

// capturingLiveStore guarda o callback da assinatura para entregar snapshots fora de ordem.
type capturingLiveStore struct {
	*repositories.LiveRecordStore

	mu         sync.Mutex
	subscribes int
	onChange   func([]entities.Record)
}

func (s *capturingLiveStore) Subscribe(ctx context.Context, collection string, onChange func([]entities.Record), onError func(error)) (func(), error) {
	s.mu.Lock()
	s.subscribes++
	s.onChange = onChange
	s.mu.Unlock()
	return s.LiveRecordStore.Subscribe(ctx, collection, onChange, onError)
}

func (s *capturingLiveStore) Subscribes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribes
}

func (s *capturingLiveStore) deliver(records []entities.Record) {
	s.mu.Lock()
	onChange := s.onChange
	s.mu.Unlock()
	onChange(records)
}

var _ = Describe("CatalogController", func() {
	var (
		ctx        context.Context
		logger     *slog.Logger
		memory     *repositories.MemoryRecordStore
		live       *repositories.LiveRecordStore
		notices    *noticeRecorder
		controller *synchronization.CatalogController
	)

	identities := func() []string {
		records, _ := controller.Current()
		ids := make([]string, len(records))
		for i, record := range records {
			ids[i] = record.Identity
		}
		return ids
	}

	BeforeEach(func() {
		ctx = context.Background()
		logger = slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		broadcaster := feed.NewBroadcaster(logger)
		memory = repositories.NewMemoryRecordStore(broadcaster.Publish)
		live = repositories.NewLiveRecordStore(memory, broadcaster, time.Second, logger)
		notices = &noticeRecorder{}
	})

	AfterEach(func() {
		if controller != nil {
			controller.Close()
			controller = nil
		}
	})

	put := func(record entities.Record) {
		Expect(memory.PutRecord(ctx, entities.CollectionProducts, record.Identity, record.Fields, false)).To(Succeed())
	}

	start := func(store domain.LiveStore) {
		var err error
		controller, err = synchronization.NewCatalogController(ctx, synchronization.CatalogDeps{
			Store:    store,
			Logger:   logger,
			Notifier: notices.Notify,
			Timeout:  time.Second,
		})
		Expect(err).NotTo(HaveOccurred())
	}

	It("starts with the current collection, newest first", func() {
		// ARRANGE
		older := stubs.NewProductStub().Get()
		newer := stubs.NewProductStub().Get()
		put(older)
		time.Sleep(time.Millisecond)
		put(newer)

		// ACT
		start(live)

		// ASSERT
		Expect(identities()).To(Equal([]string{newer.Identity, older.Identity}))
	})

	It("reflects edits from any writer without an explicit refresh", func() {
		// ARRANGE
		product := stubs.NewProductStub().Get()
		put(product)
		start(live)
		updates, cancel := controller.Watch()
		defer cancel()

		// ACT
		Expect(memory.PutRecord(ctx, entities.CollectionProducts, product.Identity, entities.Fields{entities.FieldPrice: 99.9}, true)).To(Succeed())

		// ASSERT
		Eventually(func() float64 {
			records, _ := controller.Current()
			return records[0].Number(entities.FieldPrice)
		}).Should(Equal(99.9))
		Eventually(updates).Should(Receive(HaveLen(1)))
	})

	Context("when deleting a product", func() {
		It("removes exactly that record from queryAll and from the live snapshot", func() {
			// ARRANGE
			products := []entities.Record{stubs.NewProductStub().Get(), stubs.NewProductStub().Get(), stubs.NewProductStub().Get()}
			for _, product := range products {
				put(product)
			}
			start(live)
			Expect(identities()).To(HaveLen(3))

			// ACT
			err := controller.DeleteEntity(ctx, products[0].Identity)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(identities()).To(ConsistOf(products[1].Identity, products[2].Identity))
			remaining, err := memory.QueryAll(ctx, entities.CollectionProducts)
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(HaveLen(2))
			Consistently(identities, 200*time.Millisecond).Should(ConsistOf(products[1].Identity, products[2].Identity))
			Expect(notices.All()).To(ContainElement(domain.NoticeProductDeleted))
		})

		It("does not bring the product back from a snapshot read before the delete", func() {
			// ARRANGE
			products := []entities.Record{stubs.NewProductStub().Get(), stubs.NewProductStub().Get()}
			for _, product := range products {
				put(product)
			}
			capturing := &capturingLiveStore{LiveRecordStore: live}
			start(capturing)
			Eventually(identities).Should(HaveLen(2))
			before, _ := controller.Current()

			Expect(controller.DeleteEntity(ctx, products[0].Identity)).To(Succeed())

			// ACT
			capturing.deliver(before)

			// ASSERT
			Expect(identities()).To(ConsistOf(products[1].Identity))
			Consistently(identities, 100*time.Millisecond).Should(ConsistOf(products[1].Identity))
		})

		It("keeps the product when the store fails", func() {
			// ARRANGE
			product := stubs.NewProductStub().Get()
			put(product)
			start(&failingDeleteStore{LiveRecordStore: live, err: errors.New("permission denied")})

			// ACT
			err := controller.DeleteEntity(ctx, product.Identity)

			// ASSERT
			Expect(err).To(MatchError(ContainSubstring("permission denied")))
			Expect(identities()).To(Equal([]string{product.Identity}))
			Expect(notices.All()).To(ContainElement(domain.NoticeProductDelete))
		})

		It("rejects an empty identity", func() {
			// ARRANGE
			start(live)

			// ACT
			err := controller.DeleteEntity(ctx, "")

			// ASSERT
			Expect(err).To(MatchError(domain.ErrMissingIdentity))
		})
	})

	Context("when created lazily", func() {
		It("reads nothing until started", func() {
			// ARRANGE
			put(stubs.NewProductStub().Get())
			capturing := &capturingLiveStore{LiveRecordStore: live}
			controller = synchronization.NewLazyCatalogController(synchronization.CatalogDeps{
				Store:   capturing,
				Logger:  logger,
				Timeout: time.Second,
			})
			_, loaded := controller.Current()
			Expect(loaded).To(BeFalse())
			Expect(capturing.Subscribes()).To(BeZero())

			// ACT
			err := controller.Start(ctx)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(capturing.Subscribes()).To(Equal(1))
			Expect(identities()).To(HaveLen(1))
			Expect(controller.Start(ctx)).To(MatchError(synchronization.ErrAlreadyStarted))
		})

		It("refuses to start after close", func() {
			// ARRANGE
			capturing := &capturingLiveStore{LiveRecordStore: live}
			controller = synchronization.NewLazyCatalogController(synchronization.CatalogDeps{Store: capturing, Logger: logger})
			controller.Close()

			// ACT
			err := controller.Start(ctx)

			// ASSERT
			Expect(err).To(MatchError(domain.ErrControllerClosed))
			Expect(capturing.Subscribes()).To(BeZero())
		})
	})

	It("reads the collection again on refresh", func() {
		// ARRANGE
		start(live)

		// ACT
		err := controller.Refresh(ctx)

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		records, ok := controller.Current()
		Expect(ok).To(BeTrue())
		Expect(records).To(BeEmpty())
	})

	It("refuses to work after close", func() {
		// ARRANGE
		start(live)
		controller.Close()

		// ACT
		err := controller.Refresh(ctx)

		// ASSERT
		Expect(err).To(MatchError(domain.ErrControllerClosed))
		Expect(controller.DeleteEntity(ctx, "p-1")).To(MatchError(domain.ErrControllerClosed))
	})
})
