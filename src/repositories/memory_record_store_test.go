package repositories_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/repositories"
	"florencia/src/test_artefacts/stubs"
)

var _ = Describe("MemoryRecordStore", func() {
	var (
		ctx     context.Context
		store   *repositories.MemoryRecordStore
		mu      sync.Mutex
		changes []domain.RecordChange
	)

	BeforeEach(func() {
		ctx = context.Background()
		changes = nil
		store = repositories.NewMemoryRecordStore(func(change domain.RecordChange) {
			mu.Lock()
			defer mu.Unlock()
			changes = append(changes, change)
		})
	})

	Context("when saving with merge", func() {
		It("keeps the fields that were not sent", func() {
			// ARRANGE
			profile := stubs.NewProfileStub().WithField(entities.FieldAddress, "Main St").Get()
			Expect(store.PutRecord(ctx, entities.CollectionUsers, profile.Identity, profile.Fields, false)).To(Succeed())

			// ACT
			err := store.PutRecord(ctx, entities.CollectionUsers, profile.Identity, entities.Fields{entities.FieldPhone: "12345"}, true)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			stored, found, err := store.GetRecord(ctx, entities.CollectionUsers, profile.Identity)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(stored.Text(entities.FieldAddress)).To(Equal("Main St"))
			Expect(stored.Text(entities.FieldPhone)).To(Equal("12345"))
			Expect(stored.Text(entities.FieldName)).To(Equal(profile.Text(entities.FieldName)))
		})

		It("keeps the creation time of the first write", func() {
			// ARRANGE
			Expect(store.PutRecord(ctx, entities.CollectionProducts, "p-1", entities.Fields{entities.FieldName: "Agua"}, false)).To(Succeed())
			first, _, _ := store.GetRecord(ctx, entities.CollectionProducts, "p-1")

			// ACT
			Expect(store.PutRecord(ctx, entities.CollectionProducts, "p-1", entities.Fields{entities.FieldPrice: 10.0}, true)).To(Succeed())

			// ASSERT
			second, _, _ := store.GetRecord(ctx, entities.CollectionProducts, "p-1")
			Expect(second.CreatedAt).To(Equal(first.CreatedAt))
			Expect(second.UpdatedAt).NotTo(BeTemporally("<", first.UpdatedAt))
		})
	})

	Context("when saving without merge", func() {
		It("replaces the whole document", func() {
			// ARRANGE
			Expect(store.PutRecord(ctx, entities.CollectionUsers, "u-1", entities.Fields{entities.FieldAddress: "Main St"}, false)).To(Succeed())

			// ACT
			Expect(store.PutRecord(ctx, entities.CollectionUsers, "u-1", entities.Fields{entities.FieldPhone: "1"}, false)).To(Succeed())

			// ASSERT
			stored, _, _ := store.GetRecord(ctx, entities.CollectionUsers, "u-1")
			Expect(stored.Fields).To(Equal(entities.Fields{entities.FieldPhone: "1"}))
		})
	})

	It("returns copies that cannot change the stored document", func() {
		// ARRANGE
		Expect(store.PutRecord(ctx, entities.CollectionUsers, "u-1", entities.Fields{entities.FieldName: "Ana"}, false)).To(Succeed())
		stored, _, _ := store.GetRecord(ctx, entities.CollectionUsers, "u-1")

		// ACT
		stored.Fields[entities.FieldName] = "Changed"

		// ASSERT
		again, _, _ := store.GetRecord(ctx, entities.CollectionUsers, "u-1")
		Expect(again.Text(entities.FieldName)).To(Equal("Ana"))
	})

	It("reports a missing document as not found without error", func() {
		// ACT
		_, found, err := store.GetRecord(ctx, entities.CollectionUsers, "nobody")

		// ASSERT
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
	})

	It("rejects an empty identity", func() {
		// ACT
		err := store.PutRecord(ctx, entities.CollectionUsers, "", entities.Fields{}, true)

		// ASSERT
		Expect(err).To(MatchError(domain.ErrMissingIdentity))
	})

	Context("when deleting a product", func() {
		It("removes exactly that record from queryAll", func() {
			// ARRANGE
			products := []entities.Record{
				stubs.NewProductStub().Get(),
				stubs.NewProductStub().Get(),
				stubs.NewProductStub().Get(),
			}
			for _, product := range products {
				Expect(store.PutRecord(ctx, entities.CollectionProducts, product.Identity, product.Fields, false)).To(Succeed())
			}

			// ACT
			err := store.DeleteRecord(ctx, entities.CollectionProducts, products[1].Identity)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			remaining, err := store.QueryAll(ctx, entities.CollectionProducts)
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(HaveLen(2))
			identities := []string{remaining[0].Identity, remaining[1].Identity}
			Expect(identities).To(ConsistOf(products[0].Identity, products[2].Identity))
		})

		It("fails with not found for an unknown identity", func() {
			// ACT
			err := store.DeleteRecord(ctx, entities.CollectionProducts, "unknown")

			// ASSERT
			var storeErr *domain.StoreError
			Expect(errors.As(err, &storeErr)).To(BeTrue())
			Expect(err).To(MatchError(domain.ErrRecordNotFound))
		})
	})

	It("publishes one change per write", func() {
		// ACT
		Expect(store.PutRecord(ctx, entities.CollectionProducts, "p-1", entities.Fields{entities.FieldName: "Agua"}, false)).To(Succeed())
		Expect(store.PutRecord(ctx, entities.CollectionProducts, "p-1", entities.Fields{entities.FieldPrice: 1.5}, true)).To(Succeed())
		Expect(store.DeleteRecord(ctx, entities.CollectionProducts, "p-1")).To(Succeed())

		// ASSERT
		mu.Lock()
		defer mu.Unlock()
		Expect(changes).To(HaveLen(3))
		Expect(changes[0].Operation).To(Equal(domain.OperationInsert))
		Expect(changes[1].Operation).To(Equal(domain.OperationUpdate))
		Expect(changes[1].Fields).To(HaveKeyWithValue(entities.FieldName, "Agua"))
		Expect(changes[2].Operation).To(Equal(domain.OperationDelete))
		Expect(changes[2].Identity).To(Equal("p-1"))
	})

	It("fails when the context is already cancelled", func() {
		// ARRANGE
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		// ACT
		_, err := store.QueryAll(cancelled, entities.CollectionProducts)

		// ASSERT
		Expect(err).To(MatchError(context.Canceled))
	})
})
