package synchronization_test

import (
	"context"
	"errors"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/services/synchronization"
	"florencia/src/test_artefacts/stubs"
)

var _ = Describe("ProfileController", func() {
	var (
		ctx        context.Context
		store      *gatedStore
		uploader   *fakeUploader
		notices    *noticeRecorder
		deps       synchronization.ProfileDeps
		session    entities.Session
		controller *synchronization.ProfileController
	)

	currentText := func(field string) func() string {
		return func() string {
			record, _ := controller.Current()
			return record.Text(field)
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = newGatedStore()
		uploader = &fakeUploader{}
		notices = &noticeRecorder{}
		session = entities.Session{Token: "token-1", UID: "uid-1", Email: "a@b.com", Name: "Ana", LastName: "Ruiz"}
		deps = synchronization.ProfileDeps{
			Store:    store,
			Uploader: uploader,
			Logger:   slog.New(slog.NewTextHandler(GinkgoWriter, nil)),
			Notifier: notices.Notify,
			Timeout:  time.Second,
		}
	})

	AfterEach(func() {
		if controller != nil {
			controller.Close()
			controller = nil
		}
	})

	seed := func(fields entities.Fields) {
		Expect(store.MemoryRecordStore.PutRecord(ctx, entities.CollectionUsers, session.UID, fields, false)).To(Succeed())
	}

	start := func() {
		var err error
		controller, err = synchronization.NewProfileController(deps, session, nil)
		Expect(err).NotTo(HaveOccurred())
		Eventually(func() bool {
			_, ok := controller.Current()
			return ok
		}).Should(BeTrue())
	}

	It("rejects a session without identity", func() {
		// ACT
		_, err := synchronization.NewProfileController(deps, entities.Session{Email: "a@b.com"}, nil)

		// ASSERT
		Expect(err).To(MatchError(domain.ErrMissingIdentity))
	})

	Context("when the remote record exists", func() {
		It("loads it on mount and lets it win over the session data", func() {
			// ARRANGE
			seed(stubs.NewProfileStub().WithField(entities.FieldName, "Ana María").Get().Fields)

			// ACT
			start()

			// ASSERT
			Expect(currentText(entities.FieldName)()).To(Equal("Ana María"))
			record, _ := controller.Current()
			Expect(record.Identity).To(Equal(session.UID))
			Eventually(controller.State).Should(Equal(synchronization.StateIdle))
		})

		It("lets the navigation record win over the remote record", func() {
			// ARRANGE
			seed(entities.Fields{entities.FieldName: "Ana", entities.FieldPhone: "111"})
			navigation := &entities.Record{Fields: entities.Fields{entities.FieldPhone: "222"}}

			// ACT
			var err error
			controller, err = synchronization.NewProfileController(deps, session, navigation)
			Expect(err).NotTo(HaveOccurred())

			// ASSERT
			Eventually(currentText(entities.FieldPhone)).Should(Equal("222"))
			Expect(currentText(entities.FieldName)()).To(Equal("Ana"))
		})
	})

	Context("when the remote record does not exist yet", func() {
		It("writes a full default record built from the session", func() {
			// ACT
			start()

			// ASSERT
			Eventually(func() entities.Fields {
				stored, _, _ := store.MemoryRecordStore.GetRecord(ctx, entities.CollectionUsers, session.UID)
				return stored.Fields
			}).Should(And(
				HaveKeyWithValue(entities.FieldEmail, "a@b.com"),
				HaveKeyWithValue(entities.FieldName, "Ana"),
				HaveKeyWithValue(entities.FieldLastName, "Ruiz"),
				HaveKeyWithValue(entities.FieldMediaRef, ""),
				HaveKeyWithValue(entities.FieldPhone, ""),
			))
			record, _ := controller.Current()
			Expect(record.Initials()).To(Equal("AR"))
		})
	})

	Context("when saving", func() {
		It("merges the partial update over the stored record", func() {
			// ARRANGE
			seed(entities.Fields{entities.FieldName: "Ana", entities.FieldAddress: "Main St"})
			start()

			// ACT
			saved, err := controller.Save(ctx, entities.Fields{entities.FieldPhone: "12345"})

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Text(entities.FieldPhone)).To(Equal("12345"))
			Expect(saved.Text(entities.FieldAddress)).To(Equal("Main St"))

			stored, _, _ := store.MemoryRecordStore.GetRecord(ctx, entities.CollectionUsers, session.UID)
			Expect(stored.Fields).To(HaveKeyWithValue(entities.FieldAddress, "Main St"))
			Expect(stored.Fields).To(HaveKeyWithValue(entities.FieldPhone, "12345"))
			Eventually(notices.All).Should(ContainElement(domain.NoticeProfileSaved))
		})

		It("ignores unknown fields and never writes an empty media reference", func() {
			// ARRANGE
			seed(entities.Fields{entities.FieldName: "Ana", entities.FieldMediaRef: "https://x/old.jpg"})
			start()

			// ACT
			_, err := controller.Save(ctx, entities.Fields{
				entities.FieldPhone:    "1",
				entities.FieldMediaRef: "",
				"isAdmin":              true,
			})

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			stored, _, _ := store.MemoryRecordStore.GetRecord(ctx, entities.CollectionUsers, session.UID)
			Expect(stored.Fields).To(HaveKeyWithValue(entities.FieldMediaRef, "https://x/old.jpg"))
			Expect(stored.Fields).NotTo(HaveKey("isAdmin"))
		})

		It("returns a cleared field as empty instead of its previous value", func() {
			// ARRANGE
			seed(entities.Fields{entities.FieldName: "Ana", entities.FieldPhone: "555"})
			start()

			// ACT
			saved, err := controller.Save(ctx, entities.Fields{entities.FieldPhone: ""})

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Text(entities.FieldPhone)).To(BeEmpty())
			Expect(currentText(entities.FieldPhone)()).To(BeEmpty())
			Consistently(currentText(entities.FieldPhone), 100*time.Millisecond).Should(BeEmpty())
		})

		It("shows a later write from another session after refreshing", func() {
			// ARRANGE
			seed(entities.Fields{entities.FieldName: "Ana", entities.FieldPhone: "000"})
			start()

			other := session
			other.Token = "token-2"
			second, err := synchronization.NewProfileController(deps, other, nil)
			Expect(err).NotTo(HaveOccurred())
			defer second.Close()
			Eventually(func() bool {
				_, ok := second.Current()
				return ok
			}).Should(BeTrue())

			_, err = controller.Save(ctx, entities.Fields{entities.FieldPhone: "111"})
			Expect(err).NotTo(HaveOccurred())
			_, err = second.Save(ctx, entities.Fields{entities.FieldPhone: "222"})
			Expect(err).NotTo(HaveOccurred())

			// ACT
			Expect(controller.Refresh(ctx)).To(Succeed())

			// ASSERT
			Eventually(currentText(entities.FieldPhone)).Should(Equal("222"))
		})

		It("stops overriding the remote record with navigation data once that field is saved", func() {
			// ARRANGE
			seed(entities.Fields{entities.FieldName: "Ana", entities.FieldPhone: "000"})
			navigation := stubs.NewProfileStub().
				WithIdentity(session.UID).
				WithFields(entities.Fields{entities.FieldPhone: "nav"}).
				Ptr()
			var err error
			controller, err = synchronization.NewProfileController(deps, session, navigation)
			Expect(err).NotTo(HaveOccurred())
			Eventually(currentText(entities.FieldPhone)).Should(Equal("nav"))
			_, err = controller.Save(ctx, entities.Fields{entities.FieldPhone: "111"})
			Expect(err).NotTo(HaveOccurred())

			// ACT
			Expect(store.MemoryRecordStore.PutRecord(ctx, entities.CollectionUsers, session.UID, entities.Fields{entities.FieldPhone: "333"}, true)).To(Succeed())
			Expect(controller.Refresh(ctx)).To(Succeed())

			// ASSERT
			Eventually(currentText(entities.FieldPhone)).Should(Equal("333"))
		})

		It("leaves the record unchanged when the store fails", func() {
			// ARRANGE
			seed(entities.Fields{entities.FieldName: "Ana", entities.FieldPhone: "111"})
			start()
			store.failPuts(errors.New("permission denied"))

			// ACT
			_, err := controller.Save(ctx, entities.Fields{entities.FieldPhone: "222"})

			// ASSERT
			var storeErr *domain.StoreError
			Expect(errors.As(err, &storeErr)).To(BeTrue())
			Expect(storeErr.Op).To(Equal("put"))
			Expect(currentText(entities.FieldPhone)()).To(Equal("111"))
			Expect(notices.All()).To(ContainElement(domain.NoticeProfileSave))
			Eventually(controller.State).Should(Equal(synchronization.StateIdle))
		})
	})

	Context("when uploading media", func() {
		It("keeps the previous media reference when the upload fails", func() {
			// ARRANGE
			seed(entities.Fields{entities.FieldName: "Ana", entities.FieldMediaRef: "https://x/old.jpg"})
			start()
			uploader.err = errors.New("503 from media host")

			// ACT
			url, err := controller.UploadMedia(ctx, domain.Image{Data: []byte{0xff, 0xd8}, ContentType: "image/jpeg"})

			// ASSERT
			Expect(url).To(BeEmpty())
			var uploadErr *domain.MediaUploadError
			Expect(errors.As(err, &uploadErr)).To(BeTrue())
			record, _ := controller.Current()
			Expect(record.MediaRef()).To(Equal("https://x/old.jpg"))
			Expect(notices.All()).To(ContainElement(domain.NoticePhotoUpload))
		})

		It("folds the uploaded url into the next save", func() {
			// ARRANGE
			seed(entities.Fields{entities.FieldName: "Ana", entities.FieldMediaRef: "https://x/old.jpg"})
			start()
			uploader.url = "https://x/new.jpg"

			// ACT
			url, err := controller.UploadMedia(ctx, domain.Image{Data: []byte{0x89, 0x50}, ContentType: "image/png"})
			Expect(err).NotTo(HaveOccurred())
			_, err = controller.Save(ctx, entities.Fields{entities.FieldName: "Ana"})

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(url).To(Equal("https://x/new.jpg"))
			Eventually(currentText(entities.FieldMediaRef)).Should(Equal("https://x/new.jpg"))
			stored, _, _ := store.MemoryRecordStore.GetRecord(ctx, entities.CollectionUsers, session.UID)
			Expect(stored.MediaRef()).To(Equal("https://x/new.jpg"))
		})

		It("rejects a save while the upload is still running", func() {
			// ARRANGE
			seed(entities.Fields{entities.FieldName: "Ana"})
			start()
			uploader.url = "https://x/new.jpg"
			uploader.block = make(chan struct{})

			uploadDone := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				_, err := controller.UploadMedia(ctx, domain.Image{Data: []byte{1}})
				uploadDone <- err
			}()
			Eventually(controller.State).Should(Equal(synchronization.StateUploadingMedia))

			// ACT
			_, err := controller.Save(ctx, entities.Fields{entities.FieldPhone: "1"})

			// ASSERT
			Expect(err).To(MatchError(domain.ErrWriteInFlight))
			Expect(notices.All()).To(ContainElement(domain.NoticeWriteInFlight))

			close(uploader.block)
			Eventually(uploadDone).Should(Receive(BeNil()))
		})
	})

	Context("when fetches race", func() {
		It("adopts the most recently initiated fetch", func() {
			// ARRANGE
			store.setGated(true)
			var err error
			controller, err = synchronization.NewProfileController(deps, session, nil)
			Expect(err).NotTo(HaveOccurred())

			var initial, first, second pendingGet
			Eventually(store.pending).Should(Receive(&initial))
			initial.release <- getResult{record: recordNamed("v0"), found: true}
			Eventually(currentText(entities.FieldName)).Should(Equal("v0"))

			controller.Focus()
			Eventually(store.pending).Should(Receive(&first))
			controller.Focus()
			Eventually(store.pending).Should(Receive(&second))

			// ACT
			second.release <- getResult{record: recordNamed("F2"), found: true}
			Eventually(currentText(entities.FieldName)).Should(Equal("F2"))
			first.release <- getResult{record: recordNamed("F1"), found: true}

			// ASSERT
			Consistently(currentText(entities.FieldName), 200*time.Millisecond).Should(Equal("F2"))
		})

		It("keeps the record and reports the error when a fetch fails", func() {
			// ARRANGE
			seed(entities.Fields{entities.FieldName: "Ana"})
			start()
			store.setGated(true)

			// ACT
			refreshed := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				refreshed <- controller.Refresh(ctx)
			}()
			var pending pendingGet
			Eventually(store.pending).Should(Receive(&pending))
			pending.release <- getResult{err: errors.New("unavailable")}

			// ASSERT
			var err error
			Eventually(refreshed).Should(Receive(&err))
			Expect(err).To(MatchError(ContainSubstring("unavailable")))
			Expect(currentText(entities.FieldName)()).To(Equal("Ana"))
			Expect(notices.All()).To(ContainElement(domain.NoticeProfileLoad))
		})
	})

	Context("when the controller is closed", func() {
		It("discards the result of an outstanding fetch", func() {
			// ARRANGE
			seed(entities.Fields{entities.FieldName: "Ana"})
			start()
			store.setGated(true)
			controller.Focus()
			var pending pendingGet
			Eventually(store.pending).Should(Receive(&pending))

			// ACT
			pending.release <- getResult{record: recordNamed("late"), found: true}
			controller.Close()

			// ASSERT
			Expect(currentText(entities.FieldName)()).To(SatisfyAny(Equal("Ana"), Equal("late")))
			Expect(controller.Refresh(ctx)).To(MatchError(domain.ErrControllerClosed))
			_, err := controller.Save(ctx, entities.Fields{entities.FieldPhone: "1"})
			Expect(err).To(MatchError(domain.ErrControllerClosed))
		})

		It("never applies a fetch that resolves after closing", func() {
			// ARRANGE
			seed(entities.Fields{entities.FieldName: "Ana"})
			start()
			store.setGated(true)
			controller.Focus()
			var pending pendingGet
			Eventually(store.pending).Should(Receive(&pending))

			// ACT
			closed := make(chan struct{})
			go func() {
				controller.Close()
				close(closed)
			}()
			Eventually(closed).Should(BeClosed())
			pending.release <- getResult{record: recordNamed("late"), found: true}

			// ASSERT
			Consistently(currentText(entities.FieldName), 100*time.Millisecond).Should(Equal("Ana"))
		})

		It("closes every watch channel", func() {
			// ARRANGE
			seed(entities.Fields{entities.FieldName: "Ana"})
			start()
			updates, cancel := controller.Watch()
			defer cancel()
			Eventually(updates).Should(Receive())

			// ACT
			controller.Close()

			// ASSERT
			Eventually(updates).Should(BeClosed())
		})
	})
})

func recordNamed(name string) entities.Record {
	return entities.Record{
		Identity:   "uid-1",
		Collection: entities.CollectionUsers,
		Fields:     entities.Fields{entities.FieldName: name},
	}
}
