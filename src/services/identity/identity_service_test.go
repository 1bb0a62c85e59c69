package identity_test

import (
	"context"
	"errors"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/repositories"
	"florencia/src/services/identity"
	"florencia/src/services/synchronization"
	"florencia/src/services/validation"
)

var _ = Describe("IdentityService", func() {
	var (
		ctx      context.Context
		store    *repositories.MemoryRecordStore
		accounts *repositories.MemoryAccountStore
		registry *synchronization.ProfileRegistry
		service  *identity.IdentityService
		form     validation.SignUpForm
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger := slog.New(slog.NewTextHandler(GinkgoWriter, nil))
		policy := validation.SecretPolicy{RequireSpecial: true}

		store = repositories.NewMemoryRecordStore(nil)
		accounts = repositories.NewMemoryAccountStore()
		provider := identity.NewLocalProvider(accounts, repositories.NewMemorySessionStore(), policy, bcrypt.MinCost, logger)
		registry = synchronization.NewProfileRegistry(synchronization.ProfileDeps{Store: store, Logger: logger, Timeout: time.Second})
		service = identity.NewIdentityService(provider, store, registry, policy, time.Second, logger)

		form = validation.SignUpForm{Name: "Ana", LastName: "Ruiz", Email: "a@b.com", Secret: "Secreta1!", ConfirmSecret: "Secreta1!"}
	})

	AfterEach(func() {
		registry.CloseAll()
	})

	Describe("SignUp", func() {
		It("initializes the profile record under the provider identity", func() {
			// ACT
			session, err := service.SignUp(ctx, form)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			record, found, err := store.GetRecord(ctx, entities.CollectionUsers, session.UID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(record.Identity).To(Equal(session.UID))
			Expect(record.Text(entities.FieldName)).To(Equal("Ana"))
			Expect(record.Text(entities.FieldLastName)).To(Equal("Ruiz"))
			Expect(record.Text(entities.FieldEmail)).To(Equal("a@b.com"))
			Expect(record.MediaRef()).To(BeEmpty())
			Expect(record.Fields).To(HaveLen(len(entities.ProfileSchema.Fields)))
		})

		It("returns form errors before reaching the provider", func() {
			// ARRANGE
			form.ConfirmSecret = "Secreta2!"

			// ACT
			_, err := service.SignUp(ctx, form)

			// ASSERT
			var errs validation.Errors
			Expect(errors.As(err, &errs)).To(BeTrue())
			Expect(errs.For("confirmPassword")).To(Equal(validation.MsgSecretsMismatch))
			_, found, _ := accounts.FindAccountByEmail(ctx, "a@b.com")
			Expect(found).To(BeFalse())
		})

		It("translates a taken email into the user notice", func() {
			// ARRANGE
			_, err := service.SignUp(ctx, form)
			Expect(err).NotTo(HaveOccurred())

			// ACT
			_, err = service.SignUp(ctx, form)

			// ASSERT
			var authErr *identity.AuthError
			Expect(errors.As(err, &authErr)).To(BeTrue())
			Expect(authErr.Notice.Title).To(Equal(identity.TitleSignUpFailed))
			Expect(authErr.Notice.Message).To(Equal("El correo electrónico ya está en uso."))
			Expect(domain.IdentityCode(err)).To(Equal(domain.CodeEmailInUse))
		})
	})

	Describe("SignIn", func() {
		BeforeEach(func() {
			_, err := service.SignUp(ctx, form)
			Expect(err).NotTo(HaveOccurred())
		})

		It("translates a wrong secret into the access notice", func() {
			// ACT
			_, err := service.SignIn(ctx, validation.SignInForm{Email: "a@b.com", Secret: "Secreta9!"})

			// ASSERT
			var authErr *identity.AuthError
			Expect(errors.As(err, &authErr)).To(BeTrue())
			Expect(authErr.Notice.Title).To(Equal(identity.TitleSignInFailed))
			Expect(authErr.Notice.Message).To(Equal("La contraseña es incorrecta."))
		})

		It("requires both fields", func() {
			// ACT
			_, err := service.SignIn(ctx, validation.SignInForm{Email: "a@b.com"})

			// ASSERT
			var errs validation.Errors
			Expect(errors.As(err, &errs)).To(BeTrue())
			Expect(errs.First()).To(Equal(validation.MsgSignInRequired))
		})
	})

	Describe("SignOut", func() {
		It("drops the session and its profile controller", func() {
			// ARRANGE
			session, err := service.SignUp(ctx, form)
			Expect(err).NotTo(HaveOccurred())
			_, err = registry.ForSession(session, nil)
			Expect(err).NotTo(HaveOccurred())

			// ACT
			err = service.SignOut(ctx, session.Token)

			// ASSERT
			Expect(err).NotTo(HaveOccurred())
			Expect(registry.Len()).To(BeZero())
			_, err = service.Authenticate(ctx, session.Token)
			Expect(err).To(MatchError(domain.ErrSessionNotFound))
		})
	})
})
