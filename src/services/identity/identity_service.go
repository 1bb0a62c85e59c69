package identity

import (
	"context"
	"log/slog"
	"time"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/services/merge"
	"florencia/src/services/synchronization"
	"florencia/src/services/validation"
)

// IdentityService é o fluxo de autenticação das telas de cadastro e login.
type IdentityService struct {
	provider domain.IdentityProvider
	store    domain.RecordStore
	profiles *synchronization.ProfileRegistry
	policy   validation.SecretPolicy
	timeout  time.Duration
	logger   *slog.Logger
}

func NewIdentityService(
	provider domain.IdentityProvider,
	store domain.RecordStore,
	profiles *synchronization.ProfileRegistry,
	policy validation.SecretPolicy,
	timeout time.Duration,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		provider: provider,
		store:    store,
		profiles: profiles,
		policy:   policy,
		timeout:  timeout,
		logger:   logger,
	}
}

// SignUp cria a conta e o registro inicial do perfil, identificado pelo id emitido pelo provedor.
func (s *IdentityService) SignUp(ctx context.Context, form validation.SignUpForm) (entities.Session, error) {
	if err := form.Validate(s.policy); err != nil {
		return entities.Session{}, err
	}

	session, err := s.provider.SignUp(ctx, form.Email, form.Secret, form.DisplayName())
	if err != nil {
		s.logger.Warn("sign up rejected", "code", domain.IdentityCode(err), "error", err)
		return entities.Session{}, &AuthError{
			Notice: domain.Notice{Kind: domain.NoticeError, Title: TitleSignUpFailed, Message: SignUpMessage(domain.IdentityCode(err))},
			Err:    err,
		}
	}

	if err := s.initializeProfile(ctx, session); err != nil {
		// o ProfileController grava o registro padrão na primeira leitura
		s.logger.Error("failed to initialize profile record", "collection", entities.CollectionUsers, "identity", session.UID, "error", err)
	}

	s.logger.Info("user signed up", "uid", session.UID)
	return session, nil
}

func (s *IdentityService) SignIn(ctx context.Context, form validation.SignInForm) (entities.Session, error) {
	if err := form.Validate(); err != nil {
		return entities.Session{}, err
	}

	session, err := s.provider.SignIn(ctx, form.Email, form.Secret)
	if err != nil {
		s.logger.Warn("sign in rejected", "code", domain.IdentityCode(err), "error", err)
		return entities.Session{}, &AuthError{
			Notice: domain.Notice{Kind: domain.NoticeError, Title: TitleSignInFailed, Message: SignInMessage(domain.IdentityCode(err))},
			Err:    err,
		}
	}

	return session, nil
}

// SignOut encerra a sessão e descarta o controller de perfil dela.
func (s *IdentityService) SignOut(ctx context.Context, token string) error {
	defer s.profiles.Dispose(token)
	return s.provider.SignOut(ctx, token)
}

func (s *IdentityService) Authenticate(ctx context.Context, token string) (entities.Session, error) {
	return s.provider.Session(ctx, token)
}

func (s *IdentityService) initializeProfile(ctx context.Context, session entities.Session) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sessionRecord := session.Record()
	record := merge.Merge(entities.ProfileSchema, merge.Sources{Session: &sessionRecord})
	return s.store.PutRecord(ctx, entities.CollectionUsers, session.UID, record.Fields, false)
}
