package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/services/validation"
)

// LocalProvider é o provedor de identidade próprio: contas com hash bcrypt e sessões por token.
type LocalProvider struct {
	accounts   domain.AccountStore
	sessions   domain.SessionStore
	policy     validation.SecretPolicy
	bcryptCost int
	logger     *slog.Logger
}

func NewLocalProvider(
	accounts domain.AccountStore,
	sessions domain.SessionStore,
	policy validation.SecretPolicy,
	bcryptCost int,
	logger *slog.Logger,
) *LocalProvider {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}

	return &LocalProvider{
		accounts:   accounts,
		sessions:   sessions,
		policy:     policy,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (p *LocalProvider) SignUp(ctx context.Context, email string, secret string, displayName entities.DisplayName) (entities.Session, error) {
	email = normalizeEmail(email)
	if !validation.ValidateEmail(email) {
		return entities.Session{}, &domain.IdentityError{Code: domain.CodeInvalidEmail}
	}
	if !p.policy.Accepts(secret) {
		return entities.Session{}, &domain.IdentityError{Code: domain.CodeWeakSecret}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), p.bcryptCost)
	if err != nil {
		// bcrypt recusa senhas com mais de 72 bytes
		return entities.Session{}, &domain.IdentityError{Code: domain.CodeWeakSecret, Err: err}
	}

	account := entities.Account{
		ID:         uuid.NewString(),
		Email:      email,
		SecretHash: string(hash),
		Name:       displayName.Name,
		LastName:   displayName.LastName,
		CreatedAt:  time.Now().UTC(),
	}

	if err := p.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return entities.Session{}, &domain.IdentityError{Code: domain.CodeEmailInUse, Err: err}
		}
		p.logger.Error("failed to create account", "email", email, "error", err)
		return entities.Session{}, &domain.IdentityError{Code: domain.CodeNetworkFailure, Err: err}
	}

	return p.issue(ctx, account)
}

func (p *LocalProvider) SignIn(ctx context.Context, email string, secret string) (entities.Session, error) {
	email = normalizeEmail(email)
	if !validation.ValidateEmail(email) {
		return entities.Session{}, &domain.IdentityError{Code: domain.CodeInvalidEmail}
	}

	account, found, err := p.accounts.FindAccountByEmail(ctx, email)
	if err != nil {
		p.logger.Error("failed to read account", "email", email, "error", err)
		return entities.Session{}, &domain.IdentityError{Code: domain.CodeNetworkFailure, Err: err}
	}
	if !found {
		return entities.Session{}, &domain.IdentityError{Code: domain.CodeAccountMissing}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.SecretHash), []byte(secret)); err != nil {
		return entities.Session{}, &domain.IdentityError{Code: domain.CodeWrongSecret}
	}

	return p.issue(ctx, account)
}

func (p *LocalProvider) SignOut(ctx context.Context, token string) error {
	if err := p.sessions.DeleteSession(ctx, token); err != nil {
		return &domain.IdentityError{Code: domain.CodeNetworkFailure, Err: err}
	}
	return nil
}

func (p *LocalProvider) Session(ctx context.Context, token string) (entities.Session, error) {
	if token == "" {
		return entities.Session{}, domain.ErrSessionNotFound
	}

	session, found, err := p.sessions.FindSession(ctx, token)
	if err != nil {
		return entities.Session{}, &domain.IdentityError{Code: domain.CodeNetworkFailure, Err: err}
	}
	if !found {
		return entities.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (p *LocalProvider) issue(ctx context.Context, account entities.Account) (entities.Session, error) {
	session := entities.Session{
		Token:    uuid.NewString(),
		UID:      account.ID,
		Email:    account.Email,
		Name:     account.Name,
		LastName: account.LastName,
		IssuedAt: time.Now().UTC(),
	}

	if err := p.sessions.SaveSession(ctx, session); err != nil {
		p.logger.Error("failed to store session", "uid", account.ID, "error", err)
		return entities.Session{}, &domain.IdentityError{Code: domain.CodeNetworkFailure, Err: err}
	}
	return session, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
