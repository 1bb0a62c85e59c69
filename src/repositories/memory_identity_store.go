package repositories

import (
	"context"
	"sync"

	"florencia/src/domain"
	"florencia/src/domain/entities"
)

// MemoryAccountStore guarda contas em memória, indexadas pelo email normalizado.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]entities.Account
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[string]entities.Account)}
}

func (s *MemoryAccountStore) CreateAccount(ctx context.Context, account entities.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.accounts[account.Email]; taken {
		return domain.ErrEmailTaken
	}
	s.accounts[account.Email] = account
	return nil
}

func (s *MemoryAccountStore) FindAccountByEmail(ctx context.Context, email string) (entities.Account, bool, error) {
	if err := ctx.Err(); err != nil {
		return entities.Account{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	account, found := s.accounts[email]
	return account, found, nil
}

type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]entities.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]entities.Session)}
}

func (s *MemorySessionStore) SaveSession(ctx context.Context, session entities.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) FindSession(ctx context.Context, token string) (entities.Session, bool, error) {
	if err := ctx.Err(); err != nil {
		return entities.Session{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, found := s.sessions[token]
	return session, found, nil
}

// DeleteSession não falha quando o token já não existe.
func (s *MemorySessionStore) DeleteSession(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}
