package synchronization

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"florencia/src/domain/entities"
)

type registryEntry struct {
	controller *ProfileController
	lastAccess time.Time
}

// ProfileRegistry guarda um ProfileController por sessão ativa.
// Controllers sem acesso por mais de maxIdle são fechados por EvictIdle.
type ProfileRegistry struct {
	deps    ProfileDeps
	mu      sync.Mutex
	entries map[string]*registryEntry
}

func NewProfileRegistry(deps ProfileDeps) *ProfileRegistry {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &ProfileRegistry{
		deps:    deps,
		entries: make(map[string]*registryEntry),
	}
}

// ForSession retorna o controller da sessão, criando-o na primeira chamada.
// navigation só é usado quando o controller é criado.
func (r *ProfileRegistry) ForSession(session entities.Session, navigation *entities.Record) (*ProfileController, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[session.Token]; ok {
		entry.lastAccess = time.Now()
		return entry.controller, nil
	}

	controller, err := NewProfileController(r.deps, session, navigation)
	if err != nil {
		return nil, err
	}

	r.entries[session.Token] = &registryEntry{controller: controller, lastAccess: time.Now()}
	return controller, nil
}

// Dispose fecha o controller da sessão, se existir.
func (r *ProfileRegistry) Dispose(token string) {
	r.mu.Lock()
	entry, ok := r.entries[token]
	delete(r.entries, token)
	r.mu.Unlock()

	if ok {
		entry.controller.Close()
	}
}

// EvictIdle fecha os controllers sem acesso há mais de maxIdle e retorna quantos foram removidos.
func (r *ProfileRegistry) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var idle []*ProfileController
	for token, entry := range r.entries {
		if entry.lastAccess.Before(cutoff) {
			idle = append(idle, entry.controller)
			delete(r.entries, token)
		}
	}
	r.mu.Unlock()

	for _, controller := range idle {
		controller.Close()
	}
	return len(idle)
}

// RunEviction chama EvictIdle a cada interval até ctx ser cancelado.
func (r *ProfileRegistry) RunEviction(ctx context.Context, interval time.Duration, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := r.EvictIdle(maxIdle); evicted > 0 {
				r.deps.Logger.Info("evicted idle profile controllers", "count", evicted, "max_idle", maxIdle)
			}
		}
	}
}

func (r *ProfileRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *ProfileRegistry) CloseAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, entry := range entries {
		entry.controller.Close()
	}
}
