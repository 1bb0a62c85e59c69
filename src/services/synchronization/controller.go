package synchronization

import (
	"context"
	"sync"
	"time"

	"florencia/src/domain/entities"
)

type State string

const (
	StateIdle           State = "idle"
	StateFetching       State = "fetching"
	StateSaving         State = "saving"
	StateUploadingMedia State = "uploading_media"
)

// SyncController é a capacidade comum das duas estratégias de sincronização:
// polling no foco (perfil) e assinatura contínua (catálogo).
type SyncController[T any] interface {
	// Current retorna o registro canônico, false enquanto nada foi carregado.
	Current() (T, bool)
	// Refresh inicia uma leitura e espera seu resultado.
	Refresh(ctx context.Context) error
	// Focus avisa que a tela voltou a ficar visível.
	Focus()
	// Watch entrega sempre o valor mais recente; valores intermediários podem ser pulados.
	Watch() (<-chan T, func())
	State() State
	Close()
}

var (
	_ SyncController[entities.Record]   = (*ProfileController)(nil)
	_ SyncController[[]entities.Record] = (*CatalogController)(nil)
)

const DefaultRemoteTimeout = 10 * time.Second

// watchers guarda canais com capacidade 1 que mantêm só o último valor publicado.
type watchers[T any] struct {
	mu      sync.Mutex
	nextID  int
	chans   map[int]chan T
	last    T
	hasLast bool
	closed  bool
	clone   func(T) T
}

func newWatchers[T any](clone func(T) T) *watchers[T] {
	return &watchers[T]{chans: make(map[int]chan T), clone: clone}
}

// add registra um novo canal que já começa com o último valor publicado.
func (w *watchers[T]) add() (<-chan T, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ch := make(chan T, 1)
	if w.closed {
		close(ch)
		return ch, func() {}
	}
	if w.hasLast {
		ch <- w.clone(w.last)
	}

	id := w.nextID
	w.nextID++
	w.chans[id] = ch

	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if _, ok := w.chans[id]; ok {
			delete(w.chans, id)
			close(ch)
		}
	}
}

func (w *watchers[T]) publish(value T) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.last = w.clone(value)
	w.hasLast = true
	for _, ch := range w.chans {
		// descarta o valor antigo ainda não lido
		select {
		case <-ch:
		default:
		}
		ch <- w.clone(value)
	}
}

func (w *watchers[T]) closeAll() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, ch := range w.chans {
		close(ch)
		delete(w.chans, id)
	}
	w.closed = true
}

func cloneRecords(records []entities.Record) []entities.Record {
	if records == nil {
		return nil
	}
	clone := make([]entities.Record, len(records))
	for i, record := range records {
		clone[i] = record.Clone()
	}
	return clone
}

func cloneRecord(record entities.Record) entities.Record {
	return record.Clone()
}

// boundedContext limita uma chamada remota ao timeout e ao ciclo de vida do controller.
func boundedContext(parent context.Context, lifetime context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	stop := context.AfterFunc(lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
