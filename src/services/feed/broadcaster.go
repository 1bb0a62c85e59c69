package feed

import (
	"log/slog"
	"sync"

	"florencia/src/domain"
)

// Broadcaster distribui mudanças de registros para os ouvintes de cada coleção.
// Publish não bloqueia: cada ouvinte tem sua própria fila e goroutine.
type Broadcaster struct {
	mu        sync.Mutex
	listeners map[string]map[int]*listener
	nextID    int
	logger    *slog.Logger
}

type listener struct {
	queue chan domain.RecordChange
	done  chan struct{}
	once  sync.Once
}

const listenerQueueSize = 256

func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		listeners: make(map[string]map[int]*listener),
		logger:    logger,
	}
}

// Listen registra fn para as mudanças da coleção. fn é chamado sempre da mesma goroutine,
// na ordem de publicação. cancel é idempotente e espera a goroutine terminar.
func (b *Broadcaster) Listen(collection string, fn func(domain.RecordChange)) (cancel func()) {
	l := &listener{
		queue: make(chan domain.RecordChange, listenerQueueSize),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.listeners[collection] == nil {
		b.listeners[collection] = make(map[int]*listener)
	}
	b.listeners[collection][id] = l
	b.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case <-l.done:
				return
			case change := <-l.queue:
				fn(change)
			}
		}
	}()

	return func() {
		b.mu.Lock()
		delete(b.listeners[collection], id)
		if len(b.listeners[collection]) == 0 {
			delete(b.listeners, collection)
		}
		b.mu.Unlock()

		l.once.Do(func() { close(l.done) })
		<-finished
	}
}

func (b *Broadcaster) Publish(change domain.RecordChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, l := range b.listeners[change.Collection] {
		select {
		case l.queue <- change:
		default:
			// fila cheia: o ouvinte vai reconsultar a coleção na próxima mudança
			b.logger.Warn("change listener queue is full, dropping change",
				"collection", change.Collection,
				"identity", change.Identity,
			)
		}
	}
}

// Listeners retorna quantos ouvintes a coleção possui.
func (b *Broadcaster) Listeners(collection string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[collection])
}
