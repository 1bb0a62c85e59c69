package synchronization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"florencia/src/domain"
	"florencia/src/domain/entities"
)

var ErrAlreadyStarted = errors.New("catalog controller already started")

type CatalogDeps struct {
	Store    domain.LiveStore
	Logger   *slog.Logger
	Notifier domain.Notifier
	Timeout  time.Duration
}

// CatalogController mantém a coleção de produtos sempre atual através de uma assinatura.
// Snapshots e leituras explícitas carregam um número de sequência; o mais recente vence.
type CatalogController struct {
	deps CatalogDeps

	mu       sync.RWMutex
	records  []entities.Record
	loaded   bool
	seq      uint64
	applied  uint64
	fetching int
	writing  int
	started  bool
	closed   bool

	// produtos removidos por este controller; identidades não são reutilizadas
	deleted map[string]struct{}

	watchers    *watchers[[]entities.Record]
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	closeOnce   sync.Once
}

func NewCatalogController(ctx context.Context, deps CatalogDeps) (*CatalogController, error) {
	c := NewLazyCatalogController(deps)
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// NewLazyCatalogController monta o controller sem assinar a coleção; nada é lido até Start.
func NewLazyCatalogController(deps CatalogDeps) *CatalogController {
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultRemoteTimeout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	lifetime, cancel := context.WithCancel(context.Background())
	return &CatalogController{
		deps:     deps,
		deleted:  map[string]struct{}{},
		watchers: newWatchers(cloneRecords),
		ctx:      lifetime,
		cancel:   cancel,
	}
}

// Start assina a coleção de produtos. Falha se o controller já foi iniciado ou fechado.
func (c *CatalogController) Start(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return domain.ErrControllerClosed
	case c.started:
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		c.Close()
		return err
	}

	unsubscribe, err := c.deps.Store.Subscribe(c.ctx, entities.CollectionProducts, c.onSnapshot, c.onSnapshotError)
	if err != nil {
		c.Close()
		c.deps.Logger.Error("failed to subscribe to catalog", "collection", entities.CollectionProducts, "error", err)
		c.notify(domain.NoticeCatalogLoad)
		return fmt.Errorf("CatalogController.Start - failed to subscribe: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		unsubscribe()
		return domain.ErrControllerClosed
	}
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
	return nil
}

func (c *CatalogController) Current() ([]entities.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.loaded {
		return nil, false
	}
	return cloneRecords(c.records), true
}

func (c *CatalogController) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.writing > 0:
		return StateSaving
	case c.fetching > 0:
		return StateFetching
	}
	return StateIdle
}

func (c *CatalogController) Watch() (<-chan []entities.Record, func()) {
	return c.watchers.add()
}

// Focus não faz nada: a assinatura já mantém a coleção atualizada.
func (c *CatalogController) Focus() {}

// Refresh faz uma leitura pontual da coleção, útil quando a assinatura reportou erro.
func (c *CatalogController) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrControllerClosed
	}
	c.seq++
	seq := c.seq
	c.fetching++
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.fetching--
		c.mu.Unlock()
	}()

	queryCtx, cancel := boundedContext(ctx, c.ctx, c.deps.Timeout)
	defer cancel()

	records, err := c.deps.Store.QueryAll(queryCtx, entities.CollectionProducts)
	if err != nil {
		c.deps.Logger.Error("failed to refresh catalog", "collection", entities.CollectionProducts, "error", err)
		c.notify(domain.NoticeCatalogLoad)
		return &domain.StoreError{Op: "query", Collection: entities.CollectionProducts, Err: err}
	}

	c.apply(seq, records)
	return nil
}

// DeleteEntity remove o produto do Remote Store e da coleção local sem esperar o próximo snapshot.
func (c *CatalogController) DeleteEntity(ctx context.Context, identity string) error {
	if identity == "" {
		return domain.ErrMissingIdentity
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrControllerClosed
	}
	c.writing++
	c.mu.Unlock()

	deleteCtx, cancel := boundedContext(ctx, c.ctx, c.deps.Timeout)
	defer cancel()

	err := c.deps.Store.DeleteRecord(deleteCtx, entities.CollectionProducts, identity)

	c.mu.Lock()
	c.writing--
	if err != nil {
		c.mu.Unlock()
		c.deps.Logger.Error("failed to delete product", "collection", entities.CollectionProducts, "identity", identity, "error", err)
		c.notify(domain.NoticeProductDelete)
		return err
	}

	// leituras iniciadas antes da remoção ainda podem conter o produto
	c.deleted[identity] = struct{}{}
	c.seq++
	c.applied = c.seq
	remaining := make([]entities.Record, 0, len(c.records))
	for _, record := range c.records {
		if record.Identity != identity {
			remaining = append(remaining, record)
		}
	}
	c.records = remaining
	// publica ainda com o lock para manter a ordem entre snapshots
	c.watchers.publish(remaining)
	c.mu.Unlock()

	c.notify(domain.NoticeProductDeleted)
	return nil
}

func (c *CatalogController) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		unsubscribe := c.unsubscribe
		c.mu.Unlock()

		c.cancel()
		if unsubscribe != nil {
			unsubscribe()
		}
		c.watchers.closeAll()
	})
}

func (c *CatalogController) onSnapshot(records []entities.Record) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	c.apply(seq, records)
}

func (c *CatalogController) onSnapshotError(err error) {
	c.deps.Logger.Warn("catalog subscription failed to refresh", "collection", entities.CollectionProducts, "error", err)
	c.notify(domain.NoticeCatalogLoad)
}

func (c *CatalogController) apply(seq uint64, records []entities.Record) {
	c.mu.Lock()
	if c.closed || seq <= c.applied {
		c.mu.Unlock()
		return
	}

	c.applied = seq
	c.records = make([]entities.Record, 0, len(records))
	for _, record := range records {
		if _, gone := c.deleted[record.Identity]; !gone {
			c.records = append(c.records, record.Clone())
		}
	}
	entities.SortByRecency(c.records)
	c.loaded = true
	c.watchers.publish(c.records)
	c.mu.Unlock()
}

func (c *CatalogController) notify(notice domain.Notice) {
	if c.deps.Notifier != nil {
		c.deps.Notifier(notice)
	}
}
