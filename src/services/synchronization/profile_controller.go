package synchronization

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"florencia/src/domain"
	"florencia/src/domain/entities"
	"florencia/src/services/merge"
)

type ProfileDeps struct {
	Store    domain.RecordStore
	Uploader domain.MediaUploader
	Logger   *slog.Logger
	// Notifier é chamado pela goroutine do controller e não pode chamar o próprio controller.
	Notifier domain.Notifier
	Timeout  time.Duration
}

type writeKind int

const (
	writeNone writeKind = iota
	writeInitializing
	writeSaving
	writeUploading
)

// eventos do loop
type (
	fetchRequested struct {
		reply chan error
	}
	fetchResolved struct {
		seq    uint64
		remote entities.Record
		found  bool
		err    error
		reply  chan error
	}
	initResolved struct {
		err error
	}
	saveRequested struct {
		ctx    context.Context
		fields entities.Fields
		reply  chan saveOutcome
	}
	saveResolved struct {
		fields entities.Fields
		err    error
		reply  chan saveOutcome
	}
	uploadRequested struct {
		ctx   context.Context
		image domain.Image
		reply chan uploadOutcome
	}
	uploadResolved struct {
		url   string
		err   error
		reply chan uploadOutcome
	}
)

type saveOutcome struct {
	record entities.Record
	err    error
}

type uploadOutcome struct {
	url string
	err error
}

// ProfileController sincroniza o perfil do usuário autenticado por polling:
// lê ao montar, ao recuperar o foco e logo após cada escrita própria.
// Todo o estado mutável pertence à goroutine do loop; as operações remotas
// rodam em goroutines próprias e voltam ao loop como eventos.
type ProfileController struct {
	deps     ProfileDeps
	identity string
	session  *entities.Record

	events    chan interface{}
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	workers   sync.WaitGroup
	closeOnce sync.Once

	mu         sync.RWMutex
	current    entities.Record
	hasCurrent bool
	state      State

	watchers *watchers[entities.Record]

	// só acessados pelo loop
	navigation      *entities.Record
	pendingMediaRef string
	fetchSeq        uint64
	appliedSeq      uint64
	fetching        int
	writing         writeKind
	initialized     bool
}

// NewProfileController inicia o controller e dispara a primeira leitura.
// navigation são os dados trazidos pela tela anterior, pode ser nil.
func NewProfileController(deps ProfileDeps, session entities.Session, navigation *entities.Record) (*ProfileController, error) {
	if session.UID == "" {
		return nil, domain.ErrMissingIdentity
	}
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultRemoteTimeout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	sessionRecord := session.Record()
	ctx, cancel := context.WithCancel(context.Background())

	c := &ProfileController{
		deps:     deps,
		identity: session.UID,
		session:  &sessionRecord,
		events:   make(chan interface{}, 16),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    StateIdle,
		watchers: newWatchers(cloneRecord),
	}

	if navigation != nil {
		nav := navigation.Clone()
		c.navigation = &nav
	}

	go c.run()
	c.Focus()

	return c, nil
}

func (c *ProfileController) Identity() string {
	return c.identity
}

func (c *ProfileController) Current() (entities.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.hasCurrent {
		return entities.Record{}, false
	}
	return c.current.Clone(), true
}

func (c *ProfileController) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Watch entrega o registro atual, se houver, e cada nova versão.
func (c *ProfileController) Watch() (<-chan entities.Record, func()) {
	return c.watchers.add()
}

func (c *ProfileController) Focus() {
	_ = c.send(context.Background(), fetchRequested{})
}

func (c *ProfileController) Refresh(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := c.send(ctx, fetchRequested{reply: reply}); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return domain.ErrControllerClosed
	}
}

// Save grava os campos informados sobre o documento existente (merge-on-write).
// Retorna o registro canônico após a escrita; a releitura acontece em seguida.
func (c *ProfileController) Save(ctx context.Context, fields entities.Fields) (entities.Record, error) {
	reply := make(chan saveOutcome, 1)
	if err := c.send(ctx, saveRequested{ctx: ctx, fields: fields.Clone(), reply: reply}); err != nil {
		return entities.Record{}, err
	}

	select {
	case outcome := <-reply:
		return outcome.record, outcome.err
	case <-ctx.Done():
		return entities.Record{}, ctx.Err()
	case <-c.done:
		return entities.Record{}, domain.ErrControllerClosed
	}
}

// UploadMedia envia a imagem e guarda a URL retornada como mediaRef pendente do próximo Save.
func (c *ProfileController) UploadMedia(ctx context.Context, image domain.Image) (string, error) {
	reply := make(chan uploadOutcome, 1)
	if err := c.send(ctx, uploadRequested{ctx: ctx, image: image, reply: reply}); err != nil {
		return "", err
	}

	select {
	case outcome := <-reply:
		return outcome.url, outcome.err
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.done:
		return "", domain.ErrControllerClosed
	}
}

// Close descarta o controller. Resultados que chegarem depois são ignorados.
func (c *ProfileController) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
		c.workers.Wait()
		c.watchers.closeAll()
	})
}

func (c *ProfileController) send(ctx context.Context, ev interface{}) error {
	select {
	case <-c.done:
		return domain.ErrControllerClosed
	default:
	}

	select {
	case c.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return domain.ErrControllerClosed
	}
}

// deliver devolve o resultado de uma operação remota ao loop. Depois do Close o resultado é descartado.
func (c *ProfileController) deliver(ev interface{}) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

func (c *ProfileController) goWork(fn func()) {
	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		fn()
	}()
}

func (c *ProfileController) run() {
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.events:
			if c.ctx.Err() != nil {
				return
			}
			c.handle(ev)
			c.publishState()
		}
	}
}

func (c *ProfileController) handle(ev interface{}) {
	switch e := ev.(type) {
	case fetchRequested:
		c.startFetch(e.reply)
	case fetchResolved:
		c.onFetchResolved(e)
	case initResolved:
		c.onInitResolved(e)
	case saveRequested:
		c.startSave(e)
	case saveResolved:
		c.onSaveResolved(e)
	case uploadRequested:
		c.startUpload(e)
	case uploadResolved:
		c.onUploadResolved(e)
	}
}

func (c *ProfileController) startFetch(reply chan error) {
	c.fetchSeq++
	seq := c.fetchSeq
	c.fetching++

	c.goWork(func() {
		ctx, cancel := boundedContext(c.ctx, c.ctx, c.deps.Timeout)
		defer cancel()

		record, found, err := c.deps.Store.GetRecord(ctx, entities.CollectionUsers, c.identity)
		c.deliver(fetchResolved{seq: seq, remote: record, found: found, err: err, reply: reply})
	})
}

func (c *ProfileController) onFetchResolved(e fetchResolved) {
	c.fetching--

	// last-initiated-wins: uma leitura mais nova já foi aplicada
	if e.seq <= c.appliedSeq {
		c.deps.Logger.Debug("discarding superseded profile fetch", "identity", c.identity, "seq", e.seq)
		replyErr(e.reply, nil)
		return
	}

	if e.err != nil {
		err := storeError("get", c.identity, e.err)
		c.deps.Logger.Error("failed to load profile", "collection", entities.CollectionUsers, "identity", c.identity, "error", e.err)
		if e.seq == c.fetchSeq {
			c.notify(domain.NoticeProfileLoad)
		}
		replyErr(e.reply, err)
		return
	}

	c.appliedSeq = e.seq

	var remote *entities.Record
	if e.found {
		remote = &e.remote
		c.initialized = true
	}

	sources := merge.Sources{Remote: remote, Session: c.session, Navigation: c.navigationRecord()}
	merged := merge.Merge(entities.ProfileSchema, sources)
	merged.Identity = c.identity

	if sources.NeedsInitialization() && !c.initialized && c.writing == writeNone {
		c.startInitialize(merged.Fields)
	}

	c.setCurrent(merged)
	replyErr(e.reply, nil)
}

// startInitialize grava o registro padrão completo na primeira leitura sem documento remoto.
func (c *ProfileController) startInitialize(fields entities.Fields) {
	c.writing = writeInitializing
	fields = fields.Clone()

	c.goWork(func() {
		ctx, cancel := boundedContext(c.ctx, c.ctx, c.deps.Timeout)
		defer cancel()

		err := c.deps.Store.PutRecord(ctx, entities.CollectionUsers, c.identity, fields, false)
		c.deliver(initResolved{err: err})
	})
}

func (c *ProfileController) onInitResolved(e initResolved) {
	c.writing = writeNone

	if e.err != nil {
		c.deps.Logger.Error("failed to initialize profile", "collection", entities.CollectionUsers, "identity", c.identity, "error", e.err)
		c.notify(domain.NoticeProfileSave)
		return
	}

	c.initialized = true
	c.deps.Logger.Info("profile initialized", "identity", c.identity)
	c.startFetch(nil)
}

func (c *ProfileController) startSave(e saveRequested) {
	if c.writing != writeNone {
		c.notify(domain.NoticeWriteInFlight)
		e.reply <- saveOutcome{err: domain.ErrWriteInFlight}
		return
	}

	fields := c.writableFields(e.fields)
	if len(fields) == 0 {
		current, _ := c.Current()
		e.reply <- saveOutcome{record: current}
		return
	}

	c.writing = writeSaving
	c.goWork(func() {
		ctx, cancel := boundedContext(e.ctx, c.ctx, c.deps.Timeout)
		defer cancel()

		err := c.deps.Store.PutRecord(ctx, entities.CollectionUsers, c.identity, fields, true)
		c.deliver(saveResolved{fields: fields, err: err, reply: e.reply})
	})
}

func (c *ProfileController) onSaveResolved(e saveResolved) {
	c.writing = writeNone

	if e.err != nil {
		c.deps.Logger.Error("failed to save profile", "collection", entities.CollectionUsers, "identity", c.identity, "error", e.err)
		c.notify(domain.NoticeProfileSave)
		e.reply <- saveOutcome{err: storeError("put", c.identity, e.err)}
		return
	}

	if saved, _ := e.fields[entities.FieldMediaRef].(string); saved != "" && saved == c.pendingMediaRef {
		c.pendingMediaRef = ""
	}
	c.initialized = true
	// a escrita substitui os dados de navegação desses campos: daqui em diante o Remote Store responde por eles
	c.navigation = withoutSavedFields(c.navigation, e.fields)

	base, ok := c.Current()
	if !ok {
		base = merge.Merge(entities.ProfileSchema, merge.Sources{Session: c.session})
	}
	updated := merge.Apply(entities.ProfileSchema, base, e.fields)
	updated.Identity = c.identity

	// leituras iniciadas antes da escrita não podem mais sobrescrever o registro
	c.appliedSeq = c.fetchSeq
	c.setCurrent(updated)
	c.notify(domain.NoticeProfileSaved)
	e.reply <- saveOutcome{record: updated.Clone()}

	c.startFetch(nil)
}

func (c *ProfileController) startUpload(e uploadRequested) {
	if c.writing != writeNone {
		c.notify(domain.NoticeWriteInFlight)
		e.reply <- uploadOutcome{err: domain.ErrWriteInFlight}
		return
	}
	if c.deps.Uploader == nil {
		e.reply <- uploadOutcome{err: &domain.MediaUploadError{Reason: "no media uploader configured"}}
		return
	}

	c.writing = writeUploading
	c.goWork(func() {
		ctx, cancel := boundedContext(e.ctx, c.ctx, c.deps.Timeout)
		defer cancel()

		url, err := c.deps.Uploader.Upload(ctx, e.image)
		if err == nil && url == "" {
			err = &domain.MediaUploadError{Reason: "uploader returned an empty url"}
		}
		c.deliver(uploadResolved{url: url, err: err, reply: e.reply})
	})
}

func (c *ProfileController) onUploadResolved(e uploadResolved) {
	c.writing = writeNone

	if e.err != nil {
		var uploadErr *domain.MediaUploadError
		if !errors.As(e.err, &uploadErr) {
			uploadErr = &domain.MediaUploadError{Reason: "upload failed", Err: e.err}
		}
		c.deps.Logger.Error("failed to upload profile photo", "identity", c.identity, "error", e.err)
		c.notify(domain.NoticePhotoUpload)
		e.reply <- uploadOutcome{err: uploadErr}
		return
	}

	c.pendingMediaRef = e.url
	if current, ok := c.Current(); ok {
		c.setCurrent(merge.Overlay(entities.ProfileSchema, current, entities.Fields{entities.FieldMediaRef: e.url}))
	}
	c.notify(domain.NoticePhotoUploaded)
	e.reply <- uploadOutcome{url: e.url}

	c.startFetch(nil)
}

// writableFields mantém apenas campos do schema, descarta mediaRef vazio
// e inclui o mediaRef pendente do último upload.
func (c *ProfileController) writableFields(fields entities.Fields) entities.Fields {
	writable := entities.Fields{}
	for name, value := range fields {
		if _, known := entities.ProfileSchema.Lookup(name); !known {
			continue
		}
		if name == entities.FieldMediaRef {
			if ref, _ := value.(string); ref == "" {
				continue
			}
		}
		writable[name] = value
	}

	if _, hasMedia := writable[entities.FieldMediaRef]; !hasMedia && c.pendingMediaRef != "" {
		writable[entities.FieldMediaRef] = c.pendingMediaRef
	}
	return writable
}

// navigationRecord junta os dados de navegação e o mediaRef pendente, a fonte mais forte do merge.
func (c *ProfileController) navigationRecord() *entities.Record {
	if c.pendingMediaRef == "" {
		return c.navigation
	}

	nav := entities.Record{Identity: c.identity, Fields: entities.Fields{}}
	if c.navigation != nil {
		nav = c.navigation.Clone()
		if nav.Fields == nil {
			nav.Fields = entities.Fields{}
		}
	}
	nav.Fields[entities.FieldMediaRef] = c.pendingMediaRef
	return &nav
}

func (c *ProfileController) setCurrent(record entities.Record) {
	c.mu.Lock()
	c.current = record.Clone()
	c.hasCurrent = true
	c.mu.Unlock()

	c.watchers.publish(record)
}

func (c *ProfileController) publishState() {
	state := StateIdle
	switch {
	case c.writing == writeUploading:
		state = StateUploadingMedia
	case c.writing != writeNone:
		state = StateSaving
	case c.fetching > 0:
		state = StateFetching
	}

	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *ProfileController) notify(notice domain.Notice) {
	if c.deps.Notifier != nil {
		c.deps.Notifier(notice)
	}
}

// withoutSavedFields remove da navegação os campos gravados. Sem campos restantes a navegação some.
func withoutSavedFields(navigation *entities.Record, saved entities.Fields) *entities.Record {
	if navigation == nil {
		return nil
	}

	nav := navigation.Clone()
	for name := range saved {
		delete(nav.Fields, name)
	}
	if len(nav.Fields) == 0 {
		return nil
	}
	return &nav
}

func storeError(op string, identity string, err error) error {
	var storeErr *domain.StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &domain.StoreError{Op: op, Collection: entities.CollectionUsers, Identity: identity, Err: err}
}

func replyErr(reply chan error, err error) {
	if reply != nil {
		reply <- err
	}
}
