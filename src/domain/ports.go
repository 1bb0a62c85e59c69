package domain

import (
	"context"

	"florencia/src/domain/entities"
)

// RecordStore é o Remote Store: documentos endereçados por coleção e identidade.
type RecordStore interface {
	// GetRecord retorna found=false quando o documento ainda não existe.
	GetRecord(ctx context.Context, collection string, identity string) (record entities.Record, found bool, err error)
	// PutRecord grava o documento. Com mergeExisting os campos enviados são
	// mesclados sobre os existentes; sem ele o documento é substituído.
	PutRecord(ctx context.Context, collection string, identity string, fields entities.Fields, mergeExisting bool) error
	DeleteRecord(ctx context.Context, collection string, identity string) error
	QueryAll(ctx context.Context, collection string) ([]entities.Record, error)
}

// LiveStore adds continuous change notification on top of a RecordStore.
type LiveStore interface {
	RecordStore
	// Subscribe entrega um snapshot completo da coleção a cada mudança, começando pelo estado atual.
	// onError recebe falhas de releitura; a assinatura continua ativa.
	Subscribe(ctx context.Context, collection string, onChange func([]entities.Record), onError func(error)) (unsubscribe func(), err error)
}

// ChangeFeed avisa quando algum registro de uma coleção mudou.
type ChangeFeed interface {
	Listen(collection string, fn func(RecordChange)) (cancel func())
}

type MediaUploader interface {
	Upload(ctx context.Context, image Image) (publicURL string, err error)
}

type IdentityProvider interface {
	SignIn(ctx context.Context, email string, secret string) (entities.Session, error)
	SignUp(ctx context.Context, email string, secret string, displayName entities.DisplayName) (entities.Session, error)
	SignOut(ctx context.Context, token string) error
	Session(ctx context.Context, token string) (entities.Session, error)
}

// AccountStore guarda as contas do provedor de identidade local.
type AccountStore interface {
	// CreateAccount retorna ErrEmailTaken quando o email já existe.
	CreateAccount(ctx context.Context, account entities.Account) error
	FindAccountByEmail(ctx context.Context, email string) (account entities.Account, found bool, err error)
}

type SessionStore interface {
	SaveSession(ctx context.Context, session entities.Session) error
	FindSession(ctx context.Context, token string) (session entities.Session, found bool, err error)
	DeleteSession(ctx context.Context, token string) error
}
