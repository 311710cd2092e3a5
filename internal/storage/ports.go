package storage

import (
	"context"

	"lifedash/internal/core"
	"lifedash/internal/schema"
)

// DocumentStore keeps JSON documents grouped by collection. Documents are
// returned in insertion order with their public id under "id".
type DocumentStore interface {
	List(ctx context.Context, collection string) ([]schema.Document, error)
	Get(ctx context.Context, collection, id string) (schema.Document, error)
	// Insert assigns a fresh id and returns the stored document.
	Insert(ctx context.Context, collection string, doc schema.Document) (schema.Document, error)
	Replace(ctx context.Context, collection, id string, doc schema.Document) (schema.Document, error)
	Delete(ctx context.Context, collection, id string) error
	DeleteAll(ctx context.Context, collection string) error
}

// UserStore persists the single account. GetUser returns core.ErrNotFound
// before setup.
type UserStore interface {
	GetUser(ctx context.Context) (core.User, error)
	GetUserByID(ctx context.Context, id string) (core.User, error)
	CreateUser(ctx context.Context, u core.User) error
	UpdatePassword(ctx context.Context, id, hash string) error
	DeleteUsers(ctx context.Context) error
}

// SettingsStore holds small key/value pairs such as the vault salt.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Tx is the view of the store inside a transaction.
type Tx interface {
	DocumentStore
	UserStore
}

// Store is the full persistence surface used by the services.
type Store interface {
	DocumentStore
	UserStore
	SettingsStore
	// InTx runs fn atomically. Any error returned by fn rolls back every
	// write made through tx.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}
