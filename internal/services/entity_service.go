package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"lifedash/internal/amqp"
	"lifedash/internal/core"
	"lifedash/internal/log"
	"lifedash/internal/schema"
	"lifedash/internal/storage"
)

// Sealer encrypts and decrypts individual field values at rest.
type Sealer interface {
	Seal(plain string) (string, error)
	Unseal(sealed string) (string, error)
}

// EntityService implements list/create/get/update/delete for every schema in
// the registry on top of the document store.
type EntityService struct {
	store     storage.Store
	sealer    Sealer
	publisher amqp.Publisher
}

type EntityOption func(*EntityService)

// WithSealer encrypts the schema's sealed fields before they are stored.
func WithSealer(s Sealer) EntityOption {
	return func(e *EntityService) { e.sealer = s }
}

// WithEventPublisher reports every successful mutation.
func WithEventPublisher(p amqp.Publisher) EntityOption {
	return func(e *EntityService) { e.publisher = p }
}

func NewEntityService(store storage.Store, opts ...EntityOption) *EntityService {
	s := &EntityService{store: store, publisher: amqp.NopPublisher{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every document of sc in insertion order.
func (s *EntityService) List(ctx context.Context, sc *schema.Schema) ([]schema.Document, error) {
	docs, err := s.store.List(ctx, sc.Collection)
	if err != nil {
		return nil, err
	}
	for i, d := range docs {
		if docs[i], err = openFields(s.sealer, sc, d); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// Get returns one document. Ids that are not UUIDs are core.ErrNotFound.
func (s *EntityService) Get(ctx context.Context, sc *schema.Schema, id string) (schema.Document, error) {
	if !validID(id) {
		return nil, core.ErrNotFound
	}
	doc, err := s.store.Get(ctx, sc.Collection, id)
	if err != nil {
		return nil, err
	}
	return openFields(s.sealer, sc, doc)
}

// Create validates doc, applies defaults and stores it under a new id.
func (s *EntityService) Create(ctx context.Context, sc *schema.Schema, doc schema.Document) (schema.Document, error) {
	clean, err := sc.Normalize(doc)
	if err != nil {
		return nil, err
	}
	sealed, err := sealFields(s.sealer, sc, clean)
	if err != nil {
		return nil, err
	}
	stored, err := s.store.Insert(ctx, sc.Collection, sealed)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sc.Collection, stored.ID(), amqp.OpCreate)
	return withID(clean, stored.ID()), nil
}

// Update merges partial over the stored document and re-validates the result.
func (s *EntityService) Update(ctx context.Context, sc *schema.Schema, id string, partial schema.Document) (schema.Document, error) {
	current, err := s.Get(ctx, sc, id)
	if err != nil {
		return nil, err
	}
	merged, err := sc.Merge(current, partial)
	if err != nil {
		return nil, err
	}
	delete(merged, "id")
	sealed, err := sealFields(s.sealer, sc, merged)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Replace(ctx, sc.Collection, id, sealed); err != nil {
		return nil, err
	}
	s.publish(ctx, sc.Collection, id, amqp.OpUpdate)
	return withID(merged, id), nil
}

// Delete removes one document.
func (s *EntityService) Delete(ctx context.Context, sc *schema.Schema, id string) error {
	if !validID(id) {
		return core.ErrNotFound
	}
	if err := s.store.Delete(ctx, sc.Collection, id); err != nil {
		return err
	}
	s.publish(ctx, sc.Collection, id, amqp.OpDelete)
	return nil
}

func (s *EntityService) publish(ctx context.Context, collection, id string, op amqp.Op) {
	log.NewStructuredLogger(log.FromContext(ctx)).LogEntityChange(ctx, string(op), collection, id)
	publishEvent(ctx, s.publisher, collection, id, op)
}

// publishEvent never fails the caller; the document is already stored.
func publishEvent(ctx context.Context, p amqp.Publisher, collection, id string, op amqp.Op) {
	if err := p.PublishEntityEvent(ctx, amqp.NewEntityEvent(collection, id, op)); err != nil {
		slog.WarnContext(ctx, "Failed to publish entity event",
			"collection", collection, "id", id, "op", op, "error", err)
	}
}

// withID echoes the validated plaintext document under its stored id, so a
// write that reached the store is never reported as failed.
func withID(doc schema.Document, id string) schema.Document {
	out := make(schema.Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out["id"] = id
	return out
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func sealFields(s Sealer, sc *schema.Schema, doc schema.Document) (schema.Document, error) {
	return transformFields(sc, doc, s, func(v string) (string, error) { return s.Seal(v) })
}

func openFields(s Sealer, sc *schema.Schema, doc schema.Document) (schema.Document, error) {
	return transformFields(sc, doc, s, func(v string) (string, error) { return s.Unseal(v) })
}

func transformFields(sc *schema.Schema, doc schema.Document, s Sealer, fn func(string) (string, error)) (schema.Document, error) {
	if s == nil || len(sc.Sealed) == 0 {
		return doc, nil
	}
	out := make(schema.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, name := range sc.Sealed {
		v, ok := out[name].(string)
		if !ok || v == "" {
			continue
		}
		t, err := fn(v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", sc.Kind, name, err)
		}
		out[name] = t
	}
	return out, nil
}
