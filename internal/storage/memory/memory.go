// Package memory is a process-local Store used by tests and DATA_BACKEND=memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"lifedash/internal/core"
	"lifedash/internal/schema"
	"lifedash/internal/storage"
)

type state struct {
	docs     map[string][]schema.Document
	users    []core.User
	settings map[string]string
}

func (s *state) clone() *state {
	out := &state{
		docs:     make(map[string][]schema.Document, len(s.docs)),
		users:    append([]core.User(nil), s.users...),
		settings: make(map[string]string, len(s.settings)),
	}
	for c, docs := range s.docs {
		cp := make([]schema.Document, len(docs))
		for i, d := range docs {
			cp[i] = d.Clone()
		}
		out.docs[c] = cp
	}
	for k, v := range s.settings {
		out.settings[k] = v
	}
	return out
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		st:  &state{docs: map[string][]schema.Document{}, settings: map[string]string{}},
		now: time.Now,
	}
}

func (s *Store) List(_ context.Context, collection string) ([]schema.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.list(collection), nil
}

func (s *Store) Get(_ context.Context, collection, id string) (schema.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.get(collection, id)
}

func (s *Store) Insert(_ context.Context, collection string, doc schema.Document) (schema.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.insert(collection, doc), nil
}

func (s *Store) Replace(_ context.Context, collection, id string, doc schema.Document) (schema.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.replace(collection, id, doc)
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.delete(collection, id)
}

func (s *Store) DeleteAll(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.docs, collection)
	return nil
}

func (s *Store) GetUser(_ context.Context) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.firstUser()
}

func (s *Store) GetUserByID(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.user(id)
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users = append(s.st.users, u)
	return nil
}

func (s *Store) UpdatePassword(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.updatePassword(id, hash, s.now())
}

func (s *Store) DeleteUsers(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users = nil
	return nil
}

func (s *Store) GetSetting(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.st.settings[key]
	if !ok {
		return "", core.ErrNotFound
	}
	return v, nil
}

func (s *Store) PutSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.settings[key] = value
	return nil
}

// InTx runs fn against a copy of the state and swaps it in only when fn
// succeeds. The store lock is held for the whole transaction.
func (s *Store) InTx(_ context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := &txView{st: s.st.clone(), now: s.now}
	if err := fn(work); err != nil {
		return err
	}
	s.st = work.st
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

// txView is the unlocked view handed to InTx callbacks.
type txView struct {
	st  *state
	now func() time.Time
}

func (t *txView) List(_ context.Context, c string) ([]schema.Document, error) {
	return t.st.list(c), nil
}
func (t *txView) Get(_ context.Context, c, id string) (schema.Document, error) {
	return t.st.get(c, id)
}
func (t *txView) Insert(_ context.Context, c string, doc schema.Document) (schema.Document, error) {
	return t.st.insert(c, doc), nil
}
func (t *txView) Replace(_ context.Context, c, id string, doc schema.Document) (schema.Document, error) {
	return t.st.replace(c, id, doc)
}
func (t *txView) Delete(_ context.Context, c, id string) error { return t.st.delete(c, id) }
func (t *txView) DeleteAll(_ context.Context, c string) error {
	delete(t.st.docs, c)
	return nil
}
func (t *txView) GetUser(context.Context) (core.User, error) { return t.st.firstUser() }
func (t *txView) GetUserByID(_ context.Context, id string) (core.User, error) {
	return t.st.user(id)
}
func (t *txView) CreateUser(_ context.Context, u core.User) error {
	t.st.users = append(t.st.users, u)
	return nil
}
func (t *txView) UpdatePassword(_ context.Context, id, hash string) error {
	return t.st.updatePassword(id, hash, t.now())
}
func (t *txView) DeleteUsers(context.Context) error {
	t.st.users = nil
	return nil
}

func (s *state) list(collection string) []schema.Document {
	docs := s.docs[collection]
	out := make([]schema.Document, len(docs))
	for i, d := range docs {
		out[i] = d.Clone()
	}
	return out
}

func (s *state) get(collection, id string) (schema.Document, error) {
	for _, d := range s.docs[collection] {
		if d.ID() == id {
			return d.Clone(), nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *state) insert(collection string, doc schema.Document) schema.Document {
	stored := doc.Clone()
	if stored == nil {
		stored = schema.Document{}
	}
	stored["id"] = uuid.NewString()
	s.docs[collection] = append(s.docs[collection], stored)
	return stored.Clone()
}

func (s *state) replace(collection, id string, doc schema.Document) (schema.Document, error) {
	for i, d := range s.docs[collection] {
		if d.ID() != id {
			continue
		}
		stored := doc.Clone()
		if stored == nil {
			stored = schema.Document{}
		}
		stored["id"] = id
		s.docs[collection][i] = stored
		return stored.Clone(), nil
	}
	return nil, core.ErrNotFound
}

func (s *state) delete(collection, id string) error {
	docs := s.docs[collection]
	for i, d := range docs {
		if d.ID() == id {
			s.docs[collection] = append(docs[:i:i], docs[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *state) firstUser() (core.User, error) {
	if len(s.users) == 0 {
		return core.User{}, core.ErrNotFound
	}
	return s.users[0], nil
}

func (s *state) user(id string) (core.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *state) updatePassword(id, hash string, now time.Time) error {
	for i, u := range s.users {
		if u.ID == id {
			s.users[i].PasswordHash = hash
			s.users[i].UpdatedAt = now
			return nil
		}
	}
	return core.ErrNotFound
}
