package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"lifedash/internal/core"
	"lifedash/internal/schema"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the document store of record.
type SQLiteRepository struct {
	queryStore
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers; transactions must not wait on themselves.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		queryStore: queryStore{q: New(db), now: time.Now},
		db:         db,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InTx implements Store.InTx with one SQL transaction.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&queryStore{q: r.q.WithTx(tx), now: r.now}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.WarnContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSetting(ctx context.Context, key string) (string, error) {
	v, err := r.q.GetSetting(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, nil
}

func (r *SQLiteRepository) PutSetting(ctx context.Context, key, value string) error {
	if err := r.q.UpsertSetting(ctx, key, value, formatTime(r.now())); err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}

// queryStore implements Tx over any DBTX, so the same code serves plain
// calls and transactions.
type queryStore struct {
	q   *Queries
	now func() time.Time
}

func (s *queryStore) List(ctx context.Context, collection string) ([]schema.Document, error) {
	rows, err := s.q.ListDocuments(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	out := make([]schema.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeBody(row)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *queryStore) Get(ctx context.Context, collection, id string) (schema.Document, error) {
	row, err := s.q.GetDocument(ctx, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decodeBody(row)
}

func (s *queryStore) Insert(ctx context.Context, collection string, doc schema.Document) (schema.Document, error) {
	id := uuid.NewString()
	body, err := encodeBody(doc)
	if err != nil {
		return nil, err
	}
	ts := formatTime(s.now())
	err = s.q.CreateDocument(ctx, CreateDocumentParams{
		ID:         id,
		Collection: collection,
		Body:       body,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	})
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", collection, err)
	}
	return withID(doc, id), nil
}

func (s *queryStore) Replace(ctx context.Context, collection, id string, doc schema.Document) (schema.Document, error) {
	body, err := encodeBody(doc)
	if err != nil {
		return nil, err
	}
	n, err := s.q.UpdateDocument(ctx, UpdateDocumentParams{
		Body:       body,
		UpdatedAt:  formatTime(s.now()),
		Collection: collection,
		ID:         id,
	})
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return nil, core.ErrNotFound
	}
	return withID(doc, id), nil
}

func (s *queryStore) Delete(ctx context.Context, collection, id string) error {
	n, err := s.q.DeleteDocument(ctx, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *queryStore) DeleteAll(ctx context.Context, collection string) error {
	if err := s.q.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("clear %s: %w", collection, err)
	}
	return nil
}

func (s *queryStore) GetUser(ctx context.Context) (core.User, error) {
	u, err := s.q.GetFirstUser(ctx)
	return toUser(u, err)
}

func (s *queryStore) GetUserByID(ctx context.Context, id string) (core.User, error) {
	u, err := s.q.GetUser(ctx, id)
	return toUser(u, err)
}

func (s *queryStore) CreateUser(ctx context.Context, u core.User) error {
	err := s.q.CreateUser(ctx, User{
		ID:           u.ID,
		PasswordHash: u.PasswordHash,
		CreatedAt:    formatTime(u.CreatedAt),
		UpdatedAt:    formatTime(u.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *queryStore) UpdatePassword(ctx context.Context, id, hash string) error {
	n, err := s.q.UpdateUserPassword(ctx, hash, formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *queryStore) DeleteUsers(ctx context.Context) error {
	if err := s.q.DeleteUsers(ctx); err != nil {
		return fmt.Errorf("delete users: %w", err)
	}
	return nil
}

func toUser(u User, err error) (core.User, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	created, _ := time.Parse(time.RFC3339Nano, u.CreatedAt)
	updated, _ := time.Parse(time.RFC3339Nano, u.UpdatedAt)
	return core.User{ID: u.ID, PasswordHash: u.PasswordHash, CreatedAt: created, UpdatedAt: updated}, nil
}

func encodeBody(doc schema.Document) (string, error) {
	body := make(schema.Document, len(doc))
	for k, v := range doc {
		if k != "id" {
			body[k] = v
		}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(raw), nil
}

func decodeBody(row Document) (schema.Document, error) {
	var doc schema.Document
	if err := json.Unmarshal([]byte(row.Body), &doc); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", row.Collection, row.ID, err)
	}
	if doc == nil {
		doc = schema.Document{}
	}
	doc["id"] = row.ID
	return doc, nil
}

func withID(doc schema.Document, id string) schema.Document {
	out := doc.Clone()
	if out == nil {
		out = schema.Document{}
	}
	out["id"] = id
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
