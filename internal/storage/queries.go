package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Document struct {
	Seq        int64
	ID         string
	Collection string
	Body       string
	CreatedAt  string
	UpdatedAt  string
}

type User struct {
	ID           string
	PasswordHash string
	CreatedAt    string
	UpdatedAt    string
}

const listDocuments = `-- name: ListDocuments :many
SELECT seq, id, collection, body, created_at, updated_at FROM documents
WHERE collection = ?
ORDER BY seq
`

func (q *Queries) ListDocuments(ctx context.Context, collection string) ([]Document, error) {
	rows, err := q.db.QueryContext(ctx, listDocuments, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Document
	for rows.Next() {
		var i Document
		if err := rows.Scan(&i.Seq, &i.ID, &i.Collection, &i.Body, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getDocument = `-- name: GetDocument :one
SELECT seq, id, collection, body, created_at, updated_at FROM documents
WHERE collection = ? AND id = ?
`

func (q *Queries) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	row := q.db.QueryRowContext(ctx, getDocument, collection, id)
	var i Document
	err := row.Scan(&i.Seq, &i.ID, &i.Collection, &i.Body, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const createDocument = `-- name: CreateDocument :exec
INSERT INTO documents (id, collection, body, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
`

type CreateDocumentParams struct {
	ID         string
	Collection string
	Body       string
	CreatedAt  string
	UpdatedAt  string
}

func (q *Queries) CreateDocument(ctx context.Context, arg CreateDocumentParams) error {
	_, err := q.db.ExecContext(ctx, createDocument, arg.ID, arg.Collection, arg.Body, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const updateDocument = `-- name: UpdateDocument :execrows
UPDATE documents SET body = ?, updated_at = ?
WHERE collection = ? AND id = ?
`

type UpdateDocumentParams struct {
	Body       string
	UpdatedAt  string
	Collection string
	ID         string
}

func (q *Queries) UpdateDocument(ctx context.Context, arg UpdateDocumentParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateDocument, arg.Body, arg.UpdatedAt, arg.Collection, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteDocument = `-- name: DeleteDocument :execrows
DELETE FROM documents WHERE collection = ? AND id = ?
`

func (q *Queries) DeleteDocument(ctx context.Context, collection, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteDocument, collection, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteCollection = `-- name: DeleteCollection :exec
DELETE FROM documents WHERE collection = ?
`

func (q *Queries) DeleteCollection(ctx context.Context, collection string) error {
	_, err := q.db.ExecContext(ctx, deleteCollection, collection)
	return err
}

const getFirstUser = `-- name: GetFirstUser :one
SELECT id, password_hash, created_at, updated_at FROM users
ORDER BY created_at
LIMIT 1
`

func (q *Queries) GetFirstUser(ctx context.Context) (User, error) {
	row := q.db.QueryRowContext(ctx, getFirstUser)
	var i User
	err := row.Scan(&i.ID, &i.PasswordHash, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const getUser = `-- name: GetUser :one
SELECT id, password_hash, created_at, updated_at FROM users
WHERE id = ?
`

func (q *Queries) GetUser(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, id)
	var i User
	err := row.Scan(&i.ID, &i.PasswordHash, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const createUser = `-- name: CreateUser :exec
INSERT INTO users (id, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?)
`

func (q *Queries) CreateUser(ctx context.Context, arg User) error {
	_, err := q.db.ExecContext(ctx, createUser, arg.ID, arg.PasswordHash, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const updateUserPassword = `-- name: UpdateUserPassword :execrows
UPDATE users SET password_hash = ?, updated_at = ?
WHERE id = ?
`

func (q *Queries) UpdateUserPassword(ctx context.Context, hash, updatedAt, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserPassword, hash, updatedAt, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteUsers = `-- name: DeleteUsers :exec
DELETE FROM users
`

func (q *Queries) DeleteUsers(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteUsers)
	return err
}

const getSetting = `-- name: GetSetting :one
SELECT value FROM settings WHERE key = ?
`

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	row := q.db.QueryRowContext(ctx, getSetting, key)
	var value string
	err := row.Scan(&value)
	return value, err
}

const upsertSetting = `-- name: UpsertSetting :exec
INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

func (q *Queries) UpsertSetting(ctx context.Context, key, value, updatedAt string) error {
	_, err := q.db.ExecContext(ctx, upsertSetting, key, value, updatedAt)
	return err
}
