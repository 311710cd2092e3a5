package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"lifedash/internal/core"
	"lifedash/internal/schema"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first, err := repo.Insert(ctx, "tasks", schema.Document{"text": "a", "completed": false})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	second, err := repo.Insert(ctx, "tasks", schema.Document{"text": "b", "id": "ignored"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.ID() == "" || second.ID() == "ignored" {
		t.Fatalf("ids must be generated by the store: %q %q", first.ID(), second.ID())
	}
	if _, err := repo.Insert(ctx, "expenses", schema.Document{"amount": 3.5}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	list, err := repo.List(ctx, "tasks")
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %v %v", list, err)
	}
	if list[0].ID() != first.ID() || list[1].String("text") != "b" {
		t.Fatalf("expected insertion order, got %v", list)
	}

	updated, err := repo.Replace(ctx, "tasks", first.ID(), schema.Document{"text": "a2", "completed": true})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if updated.ID() != first.ID() {
		t.Fatalf("replace should keep id")
	}
	got, err := repo.Get(ctx, "tasks", first.ID())
	if err != nil || got["completed"] != true || got.String("text") != "a2" {
		t.Fatalf("get after replace: %v %v", got, err)
	}

	if _, err := repo.Get(ctx, "expenses", first.ID()); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("lookup is scoped by collection, got %v", err)
	}
	if err := repo.Delete(ctx, "tasks", first.ID()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, "tasks", first.ID()); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
	if _, err := repo.Replace(ctx, "tasks", "missing", schema.Document{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("replace missing should be not found, got %v", err)
	}

	if err := repo.DeleteAll(ctx, "tasks"); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	list, _ = repo.List(ctx, "tasks")
	exp, _ := repo.List(ctx, "expenses")
	if len(list) != 0 || len(exp) != 1 {
		t.Fatalf("delete all should only clear its collection: tasks=%d expenses=%d", len(list), len(exp))
	}
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	if _, err := repo.Insert(ctx, "habits", schema.Document{"name": "keep"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	boom := errors.New("boom")
	err := repo.InTx(ctx, func(tx Tx) error {
		if err := tx.DeleteAll(ctx, "habits"); err != nil {
			return err
		}
		if _, err := tx.Insert(ctx, "habits", schema.Document{"name": "new"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	list, _ := repo.List(ctx, "habits")
	if len(list) != 1 || list[0].String("name") != "keep" {
		t.Fatalf("rollback should keep prior data, got %v", list)
	}

	err = repo.InTx(ctx, func(tx Tx) error {
		_, err := tx.Insert(ctx, "habits", schema.Document{"name": "committed"})
		return err
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	list, _ = repo.List(ctx, "habits")
	if len(list) != 2 {
		t.Fatalf("expected commit to persist, got %v", list)
	}
}

func TestUsersAndSettings(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.GetUser(ctx); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found before setup, got %v", err)
	}
	now := time.Now()
	if err := repo.CreateUser(ctx, core.User{ID: "u1", PasswordHash: "h1", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := repo.UpdatePassword(ctx, "u1", "h2"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	u, err := repo.GetUserByID(ctx, "u1")
	if err != nil || u.PasswordHash != "h2" {
		t.Fatalf("get user: %+v %v", u, err)
	}
	if err := repo.UpdatePassword(ctx, "nobody", "x"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.DeleteUsers(ctx); err != nil {
		t.Fatalf("delete users: %v", err)
	}
	if _, err := repo.GetUser(ctx); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found after wipe, got %v", err)
	}

	if _, err := repo.GetSetting(ctx, "vault_salt"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected missing setting, got %v", err)
	}
	if err := repo.PutSetting(ctx, "vault_salt", "abc"); err != nil {
		t.Fatalf("put setting: %v", err)
	}
	if err := repo.PutSetting(ctx, "vault_salt", "def"); err != nil {
		t.Fatalf("overwrite setting: %v", err)
	}
	if v, _ := repo.GetSetting(ctx, "vault_salt"); v != "def" {
		t.Fatalf("expected def, got %q", v)
	}
}
