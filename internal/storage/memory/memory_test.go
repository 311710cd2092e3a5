package memory

import (
	"context"
	"errors"
	"testing"

	"lifedash/internal/core"
	"lifedash/internal/schema"
	"lifedash/internal/storage"
)

func TestMemoryStoreInsertAndList(t *testing.T) {
	ctx := context.Background()
	s := New()

	doc := schema.Document{"text": "a", "tags": []any{"x"}}
	got, err := s.Insert(ctx, "tasks", doc)
	if err != nil || got.ID() == "" {
		t.Fatalf("unexpected insert: %v %v", got, err)
	}
	doc["text"] = "mutated"
	list, _ := s.List(ctx, "tasks")
	if len(list) != 1 || list[0].String("text") != "a" {
		t.Fatalf("store must copy documents on insert, got %v", list)
	}
	list[0]["text"] = "mutated"
	again, _ := s.Get(ctx, "tasks", got.ID())
	if again.String("text") != "a" {
		t.Fatalf("store must copy documents on read")
	}

	if err := s.Delete(ctx, "tasks", "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStoreTransaction(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.Insert(ctx, "goals", schema.Document{"title": "keep"})

	err := s.InTx(ctx, func(tx storage.Tx) error {
		_ = tx.DeleteAll(ctx, "goals")
		_, _ = tx.Insert(ctx, "goals", schema.Document{"title": "temp"})
		return errors.New("abort")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	list, _ := s.List(ctx, "goals")
	if len(list) != 1 || list[0].String("title") != "keep" {
		t.Fatalf("failed transaction must not leak writes, got %v", list)
	}

	err = s.InTx(ctx, func(tx storage.Tx) error {
		_ = tx.DeleteAll(ctx, "goals")
		_, err := tx.Insert(ctx, "goals", schema.Document{"title": "new"})
		return err
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	list, _ = s.List(ctx, "goals")
	if len(list) != 1 || list[0].String("title") != "new" {
		t.Fatalf("committed transaction should replace data, got %v", list)
	}
}
