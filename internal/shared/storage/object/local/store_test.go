package local

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"quizgen-backend/internal/shared/storage/object"
)

func TestPutOpenDelete(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	n, err := store.Put(ctx, "owner/doc.pdf", "application/pdf", strings.NewReader("%PDF-1.4 body"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != int64(len("%PDF-1.4 body")) {
		t.Fatalf("unexpected size %d", n)
	}

	rc, err := store.Open(ctx, "owner/doc.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "%PDF-1.4 body" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := store.Delete(ctx, "owner/doc.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, "owner/doc.pdf"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "owner/doc.pdf"); err != nil {
		t.Fatalf("second Delete should be a no-op, got %v", err)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	store := New(t.TempDir())
	for _, key := range []string{"../secret", "/etc/passwd", ""} {
		if _, err := store.Open(context.Background(), key); err == nil || errors.Is(err, object.ErrNotFound) {
			t.Fatalf("expected invalid key error for %q, got %v", key, err)
		}
	}
}
