package local

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveOpenRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	payload := []byte("%PDF-1.4\nresume body")

	key, size, mimeType, err := store.Save(ctx, "candidate-1", "jane resume.pdf", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), size)
	}
	if mimeType != "application/pdf" {
		t.Fatalf("expected sniffed pdf, got %s", mimeType)
	}
	if !strings.HasSuffix(key, "_jane resume.pdf") {
		t.Fatalf("unexpected key %s", key)
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: %q", got)
	}
}

func TestSaveWithKeyRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	for _, key := range []string{"../escape.txt", "/etc/passwd", ""} {
		if _, err := store.SaveWithKey(context.Background(), key, "text/plain", strings.NewReader("x")); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestSaveRejectsBadFileName(t *testing.T) {
	store := New(t.TempDir())
	if _, _, _, err := store.Save(context.Background(), "c", "../../x.pdf", strings.NewReader("x")); err == nil {
		t.Fatalf("expected invalid file name error")
	}
}
