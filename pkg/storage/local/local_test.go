package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yi-nology/docvault/pkg/storage"
)

func writeSource(t *testing.T, content string) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "upload.txt")
	if err := os.WriteFile(src, []byte(content), 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return src
}

func TestUploadDefaultRoot(t *testing.T) {
	media := t.TempDir()
	p, err := New(media, storage.Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	src := writeSource(t, "hello")

	locator, err := p.Upload(context.Background(), src, "team-a/doc-1/hello.txt")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if locator != "storage/local/team-a/doc-1/hello.txt" {
		t.Errorf("locator = %q", locator)
	}

	data, err := os.ReadFile(ResolvePath(media, locator))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("stored content = %q", data)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source should be left for the caller, stat error = %v", err)
	}
}

func TestUploadRootOverrideOutsideMedia(t *testing.T) {
	media := t.TempDir()
	root := t.TempDir()
	p, _ := New(media, storage.Options{"root_dir": root})

	locator, err := p.Upload(context.Background(), writeSource(t, "x"), "hub/1/a.txt")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	want := filepath.ToSlash(filepath.Join(root, "hub", "1", "a.txt"))
	if locator != want {
		t.Errorf("locator = %q, want absolute %q", locator, want)
	}
	if ResolvePath(media, locator) != filepath.FromSlash(want) {
		t.Errorf("ResolvePath() did not keep absolute locator")
	}
}

func TestUploadRejectsEscapingKey(t *testing.T) {
	p, _ := New(t.TempDir(), nil)
	for _, key := range []string{"../outside.txt", "/abs/path.txt"} {
		_, err := p.Upload(context.Background(), writeSource(t, "x"), key)
		if !errors.Is(err, storage.ErrInvalidKey) {
			t.Errorf("Upload(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestUploadMissingSource(t *testing.T) {
	p, _ := New(t.TempDir(), nil)
	_, err := p.Upload(context.Background(), filepath.Join(t.TempDir(), "gone"), "hub/1/a.txt")
	if !errors.Is(err, storage.ErrSourceMissing) {
		t.Fatalf("Upload() error = %v, want ErrSourceMissing", err)
	}
}

func TestUploadCancelled(t *testing.T) {
	media := t.TempDir()
	p, _ := New(media, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Upload(ctx, writeSource(t, "x"), "hub/1/a.txt")
	if !storage.IsRetryable(err) {
		t.Fatalf("Upload() error = %v, want TransferError", err)
	}
	if _, statErr := os.Stat(filepath.Join(media, DefaultSubdir, "hub", "1", "a.txt")); !os.IsNotExist(statErr) {
		t.Errorf("target should not exist after cancelled upload")
	}
}
