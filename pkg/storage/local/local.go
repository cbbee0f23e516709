// Package local implements the local filesystem storage provider.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yi-nology/docvault/pkg/storage"
)

// DefaultSubdir is the provider root below the media root when no
// root_dir override is configured.
const DefaultSubdir = "storage/local"

// Options holds the recognised configuration keys of a LOCAL backend.
type Options struct {
	RootDir string
}

// ParseOptions reads the LOCAL option keys.
func ParseOptions(opts storage.Options) Options {
	return Options{RootDir: strings.TrimSpace(opts.String("root_dir"))}
}

// Provider copies staged files below a root directory.
type Provider struct {
	mediaRoot string
	root      string
}

// New creates a local provider. mediaRoot is the application media root and
// is also used to make returned locators relative.
func New(mediaRoot string, opts storage.Options) (*Provider, error) {
	if mediaRoot == "" {
		mediaRoot = "data/media"
	}
	parsed := ParseOptions(opts)
	root := parsed.RootDir
	if root == "" {
		root = filepath.Join(mediaRoot, DefaultSubdir)
	}
	return &Provider{mediaRoot: mediaRoot, root: root}, nil
}

// Kind returns LOCAL.
func (p *Provider) Kind() storage.Kind {
	return storage.KindLocal
}

// Root returns the directory files are written below.
func (p *Provider) Root() string {
	return p.root
}

// Upload copies sourcePath to root/logicalKey and returns the target path,
// relative to the media root when the target lies below it.
func (p *Provider) Upload(ctx context.Context, sourcePath, logicalKey string) (string, error) {
	key, err := storage.CleanKey(logicalKey)
	if err != nil {
		return "", err
	}
	target := filepath.Join(p.root, filepath.FromSlash(key))

	src, err := os.Open(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", storage.ErrSourceMissing, sourcePath)
		}
		return "", &storage.TransferError{Kind: storage.KindLocal, Op: "open source", Err: err}
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", &storage.TransferError{Kind: storage.KindLocal, Op: "create directory", Err: err}
	}

	// Write next to the target and rename so readers never see a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return "", &storage.TransferError{Kind: storage.KindLocal, Op: "create file", Err: err}
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: src}); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", &storage.TransferError{Kind: storage.KindLocal, Op: "write file", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", &storage.TransferError{Kind: storage.KindLocal, Op: "close file", Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return "", &storage.TransferError{Kind: storage.KindLocal, Op: "chmod file", Err: err}
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", &storage.TransferError{Kind: storage.KindLocal, Op: "rename file", Err: err}
	}

	return p.locatorFor(target), nil
}

func (p *Provider) locatorFor(target string) string {
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	absMedia, err := filepath.Abs(p.mediaRoot)
	if err != nil {
		return filepath.ToSlash(absTarget)
	}
	rel, err := filepath.Rel(absMedia, absTarget)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(absTarget)
	}
	return filepath.ToSlash(rel)
}

// ResolvePath maps a stored locator back to a filesystem path: absolute
// locators are used as is, relative ones are joined to the media root.
func ResolvePath(mediaRoot, locator string) string {
	p := filepath.FromSlash(locator)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(mediaRoot, p)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
