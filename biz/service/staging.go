package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yi-nology/docvault/pkg/logging"
	"github.com/yi-nology/docvault/pkg/validator"
)

const fallbackFileName = "upload.bin"

// stagedFile is an upload written to the temp directory, waiting for a worker.
type stagedFile struct {
	Path     string
	Name     string
	Size     int64
	SHA256   string
	MimeType string
}

// stage copies content to <tmpDir>/<uuid>_<name>, hashing it on the way,
// and validates size and type. Nothing is left behind on error.
func (s *Service) stage(fileName, declaredType string, content io.Reader) (*stagedFile, error) {
	if content == nil {
		return nil, ErrFileRequired
	}
	if err := os.MkdirAll(s.tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	name := sanitizeFileName(fileName)
	target := filepath.Join(s.tmpDir, uuid.NewString()+"_"+name)
	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}

	reader := content
	if s.uploads.MaxFileSize > 0 {
		// one extra byte tells an exact fit from an oversized upload
		reader = io.LimitReader(content, s.uploads.MaxFileSize+1)
	}
	hasher := sha256.New()
	size, copyErr := io.Copy(io.MultiWriter(f, hasher), reader)
	closeErr := f.Close()

	staged := &stagedFile{Path: target, Name: name, Size: size}
	if err := errors.Join(copyErr, closeErr); err != nil {
		s.discard(staged)
		return nil, fmt.Errorf("write staged file: %w", err)
	}
	if err := s.uploads.ValidateFileSize(size); err != nil {
		s.discard(staged)
		return nil, err
	}

	mimeType, err := validator.DetectMimeType(target, declaredType)
	if err != nil {
		s.discard(staged)
		return nil, fmt.Errorf("detect content type: %w", err)
	}
	if err := s.uploads.ValidateMimeType(mimeType); err != nil {
		s.discard(staged)
		return nil, err
	}

	staged.MimeType = mimeType
	staged.SHA256 = hex.EncodeToString(hasher.Sum(nil))
	return staged, nil
}

func (s *Service) discard(staged *stagedFile) {
	if staged == nil {
		return
	}
	if err := os.Remove(staged.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("remove staged file", logging.String("path", staged.Path), logging.Err(err))
	}
}

// sanitizeFileName keeps only the final path element of a client file name.
func sanitizeFileName(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	switch base {
	case "", ".", "..", "/":
		return fallbackFileName
	}
	return base
}

// logicalKey is the hub-scoped key a version is uploaded under.
func logicalKey(hubKey, documentID, fileName string) string {
	return hubKey + "/" + documentID + "/" + fileName
}
