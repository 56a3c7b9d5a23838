// Package upload stores receipt files on local disk and serves them back by name.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
)

var (
	ErrTooLarge        = apperr.Invalid("file exceeds the upload size limit")
	ErrUnsupportedType = apperr.Invalid("file type is not allowed; upload an image or a PDF")
	ErrEmpty           = apperr.Invalid("file is empty")
)

// sniffLen is how much of the file content detection looks at.
const sniffLen = 3072

var allowed = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/heic",
	"application/pdf",
}

// File describes a stored upload.
type File struct {
	Name        string
	URL         string
	ContentType string
	Size        int64
}

type Store struct {
	dir     string
	baseURL string
	maxSize int64
}

func NewStore(dir, baseURL string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}

	return &Store{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/"), maxSize: maxSize}, nil
}

func (s *Store) Dir() string { return s.dir }

// Save writes r under a generated name. The type is taken from the content,
// not from the client-supplied name or header.
func (s *Store) Save(ctx context.Context, r io.Reader) (*File, error) {
	head := make([]byte, sniffLen)

	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	head = head[:n]
	if n == 0 {
		return nil, ErrEmpty
	}

	mt := mimetype.Detect(head)
	if !mimetype.EqualsAny(mt.String(), allowed...) {
		slog.DebugContext(ctx, "rejected upload", "detected", mt.String())
		return nil, ErrUnsupportedType
	}

	name := uuid.NewString() + mt.Extension()
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	size, err := io.Copy(f, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err == nil && size > s.maxSize {
		err = ErrTooLarge
	}

	if err != nil {
		_ = os.Remove(path)

		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}

		return nil, fmt.Errorf("writing file: %w", err)
	}

	return &File{Name: name, URL: s.baseURL + "/" + name, ContentType: mt.String(), Size: size}, nil
}

// Remove deletes the file behind url, which may be a bare name or a URL
// returned by Save. Missing files are not an error.
func (s *Store) Remove(url string) error {
	name := filepath.Base(url)
	if name == "." || name == "/" || name == "" {
		return nil
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing file: %w", err)
	}

	return nil
}
