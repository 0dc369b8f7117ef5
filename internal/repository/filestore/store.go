package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/NordCoder/enotary/internal/domain"
	"github.com/NordCoder/enotary/internal/domain/request"
	"github.com/google/uuid"
)

const uploadsDir = "uploads"

var _ request.FileStore = (*Store)(nil)

// Store keeps document bytes under root. Recorded paths are relative to root
// and look like uploads/<uuid>-<name>.
type Store struct {
	root string
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, uploadsDir), 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Save(ctx context.Context, name string, r io.Reader) (request.StoredFile, error) {
	rel := filepath.ToSlash(filepath.Join(uploadsDir, uuid.NewString()+"-"+sanitize(name)))
	full := filepath.Join(s.root, filepath.FromSlash(rel))

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return request.StoredFile{}, fmt.Errorf("create file: %w", err)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), readerWithContext(ctx, r))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(full)
		return request.StoredFile{}, fmt.Errorf("write file: %w", err)
	}
	return request.StoredFile{Path: rel, SHA256: hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}

func (s *Store) Open(_ context.Context, rel string) (io.ReadCloser, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("document file: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open document: %w", err)
	}
	return f, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (s *Store) Remove(_ context.Context, rel string) error {
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove document: %w", err)
	}
	return nil
}

func (s *Store) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: bad document path", domain.ErrBadRequest)
	}
	return filepath.Join(s.root, clean), nil
}

func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == 0:
			return '_'
		case r < 0x20:
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader { return ctxReader{ctx: ctx, r: r} }
