package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leafguard/backend/internal/domain"
	"github.com/spf13/afero"
)

// LocalStore writes uploads beneath a directory and serves them from a public base URL
type LocalStore struct {
	fs            afero.Fs
	dir           string
	publicBaseURL string
	now           func() time.Time
}

// NewLocalStore creates a store rooted at dir on the OS filesystem
func NewLocalStore(dir, publicBaseURL string) (*LocalStore, error) {
	return NewLocalStoreFs(afero.NewOsFs(), dir, publicBaseURL)
}

// NewLocalStoreFs creates a store on the given filesystem
func NewLocalStoreFs(fs afero.Fs, dir, publicBaseURL string) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("local storage directory is required")
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	return &LocalStore{
		fs:            fs,
		dir:           dir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
	}, nil
}

// Put writes data under a fresh upload key
func (s *LocalStore) Put(ctx context.Context, name, contentType string, data []byte) (*domain.StoredObject, error) {
	now := s.now()
	key := ObjectKey(name, now)
	path := s.path(key)

	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}

	return &domain.StoredObject{
		Key:         key,
		Name:        name,
		URL:         s.publicURL(key),
		ContentType: contentType,
		Size:        int64(len(data)),
		UploadedAt:  now.UTC(),
	}, nil
}

// URL returns the public URL of an existing key
func (s *LocalStore) URL(ctx context.Context, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	if _, err := s.fs.Stat(s.path(key)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.ErrObjectNotFound
		}
		return "", err
	}
	return s.publicURL(key), nil
}

// Delete removes a stored object
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := s.fs.Remove(s.path(key)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrObjectNotFound
		}
		return err
	}
	return nil
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}

func (s *LocalStore) publicURL(key string) string {
	return s.publicBaseURL + "/" + key
}
