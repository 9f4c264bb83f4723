package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore keeps images on the local filesystem and serves them from
// {baseURL}/images/{key}. Used for development and tests.
type LocalStore struct {
	baseURL   string
	imagesDir string
}

func NewLocalStore(baseURL, uploadsDir string) (*LocalStore, error) {
	imagesDir := filepath.Join(uploadsDir, "images")
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}
	return &LocalStore{
		baseURL:   strings.TrimRight(baseURL, "/"),
		imagesDir: imagesDir,
	}, nil
}

func (s *LocalStore) Upload(ctx context.Context, folder, fileName string, data []byte) (string, error) {
	key := path.Join(folder, fileName)
	if err := s.SaveFile(key, bytes.NewReader(data)); err != nil {
		return "", err
	}
	// The version parameter busts caches since the file name is reused.
	return fmt.Sprintf("%s/images/%s?v=%s", s.baseURL, key, url.QueryEscape(uuid.NewString())), nil
}

func (s *LocalStore) SaveFile(key string, reader io.Reader) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (s *LocalStore) ReadFile(key string) (io.ReadCloser, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// path resolves key inside the images directory and rejects traversal.
func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.imagesDir, clean), nil
}
