package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/utafrali/videohub/internal/storage"
)

// object is an uploaded file held in memory.
type object struct {
	ContentType string
	Data        []byte
	URL         string
}

// Storage implements storage.Storage using an in-memory map.
type Storage struct {
	mu      sync.RWMutex
	files   map[string]*object
	baseURL string
}

// New creates a new in-memory storage instance serving URLs under baseURL.
func New(baseURL string) *Storage {
	return &Storage{
		files:   make(map[string]*object),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload reads the file into memory and returns its URL.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	if input == nil || input.Key == "" || input.Data == nil {
		return nil, fmt.Errorf("upload: key and data are required")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, input.Data); err != nil {
		return nil, fmt.Errorf("read upload %s: %w", input.Key, err)
	}

	url := s.urlFor(input.Key)

	s.mu.Lock()
	s.files[input.Key] = &object{ContentType: input.ContentType, Data: buf.Bytes(), URL: url}
	s.mu.Unlock()

	return &storage.UploadResult{Key: input.Key, URL: url}, nil
}

// Delete removes a file from memory.
func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[key]; !exists {
		return fmt.Errorf("file not found: %s", key)
	}
	delete(s.files, key)
	return nil
}

// GetURL returns the URL for the given key.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.files[key]
	if !exists {
		return "", fmt.Errorf("file not found: %s", key)
	}
	return entry.URL, nil
}

// Object returns the stored bytes and content type of key.
func (s *Storage) Object(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.files[key]
	if !ok {
		return nil, "", false
	}
	return entry.Data, entry.ContentType, true
}

// Len returns the number of stored files.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

func (s *Storage) urlFor(key string) string {
	return fmt.Sprintf("%s/assets/%s", s.baseURL, key)
}
