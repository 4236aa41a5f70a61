// Package blob holds transient binary objects behind revocable handle URLs.
//
// A handle must be revoked by whoever created it once nothing references it.
// Revoking is idempotent.
package blob

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const urlPrefix = "blob:qrforge/"

var ErrNotFound = errors.New("blob handle not found")

type Blob struct {
	Data []byte
	Type string
}

func (b Blob) Size() int {
	return len(b.Data)
}

// Resolver turns a handle URL back into its blob.
type Resolver interface {
	Resolve(url string) (Blob, error)
}

type Store struct {
	mu      sync.Mutex
	objects map[string]Blob
	created int
}

func NewStore() *Store {
	return &Store{objects: map[string]Blob{}}
}

func (s *Store) CreateObjectURL(b Blob) string {
	url := urlPrefix + uuid.NewString()

	s.mu.Lock()
	s.objects[url] = b
	s.created++
	s.mu.Unlock()
	return url
}

func (s *Store) RevokeObjectURL(url string) {
	if strings.TrimSpace(url) == "" {
		return
	}
	s.mu.Lock()
	delete(s.objects, url)
	s.mu.Unlock()
}

func (s *Store) Resolve(url string) (Blob, error) {
	if strings.HasPrefix(url, "data:") {
		return ParseDataURL(url)
	}
	if !IsObjectURL(url) {
		return Blob{}, fmt.Errorf("%q is not a blob or data URL: %w", url, ErrNotFound)
	}
	s.mu.Lock()
	b, ok := s.objects[url]
	s.mu.Unlock()
	if !ok {
		return Blob{}, ErrNotFound
	}
	return b, nil
}

// Live reports how many handles are currently allocated.
func (s *Store) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Created reports how many handles were ever allocated.
func (s *Store) Created() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

func IsObjectURL(url string) bool {
	return strings.HasPrefix(url, urlPrefix)
}
