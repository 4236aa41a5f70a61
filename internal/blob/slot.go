package blob

import "sync"

// Slot owns at most one live handle. Replacing or clearing the slot revokes the
// previous handle before anything else happens.
type Slot struct {
	mu    sync.Mutex
	store *Store
	url   string
}

func NewSlot(store *Store) *Slot {
	return &Slot{store: store}
}

func (s *Slot) Replace(b Blob) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.RevokeObjectURL(s.url)
	s.url = s.store.CreateObjectURL(b)
	return s.url
}

func (s *Slot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.RevokeObjectURL(s.url)
	s.url = ""
}

func (s *Slot) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}
