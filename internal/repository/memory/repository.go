package memory

import (
	"sync"
	"time"
)

// Repository keeps the most recently saved snapshot in memory.
type Repository struct {
	data    []byte
	savedAt time.Time
	mu      sync.RWMutex
}

func NewRepository() *Repository {
	return &Repository{}
}

func (r *Repository) Save(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = append([]byte(nil), data...)
	r.savedAt = time.Now()
	return nil
}

// Load returns the last saved snapshot, or nil if nothing was saved yet.
func (r *Repository) Load() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.data == nil {
		return nil, nil
	}
	return append([]byte(nil), r.data...), nil
}

func (r *Repository) SavedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.savedAt
}
