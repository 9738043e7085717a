package guardian

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// It backs development runs without a database and tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	contacts map[string]*Contact
}

// NewInMemoryRepository creates a new in-memory guardian repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		contacts: make(map[string]*Contact),
	}
}

// List returns a user's contacts, oldest first.
func (r *InMemoryRepository) List(_ context.Context, userID string) ([]*Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Contact
	for _, c := range r.contacts {
		if c.UserID == userID {
			cpy := *c
			out = append(out, &cpy)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Count returns how many contacts a user has.
func (r *InMemoryRepository) Count(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.contacts {
		if c.UserID == userID {
			n++
		}
	}
	return n, nil
}

// Create stores a new contact.
func (r *InMemoryRepository) Create(_ context.Context, c *Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *c
	r.contacts[c.ID] = &cpy
	return nil
}

// Delete removes a contact owned by the user.
func (r *InMemoryRepository) Delete(_ context.Context, userID, contactID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contacts[contactID]
	if !ok || c.UserID != userID {
		return ErrContactNotFound
	}

	delete(r.contacts, contactID)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
