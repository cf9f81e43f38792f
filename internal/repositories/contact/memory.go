package contact

import (
	"context"
	"sync"
	"time"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/models"
)

// MemoryRepository keeps contacts in process memory, newest first.
type MemoryRepository struct {
	mu       sync.RWMutex
	contacts []models.Contact
	now      func() time.Time
}

func NewMemoryRepository(seed ...models.Contact) *MemoryRepository {
	contacts := make([]models.Contact, 0, len(seed))
	for _, c := range seed {
		contacts = append(contacts, c.Clone())
	}
	return &MemoryRepository{
		contacts: contacts,
		now:      time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, contact models.Contact) (models.Contact, error) {
	contact = prepareNew(contact, r.now)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(contact.ID) >= 0 {
		return models.Contact{}, ferrors.NewConflictError(contact.ID)
	}

	r.contacts = append([]models.Contact{contact}, r.contacts...)
	return contact.Clone(), nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (models.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return models.Contact{}, ferrors.NewNotFoundError(id)
	}
	return r.contacts[i].Clone(), nil
}

func (r *MemoryRepository) List(_ context.Context) ([]models.Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]models.Contact, len(r.contacts))
	for i, c := range r.contacts {
		snapshot[i] = c.Clone()
	}
	return snapshot, nil
}

func (r *MemoryRepository) Update(_ context.Context, contact models.Contact) (models.Contact, error) {
	contact = contact.Clone()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = r.now()
	}
	contact.CreatedAt = contact.CreatedAt.UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(contact.ID)
	if i < 0 {
		return models.Contact{}, ferrors.NewNotFoundError(contact.ID)
	}
	r.contacts[i] = contact
	return contact.Clone(), nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return ferrors.NewNotFoundError(id)
	}
	r.contacts = append(r.contacts[:i], r.contacts[i+1:]...)
	return nil
}

func (r *MemoryRepository) indexOf(id string) int {
	for i, c := range r.contacts {
		if c.ID == id {
			return i
		}
	}
	return -1
}
